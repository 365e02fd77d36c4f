package session_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tablepos/api/internal/billing"
	"github.com/tablepos/api/internal/logging"
	"github.com/tablepos/api/internal/posclient"
	"github.com/tablepos/api/internal/session"
)

func setup(t *testing.T, tables ...string) (*session.Manager, *fakeAPI) {
	t.Helper()
	if len(tables) == 0 {
		tables = []string{"T1", "T2", "T3"}
	}
	api := newFakeAPI(tables...)
	m := session.NewManager(api, logging.NewNop())
	require.NoError(t, m.RefreshTables(context.Background()))
	return m, api
}

// seated selects table idx and adds qty of a unit priced at price.
func seated(t *testing.T, m *session.Manager, api *fakeAPI, idx int, price int64, qty int) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, m.SelectTable(ctx, api.tables[idx].ID))
	unit := api.addUnit(price)
	require.NoError(t, m.AddItem(ctx, unit, qty, ""))
	return unit
}

func TestClampQuantity(t *testing.T) {
	tests := []struct {
		in   int
		want int32
	}{
		{-5, 1}, {0, 1}, {1, 1}, {42, 42}, {99, 99}, {100, 99}, {1000, 99},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, session.ClampQuantity(tt.in), "ClampQuantity(%d)", tt.in)
	}
}

func TestSelectTable(t *testing.T) {
	ctx := context.Background()
	m, api := setup(t)

	t.Run("free table has no order", func(t *testing.T) {
		require.NoError(t, m.SelectTable(ctx, api.tables[0].ID))
		assert.Nil(t, m.Order())
		require.NotNil(t, m.Table())
		assert.Equal(t, "T1", m.Table().Name)
	})

	t.Run("occupied table adopts its order", func(t *testing.T) {
		other := session.NewManager(api, logging.NewNop())
		seated(t, other, api, 1, 25000, 2)

		require.NoError(t, m.SelectTable(ctx, api.tables[1].ID))
		require.NotNil(t, m.Order())
		assert.Equal(t, other.Order().ID, m.Order().ID)
		assert.Len(t, m.Order().Details, 1)
	})

	t.Run("unknown table", func(t *testing.T) {
		err := m.SelectTable(ctx, uuid.New())
		assert.ErrorIs(t, err, session.ErrTableNotFound)
	})

	t.Run("inactive table", func(t *testing.T) {
		api.tables[2].IsActive = false
		err := m.SelectTable(ctx, api.tables[2].ID)
		assert.ErrorIs(t, err, session.ErrTableInactive)
	})
}

func TestAddItem_OpensOrderOnFirstItem(t *testing.T) {
	ctx := context.Background()
	m, api := setup(t)
	unit := seated(t, m, api, 0, 45000, 2)

	order := m.Order()
	require.NotNil(t, order)
	assert.Equal(t, "PENDING", order.Status)
	assert.True(t, decimal.NewFromInt(90000).Equal(order.TotalPrice))
	assert.Equal(t, 1, api.calls["CreateOrder"])

	require.NoError(t, m.AddItem(ctx, unit, 1, "extra spicy"))
	assert.Equal(t, 1, api.calls["CreateOrder"], "second item reuses the open order")
	assert.Len(t, m.Order().Details, 2)
	assert.True(t, decimal.NewFromInt(135000).Equal(m.Order().TotalPrice))
}

func TestAddItem_RequiresTable(t *testing.T) {
	m, api := setup(t)
	err := m.AddItem(context.Background(), uuid.New(), 1, "")
	assert.ErrorIs(t, err, session.ErrNoTable)
	assert.Zero(t, api.calls["CreateOrder"])
	assert.Zero(t, api.calls["AddDetail"])
}

func TestAddItem_CreationFailureLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	m, api := setup(t)
	require.NoError(t, m.SelectTable(ctx, api.tables[0].ID))
	before := m.Snapshot()

	api.fail["CreateOrder"] = conflict()
	err := m.AddItem(ctx, api.addUnit(1000), 1, "")
	require.Error(t, err)
	assert.True(t, posclient.IsStatus(err, http.StatusConflict))
	assert.Zero(t, api.calls["AddDetail"])
	assert.Equal(t, before, m.Snapshot())

	delete(api.fail, "CreateOrder")
	api.fail["AddDetail"] = errors.New("connection reset")
	err = m.AddItem(ctx, api.addUnit(1000), 1, "")
	require.Error(t, err)
	assert.Nil(t, m.Order())
	assert.Equal(t, 1, api.calls["AddDetail"], "no retry")
}

func TestUpdateQuantity_Clamps(t *testing.T) {
	ctx := context.Background()
	m, api := setup(t)
	seated(t, m, api, 0, 1000, 1)
	lineID := m.Order().Details[0].ID

	require.NoError(t, m.UpdateQuantity(ctx, lineID, 150))
	assert.Equal(t, int32(99), m.Order().Details[0].Quantity)
	assert.True(t, decimal.NewFromInt(99000).Equal(m.Order().TotalPrice))

	require.NoError(t, m.UpdateQuantity(ctx, lineID, 0))
	assert.Equal(t, int32(1), m.Order().Details[0].Quantity)

	err := m.UpdateQuantity(ctx, uuid.New(), 3)
	assert.ErrorIs(t, err, session.ErrItemNotFound)
}

func TestAttachNote(t *testing.T) {
	m, api := setup(t)
	seated(t, m, api, 0, 1000, 1)
	lineID := m.Order().Details[0].ID

	require.NoError(t, m.AttachNote(context.Background(), lineID, "no onions"))
	require.NotNil(t, m.Order().Details[0].Note)
	assert.Equal(t, "no onions", *m.Order().Details[0].Note)
}

func TestRemoveItem_LastLineNeedsConfirmation(t *testing.T) {
	ctx := context.Background()
	m, api := setup(t)
	seated(t, m, api, 0, 1000, 1)
	orderID := m.Order().ID
	lineID := m.Order().Details[0].ID

	var prompts []string
	decline := func(p string) bool { prompts = append(prompts, p); return false }
	accept := func(p string) bool { prompts = append(prompts, p); return true }

	removed, err := m.RemoveItem(ctx, lineID, decline)
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Zero(t, api.calls["RemoveDetail"])
	assert.Equal(t, orderID, m.Order().ID)

	removed, err = m.RemoveItem(ctx, lineID, accept)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Equal(t, []string{session.LastItemPrompt, session.LastItemPrompt}, prompts)

	assert.Nil(t, m.Order())
	assert.Nil(t, m.Table())
	assert.NotContains(t, api.orders, orderID)
	tables := m.Tables()
	assert.Equal(t, "AVAILABLE", tables[0].Status)
	assert.Nil(t, tables[0].CurrentOrderID)
}

func TestRemoveItem_OtherLinesNoPrompt(t *testing.T) {
	ctx := context.Background()
	m, api := setup(t)
	unit := seated(t, m, api, 0, 1000, 1)
	require.NoError(t, m.AddItem(ctx, unit, 2, ""))
	lineID := m.Order().Details[0].ID

	removed, err := m.RemoveItem(ctx, lineID, func(string) bool {
		t.Fatal("confirmation must not be asked")
		return false
	})
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Len(t, m.Order().Details, 1)
	assert.True(t, decimal.NewFromInt(2000).Equal(m.Order().TotalPrice))
}

func TestNotifyKitchen(t *testing.T) {
	ctx := context.Background()
	m, api := setup(t)

	t.Run("blocked without an order", func(t *testing.T) {
		require.NoError(t, m.SelectTable(ctx, api.tables[0].ID))
		_, err := m.NotifyKitchen(ctx)
		assert.ErrorIs(t, err, session.ErrNoOrder)
	})

	unit := seated(t, m, api, 0, 1000, 1)

	t.Run("moves only awaiting lines", func(t *testing.T) {
		order := api.orders[m.Order().ID]
		order.Details[0].Status = "CONFIRMED"
		require.NoError(t, m.AddItem(ctx, unit, 2, ""))

		n, err := m.NotifyKitchen(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		assert.Equal(t, "WAITING", m.Order().Status)
		assert.Equal(t, "CONFIRMED", m.Order().Details[0].Status)
		assert.Equal(t, "PENDING", m.Order().Details[1].Status)
	})

	t.Run("blocked when nothing is awaiting", func(t *testing.T) {
		calls := api.calls["BatchUpdateStatus"]
		_, err := m.NotifyKitchen(ctx)
		assert.ErrorIs(t, err, session.ErrNothingToSend)
		assert.Equal(t, calls, api.calls["BatchUpdateStatus"])
	})
}

func TestCheckout(t *testing.T) {
	ctx := context.Background()

	t.Run("insufficient payment sends nothing", func(t *testing.T) {
		m, api := setup(t)
		seated(t, m, api, 0, 50000, 2)

		_, _, err := m.Checkout(ctx, decimal.NewFromInt(80000), "CASH")
		assert.ErrorIs(t, err, billing.ErrInsufficientPayment)
		assert.Zero(t, api.calls["CreateInvoice"])
		assert.NotNil(t, m.Order())
	})

	t.Run("unknown method sends nothing", func(t *testing.T) {
		m, api := setup(t)
		seated(t, m, api, 0, 50000, 2)

		_, _, err := m.Checkout(ctx, decimal.NewFromInt(150000), "BITCOIN")
		assert.ErrorIs(t, err, billing.ErrInvalidMethod)
		assert.Zero(t, api.calls["CreateInvoice"])
	})

	t.Run("pays and frees the table", func(t *testing.T) {
		m, api := setup(t)
		seated(t, m, api, 0, 50000, 2)

		inv, summary, err := m.Checkout(ctx, decimal.NewFromInt(150000), "cash")
		require.NoError(t, err)
		assert.Equal(t, "CASH", inv.PaymentMethod)
		assert.True(t, decimal.NewFromInt(100000).Equal(summary.Total))
		assert.True(t, decimal.NewFromInt(50000).Equal(summary.Change))
		assert.True(t, summary.Tax.IsZero())
		assert.True(t, summary.Discount.IsZero())

		assert.Nil(t, m.Order())
		assert.Nil(t, m.Table())
		assert.Equal(t, "AVAILABLE", m.Tables()[0].Status)
	})

	t.Run("requires an order", func(t *testing.T) {
		m, _ := setup(t)
		_, _, err := m.Checkout(ctx, decimal.NewFromInt(1), "CASH")
		assert.ErrorIs(t, err, session.ErrNoTable)
	})
}

func TestMergeTables(t *testing.T) {
	ctx := context.Background()
	m, api := setup(t)

	other := session.NewManager(api, logging.NewNop())
	seated(t, other, api, 1, 1000, 1)

	seated(t, m, api, 0, 1000, 1)
	require.NoError(t, m.RefreshTables(ctx))

	t.Run("blocked by a table in use", func(t *testing.T) {
		err := m.MergeTables(ctx, []uuid.UUID{api.tables[2].ID, api.tables[1].ID})
		assert.ErrorIs(t, err, session.ErrTableInUse)
		assert.Zero(t, api.calls["MergeTables"])
	})

	t.Run("no tables", func(t *testing.T) {
		assert.ErrorIs(t, m.MergeTables(ctx, nil), session.ErrNoTargetTables)
	})

	t.Run("free table is merged", func(t *testing.T) {
		require.NoError(t, m.MergeTables(ctx, []uuid.UUID{api.tables[2].ID}))
		assert.Len(t, m.Order().TableIDs, 2)
		assert.Equal(t, "OCCUPIED", m.Tables()[2].Status)
	})
}

func TestMergeTables_RefreshesUnknownTargets(t *testing.T) {
	ctx := context.Background()
	m, api := setup(t)

	other := session.NewManager(api, logging.NewNop())
	seated(t, other, api, 1, 1000, 1)
	seated(t, m, api, 0, 1000, 1)

	state := m.Snapshot()
	state.Tables = nil
	m.Restore(state)
	listed := api.calls["ListTables"]

	err := m.MergeTables(ctx, []uuid.UUID{api.tables[1].ID})

	assert.ErrorIs(t, err, session.ErrTableInUse)
	assert.Equal(t, listed+1, api.calls["ListTables"])
	assert.Zero(t, api.calls["MergeTables"])
	assert.Len(t, m.Tables(), 3)
}

func TestSplitOrder(t *testing.T) {
	ctx := context.Background()
	m, api := setup(t)
	unit := seated(t, m, api, 0, 1000, 3)
	require.NoError(t, m.AddItem(ctx, unit, 1, ""))
	first := m.Order().Details[0]
	second := m.Order().Details[1]
	target := []uuid.UUID{api.tables[1].ID}

	invalid := []struct {
		name  string
		lines []posclient.SplitLine
		want  error
	}{
		{"empty", nil, session.ErrEmptySplit},
		{"zero quantity", []posclient.SplitLine{{OrderDetailID: first.ID, Quantity: 0}}, session.ErrSplitQuantity},
		{"more than ordered", []posclient.SplitLine{{OrderDetailID: first.ID, Quantity: 4}}, session.ErrSplitQuantity},
		{"one bad line blocks all", []posclient.SplitLine{
			{OrderDetailID: first.ID, Quantity: 1},
			{OrderDetailID: second.ID, Quantity: 2},
		}, session.ErrSplitQuantity},
		{"duplicate", []posclient.SplitLine{
			{OrderDetailID: first.ID, Quantity: 1},
			{OrderDetailID: first.ID, Quantity: 1},
		}, session.ErrDuplicateSplit},
		{"unknown line", []posclient.SplitLine{{OrderDetailID: uuid.New(), Quantity: 1}}, session.ErrItemNotFound},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.SplitOrder(ctx, target, tt.lines)
			assert.ErrorIs(t, err, tt.want)
			assert.Zero(t, api.calls["SplitOrder"])
		})
	}

	t.Run("no target tables", func(t *testing.T) {
		_, err := m.SplitOrder(ctx, nil, []posclient.SplitLine{{OrderDetailID: first.ID, Quantity: 1}})
		assert.ErrorIs(t, err, session.ErrNoTargetTables)
	})

	t.Run("valid split", func(t *testing.T) {
		res, err := m.SplitOrder(ctx, target, []posclient.SplitLine{
			{OrderDetailID: first.ID, Quantity: 2},
			{OrderDetailID: second.ID, Quantity: 1},
		})
		require.NoError(t, err)
		assert.Equal(t, 1, api.calls["SplitOrder"])
		require.NotNil(t, res.Source)
		assert.True(t, decimal.NewFromInt(1000).Equal(m.Order().TotalPrice))
		assert.True(t, decimal.NewFromInt(3000).Equal(res.Target.TotalPrice))
		assert.Equal(t, "OCCUPIED", m.Tables()[1].Status)
	})

	t.Run("moving everything clears the session", func(t *testing.T) {
		remaining := m.Order().Details[0]
		res, err := m.SplitOrder(ctx, []uuid.UUID{api.tables[2].ID}, []posclient.SplitLine{
			{OrderDetailID: remaining.ID, Quantity: remaining.Quantity},
		})
		require.NoError(t, err)
		assert.Nil(t, res.Source)
		assert.Nil(t, m.Order())
		assert.Equal(t, "AVAILABLE", m.Tables()[0].Status)
	})
}

func TestSnapshotRestore(t *testing.T) {
	m, api := setup(t)
	seated(t, m, api, 0, 1000, 2)
	snap := m.Snapshot()

	restored := session.NewManager(api, logging.NewNop())
	restored.Restore(snap)
	assert.Equal(t, m.Order().ID, restored.Order().ID)
	assert.Equal(t, "T1", restored.Table().Name)
	assert.Len(t, restored.Tables(), 3)
}
