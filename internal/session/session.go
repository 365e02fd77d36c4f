// Package session drives one cashier terminal: the active table, its open
// order and the cached table list. The server owns every total; the manager
// adopts the order view returned by each mutation.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tablepos/api/internal/billing"
	"github.com/tablepos/api/internal/enum"
	"github.com/tablepos/api/internal/posclient"
)

var (
	ErrNoTable        = errors.New("select a table first")
	ErrTableNotFound  = errors.New("table not found")
	ErrTableInactive  = errors.New("table is not active")
	ErrNoOrder        = errors.New("the selected table has no open order")
	ErrItemNotFound   = errors.New("item is not on the current order")
	ErrNothingToSend  = errors.New("no new items to send to the kitchen")
	ErrNoTargetTables = errors.New("choose at least one table")
	ErrTableInUse     = errors.New("table is linked to another open order")
	ErrEmptySplit     = errors.New("choose at least one item to move")
	ErrSplitQuantity  = errors.New("split quantity must be greater than 0 and at most the item quantity")
	ErrDuplicateSplit = errors.New("item selected more than once")
)

const (
	MinQuantity = 1
	MaxQuantity = 99
)

// ClampQuantity limits q to [MinQuantity, MaxQuantity].
func ClampQuantity(q int) int32 {
	if q < MinQuantity {
		return MinQuantity
	}
	if q > MaxQuantity {
		return MaxQuantity
	}
	return int32(q)
}

// API is the part of the REST client the manager uses.
type API interface {
	ListTables(ctx context.Context) ([]posclient.DiningTable, error)
	GetTable(ctx context.Context, id uuid.UUID) (*posclient.DiningTable, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*posclient.Order, error)
	CreateOrder(ctx context.Context, req posclient.CreateOrderRequest) (*posclient.Order, error)
	MergeTables(ctx context.Context, orderID uuid.UUID, tableIDs []uuid.UUID) (*posclient.Order, error)
	SplitOrder(ctx context.Context, req posclient.SplitOrderRequest) (*posclient.SplitResult, error)
	AddDetail(ctx context.Context, req posclient.AddDetailRequest) (*posclient.Order, error)
	UpdateDetail(ctx context.Context, req posclient.UpdateDetailRequest) (*posclient.Order, error)
	RemoveDetail(ctx context.Context, id uuid.UUID) (*posclient.RemoveResult, error)
	BatchUpdateStatus(ctx context.Context, req posclient.BatchStatusRequest) (*posclient.BatchResult, error)
	CreateInvoice(ctx context.Context, req posclient.CreateInvoiceRequest) (*posclient.Invoice, error)
}

// State is everything a terminal remembers between commands.
type State struct {
	Token   string                  `json:"token,omitempty"`
	TableID *uuid.UUID              `json:"table_id,omitempty"`
	Order   *posclient.Order        `json:"order,omitempty"`
	Tables  []posclient.DiningTable `json:"tables,omitempty"`
}

// Confirm asks the operator a yes/no question and blocks for the answer.
type Confirm func(prompt string) bool

// LastItemPrompt is asked before removing the only line of an order.
const LastItemPrompt = "This is the last item. Removing it deletes the order and frees the table. Continue?"

// Manager is not safe for concurrent use; a terminal issues one command at a time.
type Manager struct {
	api   API
	log   *slog.Logger
	state State
}

func NewManager(api API, log *slog.Logger) *Manager {
	return &Manager{api: api, log: log}
}

// Snapshot returns a copy of the current state for persistence.
func (m *Manager) Snapshot() State {
	s := m.state
	if m.state.TableID != nil {
		id := *m.state.TableID
		s.TableID = &id
	}
	s.Tables = append([]posclient.DiningTable(nil), m.state.Tables...)
	return s
}

// Restore replaces the current state.
func (m *Manager) Restore(s State) {
	m.state = s
}

// Token is the bearer token the terminal last logged in with.
func (m *Manager) Token() string { return m.state.Token }

func (m *Manager) SetToken(token string) { m.state.Token = token }

func (m *Manager) Order() *posclient.Order { return m.state.Order }

func (m *Manager) Tables() []posclient.DiningTable { return m.state.Tables }

// Table returns the active table from the cache, or nil.
func (m *Manager) Table() *posclient.DiningTable {
	if m.state.TableID == nil {
		return nil
	}
	return m.cachedTable(*m.state.TableID)
}

// RefreshTables re-fetches table occupancy.
func (m *Manager) RefreshTables(ctx context.Context) error {
	tables, err := m.api.ListTables(ctx)
	if err != nil {
		return fmt.Errorf("failed to load tables: %w", err)
	}
	m.state.Tables = tables
	return nil
}

// SelectTable makes tableID the active table and adopts its unpaid order, if any.
func (m *Manager) SelectTable(ctx context.Context, tableID uuid.UUID) error {
	table, err := m.api.GetTable(ctx, tableID)
	if err != nil {
		if posclient.IsStatus(err, http.StatusNotFound) {
			return ErrTableNotFound
		}
		return fmt.Errorf("failed to load table: %w", err)
	}
	if !table.IsActive {
		return ErrTableInactive
	}

	var order *posclient.Order
	if table.CurrentOrderID != nil {
		order, err = m.api.GetOrder(ctx, *table.CurrentOrderID)
		if err != nil {
			return fmt.Errorf("failed to load order: %w", err)
		}
	}

	m.cacheTable(*table)
	id := table.ID
	m.state.TableID = &id
	m.state.Order = order
	m.log.Debug("table selected", "table", table.Name, "has_order", order != nil)
	return nil
}

// AddItem adds qty of unitID to the current order, opening an order on the
// active table first when there is none.
func (m *Manager) AddItem(ctx context.Context, unitID uuid.UUID, qty int, note string) error {
	if m.state.TableID == nil {
		return ErrNoTable
	}

	order := m.state.Order
	if order == nil {
		created, err := m.api.CreateOrder(ctx, posclient.CreateOrderRequest{
			TableIDs: []uuid.UUID{*m.state.TableID},
		})
		if err != nil {
			m.log.Warn("create order failed", "error", err)
			return fmt.Errorf("failed to open order: %w", err)
		}
		order = created
	}

	view, err := m.api.AddDetail(ctx, posclient.AddDetailRequest{
		OrderID:  order.ID,
		UnitID:   unitID,
		Quantity: ClampQuantity(qty),
		Note:     note,
	})
	if err != nil {
		m.log.Warn("add item failed", "order", order.ID, "error", err)
		return fmt.Errorf("failed to add item: %w", err)
	}
	return m.adopt(ctx, order.ID, view)
}

// UpdateQuantity sets a line's quantity, clamped to [1, 99].
func (m *Manager) UpdateQuantity(ctx context.Context, detailID uuid.UUID, qty int) error {
	order, err := m.requireLine(detailID)
	if err != nil {
		return err
	}
	q := ClampQuantity(qty)
	view, err := m.api.UpdateDetail(ctx, posclient.UpdateDetailRequest{ID: detailID, Quantity: &q})
	if err != nil {
		return fmt.Errorf("failed to update quantity: %w", err)
	}
	return m.adopt(ctx, order.ID, view)
}

// AttachNote replaces a line's note.
func (m *Manager) AttachNote(ctx context.Context, detailID uuid.UUID, note string) error {
	order, err := m.requireLine(detailID)
	if err != nil {
		return err
	}
	view, err := m.api.UpdateDetail(ctx, posclient.UpdateDetailRequest{ID: detailID, Note: &note})
	if err != nil {
		return fmt.Errorf("failed to update note: %w", err)
	}
	return m.adopt(ctx, order.ID, view)
}

// RemoveItem deletes a line. Removing the last line asks confirm first;
// declining leaves everything as it was. It reports whether anything was removed.
func (m *Manager) RemoveItem(ctx context.Context, detailID uuid.UUID, confirm Confirm) (bool, error) {
	order, err := m.requireLine(detailID)
	if err != nil {
		return false, err
	}
	if len(order.Details) == 1 && (confirm == nil || !confirm(LastItemPrompt)) {
		return false, nil
	}

	res, err := m.api.RemoveDetail(ctx, detailID)
	if err != nil {
		return false, fmt.Errorf("failed to remove item: %w", err)
	}

	if res.OrderDeleted {
		m.log.Info("order deleted with its last item", "order", order.ID)
		m.state.Order = nil
		m.state.TableID = nil
		return true, m.RefreshTables(ctx)
	}
	return true, m.adopt(ctx, order.ID, res.Order)
}

// NotifyKitchen sends every AWAITING line to the kitchen in one call and
// returns how many lines moved.
func (m *Manager) NotifyKitchen(ctx context.Context) (int, error) {
	order, err := m.requireOrder()
	if err != nil {
		return 0, err
	}
	if order.CountByStatus(enum.OrderDetailStatusAwaiting) == 0 {
		return 0, ErrNothingToSend
	}

	id := order.ID
	res, err := m.api.BatchUpdateStatus(ctx, posclient.BatchStatusRequest{
		OrderID: &id,
		Status:  enum.OrderDetailStatusPending,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to send to kitchen: %w", err)
	}
	return len(res.Updated), m.adopt(ctx, order.ID, res.Order)
}

// Checkout validates the payment locally, creates the invoice and clears the
// selection. Nothing is sent when validation fails.
func (m *Manager) Checkout(ctx context.Context, tendered decimal.Decimal, method string) (*posclient.Invoice, billing.Summary, error) {
	order, err := m.requireOrder()
	if err != nil {
		return nil, billing.Summary{}, err
	}
	total := order.TotalPrice
	if err := billing.Validate(total, tendered, method); err != nil {
		return nil, billing.Summary{}, err
	}
	normalized, _ := billing.NormalizeMethod(method)

	inv, err := m.api.CreateInvoice(ctx, posclient.CreateInvoiceRequest{
		OrderID:       order.ID,
		CustomerPaid:  tendered,
		PaymentMethod: normalized,
	})
	if err != nil {
		return nil, billing.Summary{}, fmt.Errorf("failed to create invoice: %w", err)
	}

	summary := billing.Summarize(total, tendered)
	m.log.Info("order paid", "order", order.ID, "total", total.StringFixed(2), "change", summary.Change.StringFixed(2))

	m.state.Order = nil
	m.state.TableID = nil
	return inv, summary, m.RefreshTables(ctx)
}

// MergeTables links tableIDs to the current order. Tables the cache shows as
// held by another order block the whole request. The cache is refreshed first
// when it does not know every target.
func (m *Manager) MergeTables(ctx context.Context, tableIDs []uuid.UUID) error {
	order, err := m.requireOrder()
	if err != nil {
		return err
	}
	if len(tableIDs) == 0 {
		return ErrNoTargetTables
	}
	for _, id := range tableIDs {
		if m.cachedTable(id) == nil {
			if err := m.RefreshTables(ctx); err != nil {
				return err
			}
			break
		}
	}
	for _, id := range tableIDs {
		if t := m.cachedTable(id); t != nil && m.heldElsewhere(*t, order.ID) {
			return fmt.Errorf("%s: %w", t.Name, ErrTableInUse)
		}
	}

	view, err := m.api.MergeTables(ctx, order.ID, tableIDs)
	if err != nil {
		return fmt.Errorf("failed to merge tables: %w", err)
	}
	if err := m.adopt(ctx, order.ID, view); err != nil {
		return err
	}
	return m.RefreshTables(ctx)
}

// SplitOrder moves quantities of the given lines to a new order on tableIDs.
// Every line must satisfy 0 < quantity <= its current quantity.
func (m *Manager) SplitOrder(ctx context.Context, tableIDs []uuid.UUID, lines []posclient.SplitLine) (*posclient.SplitResult, error) {
	order, err := m.requireOrder()
	if err != nil {
		return nil, err
	}
	if len(tableIDs) == 0 {
		return nil, ErrNoTargetTables
	}
	if err := ValidateSplit(order, lines); err != nil {
		return nil, err
	}

	res, err := m.api.SplitOrder(ctx, posclient.SplitOrderRequest{
		OrderID:  order.ID,
		TableIDs: tableIDs,
		Items:    lines,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to split order: %w", err)
	}

	if res.Source == nil {
		m.state.Order = nil
		m.state.TableID = nil
	} else if err := m.adopt(ctx, order.ID, res.Source); err != nil {
		return res, err
	}
	return res, m.RefreshTables(ctx)
}

// ValidateSplit checks lines against order without contacting the server.
func ValidateSplit(order *posclient.Order, lines []posclient.SplitLine) error {
	if len(lines) == 0 {
		return ErrEmptySplit
	}
	seen := make(map[uuid.UUID]bool, len(lines))
	for _, l := range lines {
		if seen[l.OrderDetailID] {
			return ErrDuplicateSplit
		}
		seen[l.OrderDetailID] = true

		d := order.Detail(l.OrderDetailID)
		if d == nil {
			return ErrItemNotFound
		}
		if l.Quantity <= 0 || l.Quantity > d.Quantity {
			return fmt.Errorf("%s: %w", d.ProductName, ErrSplitQuantity)
		}
	}
	return nil
}

// adopt stores view as the current order, fetching it when the response
// carried none.
func (m *Manager) adopt(ctx context.Context, orderID uuid.UUID, view *posclient.Order) error {
	if view == nil {
		fresh, err := m.api.GetOrder(ctx, orderID)
		if err != nil {
			return fmt.Errorf("failed to refresh order: %w", err)
		}
		view = fresh
	}
	m.state.Order = view
	return nil
}

func (m *Manager) requireOrder() (*posclient.Order, error) {
	if m.state.TableID == nil {
		return nil, ErrNoTable
	}
	if m.state.Order == nil {
		return nil, ErrNoOrder
	}
	return m.state.Order, nil
}

func (m *Manager) requireLine(detailID uuid.UUID) (*posclient.Order, error) {
	order, err := m.requireOrder()
	if err != nil {
		return nil, err
	}
	if order.Detail(detailID) == nil {
		return nil, ErrItemNotFound
	}
	return order, nil
}

func (m *Manager) heldElsewhere(t posclient.DiningTable, orderID uuid.UUID) bool {
	if t.CurrentOrderID != nil {
		return *t.CurrentOrderID != orderID
	}
	return t.InUse()
}

func (m *Manager) cachedTable(id uuid.UUID) *posclient.DiningTable {
	for i := range m.state.Tables {
		if m.state.Tables[i].ID == id {
			return &m.state.Tables[i]
		}
	}
	return nil
}

func (m *Manager) cacheTable(t posclient.DiningTable) {
	if cached := m.cachedTable(t.ID); cached != nil {
		*cached = t
		return
	}
	m.state.Tables = append(m.state.Tables, t)
}
