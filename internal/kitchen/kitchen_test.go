package kitchen_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tablepos/api/internal/kitchen"
	"github.com/tablepos/api/internal/logging"
	"github.com/tablepos/api/internal/posclient"
)

var base = time.Date(2026, 10, 18, 19, 0, 0, 0, time.UTC)

func line(name, station, status string, minute int) posclient.OrderDetail {
	d := posclient.OrderDetail{
		ID:          uuid.New(),
		ProductName: name,
		Quantity:    1,
		Status:      status,
		CreatedAt:   base.Add(time.Duration(minute) * time.Minute),
	}
	if station != "" {
		s := station
		d.Station = &s
	}
	return d
}

func names(stations []kitchen.Station) []string {
	out := make([]string, len(stations))
	for i, s := range stations {
		out[i] = s.Name
	}
	return out
}

func TestGroup(t *testing.T) {
	details := []posclient.OrderDetail{
		line("Mojito", "BAR", "PENDING", 3),
		line("Pudding", "DESSERT", "PENDING", 1),
		line("Satay", "GRILL", "PENDING", 5),
		line("Fish", "grill", "PENDING", 2),
		line("Bread", "", "PENDING", 0),
		line("Sushi", "SUSHI", "PENDING", 4),
		line("Cake", "PASTRY", "PENDING", 6),
		line("Tea", "BEVERAGE", "AWAITING", 0),
		line("Rice", "KITCHEN", "CONFIRMED", 0),
		line("Soup", "KITCHEN", "CANCELED", 0),
	}

	got := kitchen.Group(details)
	assert.Equal(t, []string{"GRILL", "BAR", "DESSERT", "PASTRY", "SUSHI", kitchen.Unassigned}, names(got))

	grill := got[0].Lines
	require.Len(t, grill, 2)
	assert.Equal(t, "Fish", grill[0].ProductName, "oldest first")
	assert.Equal(t, "Satay", grill[1].ProductName)
}

func TestGroup_Empty(t *testing.T) {
	assert.Empty(t, kitchen.Group(nil))
	assert.Empty(t, kitchen.Group([]posclient.OrderDetail{line("Tea", "BAR", "CONFIRMED", 0)}))
}

type fakeAPI struct {
	details []posclient.OrderDetail
	filters []posclient.DetailFilter
	batches []posclient.BatchStatusRequest
	listErr error
}

func (f *fakeAPI) ListDetails(_ context.Context, filter posclient.DetailFilter) ([]posclient.OrderDetail, error) {
	f.filters = append(f.filters, filter)
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []posclient.OrderDetail
	for _, d := range f.details {
		if d.Status == filter.Status {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeAPI) BatchUpdateStatus(_ context.Context, req posclient.BatchStatusRequest) (*posclient.BatchResult, error) {
	f.batches = append(f.batches, req)
	res := &posclient.BatchResult{}
	for _, id := range req.IDs {
		for i := range f.details {
			if f.details[i].ID == id && f.details[i].Status == "PENDING" {
				f.details[i].Status = req.Status
				res.Updated = append(res.Updated, f.details[i])
			}
		}
	}
	return res, nil
}

func TestQueue_RefreshConfirmCancel(t *testing.T) {
	ctx := context.Background()
	satay := line("Satay", "GRILL", "PENDING", 1)
	tea := line("Tea", "BEVERAGE", "PENDING", 2)
	done := line("Rice", "KITCHEN", "CONFIRMED", 0)
	api := &fakeAPI{details: []posclient.OrderDetail{satay, tea, done}}

	q := kitchen.NewQueue(api, " grill ", logging.NewNop())
	require.NoError(t, q.Refresh(ctx))
	assert.Equal(t, "GRILL", api.filters[0].Station)
	assert.Equal(t, "PENDING", api.filters[0].Status)
	assert.Equal(t, 2, q.Len())

	n, err := q.Confirm(ctx, []uuid.UUID{satay.ID, done.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, n, "already confirmed line is untouched")
	assert.Equal(t, "CONFIRMED", api.batches[0].Status)
	assert.Equal(t, 1, q.Len(), "view refreshed after confirm")

	n, err = q.Cancel(ctx, []uuid.UUID{tea.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "CANCELED", api.batches[1].Status)
	assert.Zero(t, q.Len())

	_, err = q.Confirm(ctx, nil)
	assert.ErrorIs(t, err, kitchen.ErrNoLines)
	assert.Len(t, api.batches, 2)
}

func TestQueue_RefreshError(t *testing.T) {
	api := &fakeAPI{listErr: errors.New("connection refused")}
	q := kitchen.NewQueue(api, "", logging.NewNop())
	err := q.Refresh(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Empty(t, api.filters[0].Station)
}
