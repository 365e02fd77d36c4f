package session_test

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tablepos/api/internal/posclient"
)

// fakeAPI is an in-memory server good enough to drive the session manager.
type fakeAPI struct {
	tables []posclient.DiningTable
	orders map[uuid.UUID]*posclient.Order
	prices map[uuid.UUID]decimal.Decimal
	calls  map[string]int
	fail   map[string]error
}

func newFakeAPI(tableNames ...string) *fakeAPI {
	f := &fakeAPI{
		orders: make(map[uuid.UUID]*posclient.Order),
		prices: make(map[uuid.UUID]decimal.Decimal),
		calls:  make(map[string]int),
		fail:   make(map[string]error),
	}
	for _, name := range tableNames {
		f.tables = append(f.tables, posclient.DiningTable{
			ID: uuid.New(), Name: name, Seats: 4, IsActive: true, Status: "AVAILABLE",
		})
	}
	return f
}

func (f *fakeAPI) addUnit(price int64) uuid.UUID {
	id := uuid.New()
	f.prices[id] = decimal.NewFromInt(price)
	return id
}

func (f *fakeAPI) call(name string) error {
	f.calls[name]++
	return f.fail[name]
}

func (f *fakeAPI) table(id uuid.UUID) *posclient.DiningTable {
	for i := range f.tables {
		if f.tables[i].ID == id {
			return &f.tables[i]
		}
	}
	return nil
}

func (f *fakeAPI) occupy(t *posclient.DiningTable, orderID uuid.UUID) {
	id := orderID
	t.CurrentOrderID = &id
	t.Status = "OCCUPIED"
}

func (f *fakeAPI) release(orderID uuid.UUID) {
	for i := range f.tables {
		if t := &f.tables[i]; t.CurrentOrderID != nil && *t.CurrentOrderID == orderID {
			t.CurrentOrderID = nil
			t.Status = "AVAILABLE"
		}
	}
}

func (f *fakeAPI) view(o *posclient.Order) *posclient.Order {
	total := decimal.Zero
	for _, d := range o.Details {
		if d.Status != "CANCELED" {
			total = total.Add(d.LineTotal())
		}
	}
	o.TotalPrice = total
	cp := *o
	cp.TableIDs = append([]uuid.UUID(nil), o.TableIDs...)
	cp.Details = append([]posclient.OrderDetail(nil), o.Details...)
	return &cp
}

func notFound() error {
	return &posclient.APIError{StatusCode: http.StatusNotFound, Message: "not found"}
}

func conflict() error {
	return &posclient.APIError{StatusCode: http.StatusConflict, Message: "dining table is linked to another open order"}
}

func (f *fakeAPI) findDetail(id uuid.UUID) (*posclient.Order, int) {
	for _, o := range f.orders {
		for i := range o.Details {
			if o.Details[i].ID == id {
				return o, i
			}
		}
	}
	return nil, -1
}

func (f *fakeAPI) ListTables(context.Context) ([]posclient.DiningTable, error) {
	if err := f.call("ListTables"); err != nil {
		return nil, err
	}
	return append([]posclient.DiningTable(nil), f.tables...), nil
}

func (f *fakeAPI) GetTable(_ context.Context, id uuid.UUID) (*posclient.DiningTable, error) {
	if err := f.call("GetTable"); err != nil {
		return nil, err
	}
	t := f.table(id)
	if t == nil {
		return nil, notFound()
	}
	cp := *t
	return &cp, nil
}

func (f *fakeAPI) GetOrder(_ context.Context, id uuid.UUID) (*posclient.Order, error) {
	if err := f.call("GetOrder"); err != nil {
		return nil, err
	}
	o, ok := f.orders[id]
	if !ok {
		return nil, notFound()
	}
	return f.view(o), nil
}

func (f *fakeAPI) CreateOrder(_ context.Context, req posclient.CreateOrderRequest) (*posclient.Order, error) {
	if err := f.call("CreateOrder"); err != nil {
		return nil, err
	}
	for _, id := range req.TableIDs {
		if t := f.table(id); t == nil || t.CurrentOrderID != nil {
			return nil, conflict()
		}
	}
	o := &posclient.Order{ID: uuid.New(), Status: "PENDING", TableIDs: req.TableIDs}
	f.orders[o.ID] = o
	for _, id := range req.TableIDs {
		f.occupy(f.table(id), o.ID)
	}
	return f.view(o), nil
}

func (f *fakeAPI) MergeTables(_ context.Context, orderID uuid.UUID, tableIDs []uuid.UUID) (*posclient.Order, error) {
	if err := f.call("MergeTables"); err != nil {
		return nil, err
	}
	o := f.orders[orderID]
	for _, id := range tableIDs {
		t := f.table(id)
		if t.CurrentOrderID != nil && *t.CurrentOrderID != orderID {
			return nil, conflict()
		}
	}
	for _, id := range tableIDs {
		f.occupy(f.table(id), orderID)
		o.TableIDs = append(o.TableIDs, id)
	}
	return f.view(o), nil
}

func (f *fakeAPI) SplitOrder(_ context.Context, req posclient.SplitOrderRequest) (*posclient.SplitResult, error) {
	if err := f.call("SplitOrder"); err != nil {
		return nil, err
	}
	src := f.orders[req.OrderID]
	dst := &posclient.Order{ID: uuid.New(), Status: "PENDING", TableIDs: req.TableIDs}
	f.orders[dst.ID] = dst
	for _, id := range req.TableIDs {
		f.occupy(f.table(id), dst.ID)
	}
	for _, item := range req.Items {
		_, i := f.findDetail(item.OrderDetailID)
		moved := src.Details[i]
		moved.ID = uuid.New()
		moved.OrderID = dst.ID
		moved.Quantity = item.Quantity
		dst.Details = append(dst.Details, moved)
		src.Details[i].Quantity -= item.Quantity
	}
	kept := src.Details[:0]
	for _, d := range src.Details {
		if d.Quantity > 0 {
			kept = append(kept, d)
		}
	}
	src.Details = kept

	res := &posclient.SplitResult{Target: f.view(dst)}
	if len(src.Details) == 0 {
		delete(f.orders, src.ID)
		f.release(src.ID)
	} else {
		res.Source = f.view(src)
	}
	return res, nil
}

func (f *fakeAPI) AddDetail(_ context.Context, req posclient.AddDetailRequest) (*posclient.Order, error) {
	if err := f.call("AddDetail"); err != nil {
		return nil, err
	}
	o, ok := f.orders[req.OrderID]
	if !ok {
		return nil, notFound()
	}
	o.Details = append(o.Details, posclient.OrderDetail{
		ID:        uuid.New(),
		OrderID:   o.ID,
		UnitID:    req.UnitID,
		Quantity:  req.Quantity,
		UnitPrice: f.prices[req.UnitID],
		Status:    "AWAITING",
	})
	if o.Status == "WAITING" {
		o.Status = "PENDING"
	}
	return f.view(o), nil
}

func (f *fakeAPI) UpdateDetail(_ context.Context, req posclient.UpdateDetailRequest) (*posclient.Order, error) {
	if err := f.call("UpdateDetail"); err != nil {
		return nil, err
	}
	o, i := f.findDetail(req.ID)
	if o == nil {
		return nil, notFound()
	}
	if req.Quantity != nil {
		o.Details[i].Quantity = *req.Quantity
	}
	if req.Note != nil {
		note := *req.Note
		o.Details[i].Note = &note
	}
	return f.view(o), nil
}

func (f *fakeAPI) RemoveDetail(_ context.Context, id uuid.UUID) (*posclient.RemoveResult, error) {
	if err := f.call("RemoveDetail"); err != nil {
		return nil, err
	}
	o, i := f.findDetail(id)
	if o == nil {
		return nil, notFound()
	}
	o.Details = append(o.Details[:i], o.Details[i+1:]...)
	if len(o.Details) == 0 {
		delete(f.orders, o.ID)
		f.release(o.ID)
		return &posclient.RemoveResult{ID: id, OrderDeleted: true}, nil
	}
	return &posclient.RemoveResult{ID: id, Order: f.view(o)}, nil
}

func (f *fakeAPI) BatchUpdateStatus(_ context.Context, req posclient.BatchStatusRequest) (*posclient.BatchResult, error) {
	if err := f.call("BatchUpdateStatus"); err != nil {
		return nil, err
	}
	o := f.orders[*req.OrderID]
	var updated []posclient.OrderDetail
	for i := range o.Details {
		if o.Details[i].Status == "AWAITING" {
			o.Details[i].Status = "PENDING"
			updated = append(updated, o.Details[i])
		}
	}
	if len(updated) > 0 {
		o.Status = "WAITING"
	}
	return &posclient.BatchResult{Updated: updated, Order: f.view(o)}, nil
}

func (f *fakeAPI) CreateInvoice(_ context.Context, req posclient.CreateInvoiceRequest) (*posclient.Invoice, error) {
	if err := f.call("CreateInvoice"); err != nil {
		return nil, err
	}
	o := f.orders[req.OrderID]
	total := f.view(o).TotalPrice
	o.Status = "COMPLETED"
	f.release(o.ID)
	return &posclient.Invoice{
		ID:             uuid.New(),
		OrderID:        o.ID,
		TotalAmount:    total,
		CustomerPaid:   req.CustomerPaid,
		ChangeReturned: req.CustomerPaid.Sub(total),
		PaymentMethod:  req.PaymentMethod,
	}, nil
}
