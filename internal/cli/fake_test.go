package cli

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tablepos/api/internal/enum"
	"github.com/tablepos/api/internal/envelope"
	"github.com/tablepos/api/internal/posclient"
)

const fakeToken = "tok-1"

// fakePOS is a small in-memory API server: one product with one unit and a
// few tables. It only knows the routes posctl calls.
type fakePOS struct {
	mu      sync.Mutex
	tables  []posclient.DiningTable
	product posclient.Product
	unit    posclient.Unit
	orders  map[uuid.UUID]*posclient.Order
	paid    []posclient.CreateInvoiceRequest
	splits  []posclient.SplitOrderRequest
}

func newFakePOS(t *testing.T, tableNames ...string) (*fakePOS, *httptest.Server) {
	t.Helper()
	grill := enum.StationGrill
	f := &fakePOS{orders: make(map[uuid.UUID]*posclient.Order)}
	f.product = posclient.Product{ID: uuid.New(), Name: "Grilled Chicken", Station: &grill, IsActive: true}
	f.unit = posclient.Unit{
		ID: uuid.New(), ProductID: f.product.ID, Name: "Plate",
		Price: decimal.NewFromInt(45000), ProductName: f.product.Name, Station: &grill,
	}
	for _, name := range tableNames {
		f.tables = append(f.tables, posclient.DiningTable{
			ID: uuid.New(), Name: name, Seats: 4, IsActive: true, Status: enum.TableStatusAvailable,
		})
	}

	srv := httptest.NewServer(f.routes())
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakePOS) routes() http.Handler {
	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", f.login)
		r.Group(func(r chi.Router) {
			r.Use(requireToken)
			r.Get("/dining-tables", f.listTables)
			r.Get("/dining-tables/{id}", f.getTable)
			r.Get("/products", f.listProducts)
			r.Get("/products/{id}/units", f.listUnits)
			r.Post("/orders", f.createOrder)
			r.Get("/orders/{id}", f.getOrder)
			r.Post("/orders/merge-table", f.mergeTables)
			r.Post("/orders/split-order", f.splitOrder)
			r.Post("/order-details", f.addDetail)
			r.Put("/order-details", f.updateDetail)
			r.Delete("/order-details/{id}", f.removeDetail)
			r.Get("/order-details", f.listDetails)
			r.Post("/order-details/batch-update-status", f.batchStatus)
			r.Post("/invoices", f.createInvoice)
		})
	})
	return r
}

func requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+fakeToken {
			envelope.WriteError(w, http.StatusUnauthorized, "missing or invalid token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (f *fakePOS) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Password != "secret" {
		envelope.WriteError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}
	envelope.WriteData(w, http.StatusOK, "login successful", posclient.Tokens{
		AccessToken: fakeToken,
		User:        posclient.User{FullName: "Front Desk", Email: req.Email, Role: enum.UserRoleCashier},
	})
}

func (f *fakePOS) listTables(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	envelope.WriteData(w, http.StatusOK, "dining tables", f.tables)
}

func (f *fakePOS) getTable(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := f.table(chi.URLParam(r, "id"))
	if t == nil {
		envelope.WriteError(w, http.StatusNotFound, "dining table not found")
		return
	}
	envelope.WriteData(w, http.StatusOK, "dining table", t)
}

func (f *fakePOS) listProducts(w http.ResponseWriter, r *http.Request) {
	envelope.WriteData(w, http.StatusOK, "products", []posclient.Product{f.product})
}

func (f *fakePOS) listUnits(w http.ResponseWriter, r *http.Request) {
	envelope.WriteData(w, http.StatusOK, "units", []posclient.Unit{f.unit})
}

func (f *fakePOS) createOrder(w http.ResponseWriter, r *http.Request) {
	var req posclient.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		envelope.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	o := &posclient.Order{
		ID: uuid.New(), Status: enum.OrderStatusPending, TableIDs: req.TableIDs,
		TotalPrice: decimal.Zero, CreatedAt: time.Now(), Details: []posclient.OrderDetail{},
	}
	f.orders[o.ID] = o
	for _, id := range req.TableIDs {
		t := f.table(id.String())
		oid := o.ID
		t.CurrentOrderID = &oid
		t.Status = enum.TableStatusOccupied
	}
	envelope.WriteData(w, http.StatusCreated, "order created", o)
}

func (f *fakePOS) getOrder(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o := f.order(chi.URLParam(r, "id"))
	if o == nil {
		envelope.WriteError(w, http.StatusNotFound, "order not found")
		return
	}
	envelope.WriteData(w, http.StatusOK, "order", o)
}

func (f *fakePOS) mergeTables(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OrderID  uuid.UUID   `json:"order_id"`
		TableIDs []uuid.UUID `json:"table_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		envelope.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	o := f.orders[req.OrderID]
	if o == nil {
		envelope.WriteError(w, http.StatusNotFound, "order not found")
		return
	}
	for _, id := range req.TableIDs {
		t := f.table(id.String())
		if t.CurrentOrderID != nil && *t.CurrentOrderID != o.ID {
			envelope.WriteError(w, http.StatusConflict, "table is linked to another open order")
			return
		}
	}
	for _, id := range req.TableIDs {
		t := f.table(id.String())
		if t.CurrentOrderID == nil {
			oid := o.ID
			t.CurrentOrderID = &oid
			t.Status = enum.TableStatusOccupied
			o.TableIDs = append(o.TableIDs, id)
		}
	}
	envelope.WriteData(w, http.StatusOK, "tables merged", o)
}

func (f *fakePOS) splitOrder(w http.ResponseWriter, r *http.Request) {
	var req posclient.SplitOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		envelope.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	src := f.orders[req.OrderID]
	if src == nil {
		envelope.WriteError(w, http.StatusNotFound, "order not found")
		return
	}
	f.splits = append(f.splits, req)

	dst := &posclient.Order{
		ID: uuid.New(), Status: enum.OrderStatusPending, TableIDs: req.TableIDs,
		CreatedAt: time.Now(), Details: []posclient.OrderDetail{},
	}
	f.orders[dst.ID] = dst
	for _, id := range req.TableIDs {
		t := f.table(id.String())
		oid := dst.ID
		t.CurrentOrderID = &oid
		t.Status = enum.TableStatusOccupied
	}
	for _, item := range req.Items {
		_, d := f.detail(item.OrderDetailID)
		moved := *d
		moved.ID = uuid.New()
		moved.OrderID = dst.ID
		moved.Quantity = item.Quantity
		dst.Details = append(dst.Details, moved)
		d.Quantity -= item.Quantity
	}
	kept := []posclient.OrderDetail{}
	for _, d := range src.Details {
		if d.Quantity > 0 {
			kept = append(kept, d)
		}
	}
	src.Details = kept
	f.total(dst)

	res := posclient.SplitResult{Target: dst}
	if len(src.Details) == 0 {
		f.close(src)
	} else {
		f.total(src)
		res.Source = src
	}
	envelope.WriteData(w, http.StatusOK, "order split", res)
}

func (f *fakePOS) addDetail(w http.ResponseWriter, r *http.Request) {
	var req posclient.AddDetailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		envelope.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	o := f.orders[req.OrderID]
	if o == nil {
		envelope.WriteError(w, http.StatusNotFound, "order not found")
		return
	}
	if req.UnitID != f.unit.ID {
		envelope.WriteError(w, http.StatusBadRequest, "unit not found")
		return
	}
	d := posclient.OrderDetail{
		ID: uuid.New(), OrderID: o.ID, UnitID: f.unit.ID, ProductID: f.product.ID,
		ProductName: f.product.Name, UnitName: f.unit.Name, Quantity: req.Quantity,
		UnitPrice: f.unit.Price, Status: enum.OrderDetailStatusAwaiting,
		Station: f.product.Station, CreatedAt: time.Now(),
	}
	if req.Note != "" {
		note := req.Note
		d.Note = &note
	}
	o.Details = append(o.Details, d)
	f.total(o)
	envelope.WriteData(w, http.StatusCreated, "order detail added", o)
}

func (f *fakePOS) updateDetail(w http.ResponseWriter, r *http.Request) {
	var req posclient.UpdateDetailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		envelope.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	o, d := f.detail(req.ID)
	if d == nil {
		envelope.WriteError(w, http.StatusNotFound, "order detail not found")
		return
	}
	if req.Quantity != nil {
		d.Quantity = *req.Quantity
	}
	if req.Note != nil {
		d.Note = req.Note
	}
	f.total(o)
	envelope.WriteData(w, http.StatusOK, "order detail updated", o)
}

func (f *fakePOS) removeDetail(w http.ResponseWriter, r *http.Request) {
	id, _ := uuid.Parse(chi.URLParam(r, "id"))
	f.mu.Lock()
	defer f.mu.Unlock()
	o, d := f.detail(id)
	if d == nil {
		envelope.WriteError(w, http.StatusNotFound, "order detail not found")
		return
	}
	kept := o.Details[:0]
	for _, line := range o.Details {
		if line.ID != id {
			kept = append(kept, line)
		}
	}
	o.Details = kept
	if len(o.Details) == 0 {
		f.close(o)
		envelope.WriteData(w, http.StatusOK, "order deleted", posclient.RemoveResult{ID: id, OrderDeleted: true})
		return
	}
	f.total(o)
	envelope.WriteData(w, http.StatusOK, "order detail removed", posclient.RemoveResult{ID: id, Order: o})
}

func (f *fakePOS) listDetails(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []posclient.OrderDetail{}
	for _, o := range f.orders {
		for _, d := range o.Details {
			if status == "" || d.Status == status {
				out = append(out, d)
			}
		}
	}
	envelope.WriteData(w, http.StatusOK, "order details", out)
}

func (f *fakePOS) batchStatus(w http.ResponseWriter, r *http.Request) {
	var req posclient.BatchStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		envelope.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	res := posclient.BatchResult{Updated: []posclient.OrderDetail{}}
	if req.OrderID != nil {
		o := f.orders[*req.OrderID]
		for i := range o.Details {
			if o.Details[i].Status == enum.OrderDetailStatusAwaiting {
				o.Details[i].Status = req.Status
				res.Updated = append(res.Updated, o.Details[i])
			}
		}
		f.total(o)
		res.Order = o
	} else {
		for _, id := range req.IDs {
			o, d := f.detail(id)
			if d == nil || d.Status != enum.OrderDetailStatusPending {
				continue
			}
			d.Status = req.Status
			res.Updated = append(res.Updated, *d)
			f.total(o)
		}
	}
	envelope.WriteData(w, http.StatusOK, "order details updated", res)
}

func (f *fakePOS) createInvoice(w http.ResponseWriter, r *http.Request) {
	var req posclient.CreateInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		envelope.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	o := f.orders[req.OrderID]
	if o == nil {
		envelope.WriteError(w, http.StatusNotFound, "order not found")
		return
	}
	f.paid = append(f.paid, req)
	f.close(o)
	envelope.WriteData(w, http.StatusCreated, "invoice created", posclient.Invoice{
		ID: uuid.New(), OrderID: o.ID, TotalAmount: o.TotalPrice, CustomerPaid: req.CustomerPaid,
		ChangeReturned: req.CustomerPaid.Sub(o.TotalPrice), PaymentMethod: req.PaymentMethod,
	})
}

func (f *fakePOS) table(id string) *posclient.DiningTable {
	for i := range f.tables {
		if f.tables[i].ID.String() == id {
			return &f.tables[i]
		}
	}
	return nil
}

func (f *fakePOS) order(id string) *posclient.Order {
	oid, err := uuid.Parse(id)
	if err != nil {
		return nil
	}
	return f.orders[oid]
}

func (f *fakePOS) detail(id uuid.UUID) (*posclient.Order, *posclient.OrderDetail) {
	for _, o := range f.orders {
		for i := range o.Details {
			if o.Details[i].ID == id {
				return o, &o.Details[i]
			}
		}
	}
	return nil, nil
}

func (f *fakePOS) total(o *posclient.Order) {
	sum := decimal.Zero
	for _, d := range o.Details {
		if d.Status != enum.OrderDetailStatusCanceled {
			sum = sum.Add(d.LineTotal())
		}
	}
	o.TotalPrice = sum
}

// close frees the order's tables and forgets it.
func (f *fakePOS) close(o *posclient.Order) {
	for i := range f.tables {
		if c := f.tables[i].CurrentOrderID; c != nil && *c == o.ID {
			f.tables[i].CurrentOrderID = nil
			f.tables[i].Status = enum.TableStatusAvailable
		}
	}
	delete(f.orders, o.ID)
}

func (f *fakePOS) onlyOrder() *posclient.Order {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.orders {
		return o
	}
	return nil
}
