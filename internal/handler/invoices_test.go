package handler_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/tablepos/api/internal/database"
	"github.com/tablepos/api/internal/handler"
	"github.com/tablepos/api/internal/service"
)

type mockInvoiceService struct {
	createFn func(ctx context.Context, req service.CreateInvoiceRequest) (*database.Invoice, error)
}

func (m *mockInvoiceService) CreateInvoice(ctx context.Context, req service.CreateInvoiceRequest) (*database.Invoice, error) {
	return m.createFn(ctx, req)
}

type mockInvoiceStore struct {
	invoices map[uuid.UUID]database.Invoice
	lastList database.ListInvoicesParams
}

func (m *mockInvoiceStore) GetInvoice(_ context.Context, arg database.GetInvoiceParams) (database.Invoice, error) {
	inv, ok := m.invoices[arg.ID]
	if !ok || inv.RestaurantID != arg.RestaurantID {
		return database.Invoice{}, pgx.ErrNoRows
	}
	return inv, nil
}

func (m *mockInvoiceStore) ListInvoices(_ context.Context, arg database.ListInvoicesParams) ([]database.Invoice, error) {
	m.lastList = arg
	var out []database.Invoice
	for _, inv := range m.invoices {
		if inv.RestaurantID == arg.RestaurantID {
			out = append(out, inv)
		}
	}
	return out, nil
}

type invoiceJSON struct {
	ID             uuid.UUID `json:"id"`
	OrderID        uuid.UUID `json:"order_id"`
	TotalAmount    string    `json:"total_amount"`
	CustomerPaid   string    `json:"customer_paid"`
	ChangeReturned string    `json:"change_returned"`
	TaxAmount      string    `json:"tax_amount"`
	DiscountAmount string    `json:"discount_amount"`
	PaymentMethod  string    `json:"payment_method"`
}

func makeInvoice(restaurantID, orderID uuid.UUID, total, paid string) database.Invoice {
	change := decimal.RequireFromString(paid).Sub(decimal.RequireFromString(total))
	return database.Invoice{
		ID:             uuid.New(),
		OrderID:        orderID,
		RestaurantID:   restaurantID,
		TotalAmount:    makeNumeric(total),
		CustomerPaid:   makeNumeric(paid),
		ChangeReturned: makeNumeric(change.String()),
		TaxAmount:      makeNumeric("0"),
		DiscountAmount: makeNumeric("0"),
		PaymentMethod:  "CASH",
		CreatedAt:      time.Now(),
	}
}

func setupInvoiceRouter(svc *mockInvoiceService, store *mockInvoiceStore, rec handler.Recorder) http.Handler {
	h := handler.NewInvoiceHandler(svc, store, rec)
	return authRouter("/invoices", h.RegisterRoutes)
}

func TestInvoiceCreate_Success(t *testing.T) {
	claims := testClaims("CASHIER")
	orderID := uuid.New()
	rec := &countingRecorder{}

	var got service.CreateInvoiceRequest
	svc := &mockInvoiceService{
		createFn: func(_ context.Context, req service.CreateInvoiceRequest) (*database.Invoice, error) {
			got = req
			inv := makeInvoice(req.RestaurantID, req.OrderID, "100000", req.CustomerPaid.String())
			return &inv, nil
		},
	}
	router := setupInvoiceRouter(svc, &mockInvoiceStore{}, rec)

	rr := doAuthRequest(t, router, "POST", "/invoices", map[string]interface{}{
		"order_id":       orderID.String(),
		"customer_paid":  "150000",
		"payment_method": "CASH",
	}, claims)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d; body: %s", rr.Code, rr.Body.String())
	}
	if got.OrderID != orderID || got.CreatedBy != claims.UserID || !got.CustomerPaid.Equal(decimal.NewFromInt(150000)) {
		t.Errorf("request: got %+v", got)
	}

	var resp invoiceJSON
	decodeData(t, rr, &resp)
	if resp.TotalAmount != "100000.00" || resp.ChangeReturned != "50000.00" {
		t.Errorf("amounts: got %+v", resp)
	}
	if resp.TaxAmount != "0.00" || resp.DiscountAmount != "0.00" {
		t.Errorf("tax and discount must be zero: got %+v", resp)
	}
	if len(rec.invoices) != 1 || rec.invoices[0] != "CASH" {
		t.Errorf("invoice metric: got %v", rec.invoices)
	}
}

func TestInvoiceCreate_NumericBody(t *testing.T) {
	var got service.CreateInvoiceRequest
	svc := &mockInvoiceService{
		createFn: func(_ context.Context, req service.CreateInvoiceRequest) (*database.Invoice, error) {
			got = req
			inv := makeInvoice(req.RestaurantID, req.OrderID, "100000", "100000")
			return &inv, nil
		},
	}
	router := setupInvoiceRouter(svc, &mockInvoiceStore{}, nil)

	rr := doAuthRequest(t, router, "POST", "/invoices", map[string]interface{}{
		"order_id":       uuid.NewString(),
		"customer_paid":  100000.5,
		"payment_method": "card",
	}, testClaims("CASHIER"))
	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d; body: %s", rr.Code, rr.Body.String())
	}
	if !got.CustomerPaid.Equal(decimal.RequireFromString("100000.5")) {
		t.Errorf("customer_paid: got %s", got.CustomerPaid)
	}
}

func TestInvoiceCreate_Errors(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{service.ErrInsufficientPayment, http.StatusBadRequest},
		{service.ErrInvalidPaymentMethod, http.StatusBadRequest},
		{service.ErrNoBillableLines, http.StatusBadRequest},
		{service.ErrOrderAlreadyPaid, http.StatusConflict},
		{service.ErrOrderCanceled, http.StatusConflict},
		{service.ErrOrderNotFound, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			svc := &mockInvoiceService{
				createFn: func(context.Context, service.CreateInvoiceRequest) (*database.Invoice, error) {
					return nil, tt.err
				},
			}
			router := setupInvoiceRouter(svc, &mockInvoiceStore{}, nil)
			rr := doAuthRequest(t, router, "POST", "/invoices", map[string]interface{}{
				"order_id":       uuid.NewString(),
				"customer_paid":  "80000",
				"payment_method": "CASH",
			}, testClaims("CASHIER"))
			env := expectError(t, rr, tt.want)
			if env.Message != tt.err.Error() {
				t.Errorf("message: got %q, want %q", env.Message, tt.err.Error())
			}
		})
	}
}

func TestInvoiceGetAndList(t *testing.T) {
	claims := testClaims("MANAGER")
	orderID := uuid.New()
	inv := makeInvoice(claims.RestaurantID, orderID, "100000", "150000")
	other := makeInvoice(uuid.New(), uuid.New(), "5000", "5000")
	store := &mockInvoiceStore{invoices: map[uuid.UUID]database.Invoice{inv.ID: inv, other.ID: other}}
	router := setupInvoiceRouter(&mockInvoiceService{}, store, nil)

	rr := doAuthRequest(t, router, "GET", "/invoices/"+inv.ID.String(), nil, claims)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d", rr.Code)
	}
	var resp invoiceJSON
	decodeData(t, rr, &resp)
	if resp.ID != inv.ID || resp.ChangeReturned != "50000.00" {
		t.Errorf("invoice: got %+v", resp)
	}

	expectError(t, doAuthRequest(t, router, "GET", "/invoices/"+other.ID.String(), nil, claims), http.StatusNotFound)

	rr = doAuthRequest(t, router, "GET", "/invoices?order_id="+orderID.String(), nil, claims)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d", rr.Code)
	}
	var list struct {
		Invoices []invoiceJSON `json:"invoices"`
	}
	decodeData(t, rr, &list)
	if len(list.Invoices) != 1 {
		t.Errorf("invoices: got %d", len(list.Invoices))
	}
	if !store.lastList.OrderID.Valid || uuid.UUID(store.lastList.OrderID.Bytes) != orderID {
		t.Errorf("order filter: got %+v", store.lastList.OrderID)
	}
}
