// Package posclient is a typed client for the table POS REST API.
//
// Every call is a single request: no retries and no offline queue. A call
// succeeds only when the response envelope carries data.
package posclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/tablepos/api/internal/envelope"
)

// APIError is a request that reached the server but carried no data.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed with status %d", e.StatusCode)
	}
	return e.Message
}

// IsStatus reports whether err is an APIError with the given status code.
func IsStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}

// Client talks to one API base URL, e.g. http://localhost:8081/api/v1.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithToken sets the bearer token sent on every request.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) SetToken(token string) { c.token = token }

func (c *Client) Token() string { return c.token }

func (c *Client) BaseURL() string { return c.baseURL }

// --- Auth ---

func (c *Client) Login(ctx context.Context, email, password string) (*Tokens, error) {
	var out Tokens
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", nil, body, &out); err != nil {
		return nil, err
	}
	c.token = out.AccessToken
	return &out, nil
}

func (c *Client) Refresh(ctx context.Context, refreshToken string) (*Tokens, error) {
	var out Tokens
	body := map[string]string{"refresh_token": refreshToken}
	if err := c.do(ctx, http.MethodPost, "/auth/refresh", nil, body, &out); err != nil {
		return nil, err
	}
	c.token = out.AccessToken
	return &out, nil
}

// --- Tables & catalogue ---

func (c *Client) ListTables(ctx context.Context) ([]DiningTable, error) {
	var out []DiningTable
	if err := c.do(ctx, http.MethodGet, "/dining-tables", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetTable(ctx context.Context, id uuid.UUID) (*DiningTable, error) {
	var out DiningTable
	if err := c.do(ctx, http.MethodGet, "/dining-tables/"+id.String(), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListProducts(ctx context.Context) ([]Product, error) {
	var out []Product
	if err := c.do(ctx, http.MethodGet, "/products", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListUnits(ctx context.Context, productID uuid.UUID) ([]Unit, error) {
	var out []Unit
	if err := c.do(ctx, http.MethodGet, "/products/"+productID.String()+"/units", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetUnit(ctx context.Context, id uuid.UUID) (*Unit, error) {
	var out Unit
	if err := c.do(ctx, http.MethodGet, "/units/"+id.String(), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// --- Orders ---

func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	return c.orderCall(ctx, http.MethodPost, "/orders", req)
}

func (c *Client) UpdateOrder(ctx context.Context, req UpdateOrderRequest) (*Order, error) {
	return c.orderCall(ctx, http.MethodPut, "/orders", req)
}

func (c *Client) GetOrder(ctx context.Context, id uuid.UUID) (*Order, error) {
	return c.orderCall(ctx, http.MethodGet, "/orders/"+id.String(), nil)
}

func (c *Client) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/orders/"+id.String(), nil, nil, nil)
}

func (c *Client) ListOrders(ctx context.Context, f OrderFilter) ([]Order, error) {
	q := url.Values{}
	if f.Status != "" {
		q.Set("status", f.Status)
	}
	if f.TableID != nil {
		q.Set("table_id", f.TableID.String())
	}
	if f.Active {
		q.Set("active", "true")
	}
	setPage(q, f.Limit, f.Offset)

	var out struct {
		Orders []Order `json:"orders"`
	}
	if err := c.do(ctx, http.MethodGet, "/orders", q, nil, &out); err != nil {
		return nil, err
	}
	return out.Orders, nil
}

func (c *Client) MergeTables(ctx context.Context, orderID uuid.UUID, tableIDs []uuid.UUID) (*Order, error) {
	body := struct {
		OrderID  uuid.UUID   `json:"order_id"`
		TableIDs []uuid.UUID `json:"table_ids"`
	}{orderID, tableIDs}
	return c.orderCall(ctx, http.MethodPost, "/orders/merge-table", body)
}

func (c *Client) SplitOrder(ctx context.Context, req SplitOrderRequest) (*SplitResult, error) {
	var out SplitResult
	if err := c.do(ctx, http.MethodPost, "/orders/split-order", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// --- Order details ---

func (c *Client) AddDetail(ctx context.Context, req AddDetailRequest) (*Order, error) {
	return c.orderCall(ctx, http.MethodPost, "/order-details", req)
}

func (c *Client) UpdateDetail(ctx context.Context, req UpdateDetailRequest) (*Order, error) {
	return c.orderCall(ctx, http.MethodPut, "/order-details", req)
}

func (c *Client) RemoveDetail(ctx context.Context, id uuid.UUID) (*RemoveResult, error) {
	var out RemoveResult
	if err := c.do(ctx, http.MethodDelete, "/order-details/"+id.String(), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListDetails(ctx context.Context, f DetailFilter) ([]OrderDetail, error) {
	q := url.Values{}
	if f.OrderID != nil {
		q.Set("order_id", f.OrderID.String())
	}
	if f.Status != "" {
		q.Set("status", f.Status)
	}
	if f.Station != "" {
		q.Set("station", f.Station)
	}
	var out []OrderDetail
	if err := c.do(ctx, http.MethodGet, "/order-details", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) BatchUpdateStatus(ctx context.Context, req BatchStatusRequest) (*BatchResult, error) {
	var out BatchResult
	if err := c.do(ctx, http.MethodPost, "/order-details/batch-update-status", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// --- Invoices ---

func (c *Client) CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (*Invoice, error) {
	var out Invoice
	if err := c.do(ctx, http.MethodPost, "/invoices", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetInvoice(ctx context.Context, id uuid.UUID) (*Invoice, error) {
	var out Invoice
	if err := c.do(ctx, http.MethodGet, "/invoices/"+id.String(), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListInvoices(ctx context.Context, orderID *uuid.UUID, limit, offset int) ([]Invoice, error) {
	q := url.Values{}
	if orderID != nil {
		q.Set("order_id", orderID.String())
	}
	setPage(q, limit, offset)

	var out struct {
		Invoices []Invoice `json:"invoices"`
	}
	if err := c.do(ctx, http.MethodGet, "/invoices", q, nil, &out); err != nil {
		return nil, err
	}
	return out.Invoices, nil
}

// --- Transport ---

func (c *Client) orderCall(ctx context.Context, method, path string, body interface{}) (*Order, error) {
	var out Order
	if err := c.do(ctx, method, path, nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func setPage(q url.Values, limit, offset int) {
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
}

// do sends one request and decodes the envelope's data into out.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("create request failed: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if err := envelope.Decode(resp.StatusCode, data, out); err != nil {
		var envErr *envelope.Error
		if errors.As(err, &envErr) {
			return &APIError{StatusCode: envErr.StatusCode, Message: envErr.Message}
		}
		return err
	}
	return nil
}
