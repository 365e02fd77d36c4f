package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/tablepos/api/internal/auth"
	"github.com/tablepos/api/internal/envelope"
	"github.com/tablepos/api/internal/middleware"
)

const testJWTSecret = "test-secret"

func testClaims(role string) *auth.Claims {
	return &auth.Claims{
		UserID:       uuid.New(),
		RestaurantID: uuid.New(),
		Role:         role,
	}
}

// authRouter mounts register at path behind the auth middleware.
func authRouter(path string, register func(chi.Router)) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Authenticate(testJWTSecret))
	r.Route(path, register)
	return r
}

func doAuthRequest(t *testing.T, router http.Handler, method, path string, body interface{}, claims *auth.Claims) *httptest.ResponseRecorder {
	t.Helper()

	// Generate a real JWT token from claims
	token, err := auth.GenerateToken(testJWTSecret, claims.UserID, claims.RestaurantID, claims.Role)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	var req *http.Request
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		req = httptest.NewRequest(method, path, bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func postJSON(t *testing.T, router http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest("POST", path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

// decodeData checks the envelope carries data and unmarshals it into out.
func decodeData(t *testing.T, rr *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	if err := envelope.Decode(rr.Code, rr.Body.Bytes(), out); err != nil {
		t.Fatalf("decode envelope: %v (body %s)", err, rr.Body.String())
	}
}

// expectError checks the status and that the envelope carries no data.
func expectError(t *testing.T, rr *httptest.ResponseRecorder, status int) envelope.Envelope {
	t.Helper()
	if rr.Code != status {
		t.Fatalf("status: got %d, want %d (body %s)", rr.Code, status, rr.Body.String())
	}
	var env envelope.Envelope
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if env.StatusCode != status {
		t.Errorf("envelope statusCode: got %d, want %d", env.StatusCode, status)
	}
	if envelope.HasData(env) {
		t.Errorf("error envelope must not carry data: %s", env.Data)
	}
	return env
}

func makeNumeric(s string) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(s)
	return n
}
