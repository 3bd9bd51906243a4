package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"prestiti/internal/core"
	"prestiti/internal/services"
	"prestiti/internal/storage/memory"
)

func newTestServer(t *testing.T) (*Server, *memory.Store) {
	t.Helper()
	store := memory.New()
	importer := services.NewImporter(store, nil)
	statements := services.NewStatementService(store, nil, 0)
	performance := services.NewPerformanceService(store)
	srv := NewServer(":0", store, importer, statements, performance)
	t.Cleanup(func() { srv.rateLimiter.stop() })
	return srv, store
}

func doJSON(t *testing.T, srv *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func seedUser(t *testing.T, store *memory.Store) {
	t.Helper()
	batch, err := store.Begin(context.Background())
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if err := batch.InsertUser(context.Background(), core.User{
		ID: 1, Login: "alice", RegistrationDate: core.NewDate(2023, 1, 1),
	}); err != nil {
		t.Fatalf("seed error = %v", err)
	}
	if err := batch.Commit(); err != nil {
		t.Fatalf("seed commit error = %v", err)
	}
}

func TestServer_UserCredits(t *testing.T) {
	t.Run("known user", func(t *testing.T) {
		srv, store := newTestServer(t)
		seedUser(t, store)

		rec := doJSON(t, srv, http.MethodGet, "/user_credits/1", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
		}
		body := decodeBody(t, rec)
		if body["login"] != "alice" {
			t.Errorf("login = %v, want alice", body["login"])
		}
	})

	t.Run("unknown user", func(t *testing.T) {
		srv, _ := newTestServer(t)

		rec := doJSON(t, srv, http.MethodGet, "/user_credits/42", "")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", rec.Code)
		}
		body := decodeBody(t, rec)
		errObj := body["error"].(map[string]any)
		if errObj["kind"] != "not_found" {
			t.Errorf("kind = %v, want not_found", errObj["kind"])
		}
		if errObj["message"] != "User not found" {
			t.Errorf("message = %v", errObj["message"])
		}
	})

	t.Run("bad user id", func(t *testing.T) {
		srv, _ := newTestServer(t)

		rec := doJSON(t, srv, http.MethodGet, "/user_credits/abc", "")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})
}

func TestServer_ImportUsers(t *testing.T) {
	t.Run("happy path", func(t *testing.T) {
		srv, store := newTestServer(t)

		rec := doJSON(t, srv, http.MethodPost, "/import_users",
			`{"rows": [{"id": 1, "login": "alice", "registration_date": "2023-01-01"}]}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
		}
		body := decodeBody(t, rec)
		if body["detail"] != "Users successfully added." {
			t.Errorf("detail = %v", body["detail"])
		}

		if _, err := store.GetUser(context.Background(), 1); err != nil {
			t.Errorf("user 1 should exist, got err = %v", err)
		}
	})

	t.Run("missing column", func(t *testing.T) {
		srv, _ := newTestServer(t)

		rec := doJSON(t, srv, http.MethodPost, "/import_users",
			`{"rows": [{"id": 1, "login": "alice"}]}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
		body := decodeBody(t, rec)
		errObj := body["error"].(map[string]any)
		if errObj["kind"] != "missing_columns" {
			t.Errorf("kind = %v, want missing_columns", errObj["kind"])
		}
		if errObj["message"] != "Missing columns: registration_date" {
			t.Errorf("message = %v", errObj["message"])
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		srv, _ := newTestServer(t)

		rec := doJSON(t, srv, http.MethodPost, "/import_users", `{"rows": `)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})
}

func TestServer_ImportPayments(t *testing.T) {
	seedCredit := func(t *testing.T, srv *Server) {
		t.Helper()
		rec := doJSON(t, srv, http.MethodPost, "/import_credits",
			`{"rows": [{"id": 10, "user_id": 1, "issuance_date": "2023-02-01", "body": 1000, "percent": 5}]}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("seed credit status = %d, body %s", rec.Code, rec.Body.String())
		}
	}

	t.Run("happy path", func(t *testing.T) {
		srv, _ := newTestServer(t)
		seedCredit(t, srv)

		rec := doJSON(t, srv, http.MethodPost, "/import_payments",
			`[{"id": 1, "credit_id": 10, "type_id": 1, "sum": 400, "payment_date": "2023-02-10"}]`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
		}
		body := decodeBody(t, rec)
		if body["detail"] != "Payments imported successfully." {
			t.Errorf("detail = %v", body["detail"])
		}
		if body["imported"] != float64(1) {
			t.Errorf("imported = %v, want 1", body["imported"])
		}
	})

	t.Run("partial success reports committed count", func(t *testing.T) {
		srv, store := newTestServer(t)
		seedCredit(t, srv)

		rec := doJSON(t, srv, http.MethodPost, "/import_payments",
			`[{"id": 1, "credit_id": 10, "type_id": 1, "sum": 400, "payment_date": "2023-02-10"},
			  {"id": 2, "credit_id": 99, "type_id": 1, "sum": 100, "payment_date": "2023-02-11"}]`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400, body %s", rec.Code, rec.Body.String())
		}
		body := decodeBody(t, rec)
		errObj := body["error"].(map[string]any)
		if errObj["message"] != "Credit with id 99 does not exist." {
			t.Errorf("message = %v", errObj["message"])
		}
		if body["imported"] != float64(1) {
			t.Errorf("imported = %v, want 1", body["imported"])
		}

		kept, err := store.ListPayments(context.Background(), 10)
		if err != nil {
			t.Fatalf("ListPayments() error = %v", err)
		}
		if len(kept) != 1 {
			t.Errorf("payments committed = %d, want 1", len(kept))
		}
	})
}

func TestServer_PlansPerformance(t *testing.T) {
	t.Run("bad date", func(t *testing.T) {
		srv, _ := newTestServer(t)

		rec := doJSON(t, srv, http.MethodGet, "/plans_performance?date=January", "")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("empty ledger yields empty data", func(t *testing.T) {
		srv, _ := newTestServer(t)

		rec := doJSON(t, srv, http.MethodGet, "/plans_performance?date=2023-04-01", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		body := decodeBody(t, rec)
		data, ok := body["performance_data"].([]any)
		if !ok || len(data) != 0 {
			t.Errorf("performance_data = %v, want empty array", body["performance_data"])
		}
	})
}

func TestServer_Health(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Errorf("healthz status = %d, want 200", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodGet, "/readyz", "")
	if rec.Code != http.StatusOK {
		t.Errorf("readyz status = %d, want 200", rec.Code)
	}
}
