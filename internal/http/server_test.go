package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendbook/internal/identity"
	"spendbook/internal/records"
	"spendbook/internal/storage"
)

type testEnv struct {
	server *Server
	ts     *httptest.Server
	store  *storage.MemoryStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := storage.NewMemoryStore()
	resolver := identity.NewSessionResolver(store)
	service := records.NewService(store, resolver, nil)
	sessions := identity.NewManager(store, time.Hour)

	srv := NewServer(":0", service, sessions, resolver, false, time.Hour)
	ts := httptest.NewServer(srv.Handler)

	t.Cleanup(func() {
		ts.Close()
		_ = srv.Shutdown(context.Background())
	})

	return &testEnv{server: srv, ts: ts, store: store}
}

// register creates a user and returns a logged-in session cookie.
func (e *testEnv) register(t *testing.T, username, password string) *http.Cookie {
	t.Helper()

	manager := identity.NewManager(e.store, time.Hour)
	_, err := manager.Register(context.Background(), username, password)
	require.NoError(t, err)

	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	resp, err := http.Post(e.ts.URL+"/api/login", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	for _, c := range resp.Cookies() {
		if c.Name == sessionCookieName {
			return c
		}
	}
	t.Fatal("login response has no session cookie")
	return nil
}

func (e *testEnv) do(t *testing.T, cookie *http.Cookie, method, path string, payload any) (*http.Response, map[string]json.RawMessage) {
	t.Helper()

	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, e.ts.URL+path, body)
	require.NoError(t, err)
	if cookie != nil {
		req.AddCookie(cookie)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var envelope map[string]json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	return resp, envelope
}

func (e *testEnv) createRecord(t *testing.T, cookie *http.Cookie, text, amount, category, date string) recordView {
	t.Helper()

	resp, envelope := e.do(t, cookie, http.MethodPost, "/api/records", map[string]any{
		"text":     text,
		"amount":   json.Number(amount),
		"category": category,
		"date":     date,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var view recordView
	require.NoError(t, json.Unmarshal(envelope["data"], &view))
	return view
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		resp, err := http.Get(env.ts.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice", "secret")

	body, _ := json.Marshal(map[string]string{"username": "alice", "password": "wrong"})
	resp, err := http.Post(env.ts.URL+"/api/login", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestUnauthenticatedRequestsAreRejected(t *testing.T) {
	env := newTestEnv(t)

	resp, envelope := env.do(t, nil, http.MethodGet, "/api/records", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.NotContains(t, envelope, "data")

	resp, _ = env.do(t, nil, http.MethodPost, "/api/records", map[string]any{
		"text": "x", "amount": json.Number("1"), "category": "food", "date": "2024-01-15",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCreateAndListRecords(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.register(t, "alice", "secret")

	env.createRecord(t, cookie, "groceries", "20.00", "food", "2024-01-15")
	env.createRecord(t, cookie, "bus ticket", "5.00", "transport", "2024-02-01")

	resp, envelope := env.do(t, cookie, http.MethodGet, "/api/records", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var view listView
	require.NoError(t, json.Unmarshal(envelope["data"], &view))
	require.Len(t, view.Records, 2)
	// Date descending.
	assert.Equal(t, "bus ticket", view.Records[0].Text)
	assert.Equal(t, "groceries", view.Records[1].Text)
	assert.Equal(t, []string{"2024-02", "2024-01"}, view.Months)
	assert.Equal(t, 1, view.Page)
	assert.Equal(t, 1, view.TotalPages)
	assert.Equal(t, 2, view.TotalRecords)
}

func TestListFilters(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.register(t, "alice", "secret")

	env.createRecord(t, cookie, "groceries", "20.00", "food", "2024-01-15")
	env.createRecord(t, cookie, "bus ticket", "5.00", "transport", "2024-02-01")

	resp, envelope := env.do(t, cookie, http.MethodGet, "/api/records?category=food", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var view listView
	require.NoError(t, json.Unmarshal(envelope["data"], &view))
	require.Len(t, view.Records, 1)
	assert.Equal(t, "groceries", view.Records[0].Text)
	// Months always reflect the full list.
	assert.Equal(t, []string{"2024-02", "2024-01"}, view.Months)

	resp, envelope = env.do(t, cookie, http.MethodGet, "/api/records?month=2024-02", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(envelope["data"], &view))
	require.Len(t, view.Records, 1)
	assert.Equal(t, "bus ticket", view.Records[0].Text)

	resp, envelope = env.do(t, cookie, http.MethodGet, "/api/records?category=food&month=2024-02", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(envelope["data"], &view))
	assert.Empty(t, view.Records)
}

func TestListPagination(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.register(t, "alice", "secret")

	for i := 1; i <= 6; i++ {
		env.createRecord(t, cookie, fmt.Sprintf("item %d", i), "1.00", "other",
			fmt.Sprintf("2024-01-%02d", i))
	}

	resp, envelope := env.do(t, cookie, http.MethodGet, "/api/records", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var view listView
	require.NoError(t, json.Unmarshal(envelope["data"], &view))
	assert.Len(t, view.Records, 5)
	assert.Equal(t, 2, view.TotalPages)
	assert.Equal(t, 6, view.TotalRecords)

	resp, envelope = env.do(t, cookie, http.MethodGet, "/api/records?page=2", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(envelope["data"], &view))
	assert.Len(t, view.Records, 1)
	assert.Equal(t, 2, view.Page)

	// Out of range pages come back empty.
	resp, envelope = env.do(t, cookie, http.MethodGet, "/api/records?page=9", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(envelope["data"], &view))
	assert.Empty(t, view.Records)
}

func TestSummaryBuckets(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.register(t, "alice", "secret")

	env.createRecord(t, cookie, "groceries", "20.00", "food", "2024-01-15")
	env.createRecord(t, cookie, "restaurant", "15.50", "food", "2024-01-20")
	env.createRecord(t, cookie, "bus ticket", "5.00", "transport", "2024-02-01")

	resp, envelope := env.do(t, cookie, http.MethodGet, "/api/records/summary", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var view struct {
		Buckets []bucketView `json:"buckets"`
	}
	require.NoError(t, json.Unmarshal(envelope["data"], &view))
	require.Len(t, view.Buckets, 2)
	assert.Equal(t, "food", view.Buckets[0].Category)
	assert.Equal(t, 35.50, view.Buckets[0].Total)
	assert.Equal(t, 2, view.Buckets[0].Count)
	assert.Equal(t, "transport", view.Buckets[1].Category)
	assert.Equal(t, 5.00, view.Buckets[1].Total)
}

func TestUpdateRecord(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.register(t, "alice", "secret")

	created := env.createRecord(t, cookie, "groceries", "20.00", "food", "2024-01-15")

	resp, envelope := env.do(t, cookie, http.MethodPut, "/api/records/"+created.ID, map[string]any{
		"text": "weekly groceries", "amount": json.Number("25.50"), "category": "other",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var view recordView
	require.NoError(t, json.Unmarshal(envelope["data"], &view))
	assert.Equal(t, "weekly groceries", view.Text)
	assert.Equal(t, int64(2550), view.AmountCents)
	assert.Equal(t, "other", view.Category)
	// Date is immutable through update.
	assert.Equal(t, "2024-01-15", view.Date)
}

func TestUpdateUnknownRecord(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.register(t, "alice", "secret")

	resp, _ := env.do(t, cookie, http.MethodPut, "/api/records/missing", map[string]any{
		"text": "x", "amount": json.Number("1"), "category": "food",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestOwnershipIsEnforced(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice", "secret")
	bob := env.register(t, "bob", "hunter2")

	created := env.createRecord(t, alice, "groceries", "20.00", "food", "2024-01-15")

	resp, _ := env.do(t, bob, http.MethodPut, "/api/records/"+created.ID, map[string]any{
		"text": "hijack", "amount": json.Number("1"), "category": "food",
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = env.do(t, bob, http.MethodDelete, "/api/records/"+created.ID, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Bob's list never shows Alice's records.
	resp, envelope := env.do(t, bob, http.MethodGet, "/api/records", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var view listView
	require.NoError(t, json.Unmarshal(envelope["data"], &view))
	assert.Empty(t, view.Records)
}

func TestDeleteRecordTwice(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.register(t, "alice", "secret")

	created := env.createRecord(t, cookie, "groceries", "20.00", "food", "2024-01-15")

	resp, _ := env.do(t, cookie, http.MethodDelete, "/api/records/"+created.ID, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = env.do(t, cookie, http.MethodDelete, "/api/records/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateValidation(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.register(t, "alice", "secret")

	tests := []struct {
		name    string
		payload map[string]any
	}{
		{"empty text", map[string]any{"text": "", "amount": json.Number("10"), "category": "food", "date": "2024-01-15"}},
		{"zero amount", map[string]any{"text": "x", "amount": json.Number("0"), "category": "food", "date": "2024-01-15"}},
		{"negative amount", map[string]any{"text": "x", "amount": json.Number("-5"), "category": "food", "date": "2024-01-15"}},
		{"unknown category", map[string]any{"text": "x", "amount": json.Number("10"), "category": "gadgets", "date": "2024-01-15"}},
		{"malformed date", map[string]any{"text": "x", "amount": json.Number("10"), "category": "food", "date": "15/01/2024"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, envelope := env.do(t, cookie, http.MethodPost, "/api/records", tt.payload)
			assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
			assert.Contains(t, envelope, "error")
		})
	}
}

func TestListCacheInvalidatedByMutation(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.register(t, "alice", "secret")

	env.createRecord(t, cookie, "groceries", "20.00", "food", "2024-01-15")

	// Prime the cache.
	resp, _ := env.do(t, cookie, http.MethodGet, "/api/records", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	env.createRecord(t, cookie, "bus ticket", "5.00", "transport", "2024-02-01")

	resp, envelope := env.do(t, cookie, http.MethodGet, "/api/records", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var view listView
	require.NoError(t, json.Unmarshal(envelope["data"], &view))
	assert.Equal(t, 2, view.TotalRecords)
}

func TestLogoutClearsSession(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.register(t, "alice", "secret")

	resp, _ := env.do(t, cookie, http.MethodPost, "/api/logout", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = env.do(t, cookie, http.MethodGet, "/api/records", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
