package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nordclean/fieldjobs/internal/store"
	"github.com/nordclean/fieldjobs/pkg/models"
	"golang.org/x/crypto/bcrypt"
)

// keyStore stubs only the API key methods; everything else is unreachable
// from the middleware under test.
type keyStore struct {
	store.Store
	keys    map[string][]*models.APIKey
	lookup  error
	mu      sync.Mutex
	touched []uuid.UUID
}

func (s *keyStore) GetAPIKeyByPrefix(_ context.Context, prefix string) ([]*models.APIKey, error) {
	if s.lookup != nil {
		return nil, s.lookup
	}
	return s.keys[prefix], nil
}

func (s *keyStore) UpdateAPIKeyLastUsed(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touched = append(s.touched, id)
	return nil
}

func newKeyStore(t *testing.T, rawKey string, role models.APIRole, orgID uuid.UUID) (*keyStore, uuid.UUID) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(rawKey), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash key: %v", err)
	}
	keyID := uuid.New()
	return &keyStore{
		keys: map[string][]*models.APIKey{
			rawKey[:keyPrefixLen]: {{
				ID:             keyID,
				OrganizationID: orgID,
				KeyHash:        string(hash),
				KeyPrefix:      rawKey[:keyPrefixLen],
				Role:           role,
			}},
		},
	}, keyID
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthenticate_SetsContext(t *testing.T) {
	const rawKey = "testkey1-a1b2c3d4e5f6"
	orgID := uuid.New()
	st, _ := newKeyStore(t, rawKey, models.APIRoleAdmin, orgID)
	auth := NewAuth(st)

	var gotOrg uuid.UUID
	var gotRole models.APIRole
	handler := auth.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotOrg, _ = GetOrganizationID(r)
		gotRole, _ = getRole(r)
		w.WriteHeader(http.StatusOK)
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+rawKey)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, r)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if gotOrg != orgID {
		t.Errorf("expected org %s, got %s", orgID, gotOrg)
	}
	if gotRole != models.APIRoleAdmin {
		t.Errorf("expected admin role, got %q", gotRole)
	}
}

func TestAuthenticate_Rejections(t *testing.T) {
	const rawKey = "testkey1-a1b2c3d4e5f6"
	st, _ := newKeyStore(t, rawKey, models.APIRoleAdmin, uuid.New())

	tests := []struct {
		name   string
		header string
		store  *keyStore
		want   int
	}{
		{"missing header", "", st, http.StatusUnauthorized},
		{"wrong scheme", "Basic " + rawKey, st, http.StatusUnauthorized},
		{"too short", "Bearer abc", st, http.StatusUnauthorized},
		{"unknown prefix", "Bearer nosuchke-000000", st, http.StatusUnauthorized},
		{"wrong key same prefix", "Bearer testkey1-wrong000000", st, http.StatusUnauthorized},
		{"store failure", "Bearer " + rawKey,
			&keyStore{lookup: errors.New("db down")}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth := NewAuth(tt.store)
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			auth.Authenticate(okHandler()).ServeHTTP(rec, r)

			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	auth := NewAuth(&keyStore{})

	tests := []struct {
		name    string
		role    models.APIRole
		allowed []models.APIRole
		want    int
	}{
		{"allowed", models.APIRoleAdmin, []models.APIRole{models.APIRoleOwner, models.APIRoleAdmin}, http.StatusOK},
		{"denied", models.APIRoleCustomer, []models.APIRole{models.APIRoleOwner, models.APIRoleAdmin}, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := auth.RequireRole(tt.allowed...)(okHandler())
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r = r.WithContext(SetRole(r.Context(), tt.role))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, r)

			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

func TestRequireRole_NoRoleInContext(t *testing.T) {
	auth := NewAuth(&keyStore{})
	handler := auth.RequireRole(models.APIRoleAdmin)(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

// countCache backs the rate limiter with an in-memory counter.
type countCache struct {
	mu     sync.Mutex
	counts map[string]int64
	fail   bool
}

func (c *countCache) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (c *countCache) Get(context.Context, string) ([]byte, bool, error)        { return nil, false, nil }
func (c *countCache) Delete(context.Context, string) error                     { return nil }
func (c *countCache) Ping(context.Context) error                               { return nil }
func (c *countCache) IncrWithExpiry(_ context.Context, key string, _ time.Duration) (int64, error) {
	if c.fail {
		return 0, errors.New("redis down")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.counts == nil {
		c.counts = map[string]int64{}
	}
	c.counts[key]++
	return c.counts[key], nil
}

func limitedRequest(handler http.Handler, prefix string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r = r.WithContext(setKeyPrefix(r.Context(), prefix))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, r)
	return rec
}

func TestRateLimit_AllowsUnderLimit(t *testing.T) {
	rl := NewRateLimit(&countCache{}, 5)
	handler := rl.Limit(okHandler())

	rec := limitedRequest(handler, "testkey1")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get("X-RateLimit-Limit") != "5" {
		t.Errorf("unexpected limit header %q", rec.Header().Get("X-RateLimit-Limit"))
	}
	if rec.Header().Get("X-RateLimit-Remaining") != "4" {
		t.Errorf("unexpected remaining header %q", rec.Header().Get("X-RateLimit-Remaining"))
	}
}

func TestRateLimit_BlocksOverLimit(t *testing.T) {
	rl := NewRateLimit(&countCache{}, 2)
	handler := rl.Limit(okHandler())

	for i := 0; i < 2; i++ {
		if rec := limitedRequest(handler, "testkey1"); rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, rec.Code)
		}
	}
	rec := limitedRequest(handler, "testkey1")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
}

func TestRateLimit_FailsOpen(t *testing.T) {
	rl := NewRateLimit(&countCache{fail: true}, 1)
	handler := rl.Limit(okHandler())

	for i := 0; i < 3; i++ {
		if rec := limitedRequest(handler, "testkey1"); rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200 on cache failure, got %d", i+1, rec.Code)
		}
	}
}

func TestLogger_EmitsRequestLine(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	handler := Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":{"code":"NOT_FOUND"}}`))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/jobs/missing", nil))

	var line struct {
		Level  string `json:"level"`
		Msg    string `json:"msg"`
		Method string `json:"method"`
		Path   string `json:"path"`
		Status int    `json:"status"`
		Bytes  int    `json:"bytes"`
	}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if line.Msg != "http request" {
		t.Errorf("unexpected message %q", line.Msg)
	}
	if line.Level != "WARN" {
		t.Errorf("expected WARN for a 404, got %q", line.Level)
	}
	if line.Status != http.StatusNotFound || line.Path != "/api/v1/jobs/missing" {
		t.Errorf("unexpected line: %+v", line)
	}
	if line.Bytes == 0 {
		t.Error("expected response bytes to be counted")
	}
}

func TestRateLimit_SkipsWithoutKeyPrefix(t *testing.T) {
	rl := NewRateLimit(&countCache{}, 1)
	handler := rl.Limit(okHandler())

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, r)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected pass-through, got %d", rec.Code)
	}
	if rec.Header().Get("X-RateLimit-Limit") != "" {
		t.Error("expected no rate limit headers without key prefix")
	}
}
