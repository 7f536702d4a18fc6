package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aaronpeter20/InventoryManagementSystem/internal/adapter/storage"
	"github.com/aaronpeter20/InventoryManagementSystem/internal/core/domain"
	"github.com/aaronpeter20/InventoryManagementSystem/internal/core/service"
	"github.com/aaronpeter20/InventoryManagementSystem/internal/metrics"
)

const paymentSecret = "gateway-secret"

type recordingSink struct {
	mu     sync.Mutex
	events []domain.Event
}

func (s *recordingSink) Enqueue(e domain.Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return true
}

func (s *recordingSink) types() []domain.EventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.EventType, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.Type)
	}
	return out
}

type fakeLimiter struct {
	mu   sync.Mutex
	hits map[string]int
}

func (l *fakeLimiter) Allow(_ context.Context, key string, limit int, _ time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.hits == nil {
		l.hits = make(map[string]int)
	}
	l.hits[key]++
	return l.hits[key] <= limit, nil
}

type fixture struct {
	t      *testing.T
	store  *storage.MemoryStore
	svc    *Services
	sink   *recordingSink
	http   *HTTPHandler
	router *gin.Engine
	users  map[domain.Role]domain.User
	tokens map[domain.Role]string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ctx := context.Background()
	store := storage.NewMemoryStore()
	locker := storage.NewLocalLocker(time.Second)
	ledger := service.NewStockLedger(store, locker)
	auth := service.NewAuth(store, "test-secret", time.Hour)
	sink := &recordingSink{}

	svc := &Services{
		Ledger:  ledger,
		Catalog: service.NewCatalog(store, locker),
		Auth:    auth,
		Payment: service.NewPaymentVerifier(paymentSecret, store, ledger),
		Events:  sink,
		Metrics: metrics.New(),
	}
	h := NewHTTPHandler(svc, &fakeLimiter{}, HTTPOptions{
		TokenTTL:        time.Hour,
		CORSOrigin:      "http://localhost:3000",
		LoginRateLimit:  3,
		LoginRateWindow: time.Minute,
	}, zap.NewNop())

	f := &fixture{
		t:      t,
		store:  store,
		svc:    svc,
		sink:   sink,
		http:   h,
		router: h.Router(),
		users:  make(map[domain.Role]domain.User),
		tokens: make(map[domain.Role]string),
	}

	_, err := auth.EnsureAdmin(ctx, "Admin", "admin@example.com", "admin-pass")
	require.NoError(t, err)
	admin, err := store.GetUserByEmail(ctx, "admin@example.com")
	require.NoError(t, err)
	f.addUser(*admin)

	employee, _, err := auth.Signup(ctx, "Eve", "eve@example.com", "eve-pass")
	require.NoError(t, err)
	f.addUser(*employee)

	manager, _, err := auth.Signup(ctx, "Max", "max@example.com", "max-pass")
	require.NoError(t, err)
	role := domain.RoleManager
	manager, err = auth.UpdateUser(ctx, manager.ID, service.UserPatch{Role: &role})
	require.NoError(t, err)
	f.addUser(*manager)

	return f
}

func (f *fixture) addUser(u domain.User) {
	token, err := f.svc.Auth.IssueToken(u)
	require.NoError(f.t, err)
	f.users[u.Role] = u
	f.tokens[u.Role] = token
}

func (f *fixture) seedItem(id string, quantity int) {
	require.NoError(f.t, f.store.CreateItem(context.Background(), domain.Item{
		ID: id, Name: "item " + id, Quantity: quantity, CreatedAt: time.Now().UTC(),
	}))
}

func (f *fixture) seedSupplier(id string) {
	require.NoError(f.t, f.store.CreateSupplier(context.Background(), domain.Supplier{
		ID: id, Name: "Acme", Contact: "Jo", Email: "jo@acme.test", Address: "1 Road",
	}))
}

func (f *fixture) quantity(itemID string) int {
	item, err := f.store.GetItem(context.Background(), itemID)
	require.NoError(f.t, err)
	require.NotNil(f.t, item)
	return item.Quantity
}

func (f *fixture) do(method, path string, body any, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(f.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Success    bool            `json:"success"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
	OutOfStock bool            `json:"out_of_stock"`
	Available  *int            `json:"available"`
	Requested  *int            `json:"requested"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, data any) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	if data != nil {
		require.NoError(t, json.Unmarshal(env.Data, data), string(env.Data))
	}
	return env
}

