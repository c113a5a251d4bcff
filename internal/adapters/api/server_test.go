package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikey/email-guardian/internal/adapters/ratelimit"
	"github.com/mikey/email-guardian/internal/adapters/store"
	"github.com/mikey/email-guardian/internal/core"
	"github.com/mikey/email-guardian/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const phishy = "URGENT: verify your account now, click here!!"

type brokenStore struct {
	*store.MemoryStore
	saveErr error
	pingErr error
}

func (b *brokenStore) Save(ctx context.Context, r *core.ScanRecord) error {
	if b.saveErr != nil {
		return b.saveErr
	}
	return b.MemoryStore.Save(ctx, r)
}

func (b *brokenStore) Ping(ctx context.Context) error {
	return b.pingErr
}

type testEnv struct {
	server *Server
	secret string
}

type envOption func(*envConfig)

type envConfig struct {
	records core.RecordStore
	limiter core.RateLimiter
	auth    bool
}

func withRecords(r core.RecordStore) envOption { return func(c *envConfig) { c.records = r } }
func withLimiter(l core.RateLimiter) envOption { return func(c *envConfig) { c.limiter = l } }
func withoutAuth() envOption                   { return func(c *envConfig) { c.auth = false } }

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	logger := zap.NewNop()
	mem := store.NewMemoryStore(logger)
	cfg := &envConfig{records: mem, auth: true}
	for _, o := range opts {
		o(cfg)
	}

	tp := utils.NewTextProcessor(logger)
	clock := core.NewMonotonicClock()
	scans := core.NewScanService(
		core.NewPatternMatcher(),
		core.NewAISignalClient(nil, time.Second, logger, tp),
		core.NewVerdictCombiner(),
		cfg.records,
		clock,
		tp,
		logger,
		time.Second,
	)
	creds := core.NewCredentialService(mem, clock, logger)

	srv := NewServer(scans, creds, cfg.limiter, clock, Options{
		Mode:        gin.TestMode,
		AuthEnabled: cfg.auth,
		AIProvider:  "none",
		StoreType:   "memory",
	}, logger)

	secret, _, err := creds.Issue(context.Background(), "test suite", "")
	require.NoError(t, err)

	return &testEnv{server: srv, secret: secret}
}

func (e *testEnv) do(method, path string, body any, secret string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if s, ok := body.(string); ok {
		buf.WriteString(s)
	} else if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if secret != "" {
		req.Header.Set("Authorization", "Bearer "+secret)
	}
	w := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func TestRoot(t *testing.T) {
	w := newTestEnv(t).do(http.MethodGet, "/", nil, "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/scan")
}

func TestScan(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/scan", map[string]string{"text": phishy, "requester_id": "web"}, env.secret)

	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[scanResponse](t, w)
	assert.NotEmpty(t, resp.ScanID)
	assert.Equal(t, core.ClassificationSuspicious, resp.Classification)
	assert.Equal(t, 0.8, resp.Confidence)
	assert.Equal(t, core.RiskHigh, resp.RiskTier)
	assert.Len(t, resp.Findings, 4)
	assert.True(t, resp.Persisted)
	assert.False(t, resp.CreatedAt.IsZero())
}

func TestScanLegacyFieldNames(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/scan", map[string]string{"email_text": "Hi Sarah, attaching the report, thanks.", "user_id": "u1"}, env.secret)

	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[scanResponse](t, w)
	assert.Equal(t, core.ClassificationSafe, resp.Classification)
	assert.NotNil(t, resp.Findings)

	h := env.do(http.MethodGet, "/history?user_id=u1", nil, env.secret)
	assert.Equal(t, 1, decode[historyResponse](t, h).Count)
}

func TestScanErrors(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		body   any
		secret string
		want   int
	}{
		{"no credential", map[string]string{"text": phishy}, "", http.StatusUnauthorized},
		{"unknown credential", map[string]string{"text": phishy}, "nope", http.StatusUnauthorized},
		{"empty text", map[string]string{"text": "   "}, env.secret, http.StatusBadRequest},
		{"malformed body", `{"text":`, env.secret, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(http.MethodPost, "/scan", tt.body, tt.secret)

			assert.Equal(t, tt.want, w.Code)
			assert.NotEmpty(t, decode[errorResponse](t, w).Error)
		})
	}
}

func TestScanWithoutAuth(t *testing.T) {
	env := newTestEnv(t, withoutAuth())

	w := env.do(http.MethodPost, "/scan", map[string]string{"text": phishy}, "")

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestScanRateLimited(t *testing.T) {
	limiter := ratelimit.NewMemoryLimiter(2, time.Hour, zap.NewNop())
	t.Cleanup(func() { limiter.Close() })
	env := newTestEnv(t, withLimiter(limiter))

	for i := 0; i < 2; i++ {
		w := env.do(http.MethodPost, "/scan", map[string]string{"text": phishy}, env.secret)
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := env.do(http.MethodPost, "/scan", map[string]string{"text": phishy}, env.secret)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestScanDegradedPersistence(t *testing.T) {
	records := &brokenStore{MemoryStore: store.NewMemoryStore(nil), saveErr: errors.New("disk full")}
	env := newTestEnv(t, withRecords(records))

	w := env.do(http.MethodPost, "/scan", map[string]string{"text": phishy}, env.secret)

	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[scanResponse](t, w)
	assert.False(t, resp.Persisted)
	assert.NotEmpty(t, resp.ScanID)
}

func TestHistory(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, env.do(http.MethodPost, "/scan", map[string]string{"text": phishy}, env.secret).Code)
	}

	w := env.do(http.MethodGet, "/history?limit=2", nil, env.secret)

	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[historyResponse](t, w)
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, 2, resp.Limit)
	assert.Equal(t, 0, resp.Offset)
	assert.True(t, resp.Records[0].CreatedAt.After(resp.Records[1].CreatedAt))
}

func TestHistoryErrors(t *testing.T) {
	env := newTestEnv(t)

	tests := map[string]struct {
		path   string
		secret string
		want   int
	}{
		"no credential":   {"/history", "", http.StatusUnauthorized},
		"limit too large": {"/history?limit=101", env.secret, http.StatusBadRequest},
		"limit zero":      {"/history?limit=0", env.secret, http.StatusBadRequest},
		"not a number":    {"/history?limit=ten", env.secret, http.StatusBadRequest},
		"negative offset": {"/history?offset=-1", env.secret, http.StatusBadRequest},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, env.do(http.MethodGet, tt.path, nil, tt.secret).Code)
		})
	}
}

func TestCreateKey(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/create-key", map[string]string{"name": "reporting", "description": "weekly"}, "")

	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[createKeyResponse](t, w)
	assert.NotEmpty(t, resp.Secret)
	assert.NotEmpty(t, resp.CredentialID)
	assert.Equal(t, "reporting", resp.Label)

	scan := env.do(http.MethodPost, "/scan", map[string]string{"text": phishy}, resp.Secret)
	assert.Equal(t, http.StatusOK, scan.Code)
}

func TestCreateKeyRejectsShortLabel(t *testing.T) {
	w := newTestEnv(t).do(http.MethodPost, "/create-key", map[string]string{"label": "x"}, "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealth(t *testing.T) {
	w := newTestEnv(t).do(http.MethodGet, "/health", nil, "")

	require.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string]any](t, w)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "memory", body["store"])
}

func TestHealthUnavailable(t *testing.T) {
	records := &brokenStore{MemoryStore: store.NewMemoryStore(nil), pingErr: errors.New("connection refused")}

	w := newTestEnv(t, withRecords(records)).do(http.MethodGet, "/health", nil, "")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.NotContains(t, w.Body.String(), "connection refused")
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", bearerToken("Bearer abc"))
	assert.Equal(t, "abc", bearerToken("bearer   abc "))
	assert.Equal(t, "", bearerToken("Basic abc"))
	assert.Equal(t, "", bearerToken("abc"))
}

func TestStartReportsBindFailure(t *testing.T) {
	taken, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer taken.Close()

	srv := newTestEnv(t).server
	srv.opts.ListenAddress = taken.Addr().String()

	assert.Error(t, srv.Start())
}

func TestStartServesHealth(t *testing.T) {
	srv := newTestEnv(t).server
	srv.opts.ListenAddress = "127.0.0.1:0"

	require.NoError(t, srv.Start())
	t.Cleanup(func() { srv.Stop() })

	resp, err := http.Get("http://" + srv.Addr() + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
