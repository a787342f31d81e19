package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"spendbook/internal/cache"
	"spendbook/internal/core"
	"spendbook/internal/identity"
	applog "spendbook/internal/log"
	"spendbook/internal/middleware/ratelimit"
	"spendbook/internal/middleware/security"
	"spendbook/internal/middleware/trace"
	"spendbook/internal/records"
)

const sessionCookieName = "spendbook_session"

// Server is the JSON API server. It caches per-owner record lists and drops
// them on mutation via records.Invalidator.
type Server struct {
	http.Server

	service  *records.Service
	sessions *identity.Manager
	resolver identity.Resolver
	logger   *applog.Logger

	secureCookies bool
	sessionTTL    time.Duration

	rateLimiter  *ratelimit.Limiter
	headers      *security.HeadersMiddleware
	tracer       *trace.Middleware
	listCache    *cache.LRUCache[[]core.Record]
	cacheManager *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server listening on addr.
func NewServer(addr string, service *records.Service, sessions *identity.Manager, resolver identity.Resolver, secureCookies bool, sessionTTL time.Duration) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		service:       service,
		sessions:      sessions,
		resolver:      resolver,
		logger:        applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentHTTP),
		secureCookies: secureCookies,
		sessionTTL:    sessionTTL,
		rateLimiter:   ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		headers:       security.NewHeadersMiddleware(security.DefaultHeadersConfig()),
		tracer:        trace.NewMiddleware(clientIP),
		listCache:     cache.NewLRUCache[[]core.Record](200, 5*time.Minute),
		cacheManager:  cache.NewManager(),
	}

	s.cacheManager.Register(s.listCache)
	s.cacheManager.StartCleanup(10 * time.Minute)
	service.RegisterInvalidator(s)

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	mux.Handle("POST /api/login", s.public(http.HandlerFunc(s.handleLogin)))
	mux.Handle("POST /api/logout", s.public(http.HandlerFunc(s.handleLogout)))

	mux.Handle("POST /api/records", s.protected(http.HandlerFunc(s.handleCreateRecord)))
	mux.Handle("GET /api/records", s.protected(http.HandlerFunc(s.handleListRecords)))
	mux.Handle("GET /api/records/summary", s.protected(http.HandlerFunc(s.handleSummary)))
	mux.Handle("PUT /api/records/{id}", s.protected(http.HandlerFunc(s.handleUpdateRecord)))
	mux.Handle("DELETE /api/records/{id}", s.protected(http.HandlerFunc(s.handleDeleteRecord)))

	return s
}

// public chains tracing, security headers and rate limiting.
func (s *Server) public(next http.Handler) http.Handler {
	h := next
	h = s.rateLimiter.Middleware(clientIP, onRateLimited)(h)
	h = s.headers.Middleware(h)
	h = s.tracer.Middleware(h)
	return h
}

// protected additionally makes the session token available to the principal
// resolver. Resolution failures surface as 401 from the handlers.
func (s *Server) protected(next http.Handler) http.Handler {
	return s.public(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if cookie, err := r.Cookie(sessionCookieName); err == nil && cookie.Value != "" {
			r = r.WithContext(identity.WithToken(r.Context(), cookie.Value))
		}
		next.ServeHTTP(w, r)
	}))
}

// owner resolves the authenticated principal for the request.
func (s *Server) owner(r *http.Request) (string, error) {
	return s.resolver.Resolve(r.Context())
}

// InvalidateOwner implements records.Invalidator.
func (s *Server) InvalidateOwner(owner string) {
	s.listCache.Delete(owner)
}

// listRecords returns the owner's full record list, date descending, via the
// per-owner cache.
func (s *Server) listRecords(ctx context.Context, owner string) ([]core.Record, error) {
	if cached, ok := s.listCache.Get(owner); ok {
		result := make([]core.Record, len(cached))
		copy(result, cached)
		return result, nil
	}

	ctx, cancel := context.WithTimeout(ctx, 7*time.Second)
	defer cancel()

	recs, err := s.service.List(ctx)
	if err != nil {
		return nil, err
	}
	s.listCache.Set(owner, recs)
	return recs, nil
}

// Shutdown stops background cleanup goroutines and the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func clientIP(r *http.Request) string {
	ip := r.Header.Get("X-Forwarded-For")
	if ip == "" {
		ip = r.Header.Get("X-Real-IP")
	}
	if ip == "" {
		ip = r.RemoteAddr
	}
	return ip
}

func onRateLimited(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Retry-After", "60")
	respondError(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
