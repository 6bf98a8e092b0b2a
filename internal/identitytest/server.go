// Package identitytest runs an in-process fake of the identity service: login, logout,
// status, demo-users, refresh and validate, speaking the same JSON as the real one.
package identitytest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/MrEthical07/authclient/internal"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const signingKey = "identitytest-signing-key"

// User is a demo account.
type User struct {
	Username    string
	Password    string
	Authorities []string
}

// DefaultUsers are the demo accounts the service ships with.
func DefaultUsers() []User {
	return []User{
		{Username: "admin", Password: "admin123", Authorities: []string{"ROLE_ADMIN", "ROLE_USER"}},
		{Username: "user", Password: "user123", Authorities: []string{"ROLE_USER"}},
		{Username: "demo", Password: "demo123", Authorities: []string{"ROLE_USER"}},
	}
}

// Response is a canned answer installed with Server.Respond.
type Response struct {
	Status int
	Body   string
}

// Server is the fake identity service.
type Server struct {
	srv *httptest.Server

	mu              sync.Mutex
	users           map[string]User
	hashes          map[string]string // username -> argon2id PHC
	throttle        *loginThrottle
	issueTokens     bool
	authorityObject bool
	tokenTTL        time.Duration
	now             func() time.Time

	active  map[string]string   // access token -> username
	refresh map[[32]byte]string // refresh token hash -> username
	current string              // session-only mode

	canned  map[string]Response
	calls   map[string]int
	headers map[string]http.Header
}

// Option configures a Server.
type Option func(*Server)

// WithoutTokens makes login succeed without issuing a bearer token, like a deployment
// relying on server-side sessions.
func WithoutTokens() Option {
	return func(s *Server) { s.issueTokens = false }
}

// WithAuthorityObjects renders authorities as [{"authority":"ROLE_X"}].
func WithAuthorityObjects() Option {
	return func(s *Server) { s.authorityObject = true }
}

// WithTokenTTL sets access token lifetime. Default one hour.
func WithTokenTTL(ttl time.Duration) Option {
	return func(s *Server) { s.tokenTTL = ttl }
}

// WithUsers replaces the demo accounts.
func WithUsers(users ...User) Option {
	return func(s *Server) {
		s.users = make(map[string]User, len(users))
		for _, u := range users {
			s.users[u.Username] = u
		}
	}
}

// WithLoginThrottle rejects logins with 429 once an identifier has failed maxFailures
// times within window. Counters live in rdb.
func WithLoginThrottle(rdb redis.UniversalClient, maxFailures int, window time.Duration) Option {
	return func(s *Server) {
		s.throttle = &loginThrottle{rdb: rdb, max: maxFailures, window: window}
	}
}

// WithClock overrides time.Now for token issue and expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// NewServer starts a Server. Close it when done.
func NewServer(opts ...Option) *Server {
	s := &Server{
		issueTokens: true,
		tokenTTL:    time.Hour,
		now:         time.Now,
		active:      map[string]string{},
		refresh:     map[[32]byte]string{},
		canned:      map[string]Response{},
		calls:       map[string]int{},
		headers:     map[string]http.Header{},
	}
	WithUsers(DefaultUsers()...)(s)
	for _, opt := range opts {
		opt(s)
	}
	s.hashes = make(map[string]string, len(s.users))
	for name, u := range s.users {
		h, err := hashPassword(u.Password)
		if err != nil {
			panic(fmt.Sprintf("identitytest: hash password for %s: %v", name, err))
		}
		s.hashes[name] = h
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.HandleFunc("POST /api/auth/logout", s.handleLogout)
	mux.HandleFunc("GET /api/auth/status", s.handleStatus)
	mux.HandleFunc("GET /api/auth/demo-users", s.handleDemoUsers)
	mux.HandleFunc("POST /api/auth/refresh", s.handleRefresh)
	mux.HandleFunc("POST /api/auth/validate", s.handleValidate)

	s.srv = httptest.NewServer(s.record(mux))
	return s
}

// URL is the service root.
func (s *Server) URL() string {
	return s.srv.URL
}

// Close shuts the server down. Subsequent calls fail at the transport level.
func (s *Server) Close() {
	s.srv.Close()
}

// Respond makes every request to path return resp until Reset.
func (s *Server) Respond(path string, resp Response) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.canned[path] = resp
}

// Reset removes canned responses.
func (s *Server) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.canned = map[string]Response{}
}

// Calls returns how many requests reached path.
func (s *Server) Calls(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[path]
}

// LastHeader returns the headers of the latest request to path.
func (s *Server) LastHeader(path string) http.Header {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.headers[path].Clone()
}

// RevokeAll ends every server-side session, as an administrator or expiry would.
func (s *Server) RevokeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = map[string]string{}
	s.refresh = map[[32]byte]string{}
	s.current = ""
}

// ActiveSessions returns how many access tokens the server still honours.
func (s *Server) ActiveSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.issueTokens && s.current != "" {
		return 1
	}
	return len(s.active)
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls[r.URL.Path]++
		s.headers[r.URL.Path] = r.Header.Clone()
		canned, ok := s.canned[r.URL.Path]
		s.mu.Unlock()

		if ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(canned.Status)
			_, _ = w.Write([]byte(canned.Body))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Identifier string `json:"identifier"`
		Username   string `json:"username"`
		Password   string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "invalid request body"})
		return
	}
	id := req.Identifier
	if id == "" {
		id = req.Username
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.throttle != nil {
		if err := s.throttle.check(r.Context(), id); err != nil {
			s.throttleError(w, err)
			return
		}
	}

	u, ok := s.users[id]
	if ok {
		ok, _ = verifyPassword(req.Password, s.hashes[id])
	}
	if !ok {
		if s.throttle != nil {
			if err := s.throttle.fail(r.Context(), id); err != nil {
				s.throttleError(w, err)
				return
			}
		}
		writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "Invalid credentials"})
		return
	}
	if s.throttle != nil {
		if err := s.throttle.reset(r.Context(), id); err != nil {
			s.throttleError(w, err)
			return
		}
	}

	body := map[string]any{
		"success":     true,
		"message":     "Login successful",
		"username":    u.Username,
		"authorities": s.renderAuthorities(u.Authorities),
	}

	if !s.issueTokens {
		s.current = u.Username
		writeJSON(w, http.StatusOK, body)
		return
	}

	access, err := s.mint(u)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "message": "token issue failed"})
		return
	}
	refresh, err := s.mintRefresh(u.Username)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "message": "token issue failed"})
		return
	}

	body["accessToken"] = access
	body["refreshToken"] = refresh
	body["tokenType"] = "Bearer"
	body["expiresIn"] = int64(s.tokenTTL / time.Second)
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) throttleError(w http.ResponseWriter, err error) {
	if errors.Is(err, errThrottled) {
		writeJSON(w, http.StatusTooManyRequests, map[string]any{"success": false, "message": "Too many login attempts; try again later"})
		return
	}
	writeJSON(w, http.StatusServiceUnavailable, map[string]any{"success": false, "message": "login temporarily unavailable"})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	if tok := bearer(r); tok != "" {
		delete(s.active, tok)
	}
	s.current = ""
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Logout successful"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	username := s.current
	if s.issueTokens {
		username = s.active[bearer(r)]
	}

	u, ok := s.users[username]
	if username == "" || !ok {
		writeJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"username":      u.Username,
		"authorities":   s.renderAuthorities(u.Authorities),
	})
}

func (s *Server) handleDemoUsers(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	names := make([]string, 0, len(s.users))
	for name := range s.users {
		names = append(names, name)
	}
	sort.Strings(names)
	demo := make(map[string]string, len(names))
	for _, name := range names {
		u := s.users[name]
		demo[name] = u.Password + " (" + strings.Join(u.Authorities, ", ") + ")"
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"demoUsers":   demo,
		"instruction": `POST /api/auth/login with JSON: {"identifier":"admin", "password":"admin123"}`,
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "refresh token required"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	hash, err := internal.HashOpaqueToken(req.RefreshToken)
	username, ok := s.refresh[hash]
	if err != nil || !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "refresh token invalid or expired"})
		return
	}
	delete(s.refresh, hash)

	u := s.users[username]
	access, err := s.mint(u)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "message": "token issue failed"})
		return
	}
	next, err := s.mintRefresh(username)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "message": "token issue failed"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"message":      "Token refreshed",
		"username":     u.Username,
		"authorities":  s.renderAuthorities(u.Authorities),
		"accessToken":  access,
		"refreshToken": next,
		"expiresIn":    int64(s.tokenTTL / time.Second),
	})
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"valid": false, "message": "token required"})
		return
	}

	s.mu.Lock()
	username, active := s.active[req.Token]
	u := s.users[username]
	s.mu.Unlock()

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(req.Token, claims, func(*jwt.Token) (any, error) {
		return []byte(signingKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil || !active {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"valid": false, "message": "Token invalid or expired"})
		return
	}

	remaining := claims.ExpiresAt.Sub(s.now())
	writeJSON(w, http.StatusOK, map[string]any{
		"valid":         true,
		"username":      u.Username,
		"authorities":   s.renderAuthorities(u.Authorities),
		"remainingTime": remaining.Milliseconds(),
		"expiringSoon":  remaining < 5*time.Minute,
		"message":       "Token valid",
	})
}

// mint issues a signed access token. Caller holds s.mu.
func (s *Server) mint(u User) (string, error) {
	now := s.now()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":         u.Username,
		"jti":         uuid.NewString(),
		"type":        "access",
		"authorities": u.Authorities,
		"iat":         now.Unix(),
		"exp":         now.Add(s.tokenTTL).Unix(),
	}).SignedString([]byte(signingKey))
	if err != nil {
		return "", err
	}
	s.active[tok] = u.Username
	return tok, nil
}

// mintRefresh issues an opaque refresh token. Caller holds s.mu.
func (s *Server) mintRefresh(username string) (string, error) {
	tok, err := internal.NewOpaqueToken()
	if err != nil {
		return "", err
	}
	hash, err := internal.HashOpaqueToken(tok)
	if err != nil {
		return "", err
	}
	s.refresh[hash] = username
	return tok, nil
}

func (s *Server) renderAuthorities(names []string) any {
	if !s.authorityObject {
		return names
	}
	out := make([]map[string]string, len(names))
	for i, n := range names {
		out[i] = map[string]string{"authority": n}
	}
	return out
}

func bearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return h[7:]
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
