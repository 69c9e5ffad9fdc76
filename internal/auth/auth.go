package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

const (
	CookieName    = "rafflehouse_session"
	SessionExpiry = 24 * time.Hour

	// CallerHeader carries the address a request acts as
	CallerHeader = "X-Caller-Address"
)

// Raffle-themed words for password generation
var raffleWords = []string{
	"ticket", "stub", "drum", "lucky", "prize",
	"jackpot", "draw", "winner", "clover", "seven",
	"dice", "wheel", "token", "gold", "silver",
	"charm", "studio", "escrow", "oracle",
}

// Auth holds the admin password and the sessions issued for it
type Auth struct {
	password string
	clock    clockwork.Clock

	mu       sync.Mutex
	sessions map[string]time.Time
}

// Option configures an Auth
type Option func(*Auth)

// WithClock overrides the clock used for session expiry
func WithClock(clock clockwork.Clock) Option {
	return func(a *Auth) {
		a.clock = clock
	}
}

// New creates a new Auth instance with the given password
func New(password string, opts ...Option) *Auth {
	a := &Auth{
		password: password,
		clock:    clockwork.NewRealClock(),
		sessions: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// GeneratePassword creates a random 3-word password
func GeneratePassword() string {
	words := make([]string, 3)
	max := big.NewInt(int64(len(raffleWords)))
	for i := range words {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic(err)
		}
		words[i] = raffleWords[n.Int64()]
	}
	return strings.Join(words, "-")
}

// Login validates the password and returns a session token if valid
func (a *Auth) Login(password string) (string, bool) {
	if subtle.ConstantTimeCompare([]byte(password), []byte(a.password)) != 1 {
		return "", false
	}

	token := generateToken()
	a.mu.Lock()
	a.purgeLocked()
	a.sessions[token] = a.clock.Now().Add(SessionExpiry)
	a.mu.Unlock()

	return token, true
}

// Logout invalidates a session token
func (a *Auth) Logout(token string) {
	a.mu.Lock()
	delete(a.sessions, token)
	a.mu.Unlock()
}

// ValidateSession reports whether token names a live session. Expired
// sessions are dropped on first sight.
func (a *Auth) ValidateSession(token string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	expiry, ok := a.sessions[token]
	if !ok {
		return false
	}
	if !a.clock.Now().Before(expiry) {
		delete(a.sessions, token)
		return false
	}
	return true
}

// SessionCount returns the number of unexpired sessions
func (a *Auth) SessionCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.purgeLocked()
	return len(a.sessions)
}

func (a *Auth) purgeLocked() {
	now := a.clock.Now()
	for token, expiry := range a.sessions {
		if !now.Before(expiry) {
			delete(a.sessions, token)
		}
	}
}

// GetSessionFromRequest extracts and validates the session from a request
func (a *Auth) GetSessionFromRequest(r *http.Request) bool {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return false
	}
	return a.ValidateSession(cookie.Value)
}

// RequireAuthAPI middleware for admin endpoints (returns 401)
func (a *Auth) RequireAuthAPI(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.GetSessionFromRequest(r) {
			writeUnauthorized(w, "Unauthorized - please log in")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// CallerFromRequest returns the trimmed caller address, or "" when absent
func CallerFromRequest(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(CallerHeader))
}

// RequireCaller middleware rejects requests without a caller address
func RequireCaller(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if CallerFromRequest(r) == "" {
			writeUnauthorized(w, "Missing "+CallerHeader+" header")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// writeUnauthorized writes the same error body the handlers package uses
func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"code":"UNAUTHORIZED","error":"` + message + `"}`))
}

// SetSessionCookie sets the session cookie on the response
func SetSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(SessionExpiry.Seconds()),
	})
}

// ClearSessionCookie removes the session cookie
func ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

// generateToken creates a random session token
func generateToken() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}
