/*
auth.go - Admin session

PURPOSE:
  Guards the admin routes (dashboard, approve, reject, entitlement edits,
  recompute) behind a single configured admin account.

FLOW:
  POST /login   username + password (form or JSON)
                -> bcrypt check against the configured hash
                -> HS256 JWT in an HttpOnly cookie, jti = random uuid
                -> 303 to ?next= (or /admin)
  GET  /logout  clears the cookie, 303 to /apply

  Admin routes without a valid cookie get 303 to /login?next=<path>.

  Approve and reject are GET routes, so the cookie is SameSite=Strict and
  no cross-site request carries the session.

CREDENTIALS:
  Come from the environment only (ADMIN_USER, ADMIN_PASSWORD_HASH or
  ADMIN_PASSWORD, SESSION_SECRET). A missing secret is replaced by a random
  one, which invalidates sessions on restart.
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const sessionCookie = "leave_session"

// ErrNoAdminPassword is returned when neither a hash nor a password is set.
var ErrNoAdminPassword = errors.New("admin password not configured")

// AuthConfig configures the admin account and session cookie.
type AuthConfig struct {
	Username     string
	PasswordHash string // bcrypt
	Password     string // hashed at startup when PasswordHash is empty
	Secret       string
	TTL          time.Duration
	SecureCookie bool

	// BcryptCost applies to Password only. Zero means bcrypt.DefaultCost.
	BcryptCost int
}

// Auth issues and checks admin sessions.
type Auth struct {
	username string
	hash     []byte
	secret   []byte
	ttl      time.Duration
	secure   bool
	logger   *zap.Logger
	now      func() time.Time
}

func NewAuth(cfg AuthConfig, logger *zap.Logger) (*Auth, error) {
	if logger == nil {
		logger = zap.L()
	}
	logger = logger.Named("api.auth")

	a := &Auth{
		username: cfg.Username,
		ttl:      cfg.TTL,
		secure:   cfg.SecureCookie,
		logger:   logger,
		now:      time.Now,
	}
	if a.username == "" {
		a.username = "admin"
	}
	if a.ttl <= 0 {
		a.ttl = 12 * time.Hour
	}

	switch {
	case cfg.PasswordHash != "":
		if _, err := bcrypt.Cost([]byte(cfg.PasswordHash)); err != nil {
			return nil, fmt.Errorf("invalid admin password hash: %w", err)
		}
		a.hash = []byte(cfg.PasswordHash)
	case cfg.Password != "":
		cost := cfg.BcryptCost
		if cost == 0 {
			cost = bcrypt.DefaultCost
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(cfg.Password), cost)
		if err != nil {
			return nil, fmt.Errorf("hash admin password: %w", err)
		}
		a.hash = hash
	default:
		return nil, ErrNoAdminPassword
	}

	if cfg.Secret != "" {
		a.secret = []byte(cfg.Secret)
	} else {
		logger.Warn("SESSION_SECRET not set, using a random secret; sessions end on restart")
		a.secret = []byte(uuid.NewString() + uuid.NewString())
	}
	return a, nil
}

// =============================================================================
// TOKENS
// =============================================================================

func (a *Auth) issue() (string, time.Time, error) {
	now := a.now()
	expires := now.Add(a.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   a.username,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expires, nil
}

func (a *Auth) verify(token string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return a.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	if claims.Subject != a.username {
		return nil, fmt.Errorf("unexpected subject %q", claims.Subject)
	}
	return claims, nil
}

// =============================================================================
// MIDDLEWARE
// =============================================================================

type ctxKey int

const adminKey ctxKey = iota

// RequireAdmin redirects requests without a valid session to the login page.
func (a *Auth) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookie)
		if err == nil {
			claims, verr := a.verify(cookie.Value)
			if verr == nil {
				ctx := context.WithValue(r.Context(), adminKey, claims.Subject)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}
			a.logger.Debug("rejected session", zap.Error(verr))
		}

		target := "/login?next=" + url.QueryEscape(r.URL.RequestURI())
		http.Redirect(w, r, target, http.StatusSeeOther)
	})
}

// adminFrom returns the admin name stored by RequireAdmin.
func adminFrom(ctx context.Context) string {
	name, _ := ctx.Value(adminKey).(string)
	return name
}

// =============================================================================
// HANDLERS
// =============================================================================

// LoginRequest is the login body.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Next     string `json:"next"`
}

// LoginForm describes the login form.
// GET /login
func (a *Auth) LoginForm(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"fields": []string{"username", "password"},
		"next":   safeNext(r.URL.Query().Get("next")),
	})
}

// Login checks credentials and sets the session cookie.
// POST /login
func (a *Auth) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if isJSON(r) {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid form", err)
			return
		}
		req = LoginRequest{
			Username: r.PostForm.Get("username"),
			Password: r.PostForm.Get("password"),
			Next:     r.PostForm.Get("next"),
		}
	}
	if req.Next == "" {
		req.Next = r.URL.Query().Get("next")
	}

	if !a.checkCredentials(req.Username, req.Password) {
		a.logger.Warn("failed admin login", zap.String("username", req.Username))
		writeError(w, http.StatusUnauthorized, "Invalid username or password", nil)
		return
	}

	token, expires, err := a.issue()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create session", err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   a.secure,
		SameSite: http.SameSiteStrictMode,
	})
	a.logger.Info("admin logged in", zap.String("username", req.Username))
	http.Redirect(w, r, safeNext(req.Next), http.StatusSeeOther)
}

// Logout clears the session cookie.
// GET /logout
func (a *Auth) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.secure,
		SameSite: http.SameSiteStrictMode,
	})
	http.Redirect(w, r, "/apply", http.StatusSeeOther)
}

func (a *Auth) checkCredentials(username, password string) bool {
	// bcrypt runs even when the username is wrong.
	err := bcrypt.CompareHashAndPassword(a.hash, []byte(password))
	return err == nil && username == a.username
}

// safeNext only allows local absolute paths.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/admin"
	}
	return next
}
