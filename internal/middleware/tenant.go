// tenantvault - Tenant Data Protection Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantvault

package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"

	"github.com/tomtom215/tenantvault/internal/logging"
	"github.com/tomtom215/tenantvault/internal/models"
)

// Tenant identity modes.
const (
	AuthModeJWT    = "jwt"
	AuthModeHeader = "header"
	AuthModeNone   = "none"
)

// DefaultTenantID is used in AuthModeNone when no tenant header is sent.
const DefaultTenantID = "default"

var (
	// ErrMissingCredentials means the request carried no tenant identity.
	ErrMissingCredentials = errors.New("missing tenant credentials")
	// ErrInvalidTenant means the tenant id is empty or malformed.
	ErrInvalidTenant = errors.New("invalid tenant id")
)

// tenantIDPattern restricts tenant ids to what is safe in object keys and logs.
var tenantIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// TenantConfig selects how the caller's tenant is resolved.
type TenantConfig struct {
	// Mode is jwt, header or none
	Mode string

	// Secret is the HS256 key for jwt mode
	Secret string

	// Claim names the jwt claim holding the tenant id
	Claim string

	// Header names the request header holding the tenant id (header and none modes)
	Header string

	// Leeway tolerates clock skew on exp/nbf
	Leeway time.Duration
}

// TenantAuthenticator resolves the tenant every API call is scoped to.
// Handlers read it back with logging.OwnerIDFromContext.
type TenantAuthenticator struct {
	cfg    TenantConfig
	secret []byte
	parser *jwt.Parser
}

// NewTenantAuthenticator validates cfg and builds the authenticator.
func NewTenantAuthenticator(cfg TenantConfig) (*TenantAuthenticator, error) {
	a := &TenantAuthenticator{cfg: cfg}
	switch cfg.Mode {
	case AuthModeJWT:
		if cfg.Secret == "" {
			return nil, fmt.Errorf("jwt tenant auth requires a secret")
		}
		if cfg.Claim == "" {
			return nil, fmt.Errorf("jwt tenant auth requires a claim name")
		}
		a.secret = []byte(cfg.Secret)
		a.parser = jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithLeeway(cfg.Leeway),
		)
	case AuthModeHeader:
		if cfg.Header == "" {
			return nil, fmt.Errorf("header tenant auth requires a header name")
		}
	case AuthModeNone:
	default:
		return nil, fmt.Errorf("unknown tenant auth mode %q", cfg.Mode)
	}
	return a, nil
}

// Middleware rejects requests without a resolvable tenant with 401.
func (a *TenantAuthenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ownerID, err := a.Resolve(r)
		if err != nil {
			logging.Ctx(r.Context()).Warn().
				Err(err).
				Str("mode", a.cfg.Mode).
				Str("path", r.URL.Path).
				Msg("Tenant authentication failed")
			writeUnauthorized(w, err)
			return
		}
		ctx := logging.ContextWithOwnerID(r.Context(), ownerID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Resolve extracts the tenant id from r.
func (a *TenantAuthenticator) Resolve(r *http.Request) (string, error) {
	var ownerID string
	switch a.cfg.Mode {
	case AuthModeJWT:
		id, err := a.fromToken(r)
		if err != nil {
			return "", err
		}
		ownerID = id
	case AuthModeHeader:
		ownerID = strings.TrimSpace(r.Header.Get(a.cfg.Header))
		if ownerID == "" {
			return "", ErrMissingCredentials
		}
	default:
		ownerID = DefaultTenantID
		if a.cfg.Header != "" {
			if v := strings.TrimSpace(r.Header.Get(a.cfg.Header)); v != "" {
				ownerID = v
			}
		}
	}

	if !tenantIDPattern.MatchString(ownerID) {
		return "", ErrInvalidTenant
	}
	return ownerID, nil
}

func (a *TenantAuthenticator) fromToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(raw) == "" {
		return "", ErrMissingCredentials
	}

	claims := jwt.MapClaims{}
	_, err := a.parser.ParseWithClaims(strings.TrimSpace(raw), claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("parse token: %w", err)
	}

	ownerID, ok := claims[a.cfg.Claim].(string)
	if !ok || ownerID == "" {
		return "", fmt.Errorf("%w: claim %q missing", ErrInvalidTenant, a.cfg.Claim)
	}
	return ownerID, nil
}

func writeUnauthorized(w http.ResponseWriter, cause error) {
	message := "Tenant authentication required"
	if errors.Is(cause, ErrInvalidTenant) {
		message = "Tenant identity is invalid"
	}

	data, err := json.Marshal(&models.APIResponse{
		Status:   models.StatusError,
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
		Error:    &models.APIError{Code: "UNAUTHORIZED", Message: message},
	})
	if err != nil {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="tenantvault"`)
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write(data)
}
