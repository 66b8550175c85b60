package http

import (
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/example/studio-scheduler/internal/application"
)

const (
	corsAllowMethods = "OPTIONS,GET,POST,PATCH,DELETE"
	corsAllowHeaders = "Content-Type,Authorization,X-Tenant-Id,X-Subject-Id"
)

// CORS answers preflight requests and stamps the allow headers on every
// response.
func CORS() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", corsAllowMethods)
			w.Header().Set("Access-Control-Allow-Headers", corsAllowHeaders)

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ResolveIdentity determines the acting tenant and subject and stores them on
// the request context as a Principal.
//
// The tenant is taken from the token claim custom:tenantId (or
// custom:tenant_id), then the X-Tenant-Id header, then the tenantId query
// parameter. The subject is taken from the token claim sub, then the
// X-Subject-Id header; handlers that accept a body-level subjectId fall back
// to it when the principal carries none. Requests without a resolvable tenant
// are rejected.
//
// Token signatures are verified at the gateway; claims are only read here.
func ResolveIdentity(logger *slog.Logger) func(http.Handler) http.Handler {
	responder := newResponder(logger)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := principalFromClaims(bearerToken(r))

			if principal.TenantID == "" {
				principal.TenantID = strings.TrimSpace(r.Header.Get("X-Tenant-Id"))
			}
			if principal.TenantID == "" {
				principal.TenantID = strings.TrimSpace(r.URL.Query().Get("tenantId"))
			}
			if principal.SubjectID == "" {
				principal.SubjectID = strings.TrimSpace(r.Header.Get("X-Subject-Id"))
			}

			if principal.TenantID == "" {
				responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingTenant)
				return
			}

			ctx := ContextWithPrincipal(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return ""
	}
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return header
}

func principalFromClaims(raw string) application.Principal {
	var principal application.Principal
	if raw == "" {
		return principal
	}

	token, _, err := jwt.NewParser().ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		return principal
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return principal
	}

	principal.TenantID = claimString(claims, "custom:tenantId")
	if principal.TenantID == "" {
		principal.TenantID = claimString(claims, "custom:tenant_id")
	}
	principal.SubjectID = claimString(claims, "sub")

	switch strings.ToUpper(claimString(claims, "custom:role")) {
	case "ADMIN", "STAFF":
		principal.IsAdmin = true
	}
	return principal
}

func claimString(claims jwt.MapClaims, name string) string {
	value, _ := claims[name].(string)
	return strings.TrimSpace(value)
}

// RequestLogger attaches a request-scoped logger to the context and records
// start and completion of every request.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = slog.Default()
	}
	var counter atomic.Uint64

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := counter.Add(1)
			logger := base.With(
				"request_id", id,
				"method", r.Method,
				"path", r.URL.Path,
			)

			ctx := ContextWithLogger(r.Context(), logger)
			start := time.Now()
			logger.InfoContext(ctx, "request started")
			next.ServeHTTP(w, r.WithContext(ctx))
			logger.InfoContext(ctx, "request completed", "duration", time.Since(start))
		})
	}
}
