package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"

	"github.com/example/studio-scheduler/internal/application"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	return token
}

func capturePrincipal(captured *application.Principal) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, _ := PrincipalFromContext(r.Context())
		*captured = principal
		w.WriteHeader(http.StatusOK)
	})
}

func TestResolveIdentity_FromTokenClaims(t *testing.T) {
	var principal application.Principal
	handler := ResolveIdentity(nil)(capturePrincipal(&principal))

	req := httptest.NewRequest(http.MethodGet, "/scheduling/sessions", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, jwt.MapClaims{
		"custom:tenantId": "tenant1",
		"sub":             "subj1",
		"custom:role":     "ADMIN",
	}))
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", recorder.Code)
	}
	if principal.TenantID != "tenant1" || principal.SubjectID != "subj1" {
		t.Errorf("Unexpected principal: %+v", principal)
	}
	if !principal.IsAdmin {
		t.Error("Expected ADMIN role to grant admin")
	}
}

func TestResolveIdentity_SnakeCaseTenantClaim(t *testing.T) {
	var principal application.Principal
	handler := ResolveIdentity(nil)(capturePrincipal(&principal))

	req := httptest.NewRequest(http.MethodGet, "/scheduling/sessions", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, jwt.MapClaims{
		"custom:tenant_id": "tenant2",
		"sub":              "subj2",
	}))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if principal.TenantID != "tenant2" {
		t.Errorf("Expected tenant from custom:tenant_id, got %q", principal.TenantID)
	}
	if principal.IsAdmin {
		t.Error("Expected no admin without a role claim")
	}
}

func TestResolveIdentity_HeaderFallback(t *testing.T) {
	var principal application.Principal
	handler := ResolveIdentity(nil)(capturePrincipal(&principal))

	req := httptest.NewRequest(http.MethodGet, "/scheduling/sessions", nil)
	req.Header.Set("X-Tenant-Id", "tenant1")
	req.Header.Set("X-Subject-Id", "subj1")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", recorder.Code)
	}
	if principal.TenantID != "tenant1" || principal.SubjectID != "subj1" {
		t.Errorf("Unexpected principal: %+v", principal)
	}
}

func TestResolveIdentity_ClaimWinsOverHeader(t *testing.T) {
	var principal application.Principal
	handler := ResolveIdentity(nil)(capturePrincipal(&principal))

	req := httptest.NewRequest(http.MethodGet, "/scheduling/sessions", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, jwt.MapClaims{
		"custom:tenantId": "claim-tenant",
		"sub":             "claim-subject",
	}))
	req.Header.Set("X-Tenant-Id", "header-tenant")
	req.Header.Set("X-Subject-Id", "header-subject")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if principal.TenantID != "claim-tenant" || principal.SubjectID != "claim-subject" {
		t.Errorf("Expected claims to take precedence, got %+v", principal)
	}
}

func TestResolveIdentity_QueryFallback(t *testing.T) {
	var principal application.Principal
	handler := ResolveIdentity(nil)(capturePrincipal(&principal))

	req := httptest.NewRequest(http.MethodGet, "/scheduling/sessions?tenantId=tenant3", nil)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", recorder.Code)
	}
	if principal.TenantID != "tenant3" {
		t.Errorf("Expected tenant from query, got %q", principal.TenantID)
	}
}

func TestResolveIdentity_MissingTenant(t *testing.T) {
	handler := ResolveIdentity(nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Error("Handler must not run without a tenant")
	}))

	req := httptest.NewRequest(http.MethodGet, "/scheduling/sessions", nil)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", recorder.Code)
	}
}

func TestResolveIdentity_MalformedTokenFallsBack(t *testing.T) {
	var principal application.Principal
	handler := ResolveIdentity(nil)(capturePrincipal(&principal))

	req := httptest.NewRequest(http.MethodGet, "/scheduling/sessions", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	req.Header.Set("X-Tenant-Id", "tenant1")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", recorder.Code)
	}
	if principal.TenantID != "tenant1" {
		t.Errorf("Expected header fallback after malformed token, got %q", principal.TenantID)
	}
}

func TestCORS(t *testing.T) {
	handler := CORS()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodOptions, "/scheduling/bookings", nil)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusNoContent {
		t.Fatalf("Expected 204 for preflight, got %d", recorder.Code)
	}
	if got := recorder.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Expected wildcard origin, got %q", got)
	}
	if got := recorder.Header().Get("Access-Control-Allow-Methods"); got != corsAllowMethods {
		t.Errorf("Unexpected allow methods: %q", got)
	}
	if got := recorder.Header().Get("Access-Control-Allow-Headers"); got != corsAllowHeaders {
		t.Errorf("Unexpected allow headers: %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/scheduling/bookings", nil)
	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	if recorder.Code != http.StatusOK {
		t.Errorf("Expected pass-through for GET, got %d", recorder.Code)
	}
	if got := recorder.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Expected CORS headers on normal responses, got %q", got)
	}
}

func TestRequestLogger_AttachesLogger(t *testing.T) {
	var sawLogger bool
	handler := RequestLogger(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawLogger = LoggerFromContext(r.Context()) != nil
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/scheduling/sessions", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if !sawLogger {
		t.Error("Expected a request-scoped logger on the context")
	}
}
