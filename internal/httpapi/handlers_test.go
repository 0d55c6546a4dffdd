package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/josemwas/HR-management/internal/audit"
	"github.com/josemwas/HR-management/internal/auth"
	"github.com/josemwas/HR-management/internal/store/memory"
)

const testSecret = "test-secret-that-is-at-least-32-bytes"

type apiClient struct {
	baseURL string
	client  *http.Client
	t       *testing.T
}

type testEnv struct {
	*apiClient
	rbac   *auth.RBACService
	tokens *auth.TokenIssuer
	org    auth.Organization
	admin  auth.Employee
	worker auth.Employee
	roles  map[string]string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	store := memory.New()
	recorder, err := audit.NewRecorder(store)
	if err != nil {
		t.Fatalf("NewRecorder: %v", err)
	}
	rbac, err := auth.NewRBACService(store, recorder)
	if err != nil {
		t.Fatalf("NewRBACService: %v", err)
	}
	if _, err := rbac.EnsureCatalog(ctx); err != nil {
		t.Fatalf("EnsureCatalog: %v", err)
	}
	org, err := rbac.CreateOrganization(ctx, "Acme")
	if err != nil {
		t.Fatalf("CreateOrganization: %v", err)
	}
	if _, err := rbac.InitializeOrganization(ctx, org.ID); err != nil {
		t.Fatalf("InitializeOrganization: %v", err)
	}
	admin, err := rbac.CreateEmployee(ctx, auth.EmployeeInput{
		OrganizationID: org.ID,
		Email:          "admin@acme.test",
		Password:       "admin-password",
		AccountRole:    auth.SuperAdminAccountRole,
	})
	if err != nil {
		t.Fatalf("CreateEmployee admin: %v", err)
	}
	worker, err := rbac.CreateEmployee(ctx, auth.EmployeeInput{
		OrganizationID: org.ID,
		Email:          "worker@acme.test",
		Password:       "worker-password",
	})
	if err != nil {
		t.Fatalf("CreateEmployee worker: %v", err)
	}
	actor, err := rbac.Resolve(ctx, admin.ID)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	list, err := rbac.ListRoles(ctx, actor)
	if err != nil {
		t.Fatalf("ListRoles: %v", err)
	}
	roles := make(map[string]string, len(list))
	for _, r := range list {
		roles[r.Name] = r.ID
	}

	tokens, err := auth.NewTokenIssuer(testSecret, "", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	api := New(Options{
		RBAC:       rbac,
		Tokens:     tokens,
		Version:    "test",
		RateBurst:  1000,
		RatePerSec: 1000,
	})
	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	return &testEnv{
		apiClient: &apiClient{baseURL: srv.URL, client: srv.Client(), t: t},
		rbac:      rbac,
		tokens:    tokens,
		org:       org,
		admin:     admin,
		worker:    worker,
		roles:     roles,
	}
}

func (e *testEnv) tokenFor(emp auth.Employee) string {
	e.t.Helper()
	token, _, err := e.tokens.GenerateToken(emp)
	if err != nil {
		e.t.Fatalf("GenerateToken: %v", err)
	}
	return token
}

func (c *apiClient) do(method, path string, body any, token string) *http.Response {
	c.t.Helper()
	var payload io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal body: %v", err)
		}
		payload = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, c.baseURL+path, payload)
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("do request: %v", err)
	}
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		t.Fatalf("expected status %d, got %d: %s", want, resp.StatusCode, body)
	}
}

func TestHealthAndInfoArePublic(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/healthz", "/readyz", "/v1/info"} {
		resp := env.do(http.MethodGet, path, nil, "")
		expectStatus(t, resp, http.StatusOK)
		body := decodeBody[map[string]any](t, resp)
		if len(body) == 0 {
			t.Fatalf("%s: empty body", path)
		}
	}
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(http.MethodPost, "/v1/auth/login", map[string]string{
		"email":    "ADMIN@acme.test",
		"password": "admin-password",
	}, "")
	expectStatus(t, resp, http.StatusOK)
	login := decodeBody[map[string]any](t, resp)
	token, _ := login["access_token"].(string)
	if token == "" {
		t.Fatalf("expected access token, got %v", login)
	}
	if _, leaked := login["employee"].(map[string]any)["password_hash"]; leaked {
		t.Fatalf("password hash must not be serialised")
	}

	resp = env.do(http.MethodGet, "/v1/me/permissions", nil, token)
	expectStatus(t, resp, http.StatusOK)
	me := decodeBody[myPermissionsResponse](t, resp)
	if !me.IsSuperAdmin || me.EmployeeID != env.admin.ID {
		t.Fatalf("unexpected identity: %+v", me)
	}
	if len(me.Permissions) != len(auth.BuiltinPermissions) {
		t.Fatalf("super actor should see the whole catalog, got %d", len(me.Permissions))
	}

	resp = env.do(http.MethodPost, "/v1/auth/login", map[string]string{
		"email":    "admin@acme.test",
		"password": "wrong",
	}, "")
	expectStatus(t, resp, http.StatusUnauthorized)
	resp.Body.Close()
}

func TestMissingOrInvalidTokenIsUnauthorized(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(http.MethodGet, "/v1/roles", nil, "")
	expectStatus(t, resp, http.StatusUnauthorized)
	body := decodeBody[map[string]any](t, resp)
	if body["error"] == nil || body["request_id"] == nil {
		t.Fatalf("expected error and request_id, got %v", body)
	}

	resp = env.do(http.MethodGet, "/v1/roles", nil, "not-a-jwt")
	expectStatus(t, resp, http.StatusUnauthorized)
	resp.Body.Close()

	other, err := auth.NewTokenIssuer("another-secret-that-is-32-bytes-long", "", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	forged, _, err := other.GenerateToken(env.admin)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	resp = env.do(http.MethodGet, "/v1/roles", nil, forged)
	expectStatus(t, resp, http.StatusUnauthorized)
	resp.Body.Close()
}

func TestTokenForUnknownEmployeeIsUnauthorized(t *testing.T) {
	env := newTestEnv(t)
	ghost := auth.Employee{ID: "ghost", OrganizationID: env.org.ID}

	resp := env.do(http.MethodGet, "/v1/me/permissions", nil, env.tokenFor(ghost))
	expectStatus(t, resp, http.StatusUnauthorized)
	resp.Body.Close()
}

func TestMissingPermissionIsForbidden(t *testing.T) {
	env := newTestEnv(t)
	token := env.tokenFor(env.worker)

	resp := env.do(http.MethodGet, "/v1/roles", nil, token)
	expectStatus(t, resp, http.StatusForbidden)
	resp.Body.Close()

	resp = env.do(http.MethodGet, "/v1/me/permissions", nil, token)
	expectStatus(t, resp, http.StatusOK)
	me := decodeBody[myPermissionsResponse](t, resp)
	if me.IsSuperAdmin || len(me.Permissions) != 0 {
		t.Fatalf("worker without roles should hold nothing: %+v", me)
	}
}

func TestRoleLifecycle(t *testing.T) {
	env := newTestEnv(t)
	token := env.tokenFor(env.admin)

	resp := env.do(http.MethodGet, "/v1/permissions", nil, token)
	expectStatus(t, resp, http.StatusOK)
	catalog := decodeBody[auth.PermissionCatalog](t, resp)
	var reportsID string
	for _, p := range catalog.Permissions {
		if p.Name == auth.PermViewReports {
			reportsID = p.ID
		}
	}
	if reportsID == "" || len(catalog.Grouped["reports"]) == 0 {
		t.Fatalf("catalog missing reports permissions")
	}

	resp = env.do(http.MethodPost, "/v1/roles", map[string]any{
		"name":           "auditor",
		"display_name":   "Auditor",
		"permission_ids": []string{reportsID},
	}, token)
	expectStatus(t, resp, http.StatusCreated)
	if loc := resp.Header.Get("Location"); loc == "" {
		t.Fatalf("expected Location header")
	}
	role := decodeBody[auth.Role](t, resp)
	if len(role.Permissions) != 1 || role.IsSystem {
		t.Fatalf("unexpected role: %+v", role)
	}

	resp = env.do(http.MethodPost, "/v1/roles", map[string]any{
		"name":         "auditor",
		"display_name": "Auditor again",
	}, token)
	expectStatus(t, resp, http.StatusConflict)
	resp.Body.Close()

	resp = env.do(http.MethodPost, "/v1/roles", map[string]any{
		"name":           "broken",
		"display_name":   "Broken",
		"permission_ids": []string{"perm_missing"},
	}, token)
	expectStatus(t, resp, http.StatusBadRequest)
	resp.Body.Close()

	resp = env.do(http.MethodPatch, "/v1/roles/"+role.ID, map[string]any{"display_name": "Chief Auditor"}, token)
	expectStatus(t, resp, http.StatusOK)
	updated := decodeBody[auth.Role](t, resp)
	if updated.DisplayName != "Chief Auditor" || len(updated.Permissions) != 1 {
		t.Fatalf("unexpected update: %+v", updated)
	}

	resp = env.do(http.MethodDelete, "/v1/roles/"+env.roles[auth.RoleManager], nil, token)
	expectStatus(t, resp, http.StatusConflict)
	resp.Body.Close()

	resp = env.do(http.MethodDelete, "/v1/roles/"+role.ID, nil, token)
	expectStatus(t, resp, http.StatusNoContent)
	resp.Body.Close()

	resp = env.do(http.MethodGet, "/v1/roles/"+role.ID, nil, token)
	expectStatus(t, resp, http.StatusNotFound)
	resp.Body.Close()
}

func TestEmployeeRoleAssignment(t *testing.T) {
	env := newTestEnv(t)
	adminToken := env.tokenFor(env.admin)
	workerToken := env.tokenFor(env.worker)
	path := "/v1/employees/" + env.worker.ID + "/roles"

	resp := env.do(http.MethodGet, path, nil, workerToken)
	expectStatus(t, resp, http.StatusForbidden)
	resp.Body.Close()

	resp = env.do(http.MethodPost, path, map[string]any{"role_id": env.roles[auth.RoleManager], "is_primary": true}, adminToken)
	expectStatus(t, resp, http.StatusCreated)
	resp.Body.Close()

	resp = env.do(http.MethodPost, path, map[string]any{"role_id": env.roles[auth.RoleManager]}, adminToken)
	expectStatus(t, resp, http.StatusConflict)
	resp.Body.Close()

	resp = env.do(http.MethodGet, path, nil, workerToken)
	expectStatus(t, resp, http.StatusOK)
	access := decodeBody[auth.EmployeeAccess](t, resp)
	if len(access.Roles) != 1 || !access.Roles[0].IsPrimary {
		t.Fatalf("unexpected access: %+v", access)
	}

	resp = env.do(http.MethodDelete, path+"/"+env.roles[auth.RoleManager], nil, adminToken)
	expectStatus(t, resp, http.StatusNoContent)
	resp.Body.Close()

	resp = env.do(http.MethodGet, path, nil, workerToken)
	expectStatus(t, resp, http.StatusForbidden)
	resp.Body.Close()

	resp = env.do(http.MethodDelete, path+"/"+env.roles[auth.RoleManager], nil, adminToken)
	expectStatus(t, resp, http.StatusNotFound)
	resp.Body.Close()
}

func TestSettingsEndpoints(t *testing.T) {
	env := newTestEnv(t)
	token := env.tokenFor(env.admin)

	resp := env.do(http.MethodPut, "/v1/settings/smtp_password", map[string]any{
		"value":        "hunter2",
		"category":     "notifications",
		"is_sensitive": true,
	}, token)
	expectStatus(t, resp, http.StatusOK)
	view := decodeBody[map[string]any](t, resp)
	if view["value"] != auth.RedactedValue {
		t.Fatalf("sensitive value leaked: %v", view["value"])
	}

	resp = env.do(http.MethodGet, "/v1/settings/annual_leave_days", nil, token)
	expectStatus(t, resp, http.StatusOK)
	leave := decodeBody[map[string]any](t, resp)
	if leave["value"] != float64(20) {
		t.Fatalf("unexpected default: %v", leave["value"])
	}

	resp = env.do(http.MethodPost, "/v1/settings", map[string]any{
		"settings": []map[string]any{
			{"key": "annual_leave_days", "value": 25},
			{"key": "timezone", "value": "Africa/Nairobi"},
		},
	}, token)
	expectStatus(t, resp, http.StatusOK)
	updated := decodeBody[map[string][]string](t, resp)
	if len(updated["updated"]) != 2 {
		t.Fatalf("unexpected batch result: %v", updated)
	}

	resp = env.do(http.MethodPost, "/v1/settings", map[string]any{
		"settings": []map[string]any{
			{"key": "sick_leave_days", "value": 12},
			{"key": "annual_leave_days", "value": "many"},
		},
	}, token)
	expectStatus(t, resp, http.StatusBadRequest)
	resp.Body.Close()

	resp = env.do(http.MethodGet, "/v1/settings?category=leaves", nil, token)
	expectStatus(t, resp, http.StatusOK)
	list := decodeBody[auth.SettingList](t, resp)
	for _, s := range list.Settings {
		if s.Category != "leaves" {
			t.Fatalf("category filter ignored: %+v", s)
		}
		if s.Key == "sick_leave_days" && s.Value != float64(10) {
			t.Fatalf("rejected batch was partially applied: %v", s.Value)
		}
	}

	resp = env.do(http.MethodGet, "/v1/settings/missing_key", nil, token)
	expectStatus(t, resp, http.StatusNotFound)
	resp.Body.Close()
}

func TestIntegerSettingKeepsExactValue(t *testing.T) {
	env := newTestEnv(t)
	token := env.tokenFor(env.admin)

	resp := env.do(http.MethodPut, "/v1/settings/big", map[string]any{
		"value":     json.RawMessage("9007199254740993"),
		"data_type": auth.SettingTypeInteger,
	}, token)
	expectStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	got, err := env.rbac.GetSetting(context.Background(), env.org.ID, "big", nil)
	if err != nil {
		t.Fatalf("GetSetting: %v", err)
	}
	if got != int64(9007199254740993) {
		t.Fatalf("stored value changed: %v (%T)", got, got)
	}

	for _, raw := range []string{"1e19", "-1e19", "9223372036854775808", "12.5"} {
		resp = env.do(http.MethodPut, "/v1/settings/big", map[string]any{
			"value":     json.RawMessage(raw),
			"data_type": auth.SettingTypeInteger,
		}, token)
		expectStatus(t, resp, http.StatusBadRequest)
		resp.Body.Close()
	}

	got, err = env.rbac.GetSetting(context.Background(), env.org.ID, "big", nil)
	if err != nil {
		t.Fatalf("GetSetting: %v", err)
	}
	if got != int64(9007199254740993) {
		t.Fatalf("rejected write changed the value: %v", got)
	}
}

func TestAuditLogEndpoint(t *testing.T) {
	env := newTestEnv(t)
	token := env.tokenFor(env.admin)

	resp := env.do(http.MethodPost, "/v1/roles", map[string]any{"name": "observer", "display_name": "Observer"}, token)
	expectStatus(t, resp, http.StatusCreated)
	resp.Body.Close()

	resp = env.do(http.MethodGet, "/v1/audit-logs?action=CREATE_ROLE&per_page=2", nil, token)
	expectStatus(t, resp, http.StatusOK)
	page := decodeBody[audit.Page](t, resp)
	if page.Total < 1 || page.PerPage != 2 || len(page.Items) > 2 {
		t.Fatalf("unexpected page: %+v", page)
	}
	newest := page.Items[0]
	if newest.ActorID != env.admin.ID || newest.IPAddress == "" {
		t.Fatalf("request metadata not recorded: %+v", newest)
	}

	resp = env.do(http.MethodGet, "/v1/audit-logs?per_page=0", nil, token)
	expectStatus(t, resp, http.StatusBadRequest)
	resp.Body.Close()
}

func TestAuditIgnoresSpoofedForwardedFor(t *testing.T) {
	env := newTestEnv(t)
	token := env.tokenFor(env.admin)

	req, err := http.NewRequest(http.MethodPost, env.baseURL+"/v1/roles",
		bytes.NewReader([]byte(`{"name":"spoofed","display_name":"Spoofed"}`)))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", "6.6.6.6")
	resp, err := env.client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	expectStatus(t, resp, http.StatusCreated)
	resp.Body.Close()

	resp = env.do(http.MethodGet, "/v1/audit-logs?action=create_role&per_page=1", nil, token)
	expectStatus(t, resp, http.StatusOK)
	page := decodeBody[audit.Page](t, resp)
	if len(page.Items) != 1 {
		t.Fatalf("expected one entry: %+v", page)
	}
	if ip := page.Items[0].IPAddress; ip == "6.6.6.6" || ip == "" {
		t.Fatalf("audit ip taken from untrusted header: %q", ip)
	}
}

func TestUnknownRouteReturnsJSON(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(http.MethodGet, "/v1/nope", nil, env.tokenFor(env.admin))
	expectStatus(t, resp, http.StatusNotFound)
	body := decodeBody[map[string]any](t, resp)
	if body["error"] != "resource not found" {
		t.Fatalf("unexpected body: %v", body)
	}
}
