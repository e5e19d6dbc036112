package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/absentiahq/absentia/internal/services/directory"
	"github.com/absentiahq/absentia/internal/services/directory/storage/sqlite"
	"github.com/absentiahq/absentia/internal/services/directory/token"
	"github.com/absentiahq/absentia/internal/tenantctx"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "directory.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	signer, err := token.NewSigner([]byte("test-secret"), "absentia-test", time.Hour)
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	service, err := directory.NewService(directory.Config{
		Stores: directory.Stores{
			Identities: store,
			Sessions:   store,
			Companies:  store,
			Profiles:   store,
			Employees:  store,
			Absences:   store,
			Summaries:  store,
		},
		Tokens: signer,
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	t.Cleanup(service.Close)

	mux := http.NewServeMux()
	NewServer(service, tenantctx.New(store, nil), nil).RegisterRoutes(mux)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func doJSON(t *testing.T, method, url, bearer string, body any, into any) int {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}
	request, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	request.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		request.Header.Set("Authorization", "Bearer "+bearer)
	}
	response, err := http.DefaultClient.Do(request)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer response.Body.Close()
	if into != nil {
		if err := json.NewDecoder(response.Body).Decode(into); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return response.StatusCode
}

func signUpOwner(t *testing.T, server *httptest.Server) sessionResponse {
	t.Helper()
	var session sessionResponse
	status := doJSON(t, http.MethodPost, server.URL+"/v1/auth/signup", "", signUpRequest{
		Email:       "owner@acme.com",
		Password:    "hunter2!",
		Name:        "Owner",
		CompanyName: "Acme Ltd",
	}, &session)
	if status != http.StatusCreated {
		t.Fatalf("sign up: expected 201, got %d", status)
	}
	return session
}

func TestSignUpAndSession(t *testing.T) {
	server := newTestServer(t)
	session := signUpOwner(t, server)

	if session.AccessToken == "" || session.CompanyID == "" {
		t.Fatalf("expected full session, got %+v", session)
	}

	var introspection sessionIntrospection
	status := doJSON(t, http.MethodGet, server.URL+"/v1/auth/session", session.AccessToken, nil, &introspection)
	if status != http.StatusOK {
		t.Fatalf("session: expected 200, got %d", status)
	}
	if introspection.Profile == nil || introspection.Profile.Role != "owner" {
		t.Fatalf("expected owner profile, got %+v", introspection.Profile)
	}
}

func TestSignInRejectsWrongPassword(t *testing.T) {
	server := newTestServer(t)
	signUpOwner(t, server)

	var response errorResponse
	status := doJSON(t, http.MethodPost, server.URL+"/v1/auth/signin", "", signInRequest{
		Email: "owner@acme.com", Password: "wrong",
	}, &response)
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", status)
	}
	if response.Error != "AUTH_INVALID_CREDENTIALS" {
		t.Fatalf("expected credential error code, got %q", response.Error)
	}
}

func TestSignOutRevokesSession(t *testing.T) {
	server := newTestServer(t)
	session := signUpOwner(t, server)

	if status := doJSON(t, http.MethodPost, server.URL+"/v1/auth/signout", session.AccessToken, nil, nil); status != http.StatusNoContent {
		t.Fatalf("sign out: expected 204, got %d", status)
	}
	status := doJSON(t, http.MethodGet, server.URL+"/v1/auth/session", session.AccessToken, nil, nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401 after sign-out, got %d", status)
	}
}

func TestTenantRoutesRequireBearer(t *testing.T) {
	server := newTestServer(t)

	for _, path := range []string{"/v1/employees", "/v1/absences", "/v1/summaries/employees", "/v1/summaries/company"} {
		status := doJSON(t, http.MethodGet, server.URL+path, "", nil, nil)
		if status != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401 without bearer, got %d", path, status)
		}
	}
}

func TestEmployeeAndAbsenceFlow(t *testing.T) {
	server := newTestServer(t)
	session := signUpOwner(t, server)

	var created employeeResponse
	status := doJSON(t, http.MethodPost, server.URL+"/v1/employees", session.AccessToken, createEmployeeRequest{
		Name: "Dana", Position: "Engineer",
	}, &created)
	if status != http.StatusCreated {
		t.Fatalf("create employee: expected 201, got %d", status)
	}

	var recorded absenceResponse
	status = doJSON(t, http.MethodPost, server.URL+"/v1/absences", session.AccessToken, recordAbsenceRequest{
		EmployeeID: created.ID, Kind: "sick", StartsOn: "2026-03-02", EndsOn: "2026-03-04",
	}, &recorded)
	if status != http.StatusCreated {
		t.Fatalf("record absence: expected 201, got %d", status)
	}
	if recorded.Days != 3 {
		t.Fatalf("expected 3 days, got %d", recorded.Days)
	}

	var employees employeeListResponse
	if status := doJSON(t, http.MethodGet, server.URL+"/v1/employees", session.AccessToken, nil, &employees); status != http.StatusOK {
		t.Fatalf("list employees: expected 200, got %d", status)
	}
	if len(employees.Employees) != 1 {
		t.Fatalf("expected 1 employee, got %d", len(employees.Employees))
	}

	var summaries []employeeSummaryResponse
	if status := doJSON(t, http.MethodGet, server.URL+"/v1/summaries/employees", session.AccessToken, nil, &summaries); status != http.StatusOK {
		t.Fatalf("summaries: expected 200, got %d", status)
	}
	if len(summaries) != 1 || summaries[0].TotalDays != 3 {
		t.Fatalf("unexpected summaries %+v", summaries)
	}

	var stats companyStatsResponse
	url := fmt.Sprintf("%s/v1/summaries/company?since=%s", server.URL, "2026-01-01")
	if status := doJSON(t, http.MethodGet, url, session.AccessToken, nil, &stats); status != http.StatusOK {
		t.Fatalf("stats: expected 200, got %d", status)
	}
	if stats.EmployeeCount != 1 || stats.TotalDays != 3 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestTenantIsolationAcrossCompanies(t *testing.T) {
	server := newTestServer(t)
	first := signUpOwner(t, server)

	var second sessionResponse
	status := doJSON(t, http.MethodPost, server.URL+"/v1/auth/signup", "", signUpRequest{
		Email: "owner@other.com", Password: "hunter2!", CompanyName: "Other GmbH",
	}, &second)
	if status != http.StatusCreated {
		t.Fatalf("second sign up: expected 201, got %d", status)
	}

	if status := doJSON(t, http.MethodPost, server.URL+"/v1/employees", first.AccessToken, createEmployeeRequest{Name: "Dana"}, nil); status != http.StatusCreated {
		t.Fatalf("create employee: expected 201, got %d", status)
	}

	var employees employeeListResponse
	if status := doJSON(t, http.MethodGet, server.URL+"/v1/employees", second.AccessToken, nil, &employees); status != http.StatusOK {
		t.Fatalf("list employees: expected 200, got %d", status)
	}
	if len(employees.Employees) != 0 {
		t.Fatalf("expected no visible employees across tenants, got %d", len(employees.Employees))
	}
}
