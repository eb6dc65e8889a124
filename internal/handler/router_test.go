package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/boddenberg/donations-ledger-go/internal/domain"
	"github.com/boddenberg/donations-ledger-go/internal/handler"
	"github.com/boddenberg/donations-ledger-go/internal/infra/memory"
	"github.com/boddenberg/donations-ledger-go/internal/infra/observability"
	"github.com/boddenberg/donations-ledger-go/internal/service"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type testServer struct {
	router http.Handler
	token  string
}

func newTestServer(t *testing.T, withAuth bool) *testServer {
	t.Helper()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	store := memory.NewDonationStore()
	settings := service.NewSettingsService(memory.NewSettingsStore(nil), domain.DefaultSettings(), logger)

	svc := handler.Services{
		Donations: service.NewDonationService(store, nil, metrics, logger),
		Donors:    service.NewDonorService(store, settings, logger),
		Reports:   service.NewReportService(store, nil, metrics, logger),
		Exports:   service.NewExportService(store, settings, nil, 2, metrics, logger),
		Settings:  settings,
		Store:     store,
	}
	if withAuth {
		hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
		if err != nil {
			t.Fatal(err)
		}
		svc.Auth = service.NewAuthService("admin", string(hash), "test-secret", time.Minute, logger)
	}

	ts := &testServer{router: handler.NewRouter(svc, metrics, logger)}
	if withAuth {
		rec := ts.do(t, http.MethodPost, "/v1/auth/token", `{"username":"admin","password":"s3cret"}`, false)
		if rec.Code != http.StatusOK {
			t.Fatalf("token request failed: %d %s", rec.Code, rec.Body.String())
		}
		var resp domain.TokenResponse
		json.NewDecoder(rec.Body).Decode(&resp)
		ts.token = resp.AccessToken
	}
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, body string, admin bool) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if admin {
		req.Header.Set("Authorization", "Bearer "+ts.token)
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

const validDonation = `{"donor_email":"ana@example.com","donor_name":"Ana","donor_country":"ES","amount":"25.00","frequency":"once","payment_method":"card"}`

func TestOperationalEndpoints(t *testing.T) {
	ts := newTestServer(t, false)

	for _, path := range []string{"/healthz", "/readyz", "/metrics", "/ping"} {
		rec := ts.do(t, http.MethodGet, path, "", false)
		if rec.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, rec.Code)
		}
	}
}

func TestAdminRoutes_RequireToken(t *testing.T) {
	ts := newTestServer(t, true)

	rec := ts.do(t, http.MethodGet, "/v1/donations", "", false)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	ts.token = "garbage"
	rec = ts.do(t, http.MethodGet, "/v1/donations", "", true)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with bad token, got %d", rec.Code)
	}
}

func TestAdminRoutes_DisabledWithoutAuth(t *testing.T) {
	ts := newTestServer(t, false)

	rec := ts.do(t, http.MethodGet, "/v1/reports/stats", "", true)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	rec = ts.do(t, http.MethodPost, "/v1/auth/token", `{"username":"admin","password":"x"}`, false)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 from token endpoint, got %d", rec.Code)
	}
}

func TestCreateDonation_PublicIntake(t *testing.T) {
	ts := newTestServer(t, true)

	rec := ts.do(t, http.MethodPost, "/v1/donations", validDonation, false)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created domain.Donation
	json.NewDecoder(rec.Body).Decode(&created)
	if created.ID == 0 || created.Status != domain.StatusPending {
		t.Errorf("unexpected donation %+v", created)
	}

	completed := strings.Replace(validDonation, `"payment_method":"card"`, `"payment_method":"card","status":"completed"`, 1)
	rec = ts.do(t, http.MethodPost, "/v1/donations", completed, false)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for terminal status on public intake, got %d", rec.Code)
	}

	tooSmall := strings.Replace(validDonation, `"25.00"`, `"0.50"`, 1)
	rec = ts.do(t, http.MethodPost, "/v1/donations", tooSmall, false)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 below min_amount, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"field":"amount"`) {
		t.Errorf("expected field amount in %s", rec.Body.String())
	}

	extreme := strings.Replace(validDonation, `"25.00"`, `"1e-200000000"`, 1)
	rec = ts.do(t, http.MethodPost, "/v1/donations", extreme, false)
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), `"field":"amount"`) {
		t.Errorf("expected 400 on amount for extreme exponent, got %d %s", rec.Code, rec.Body.String())
	}

	rec = ts.do(t, http.MethodPost, "/v1/donations", "{", false)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed body, got %d", rec.Code)
	}
}

func TestImportAndTransition(t *testing.T) {
	ts := newTestServer(t, true)

	completed := strings.Replace(validDonation, `"payment_method":"card"`, `"payment_method":"card","status":"completed"`, 1)
	rec := ts.do(t, http.MethodPost, "/v1/donations/import", completed, true)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 from import, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = ts.do(t, http.MethodPost, "/v1/donations", validDonation, false)
	var pending domain.Donation
	json.NewDecoder(rec.Body).Decode(&pending)

	path := "/v1/donations/" + strconv.FormatInt(pending.ID, 10) + "/status"
	rec = ts.do(t, http.MethodPost, path, `{"status":"completed"}`, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = ts.do(t, http.MethodPost, path, `{"status":"failed"}`, true)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 on second transition, got %d", rec.Code)
	}

	rec = ts.do(t, http.MethodGet, "/v1/donations/sum", "", true)
	var sum struct {
		Total decimal.Decimal `json:"total"`
	}
	json.NewDecoder(rec.Body).Decode(&sum)
	if !sum.Total.Equal(decimal.RequireFromString("50")) {
		t.Errorf("expected completed sum 50, got %s", sum.Total)
	}
}

func TestGetDonation_Errors(t *testing.T) {
	ts := newTestServer(t, true)

	if rec := ts.do(t, http.MethodGet, "/v1/donations/999", "", true); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
	if rec := ts.do(t, http.MethodGet, "/v1/donations/abc", "", true); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
	if rec := ts.do(t, http.MethodGet, "/v1/donations?from=yesterday", "", true); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad date, got %d", rec.Code)
	}
}

func TestProgress(t *testing.T) {
	ts := newTestServer(t, false)

	rec := ts.do(t, http.MethodGet, "/v1/progress?goal=5000&current=5200", "", false)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var p domain.GoalProgress
	json.NewDecoder(rec.Body).Decode(&p)
	if !p.Percentage.Equal(decimal.NewFromInt(100)) || !p.Remaining.IsZero() {
		t.Errorf("unexpected progress %+v", p)
	}

	rec = ts.do(t, http.MethodGet, "/v1/progress", "", false)
	json.NewDecoder(rec.Body).Decode(&p)
	if !p.Goal.Equal(decimal.NewFromInt(5000)) || !p.Current.IsZero() {
		t.Errorf("expected defaults goal=5000 current=0, got %+v", p)
	}

	if rec := ts.do(t, http.MethodGet, "/v1/progress?goal=lots", "", false); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for non-numeric goal, got %d", rec.Code)
	}
	for _, q := range []string{"goal=1e-200000000", "current=1e200000000"} {
		rec := ts.do(t, http.MethodGet, "/v1/progress?"+q, "", false)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", q, rec.Code)
		}
	}
}

func TestExport_Attachment(t *testing.T) {
	ts := newTestServer(t, true)
	ts.do(t, http.MethodPost, "/v1/donations", validDonation, false)

	rec := ts.do(t, http.MethodGet, "/v1/reports/export?format=csv&period=all_time", "", true)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	want := `attachment; filename="donations_` + time.Now().UTC().Format("2006-01-02") + `.csv"`
	if got := rec.Header().Get("Content-Disposition"); got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
	if !strings.Contains(rec.Body.String(), "ana@example.com") {
		t.Errorf("expected donor email in export body")
	}

	if rec := ts.do(t, http.MethodGet, "/v1/reports/export?format=pdf", "", true); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown format, got %d", rec.Code)
	}
	if rec := ts.do(t, http.MethodPost, "/v1/reports/export/archive", "", true); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 without archiver, got %d", rec.Code)
	}
}

func TestDonorRoutes(t *testing.T) {
	ts := newTestServer(t, true)
	completed := strings.Replace(validDonation, `"payment_method":"card"`, `"payment_method":"card","status":"completed"`, 1)
	ts.do(t, http.MethodPost, "/v1/donations/import", completed, true)

	rec := ts.do(t, http.MethodGet, "/v1/donors?sort_by=donor_name&order=asc", "", true)
	var page domain.DonorPage
	json.NewDecoder(rec.Body).Decode(&page)
	if page.TotalCount != 1 || page.Rows[0].DonorEmail != "ana@example.com" {
		t.Fatalf("unexpected donor page %+v", page)
	}

	rec = ts.do(t, http.MethodGet, "/v1/donors/ana@example.com/history", "", true)
	var history []domain.Donation
	json.NewDecoder(rec.Body).Decode(&history)
	if len(history) != 1 {
		t.Errorf("expected 1 history row, got %d", len(history))
	}

	if rec := ts.do(t, http.MethodGet, "/v1/donors/nobody@example.com/export", "", true); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for donor without records, got %d", rec.Code)
	}

	rec = ts.do(t, http.MethodGet, "/v1/donors?page=9223372036854775807", "", true)
	json.NewDecoder(rec.Body).Decode(&page)
	if rec.Code != http.StatusOK || len(page.Rows) != 0 {
		t.Errorf("expected empty 200 page past the end, got %d with %d rows", rec.Code, len(page.Rows))
	}
}

func TestSettings(t *testing.T) {
	ts := newTestServer(t, true)

	rec := ts.do(t, http.MethodPut, "/v1/settings", `{"min_amount": 5, "amounts": [5, 10], "enable_recurring": false}`, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var saved domain.SettingsSaveResponse
	json.NewDecoder(rec.Body).Decode(&saved)
	if saved.Applied != 3 {
		t.Errorf("expected 3 applied, got %d", saved.Applied)
	}

	rec = ts.do(t, http.MethodGet, "/v1/settings/form", "", false)
	var form domain.FormConfig
	json.NewDecoder(rec.Body).Decode(&form)
	if !form.MinAmount.Equal(decimal.NewFromInt(5)) || len(form.Amounts) != 2 || form.EnableRecurring {
		t.Errorf("unexpected form config %+v", form)
	}

	rec = ts.do(t, http.MethodPut, "/v1/settings", `{"no_such_key": "x"}`, true)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown key, got %d", rec.Code)
	}
}
