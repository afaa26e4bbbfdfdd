package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/leathercraft-class-submissions/internal/api"
	"github.com/leathercraft-class-submissions/internal/botfilter"
	"github.com/leathercraft-class-submissions/internal/config"
	"github.com/leathercraft-class-submissions/internal/mocks"
	"github.com/leathercraft-class-submissions/internal/models"
	"github.com/leathercraft-class-submissions/internal/repository"
	"github.com/leathercraft-class-submissions/internal/service"
	"github.com/leathercraft-class-submissions/internal/shopify"
)

type testEnv struct {
	router *gin.Engine
	subs   *mocks.MockSubmissionRepository
	shop   *mocks.MockMetaobjectClient
	cfg    *config.Config
}

type envOptions struct {
	verifier    botfilter.Verifier
	adminToken  string
	shopEnabled bool
}

func setupTestRouter(t *testing.T, opts envOptions) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	subs := mocks.NewMockSubmissionRepository()
	batches := mocks.NewMockBatchRepository(subs)
	shop := mocks.NewMockMetaobjectClient()

	cfg := &config.Config{
		Server: config.ServerConfig{Port: "8080"},
		Intake: config.IntakeConfig{
			MinBatchRows:    1,
			MaxBatchRows:    100,
			MaxUploadSize:   1024 * 1024,
			HandleMaxLength: 80,
		},
		CORS: config.CORSConfig{AllowedOrigins: []string{"https://shop.example.com"}},
		Turnstile: config.TurnstileConfig{
			SiteKey: "0x4AAA-site",
		},
		Shopify: config.ShopifyConfig{
			MetaobjectType: "class_submission",
			StatusFieldKey: "status",
			ListPageSize:   250,
		},
		App: config.AppConfig{
			PublicBaseURL: "https://api.example.com",
			AdminAPIToken: opts.adminToken,
		},
	}

	if opts.shopEnabled {
		cfg.Shopify.Shop = "leather-school.myshopify.com"
		cfg.Shopify.AccessToken = "shpat_test"
	}

	repos := &repository.Repositories{Submission: subs, Batch: batches}
	filter := botfilter.New(opts.verifier, false, zerolog.Nop())
	services := service.NewServices(repos, shop, filter, cfg, zerolog.Nop())

	return &testEnv{
		router: api.NewRouter(services, cfg, nil, zerolog.Nop()),
		subs:   subs,
		shop:   shop,
		cfg:    cfg,
	}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func jsonRequest(t *testing.T, method, path string, body interface{}) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("response is not JSON: %v (%s)", err, w.Body.String())
	}
	return out
}

func classRow(title string) map[string]interface{} {
	return map[string]interface{}{
		"classTitle":     title,
		"instructorName": "Jane Tanner",
		"format":         "In-Person",
		"topic":          "Wallets",
		"locationCity":   "Austin",
		"locationState":  "TX",
		"cost":           45,
		"startDate":      "2026-02-01",
	}
}

func singleBody(title string) map[string]interface{} {
	body := classRow(title)
	body["submittedByName"] = "Jane Tanner"
	body["submittedByEmail"] = "jane@example.com"
	return body
}

func TestHealthEndpoint(t *testing.T) {
	env := setupTestRouter(t, envOptions{})

	w := env.do(httptest.NewRequest("GET", "/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	response := decode(t, w)
	if response["status"] != "healthy" {
		t.Errorf("Expected status 'healthy', got %v", response["status"])
	}
	if response["service"] != "class-submissions-api" {
		t.Errorf("Expected service name, got %v", response["service"])
	}
}

type downDB struct{}

func (downDB) HealthCheck(ctx context.Context) error { return errors.New("connection refused") }

func TestHealthEndpoint_DatabaseDown(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := api.NewRouter(&service.Services{}, &config.Config{}, downDB{}, zerolog.Nop())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", w.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := setupTestRouter(t, envOptions{})
	env.do(jsonRequest(t, "POST", "/v1/class-submissions/single", singleBody("Wallet Basics")))

	w := env.do(httptest.NewRequest("GET", "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	counts, ok := decode(t, w)["submissions"].(map[string]interface{})
	if !ok {
		t.Fatal("Expected submissions counts in response")
	}
	if counts["pending"] != float64(1) {
		t.Errorf("Expected 1 pending, got %v", counts["pending"])
	}
}

func TestMetricsEndpoint_DatabaseDown(t *testing.T) {
	gin.SetMode(gin.TestMode)
	export := mocks.NewMockExportService()
	export.CountError = fmt.Errorf("connection refused")

	router := api.NewRouter(&service.Services{Export: export}, &config.Config{}, nil, zerolog.Nop())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", w.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	env := setupTestRouter(t, envOptions{})

	w := env.do(httptest.NewRequest("PUT", "/v1/class-submissions/single", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("Expected status 405, got %d", w.Code)
	}
	response := decode(t, w)
	if response["ok"] != false || response["error"] != "Method not allowed" {
		t.Errorf("unexpected body %v", response)
	}
}

func TestNotFound(t *testing.T) {
	env := setupTestRouter(t, envOptions{})

	w := env.do(httptest.NewRequest("GET", "/v1/nothing-here", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("Expected status 404, got %d", w.Code)
	}
	if decode(t, w)["ok"] != false {
		t.Error("Expected ok=false")
	}
}

func TestPingRoutes(t *testing.T) {
	env := setupTestRouter(t, envOptions{})

	tests := map[string]string{
		"/v1/class-submissions/single": "class-submissions.single",
		"/v1/class-submissions/bulk":   "class-submissions.bulk",
	}
	for path, route := range tests {
		w := env.do(httptest.NewRequest("GET", path, nil))
		if w.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, w.Code)
			continue
		}
		if got := decode(t, w)["route"]; got != route {
			t.Errorf("%s: expected route %s, got %v", path, route, got)
		}
	}
}

func TestCORS(t *testing.T) {
	env := setupTestRouter(t, envOptions{})

	t.Run("allowed origin is echoed", func(t *testing.T) {
		req := jsonRequest(t, "POST", "/v1/class-submissions/single", singleBody("CORS Allowed"))
		req.Header.Set("Origin", "https://shop.example.com")
		w := env.do(req)

		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://shop.example.com" {
			t.Errorf("Expected origin echoed, got %q", got)
		}
	})

	t.Run("other origin gets no headers", func(t *testing.T) {
		req := jsonRequest(t, "POST", "/v1/class-submissions/single", singleBody("CORS Denied"))
		req.Header.Set("Origin", "https://evil.example.com")
		w := env.do(req)

		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
			t.Errorf("Expected no CORS header, got %q", got)
		}
	})

	t.Run("preflight", func(t *testing.T) {
		req := httptest.NewRequest("OPTIONS", "/v1/class-submissions/bulk", nil)
		req.Header.Set("Origin", "https://shop.example.com")
		req.Header.Set("Access-Control-Request-Method", "POST")
		w := env.do(req)

		if w.Code != http.StatusNoContent {
			t.Errorf("Expected status 204, got %d", w.Code)
		}
		if w.Header().Get("Access-Control-Allow-Methods") == "" {
			t.Error("Expected Access-Control-Allow-Methods")
		}
	})
}

func TestSingle_JSON(t *testing.T) {
	env := setupTestRouter(t, envOptions{})

	body := singleBody("Wallet Basics")
	body["status"] = "approved"
	w := env.do(jsonRequest(t, "POST", "/v1/class-submissions/single", body))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	response := decode(t, w)
	if response["ok"] != true {
		t.Fatalf("Expected ok=true, got %v", response)
	}
	id, _ := response["id"].(string)
	sub := env.subs.Submissions[id]
	if sub == nil {
		t.Fatalf("submission %q not stored", id)
	}
	if sub.Status != models.StatusPending {
		t.Errorf("Expected pending, got %s", sub.Status)
	}
	if sub.Cost != "45" {
		t.Errorf("Expected numeric cost stringified, got %q", sub.Cost)
	}
	if response["createdAt"] == nil {
		t.Error("Expected createdAt")
	}
}

func TestSingle_Form(t *testing.T) {
	env := setupTestRouter(t, envOptions{})

	form := url.Values{}
	for k, v := range singleBody("Belt Making") {
		form.Set(k, fmt.Sprint(v))
	}
	req := httptest.NewRequest("POST", "/v1/class-submissions/single", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := env.do(req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if len(env.subs.Submissions) != 1 {
		t.Errorf("Expected 1 stored submission, got %d", len(env.subs.Submissions))
	}
}

func TestSingle_InvalidBody(t *testing.T) {
	env := setupTestRouter(t, envOptions{})

	tests := []struct {
		name        string
		contentType string
		body        string
	}{
		{"plain text", "text/plain", "hello"},
		{"broken json", "application/json", "{not json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/v1/class-submissions/single", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.contentType)
			w := env.do(req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("Expected status 400, got %d", w.Code)
			}
			if decode(t, w)["ok"] != false {
				t.Error("Expected ok=false")
			}
		})
	}
}

func TestSingle_ValidationErrors(t *testing.T) {
	env := setupTestRouter(t, envOptions{})

	body := singleBody("")
	body["submittedByEmail"] = "not-an-email"
	w := env.do(jsonRequest(t, "POST", "/v1/class-submissions/single", body))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d", w.Code)
	}
	errs, ok := decode(t, w)["errors"].(map[string]interface{})
	if !ok {
		t.Fatal("Expected field error map")
	}
	for _, field := range []string{"classTitle", "submittedByEmail"} {
		if _, ok := errs[field]; !ok {
			t.Errorf("Expected error for %s, got %v", field, errs)
		}
	}
	if len(env.subs.Submissions) != 0 {
		t.Error("Expected nothing stored")
	}
}

func TestSingle_Honeypot(t *testing.T) {
	env := setupTestRouter(t, envOptions{})

	body := singleBody("Spam Class")
	body["website"] = "http://spam.example.com"
	w := env.do(jsonRequest(t, "POST", "/v1/class-submissions/single", body))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	response := decode(t, w)
	if response["ok"] != true || response["id"] != nil {
		t.Errorf("Expected bare ok response, got %v", response)
	}
	if len(env.subs.Submissions) != 0 {
		t.Error("Expected honeypot submission to be discarded")
	}
}

func TestSingle_Turnstile(t *testing.T) {
	verifier := &mocks.MockVerifier{Success: true}
	env := setupTestRouter(t, envOptions{verifier: verifier})

	t.Run("missing token", func(t *testing.T) {
		w := env.do(jsonRequest(t, "POST", "/v1/class-submissions/single", singleBody("No Token")))
		if w.Code != http.StatusBadRequest {
			t.Fatalf("Expected status 400, got %d", w.Code)
		}
		if decode(t, w)["error"] != botfilter.ReasonMissingToken {
			t.Errorf("unexpected error: %s", w.Body.String())
		}
	})

	t.Run("token alias accepted", func(t *testing.T) {
		body := singleBody("With Token")
		body["cf-turnstile-response"] = "tok-123"
		w := env.do(jsonRequest(t, "POST", "/v1/class-submissions/single", body))
		if w.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
		}
		if len(verifier.Tokens) != 1 || verifier.Tokens[0] != "tok-123" {
			t.Errorf("Expected token forwarded, got %v", verifier.Tokens)
		}
	})
}

func TestBulk(t *testing.T) {
	env := setupTestRouter(t, envOptions{})

	rows := []map[string]interface{}{classRow("Wallets I"), classRow("Wallets II")}
	w := env.do(jsonRequest(t, "POST", "/v1/class-submissions/bulk", map[string]interface{}{
		"submittedByName":  "Jane Tanner",
		"submittedByEmail": "jane@example.com",
		"rows":             rows,
	}))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	response := decode(t, w)
	if response["count"] != float64(2) || response["batchId"] == "" {
		t.Errorf("unexpected response %v", response)
	}
	if len(env.subs.Submissions) != 2 {
		t.Errorf("Expected 2 stored rows, got %d", len(env.subs.Submissions))
	}
}

func TestBulk_TooManyRows(t *testing.T) {
	env := setupTestRouter(t, envOptions{})

	rows := make([]map[string]interface{}, 101)
	for i := range rows {
		rows[i] = classRow(fmt.Sprintf("Class %d", i))
	}
	w := env.do(jsonRequest(t, "POST", "/v1/class-submissions/bulk", map[string]interface{}{
		"submitter": map[string]string{"name": "Jane", "email": "jane@example.com"},
		"rows":      rows,
	}))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d", w.Code)
	}
	if len(env.subs.Submissions) != 0 {
		t.Errorf("Expected nothing stored, got %d", len(env.subs.Submissions))
	}
}

func TestBulk_RowErrorsRejectWholeBatch(t *testing.T) {
	env := setupTestRouter(t, envOptions{})

	var rows []map[string]interface{}
	for i := 0; i < 5; i++ {
		rows = append(rows, classRow(fmt.Sprintf("Good %d", i)))
	}
	bad := classRow("")
	badDate := classRow("Bad Date")
	badDate["startDate"] = "someday"
	rows = append(rows, bad, badDate)

	w := env.do(jsonRequest(t, "POST", "/v1/class-submissions/bulk", map[string]interface{}{
		"submitter": map[string]string{"name": "Jane", "email": "jane@example.com"},
		"rows":      rows,
	}))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d", w.Code)
	}
	rowErrors, ok := decode(t, w)["rowErrors"].([]interface{})
	if !ok || len(rowErrors) != 2 {
		t.Fatalf("Expected 2 row errors, got %v", w.Body.String())
	}
	first := rowErrors[0].(map[string]interface{})
	if first["row"] != float64(6) {
		t.Errorf("Expected 1-based row 6, got %v", first["row"])
	}
	if len(env.subs.Submissions) != 0 {
		t.Error("Expected nothing stored")
	}
}

func TestFormConfig(t *testing.T) {
	env := setupTestRouter(t, envOptions{})

	w := env.do(httptest.NewRequest("GET", "/v1/class-submissions/config", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	response := decode(t, w)
	if response["turnstileSiteKey"] != "0x4AAA-site" || response["apiBaseUrl"] != "https://api.example.com" {
		t.Errorf("unexpected config %v", response)
	}
}

func TestAdminAuth(t *testing.T) {
	env := setupTestRouter(t, envOptions{adminToken: "s3cret"})

	w := env.do(httptest.NewRequest("GET", "/admin/v1/submissions", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", w.Code)
	}

	req := httptest.NewRequest("GET", "/admin/v1/submissions", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	w = env.do(req)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200 with token, got %d", w.Code)
	}
}

func multipartCSV(t *testing.T, content string, fields map[string]string) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("csv_file", "classes.csv")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	part.Write([]byte(content))
	for k, v := range fields {
		writer.WriteField(k, v)
	}
	writer.Close()

	req := httptest.NewRequest("POST", "/admin/v1/imports", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

const csvHeader = "external_id,class_title,class_description,instructor_name,format,location_city,location_state,start_date,cost,registration_url,topics,status,submitted_by_name,submitted_by_email\n"

func TestImportCSV(t *testing.T) {
	env := setupTestRouter(t, envOptions{})

	content := csvHeader +
		",Saddle Stitching,,Sam Hide,Online,Denver,CO,02/01/2026,Free,,Saddlery,,,\n" +
		"carving-101,Carving 101,,Ana Swivel,hybrid,Tulsa,OK,2026-03-15,$60,,carving,,,\n"

	w := env.do(multipartCSV(t, content, map[string]string{
		"submitted_by_name":  "Shop Operator",
		"submitted_by_email": "ops@example.com",
	}))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	response := decode(t, w)
	if response["ok"] != true || response["imported"] != float64(2) {
		t.Errorf("unexpected response %v", response)
	}
	for _, sub := range env.subs.Submissions {
		if sub.SubmittedByEmail != "ops@example.com" {
			t.Errorf("Expected form attribution, got %q", sub.SubmittedByEmail)
		}
	}
}

func TestImportCSV_Errors(t *testing.T) {
	env := setupTestRouter(t, envOptions{})

	t.Run("missing file", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/admin/v1/imports", strings.NewReader(""))
		req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
		w := env.do(req)
		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", w.Code)
		}
	})

	t.Run("bad header", func(t *testing.T) {
		w := env.do(multipartCSV(t, "name,email\nx,y\n", nil))
		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", w.Code)
		}
	})

	t.Run("row errors", func(t *testing.T) {
		content := csvHeader + ",,,,,Denver,CO,02/01/2026,Free,,,,Sam,sam@example.com\n"
		w := env.do(multipartCSV(t, content, nil))
		if w.Code != http.StatusBadRequest {
			t.Fatalf("Expected status 400, got %d", w.Code)
		}
		errs, _ := decode(t, w)["errors"].([]interface{})
		if len(errs) == 0 || !strings.HasPrefix(errs[0].(string), "Row 1:") {
			t.Errorf("Expected row-prefixed errors, got %v", errs)
		}
	})

	if len(env.subs.Submissions) != 0 {
		t.Errorf("Expected nothing stored, got %d", len(env.subs.Submissions))
	}
}

func submit(t *testing.T, env *testEnv, title string) string {
	t.Helper()
	w := env.do(jsonRequest(t, "POST", "/v1/class-submissions/single", singleBody(title)))
	if w.Code != http.StatusOK {
		t.Fatalf("submit failed: %d %s", w.Code, w.Body.String())
	}
	id, _ := decode(t, w)["id"].(string)
	return id
}

func TestReview_ApproveTwice(t *testing.T) {
	env := setupTestRouter(t, envOptions{})
	id := submit(t, env, "Wallet Basics")

	for i := 0; i < 2; i++ {
		w := env.do(jsonRequest(t, "POST", "/admin/v1/review", map[string]string{"id": id, "intent": "approve"}))
		if w.Code != http.StatusOK {
			t.Fatalf("approve %d: expected 200, got %d: %s", i+1, w.Code, w.Body.String())
		}
	}
	if got := env.subs.Submissions[id].Status; got != models.StatusApproved {
		t.Errorf("Expected approved, got %s", got)
	}
}

func TestReview_ApprovePublishPartialFailure(t *testing.T) {
	env := setupTestRouter(t, envOptions{shopEnabled: true})
	id := submit(t, env, "Wallet Basics")
	env.shop.PublishError = shopify.UserErrors{{Message: "Publishing is disabled"}}

	w := env.do(jsonRequest(t, "POST", "/admin/v1/review", map[string]string{"id": id, "intent": "approve_publish"}))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d: %s", w.Code, w.Body.String())
	}

	response := decode(t, w)
	if response["error"] != "approved but not published: Publishing is disabled" {
		t.Errorf("unexpected error %v", response["error"])
	}
	result, ok := response["result"].(map[string]interface{})
	if !ok {
		t.Fatalf("Expected the reached state in result, got %s", w.Body.String())
	}
	if result["status"] != "approved" || result["published"] != false {
		t.Errorf("Expected approved and unpublished, got %v", result)
	}
	if sub := env.subs.Submissions[id]; sub.Status != models.StatusApproved || sub.Published() {
		t.Errorf("store should hold approved/unpublished, got %s published=%v", sub.Status, sub.Published())
	}
}

func TestReview_Errors(t *testing.T) {
	env := setupTestRouter(t, envOptions{})
	id := submit(t, env, "Wallet Basics")

	tests := []struct {
		name   string
		body   map[string]string
		status int
	}{
		{"unknown intent", map[string]string{"id": id, "intent": "delete"}, http.StatusBadRequest},
		{"missing id", map[string]string{"intent": "approve"}, http.StatusBadRequest},
		{"unknown id", map[string]string{"id": "8a4f4a0e-8d53-4c39-9d44-1a1a1a1a1a1a", "intent": "approve"}, http.StatusNotFound},
		{"publish pending", map[string]string{"id": id, "intent": "publish"}, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(jsonRequest(t, "POST", "/admin/v1/review", tt.body))
			if w.Code != tt.status {
				t.Errorf("Expected status %d, got %d: %s", tt.status, w.Code, w.Body.String())
			}
		})
	}
}

func TestReview_RejectForm(t *testing.T) {
	env := setupTestRouter(t, envOptions{})
	id := submit(t, env, "Wallet Basics")

	form := url.Values{"id": {id}, "intent": {"reject"}}
	req := httptest.NewRequest("POST", "/admin/v1/review", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := env.do(req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if decode(t, w)["message"] != "Rejected." {
		t.Errorf("unexpected body %s", w.Body.String())
	}
	if env.subs.Submissions[id].Status != models.StatusRejected {
		t.Error("Expected rejected")
	}
}

func TestReview_ShopifyNotConfigured(t *testing.T) {
	env := setupTestRouter(t, envOptions{})

	w := env.do(httptest.NewRequest("GET", "/admin/v1/review?source=shopify", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", w.Code)
	}

	submit(t, env, "Wallet Basics")
	w = env.do(httptest.NewRequest("GET", "/admin/v1/review", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	response := decode(t, w)
	if response["source"] != "store" || response["count"] != float64(1) {
		t.Errorf("unexpected body %v", response)
	}
}

func TestGetSubmissionAndBatch(t *testing.T) {
	env := setupTestRouter(t, envOptions{})

	w := env.do(jsonRequest(t, "POST", "/v1/class-submissions/bulk", map[string]interface{}{
		"submitter": map[string]string{"name": "Jane", "email": "jane@example.com"},
		"rows":      []map[string]interface{}{classRow("Wallets I")},
	}))
	batchID, _ := decode(t, w)["batchId"].(string)

	w = env.do(httptest.NewRequest("GET", "/admin/v1/batches/"+batchID, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	subs, _ := decode(t, w)["submissions"].([]interface{})
	if len(subs) != 1 {
		t.Fatalf("Expected 1 row in batch, got %d", len(subs))
	}
	subID := subs[0].(map[string]interface{})["id"].(string)

	w = env.do(httptest.NewRequest("GET", "/admin/v1/submissions/"+subID, nil))
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	w = env.do(httptest.NewRequest("GET", "/admin/v1/submissions/not-a-uuid", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestStreamExport_CSV(t *testing.T) {
	env := setupTestRouter(t, envOptions{})
	submit(t, env, "Wallet Basics")

	w := env.do(httptest.NewRequest("GET", "/admin/v1/submissions/export?format=csv", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("Expected text/csv, got %s", ct)
	}
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected header and one row, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "external_id,class_title") {
		t.Errorf("unexpected header %q", lines[0])
	}
	if !strings.Contains(lines[1], "Wallet Basics") || !strings.Contains(lines[1], "Pending") {
		t.Errorf("unexpected row %q", lines[1])
	}
}

func TestStreamExport_InvalidParams(t *testing.T) {
	env := setupTestRouter(t, envOptions{})

	for _, q := range []string{"format=xml", "status=archived"} {
		w := env.do(httptest.NewRequest("GET", "/admin/v1/submissions/export?"+q, nil))
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected status 400, got %d", q, w.Code)
		}
	}
}
