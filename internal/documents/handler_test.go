package documents

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"collateral-backend/internal/approval"
	"collateral-backend/internal/shared/server/middleware"
	"collateral-backend/internal/shared/server/upload"
)

type formFile struct {
	field, name string
	data        []byte
}

func multipartBody(t *testing.T, fields map[string]string, files ...formFile) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("WriteField: %v", err)
		}
	}
	for _, f := range files {
		part, err := mw.CreateFormFile(f.field, f.name)
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		_, _ = part.Write(f.data)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func setupHandler(t *testing.T, role string) (*gin.Engine, *recordingStore, *fakeProperties) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := newRecordingStore()
	props := newFakeProperties("prop-1")
	svc := newTestService(store, NewMemoryRepo(), props)

	r := gin.New()
	api := r.Group("/api/v1", func(c *gin.Context) {
		middleware.SetIdentity(c, "user-1", role)
		c.Next()
	})
	NewHandler(svc, upload.Limits{MaxBytes: 1 << 20, MaxFiles: 3}).RegisterRoutes(api)
	return r, store, props
}

func serve(r http.Handler, method, path string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func pdfBytes(name string) []byte {
	return []byte("%PDF-1.4\n% " + name + "\n")
}

func createDoc(t *testing.T, r http.Handler, docType string) DocumentResponse {
	t.Helper()
	body, ct := multipartBody(t, map[string]string{"propertyId": "prop-1", "type": docType},
		formFile{"file", "deed.pdf", pdfBytes("deed")})
	w := serve(r, http.MethodPost, "/api/v1/documents", body, ct)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var doc DocumentResponse
	if err := json.Unmarshal(w.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return doc
}

func TestCreateDocumentHandler(t *testing.T) {
	r, store, _ := setupHandler(t, middleware.RoleUser)

	doc := createDoc(t, r, "deed")
	if doc.Status != string(approval.StatusPending) || doc.URL == nil || *doc.PropertyID != "prop-1" {
		t.Fatalf("unexpected document %+v", doc)
	}
	if len(store.objects) != 1 {
		t.Fatalf("expected one stored object, got %d", len(store.objects))
	}

	w := serve(r, http.MethodGet, "/api/v1/documents/"+doc.ID, nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", w.Code)
	}
}

func TestCreateDocumentRejectsBadInput(t *testing.T) {
	r, store, _ := setupHandler(t, middleware.RoleUser)

	body, ct := multipartBody(t, map[string]string{"propertyId": "prop-1", "type": "deed"},
		formFile{"file", "notes.txt", []byte("plain text is not allowed")})
	if w := serve(r, http.MethodPost, "/api/v1/documents", body, ct); w.Code != http.StatusBadRequest {
		t.Fatalf("unsupported type: expected 400, got %d", w.Code)
	}

	body, ct = multipartBody(t, map[string]string{"propertyId": "prop-1", "type": "passport"},
		formFile{"file", "a.pdf", pdfBytes("a")})
	if w := serve(r, http.MethodPost, "/api/v1/documents", body, ct); w.Code != http.StatusBadRequest {
		t.Fatalf("unknown document type: expected 400, got %d", w.Code)
	}

	body, ct = multipartBody(t, map[string]string{"propertyId": "ghost", "type": "deed"},
		formFile{"file", "a.pdf", pdfBytes("a")})
	if w := serve(r, http.MethodPost, "/api/v1/documents", body, ct); w.Code != http.StatusNotFound {
		t.Fatalf("unknown property: expected 404, got %d", w.Code)
	}

	body, ct = multipartBody(t, map[string]string{"propertyId": "prop-1", "type": "deed"})
	if w := serve(r, http.MethodPost, "/api/v1/documents", body, ct); w.Code != http.StatusBadRequest {
		t.Fatalf("missing file: expected 400, got %d", w.Code)
	}

	if len(store.objects) != 0 {
		t.Fatalf("no object should be stored, got %d", len(store.objects))
	}
}

func TestBatchCreateHandler(t *testing.T) {
	r, _, _ := setupHandler(t, middleware.RoleUser)

	body, ct := multipartBody(t, map[string]string{"propertyId": "prop-1", "type": "photo"},
		formFile{"files", "a.pdf", pdfBytes("a")},
		formFile{"files", "b.pdf", pdfBytes("b")})
	w := serve(r, http.MethodPost, "/api/v1/documents/batch", body, ct)
	if w.Code != http.StatusCreated {
		t.Fatalf("batch: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var docs []DocumentResponse
	_ = json.Unmarshal(w.Body.Bytes(), &docs)
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}

	body, ct = multipartBody(t, map[string]string{"propertyId": "prop-1", "type": "photo"},
		formFile{"files", "a.pdf", pdfBytes("a")},
		formFile{"files", "b.pdf", pdfBytes("b")},
		formFile{"files", "c.pdf", pdfBytes("c")},
		formFile{"files", "d.pdf", pdfBytes("d")})
	if w := serve(r, http.MethodPost, "/api/v1/documents/batch", body, ct); w.Code != http.StatusBadRequest {
		t.Fatalf("too many files: expected 400, got %d", w.Code)
	}
}

func TestBatchFailureHidesCause(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := newTestService(newRecordingStore(), failingCreateRepo{NewMemoryRepo()}, newFakeProperties("prop-1"))
	r := gin.New()
	NewHandler(svc, upload.Limits{MaxBytes: 1 << 20, MaxFiles: 3}).RegisterRoutes(r.Group("/api/v1"))

	body, ct := multipartBody(t, map[string]string{"propertyId": "prop-1", "type": "deed"},
		formFile{"files", "a.pdf", pdfBytes("a")})
	w := serve(r, http.MethodPost, "/api/v1/documents/batch", body, ct)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d: %s", w.Code, w.Body.String())
	}
	if strings.Contains(w.Body.String(), "connection refused") {
		t.Fatalf("response leaks repository error: %s", w.Body.String())
	}

	var resp struct {
		Error struct {
			Code    string         `json:"code"`
			Message string         `json:"message"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error.Code != "processing_error" || resp.Error.Message != "failed to process file 1 (a.pdf)" {
		t.Fatalf("unexpected error %+v", resp.Error)
	}
	if resp.Error.Details["fileIndex"] != float64(1) {
		t.Fatalf("expected fileIndex 1, got %v", resp.Error.Details["fileIndex"])
	}
}

func TestStatusChangesRequireAdmin(t *testing.T) {
	r, _, _ := setupHandler(t, middleware.RoleUser)
	doc := createDoc(t, r, "deed")

	body, ct := multipartBody(t, map[string]string{"status": "accepted"})
	if w := serve(r, http.MethodPut, "/api/v1/documents/"+doc.ID, body, ct); w.Code != http.StatusForbidden {
		t.Fatalf("multipart status as user: expected 403, got %d", w.Code)
	}
	w := serve(r, http.MethodPut, "/api/v1/documents/"+doc.ID+"/status",
		bytes.NewBufferString(`{"status":"accepted"}`), "application/json")
	if w.Code != http.StatusForbidden {
		t.Fatalf("status endpoint as user: expected 403, got %d", w.Code)
	}
}

func TestAdminStatusUpdateReconcilesProperty(t *testing.T) {
	r, _, props := setupHandler(t, middleware.RoleAdmin)
	doc := createDoc(t, r, "deed")

	w := serve(r, http.MethodPut, "/api/v1/documents/"+doc.ID+"/status",
		bytes.NewBufferString(`{"status":"accepted"}`), "application/json")
	if w.Code != http.StatusOK {
		t.Fatalf("status: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if props.status["prop-1"] != approval.StatusAccepted {
		t.Fatalf("expected property accepted, got %q", props.status["prop-1"])
	}

	w = serve(r, http.MethodPut, "/api/v1/documents/"+doc.ID+"/status",
		bytes.NewBufferString(`{"status":"archived"}`), "application/json")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad status: expected 400, got %d", w.Code)
	}
}

func TestDeleteAndListHandlers(t *testing.T) {
	r, _, _ := setupHandler(t, middleware.RoleUser)
	doc := createDoc(t, r, "deed")
	createDoc(t, r, "appraisal")

	w := serve(r, http.MethodGet, "/api/v1/properties/prop-1/documents", nil, "")
	var list []DocumentResponse
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if w.Code != http.StatusOK || len(list) != 2 {
		t.Fatalf("list: code %d, %d docs", w.Code, len(list))
	}

	if w := serve(r, http.MethodDelete, "/api/v1/documents/"+doc.ID, nil, ""); w.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", w.Code)
	}
	w = serve(r, http.MethodDelete, "/api/v1/documents/"+doc.ID, nil, "")
	if w.Code != http.StatusNotFound || !strings.Contains(w.Body.String(), "not_found") {
		t.Fatalf("second delete: expected 404, got %d: %s", w.Code, w.Body.String())
	}

	if w := serve(r, http.MethodGet, "/api/v1/properties/ghost/documents", nil, ""); w.Code != http.StatusNotFound {
		t.Fatalf("unknown property: expected 404, got %d", w.Code)
	}
}
