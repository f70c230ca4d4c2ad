package bootstrap

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"collateral-backend/internal/shared/config"
)

func testConfig(t *testing.T) config.Config {
	return config.Config{
		Env:             "dev",
		Port:            "8080",
		JWTSecret:       "test-secret",
		JWTTTL:          time.Hour,
		ObjectStoreType: "local",
		LocalStoreDir:   t.TempDir(),
		MaxUploadBytes:  1 << 20,
		MaxBatchFiles:   5,
		LoginRatePerSec: 10,
		LoginBurst:      10,
		AdminUsername:   "root",
		AdminPassword:   "supersecret",
	}
}

type client struct {
	t     *testing.T
	r     http.Handler
	token string
}

func (c client) do(req *http.Request) *httptest.ResponseRecorder {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	w := httptest.NewRecorder()
	c.r.ServeHTTP(w, req)
	return w
}

func (c client) json(method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := c.do(req)
	out := map[string]any{}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w, out
}

func (c client) form(method, path string, fields map[string]string, fileField, fileName string, data []byte) (*httptest.ResponseRecorder, map[string]any) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(c.t, mw.WriteField(k, v))
	}
	if fileField != "" {
		part, err := mw.CreateFormFile(fileField, fileName)
		require.NoError(c.t, err)
		_, _ = part.Write(data)
	}
	require.NoError(c.t, mw.Close())
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := c.do(req)
	out := map[string]any{}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w, out
}

func login(t *testing.T, r http.Handler, username, password string) client {
	anon := client{t: t, r: r}
	w, body := anon.json(http.MethodPost, "/api/v1/auth/login", gin.H{"username": username, "password": password})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return client{t: t, r: r, token: body["token"].(string)}
}

func TestBuildWiresCollateralWorkflow(t *testing.T) {
	cfg := testConfig(t)
	app, err := Build(context.Background(), cfg)
	require.NoError(t, err)
	require.Nil(t, app.DB)
	require.Nil(t, app.Geocoder)

	admin := login(t, app.Router, "root", "supersecret")

	w, created := admin.json(http.MethodPost, "/api/v1/clients", gin.H{
		"personType":      "individual",
		"firstName":       "Ana",
		"paternalSurname": "Lopez",
		"taxId":           "LOPA800101AB1",
		"email":           "ana@example.com",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	clientID := created["id"].(string)

	w, prop := admin.form(http.MethodPost, "/api/v1/properties", map[string]string{
		"clientId":    clientID,
		"address":     "Av. Reforma 222, CDMX",
		"marketValue": "2500000",
		"lat":         "19.4326",
		"lon":         "-99.1332",
	}, "", "", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	propertyID := prop["id"].(string)
	require.Equal(t, "pending", prop["status"])

	pdf := []byte("%PDF-1.4\n% deed\n")
	var docIDs []string
	for _, docType := range []string{"deed", "appraisal"} {
		w, doc := admin.form(http.MethodPost, "/api/v1/documents", map[string]string{
			"propertyId": propertyID,
			"type":       docType,
		}, "file", docType+".pdf", pdf)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		docIDs = append(docIDs, doc["id"].(string))

		url := doc["url"].(string)
		require.True(t, strings.HasPrefix(url, "http://localhost:8080/files/documents/"), url)
		_, err := os.Stat(filepath.Join(cfg.LocalStoreDir, strings.TrimPrefix(url, "http://localhost:8080/files/")))
		require.NoError(t, err)
	}

	for _, id := range docIDs {
		w, _ := admin.json(http.MethodPut, "/api/v1/documents/"+id+"/status", gin.H{"status": "accepted"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}
	w, prop = admin.json(http.MethodGet, "/api/v1/properties/"+propertyID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "accepted", prop["status"])

	w, _ = admin.json(http.MethodGet, "/api/v1/search?taxId=LOPA800101AB1&lat=19.43&lon=-99.13&radiusKm=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var hits []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &hits))
	require.Len(t, hits, 1)

	w, _ = admin.json(http.MethodDelete, "/api/v1/properties/"+propertyID, nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	w, doc := admin.json(http.MethodGet, "/api/v1/documents/"+docIDs[0], nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Nil(t, doc["propertyId"])
}

func TestBuildProtectsRoutes(t *testing.T) {
	app, err := Build(context.Background(), testConfig(t))
	require.NoError(t, err)

	anon := client{t: t, r: app.Router}
	w, _ := anon.json(http.MethodGet, "/api/v1/clients", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = anon.json(http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = anon.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "collateral_")

	w, _ = anon.json(http.MethodPost, "/api/v1/auth/register", gin.H{"username": "ana", "lastName": "Lopez", "password": "secret1"})
	require.Equal(t, http.StatusCreated, w.Code)
	user := login(t, app.Router, "ana", "secret1")

	w, _ = user.json(http.MethodGet, "/api/v1/users", nil)
	require.Equal(t, http.StatusForbidden, w.Code)
	w, _ = user.json(http.MethodGet, "/api/v1/clients", nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestLocalFilesPrefix(t *testing.T) {
	require.Equal(t, "/files", localFilesPrefix("http://localhost:8080/files/"))
	require.Equal(t, "/static/blobs", localFilesPrefix("https://api.example/static/blobs"))
	require.Equal(t, "/files", localFilesPrefix("https://api.example"))
	require.Equal(t, "http://localhost:9000/files", localBaseURL(config.Config{Port: "9000"}))
}
