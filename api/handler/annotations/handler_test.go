package annotations

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iamkucuk/photo-annotation-tool/internal/annotations"
)

func newTestRouter(t *testing.T) (*gin.Engine, *annotations.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := annotations.NewStore(filepath.Join(t.TempDir(), "annotations.csv"))
	require.NoError(t, err)

	h := NewHandler(store)
	router := gin.New()
	router.POST("/api/annotate", h.Save)
	router.GET("/api/annotations", h.List)
	router.GET("/api/images/:image_name/annotations", h.ForImage)
	router.GET("/api/statistics", h.Statistics)
	router.GET("/api/export", h.Export)
	return router, store
}

func doJSON(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSaveAnnotation(t *testing.T) {
	router, store := newTestRouter(t)

	w := doJSON(router, "POST", "/api/annotate",
		`{"image_name":"a.jpg","description":"a red bike","tags":"bike,red"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	all, err := store.ReadAll()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "a red bike", all[0].Description)
}

func TestSaveAnnotation_MissingFields(t *testing.T) {
	router, _ := newTestRouter(t)

	for _, body := range []string{
		`{}`,
		`{"image_name":"a.jpg"}`,
		`{"description":"no image"}`,
		`not json`,
	} {
		w := doJSON(router, "POST", "/api/annotate", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, "body %s", body)
	}
}

func TestListAndForImage(t *testing.T) {
	router, store := newTestRouter(t)
	require.NoError(t, store.Save(annotations.Record{ImageName: "a.jpg", Description: "one"}))
	require.NoError(t, store.Save(annotations.Record{ImageName: "b.jpg", Description: "two"}))

	w := doJSON(router, "GET", "/api/annotations", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data struct {
			TotalCount  int                  `json:"total_count"`
			Annotations []annotations.Record `json:"annotations"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Data.TotalCount)

	w = doJSON(router, "GET", "/api/images/a.jpg/annotations", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Data.TotalCount)
	assert.Equal(t, "one", resp.Data.Annotations[0].Description)
}

func TestList_CorruptStore(t *testing.T) {
	router, store := newTestRouter(t)
	require.NoError(t, os.WriteFile(store.Path(), []byte("wrong,header\n"), 0o644))

	w := doJSON(router, "GET", "/api/annotations", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "corrupt")
}

func TestStatisticsEndpoint(t *testing.T) {
	router, store := newTestRouter(t)
	require.NoError(t, store.Save(annotations.Record{ImageName: "a.jpg", Description: "d", Tags: "a,b"}))
	require.NoError(t, store.Save(annotations.Record{ImageName: "b.jpg", Description: "d", Tags: "a"}))

	w := doJSON(router, "GET", "/api/statistics", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data annotations.Statistics `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Data.TotalAnnotations)
	assert.Equal(t, 2, resp.Data.TotalImages)
	require.NotEmpty(t, resp.Data.MostCommonTags)
	assert.Equal(t, annotations.TokenCount{Token: "a", Count: 2}, resp.Data.MostCommonTags[0])
}

func TestExportEndpoint(t *testing.T) {
	router, store := newTestRouter(t)
	require.NoError(t, store.Save(annotations.Record{ImageName: "a.jpg", Description: "hello, world"}))

	w := doJSON(router, "GET", "/api/export", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, w.Header().Get("Content-Disposition"), "annotations.csv")

	lines := strings.Split(strings.TrimRight(w.Body.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "image_name,description,tags,labels,timestamp", lines[0])
	assert.Contains(t, lines[1], `"hello, world"`)
}
