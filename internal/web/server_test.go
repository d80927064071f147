package web_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/roadiebag/internal/db"
	"github.com/vbonduro/roadiebag/internal/domain"
	"github.com/vbonduro/roadiebag/internal/random"
	"github.com/vbonduro/roadiebag/internal/service"
	"github.com/vbonduro/roadiebag/internal/store"
	"github.com/vbonduro/roadiebag/internal/web"
)

// newTestServer sets up a real web.Server backed by a temporary SQLite database.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	database := db.OpenForTesting(t)
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))

	srv := web.NewServer(
		service.NewCatalogService(store.NewItemStore(database), logger),
		service.NewCheckoutService(store.NewCheckoutStore(database, random.New(1)), logger),
		logger,
	)
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return ts
}

func do(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, rd)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }

func createItem(t *testing.T, ts *httptest.Server, body string) domain.Item {
	t.Helper()
	resp := do(t, http.MethodPost, ts.URL+"/api/items", body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[domain.Item](t, resp)
}

func TestIntegration_CreateAndGetItem(t *testing.T) {
	ts := newTestServer(t)

	created := createItem(t, ts, `{"name":"Compass","description":"brass","quantity":2,"size":"Medium"}`)
	assert.NotZero(t, created.ID)
	assert.Equal(t, domain.SizeMedium, created.Size)

	resp := do(t, http.MethodGet, ts.URL+"/api/items/"+itoa(created.ID), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var raw map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&raw))
	assert.Equal(t, "Compass", raw["name"])
	assert.Equal(t, "brass", raw["description"])
	assert.Equal(t, "Medium", raw["size"])
	assert.Equal(t, false, raw["infinite"])
}

func TestIntegration_CreateItemNumericSize(t *testing.T) {
	ts := newTestServer(t)

	created := createItem(t, ts, `{"name":"Tent","quantity":1,"size":2}`)
	assert.Equal(t, domain.SizeLarge, created.Size)
}

func TestIntegration_CreateItemValidation(t *testing.T) {
	ts := newTestServer(t)

	resp := do(t, http.MethodPost, ts.URL+"/api/items", `{"name":"","quantity":0,"size":7}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body := decode[struct {
		Error  string              `json:"error"`
		Fields []domain.FieldError `json:"fields"`
	}](t, resp)
	assert.Len(t, body.Fields, 3)
}

func TestIntegration_CreateItemMalformed(t *testing.T) {
	ts := newTestServer(t)

	resp := do(t, http.MethodPost, ts.URL+"/api/items", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, http.MethodPost, ts.URL+"/api/items", `{"name":"x","quantity":1,"colour":"red"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestIntegration_UpdateItem(t *testing.T) {
	ts := newTestServer(t)
	created := createItem(t, ts, `{"name":"Lamp","quantity":1,"size":"Small"}`)

	for _, method := range []string{http.MethodPut, http.MethodPost} {
		resp := do(t, method, ts.URL+"/api/items/"+itoa(created.ID), `{"name":"Lantern","quantity":3,"size":"Large","infinite":true}`)
		require.Equal(t, http.StatusOK, resp.StatusCode, method)
		updated := decode[domain.Item](t, resp)
		assert.Equal(t, created.ID, updated.ID)
		assert.Equal(t, "Lantern", updated.Name)
		assert.True(t, updated.CreatedAt.Equal(created.CreatedAt))
		assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))
	}

	resp := do(t, http.MethodPut, ts.URL+"/api/items/99999", `{"name":"Ghost","quantity":1}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestIntegration_DeleteItem(t *testing.T) {
	ts := newTestServer(t)
	created := createItem(t, ts, `{"name":"Rope","quantity":1}`)

	resp := do(t, http.MethodDelete, ts.URL+"/api/items/"+itoa(created.ID), "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = do(t, http.MethodGet, ts.URL+"/api/items/"+itoa(created.ID), "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, http.MethodDelete, ts.URL+"/api/items/"+itoa(created.ID), "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestIntegration_InvalidID(t *testing.T) {
	ts := newTestServer(t)

	resp := do(t, http.MethodGet, ts.URL+"/api/items/abc", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestIntegration_ListItems(t *testing.T) {
	ts := newTestServer(t)
	createItem(t, ts, `{"name":"Whole Milk","quantity":1,"size":"Small"}`)
	createItem(t, ts, `{"name":"Butter","quantity":1,"size":"Large"}`)
	createItem(t, ts, `{"name":"Whisk","quantity":1,"size":"Small","infinite":true}`)

	resp := do(t, http.MethodGet, ts.URL+"/api/items?page_size=2", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page := decode[domain.ItemPage](t, resp)
	assert.Equal(t, 3, page.TotalResults)
	assert.Equal(t, 2, page.TotalPages)
	assert.Len(t, page.Items, 2)

	resp = do(t, http.MethodGet, ts.URL+"/api/items?size=Small&name=wh", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page = decode[domain.ItemPage](t, resp)
	assert.Equal(t, 2, page.TotalResults)

	resp = do(t, http.MethodGet, ts.URL+"/api/items?size=0&infinite=true", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page = decode[domain.ItemPage](t, resp)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Whisk", page.Items[0].Name)

	resp = do(t, http.MethodGet, ts.URL+"/api/items?size=Huge&page_num=x", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestIntegration_TakenLifecycle(t *testing.T) {
	ts := newTestServer(t)

	resp := do(t, http.MethodGet, ts.URL+"/api/taken", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "null", strings.TrimSpace(string(body)))

	resp = do(t, http.MethodPost, ts.URL+"/api/taken", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	item := createItem(t, ts, `{"name":"Flare","quantity":1}`)

	resp = do(t, http.MethodPost, ts.URL+"/api/taken", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	taken := decode[domain.Checkout](t, resp)
	assert.Equal(t, item.ID, taken.ItemID)
	assert.Equal(t, taken.RoundsTotal, taken.RoundsLeft)

	resp = do(t, http.MethodGet, ts.URL+"/api/taken", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, taken.ID, decode[domain.Checkout](t, resp).ID)

	resp = do(t, http.MethodPost, ts.URL+"/api/taken/decrement", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, taken.RoundsTotal-1, decode[domain.Checkout](t, resp).RoundsLeft)

	resp = do(t, http.MethodPost, ts.URL+"/api/taken/done", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = do(t, http.MethodPost, ts.URL+"/api/taken/done", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = do(t, http.MethodGet, ts.URL+"/api/items/"+itoa(item.ID)+"/history", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	history := decode[[]domain.Checkout](t, resp)
	require.Len(t, history, 1)
	assert.True(t, history[0].Done)

	resp = do(t, http.MethodGet, ts.URL+"/api/items/"+itoa(item.ID)+"/availability", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	a := decode[domain.Availability](t, resp)
	assert.Equal(t, 1, a.Consumed)
	require.NotNil(t, a.Remaining)
	assert.Zero(t, *a.Remaining)

	resp = do(t, http.MethodPost, ts.URL+"/api/taken", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestIntegration_HistoryUnknownItem(t *testing.T) {
	ts := newTestServer(t)

	resp := do(t, http.MethodGet, ts.URL+"/api/items/42/history", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp = do(t, http.MethodGet, ts.URL+"/api/items/42/availability", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestIntegration_Headers(t *testing.T) {
	ts := newTestServer(t)

	resp := do(t, http.MethodGet, ts.URL+"/api/taken", "")
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
	assert.Len(t, resp.Header.Get("X-Request-ID"), 36)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/taken", nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", "6f1c1e6e-2b0f-4a4e-9a59-3f0f4d6c1b7a")
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp2.Body.Close() }()
	assert.Equal(t, "6f1c1e6e-2b0f-4a4e-9a59-3f0f4d6c1b7a", resp2.Header.Get("X-Request-ID"))
}
