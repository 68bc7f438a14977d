package proxyapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ozontech/seq-registry/consts"
	"github.com/ozontech/seq-registry/kv"
	"github.com/ozontech/seq-registry/paging"
	"github.com/ozontech/seq-registry/registry"
)

const bondDoc = `{"owner":"%s","amount":[{"denom":"unym","amount":"100"}],` +
	`"mix_node":{"host":"1.2.3.4:1789","layer":1,"location":"Berlin","sphinx_key":"sk","identity_key":"ik","version":"0.10.0"}}`

func newTestAPI(t *testing.T) (*API, http.Handler) {
	t.Helper()
	reg, err := registry.New(kv.NewMemStore(), paging.DefaultConfig())
	require.NoError(t, err)
	a := New(Config{}, reg)
	return a, a.Handler()
}

func do(t *testing.T, h http.Handler, req *http.Request) (*httptest.ResponseRecorder, []byte) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return rec, body
}

func bond(t *testing.T, h http.Handler, owner string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/mixnodes", strings.NewReader(fmt.Sprintf(bondDoc, owner)))
	rec, body := do(t, h, req)
	require.Equal(t, http.StatusCreated, rec.Code, string(body))
}

func list(t *testing.T, h http.Handler, query string) registry.PagedResponse {
	t.Helper()
	rec, body := do(t, h, httptest.NewRequest(http.MethodGet, "/v1/mixnodes"+query, nil))
	require.Equal(t, http.StatusOK, rec.Code, string(body))

	var resp registry.PagedResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	return resp
}

func TestListMixnodesPages(t *testing.T) {
	_, h := newTestAPI(t)
	for _, o := range []string{"1", "2", "3"} {
		bond(t, h, o)
	}

	page1 := list(t, h, "?limit=2")
	require.Len(t, page1.Nodes, 2)
	assert.Equal(t, 2, page1.PerPage)
	require.NotNil(t, page1.StartNextAfter)
	assert.Equal(t, "2", *page1.StartNextAfter)

	page2 := list(t, h, "?limit=2&start_after="+*page1.StartNextAfter)
	require.Len(t, page2.Nodes, 1)
	assert.Equal(t, "3", page2.Nodes[0].Owner)
	assert.Equal(t, "Berlin", page2.Nodes[0].MixNode.Location)

	page3 := list(t, h, "?limit=2&start_after=3")
	assert.Empty(t, page3.Nodes)
	assert.Nil(t, page3.StartNextAfter)

	assert.Equal(t, 10, list(t, h, "").PerPage)
	assert.Equal(t, 30, list(t, h, "?limit=4294967295").PerPage)
}

func TestListMixnodesBadRequest(t *testing.T) {
	_, h := newTestAPI(t)

	for _, q := range []string{
		"?limit=0",
		"?limit=-1",
		"?limit=abc",
		"?limit=4294967296",
		"?start_after=",
		"?start_after=" + strings.Repeat("a", consts.MaxKeySize+1),
		"?start_after=a%20b",
	} {
		rec, body := do(t, h, httptest.NewRequest(http.MethodGet, "/v1/mixnodes"+q, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)

		var e errorResponse
		require.NoError(t, json.Unmarshal(body, &e))
		assert.NotEmpty(t, e.Error)
	}
}

type failingRegistry struct {
	Registry
	err error
}

func (r failingRegistry) QueryMixnodesPaged(context.Context, *string, *uint32) (registry.PagedResponse, error) {
	return registry.PagedResponse{}, r.err
}

func (r failingRegistry) Get(context.Context, string) (registry.MixNodeBond, error) {
	panic("get is broken")
}

func TestStoreFailure(t *testing.T) {
	h := New(Config{}, failingRegistry{err: errors.New("disk failure")}).Handler()

	rec, body := do(t, h, httptest.NewRequest(http.MethodGet, "/v1/mixnodes", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, string(body), "disk failure")

	// panics are turned into 500
	rec, _ = do(t, h, httptest.NewRequest(http.MethodGet, "/v1/mixnodes/someone", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestBondGetUnbond(t *testing.T) {
	_, h := newTestAPI(t)

	rec, _ := do(t, h, httptest.NewRequest(http.MethodGet, "/v1/mixnodes/alice", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	bond(t, h, "alice")

	rec, body := do(t, h, httptest.NewRequest(http.MethodGet, "/v1/mixnodes/alice", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var b registry.MixNodeBond
	require.NoError(t, json.Unmarshal(body, &b))
	assert.Equal(t, "alice", b.Owner)
	assert.Equal(t, uint64(1), b.MixNode.Layer)

	rec, _ = do(t, h, httptest.NewRequest(http.MethodDelete, "/v1/mixnodes/alice", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec, _ = do(t, h, httptest.NewRequest(http.MethodDelete, "/v1/mixnodes/alice", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestBondGzip(t *testing.T) {
	_, h := newTestAPI(t)

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write([]byte(fmt.Sprintf(bondDoc, "zipped")))
	require.NoError(t, err)
	require.NoError(t, gz.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/mixnodes", &buf)
	req.Header.Set("Content-Encoding", "gzip")
	rec, body := do(t, h, req)
	require.Equal(t, http.StatusCreated, rec.Code, string(body))

	// not gzipped at all
	req = httptest.NewRequest(http.MethodPost, "/v1/mixnodes", strings.NewReader(fmt.Sprintf(bondDoc, "x")))
	req.Header.Set("Content-Encoding", "gzip")
	rec, _ = do(t, h, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBondRejected(t *testing.T) {
	_, h := newTestAPI(t)

	for _, doc := range []string{`{`, `{"owner":"o"}`, fmt.Sprintf(bondDoc, "has space")} {
		rec, _ := do(t, h, httptest.NewRequest(http.MethodPost, "/v1/mixnodes", strings.NewReader(doc)))
		assert.Equal(t, http.StatusBadRequest, rec.Code, doc)
	}

	huge := strings.NewReader(strings.Repeat(" ", consts.MaxBondBodySize+1) + fmt.Sprintf(bondDoc, "o"))
	rec, _ := do(t, h, httptest.NewRequest(http.MethodPost, "/v1/mixnodes", huge))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestRequestID(t *testing.T) {
	_, h := newTestAPI(t)

	rec, _ := do(t, h, httptest.NewRequest(http.MethodGet, "/v1/mixnodes", nil))
	assert.Len(t, rec.Header().Get(consts.RequestIDHeader), 26)

	req := httptest.NewRequest(http.MethodGet, "/v1/mixnodes", nil)
	req.Header.Set(consts.RequestIDHeader, "given")
	rec, _ = do(t, h, req)
	assert.Equal(t, "given", rec.Header().Get(consts.RequestIDHeader))
}

func TestWriteRateLimit(t *testing.T) {
	reg, err := registry.New(kv.NewMemStore(), paging.DefaultConfig())
	require.NoError(t, err)
	h := New(Config{WriteRateLimit: 0.1}, reg).Handler()

	// burst of one request
	bond(t, h, "first")
	req := httptest.NewRequest(http.MethodPost, "/v1/mixnodes", strings.NewReader(fmt.Sprintf(bondDoc, "second")))
	rec, _ := do(t, h, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// reads are never limited
	list(t, h, "")
}

func TestMethodNotAllowed(t *testing.T) {
	_, h := newTestAPI(t)
	rec, _ := do(t, h, httptest.NewRequest(http.MethodPut, "/v1/mixnodes", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
