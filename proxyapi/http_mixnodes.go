package proxyapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"

	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"

	"github.com/ozontech/seq-registry/cursor"
	"github.com/ozontech/seq-registry/logger"
	"github.com/ozontech/seq-registry/paging"
	"github.com/ozontech/seq-registry/registry"
)

var (
	errTooManyRequests = errors.New("too many requests")
	errBadLimit        = errors.New("limit must be an unsigned 32-bit integer")
)

type requestIDKey struct{}

func withRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func requestLogger(ctx context.Context) *zap.Logger {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return logger.With(zap.String("request_id", id))
}

func (a *API) serveListMixnodes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var startAfter *string
	if q.Has("start_after") {
		v := q.Get("start_after")
		startAfter = &v
	}

	var limit *uint32
	if q.Has("limit") {
		v, err := strconv.ParseUint(q.Get("limit"), 10, 32)
		if err != nil {
			writeError(w, http.StatusBadRequest, errBadLimit)
			return
		}
		l := uint32(v)
		limit = &l
	}

	resp, err := a.registry.QueryMixnodesPaged(r.Context(), startAfter, limit)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, resp)
	case errors.Is(err, cursor.ErrMalformedCursor), errors.Is(err, paging.ErrInvalidLimit):
		writeError(w, http.StatusBadRequest, err)
	default:
		requestLogger(r.Context()).Error("listing mixnodes failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err)
	}
}

func (a *API) serveGetMixnode(w http.ResponseWriter, r *http.Request) {
	bond, err := a.registry.Get(r.Context(), r.PathValue("owner"))
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, bond)
	case errors.Is(err, registry.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	default:
		requestLogger(r.Context()).Error("loading mixnode failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err)
	}
}

func (a *API) serveBondMixnode(w http.ResponseWriter, r *http.Request) {
	body, err := a.readBody(w, r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, err)
			return
		}
		writeError(w, http.StatusBadRequest, err)
		return
	}

	bond, err := registry.DecodeBond(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	switch err := a.registry.Bond(r.Context(), bond); {
	case err == nil:
		writeJSON(w, http.StatusCreated, bond)
	case errors.Is(err, registry.ErrInvalidBond):
		writeError(w, http.StatusBadRequest, err)
	default:
		requestLogger(r.Context()).Error("bonding mixnode failed", zap.String("owner", bond.Owner), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err)
	}
}

func (a *API) serveUnbondMixnode(w http.ResponseWriter, r *http.Request) {
	switch err := a.registry.Unbond(r.Context(), r.PathValue("owner")); {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, registry.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	default:
		requestLogger(r.Context()).Error("unbonding mixnode failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err)
	}
}

// readBody reads at most MaxBodySize bytes of the decoded body.
func (a *API) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	limit := int64(a.config.MaxBodySize)
	body := io.Reader(http.MaxBytesReader(w, r.Body, limit))

	if r.Header.Get("Content-Encoding") == "gzip" {
		gz, err := acquireGzipReader(body)
		if err != nil {
			// Body is not gzipped
			return nil, fmt.Errorf("reading gzip body: %w", err)
		}
		defer putGzipReader(gz)
		body = io.LimitReader(gz, limit+1)
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, &http.MaxBytesError{Limit: limit}
	}
	return data, nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(data)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, code int, err error) {
	data, _ := json.Marshal(errorResponse{Error: err.Error()})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(data)
}

var gzipReaderPool sync.Pool

func acquireGzipReader(r io.Reader) (*gzip.Reader, error) {
	anyReader := gzipReaderPool.Get()
	if anyReader == nil {
		return gzip.NewReader(r)
	}
	gzReader := anyReader.(*gzip.Reader)
	err := gzReader.Reset(r)
	return gzReader, err
}

func putGzipReader(reader *gzip.Reader) {
	_ = reader.Close()
	gzipReaderPool.Put(reader)
}
