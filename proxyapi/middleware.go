package proxyapi

import (
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/ozontech/seq-registry/consts"
	"github.com/ozontech/seq-registry/logger"
	"github.com/ozontech/seq-registry/metric"
	"github.com/ozontech/seq-registry/tracing"
	"github.com/ozontech/seq-registry/util"
)

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

// route registers h under pattern with request id, tracing, metrics and panic
// recovery. name labels the metrics and the span.
func (a *API) route(mux *http.ServeMux, pattern, name string, h http.HandlerFunc) {
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		id := r.Header.Get(consts.RequestIDHeader)
		if id == "" {
			id = ulid.Make().String()
		}
		w.Header().Set(consts.RequestIDHeader, id)

		ctx, span := tracing.HTTPSpan(r, "registry_api."+name)
		defer span.End()

		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		defer func() {
			if err := util.RecoverToError(recover(), metric.HTTPPanicsTotal); err != nil {
				logger.Error("handler panicked",
					zap.String("request_id", id),
					zap.String("route", name),
					zap.Error(err),
				)
				writeError(rec, http.StatusInternalServerError, err)
			}
			metric.HTTPRequestsTotal.WithLabelValues(name, strconv.Itoa(rec.code)).Inc()
			metric.HTTPRequestDurationSeconds.WithLabelValues(name).Observe(time.Since(start).Seconds())
		}()

		h(rec, r.WithContext(withRequestID(ctx, id)))
	})
}

// limited rejects requests of remote addresses that exceed the write rate.
func (a *API) limited(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		if !a.rateLimiter.Allow(host) {
			writeError(w, http.StatusTooManyRequests, errTooManyRequests)
			return
		}
		h(w, r)
	}
}
