package proxyapi

import (
	"context"
	"net"
	"net/http"

	"go.uber.org/atomic"

	"github.com/ozontech/seq-registry/network/ratelimiter"
	"github.com/ozontech/seq-registry/registry"
)

// Registry is the mixnode registry served over http.
type Registry interface {
	Bond(ctx context.Context, bond registry.MixNodeBond) error
	Unbond(ctx context.Context, owner string) error
	Get(ctx context.Context, owner string) (registry.MixNodeBond, error)
	QueryMixnodesPaged(ctx context.Context, startAfter *string, limit *uint32) (registry.PagedResponse, error)
}

type API struct {
	config Config

	registry    Registry
	rateLimiter *ratelimiter.RateLimiter
	httpServer  *httpServer

	cancel    context.CancelFunc
	isStopped atomic.Bool
}

func New(config Config, reg Registry) *API {
	config.setDefaults()

	a := &API{
		config:      config,
		registry:    reg,
		rateLimiter: ratelimiter.New(config.WriteRateLimit, nil),
	}
	a.httpServer = newHTTPServer(a.Handler(), config)
	return a
}

// Handler routes the v1 api.
func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()

	a.route(mux, "GET /v1/mixnodes", "list_mixnodes", a.serveListMixnodes)
	a.route(mux, "GET /v1/mixnodes/{owner}", "get_mixnode", a.serveGetMixnode)
	a.route(mux, "POST /v1/mixnodes", "bond_mixnode", a.limited(a.serveBondMixnode))
	a.route(mux, "DELETE /v1/mixnodes/{owner}", "unbond_mixnode", a.limited(a.serveUnbondMixnode))

	return mux
}

// Start serves the api on listener, blocking until Stop.
func (a *API) Start(listener net.Listener) {
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	go a.rateLimiter.Run(ctx)
	a.httpServer.Start(listener)
}

func (a *API) Stop(ctx context.Context) {
	if a.isStopped.Swap(true) {
		return
	}
	a.httpServer.Stop(ctx)
	if a.cancel != nil {
		a.cancel()
	}
}
