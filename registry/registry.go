// Package registry keeps mixnode bonds keyed by owner and lists them page by page.
package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opencensus.io/trace"
	"go.uber.org/zap"

	"github.com/ozontech/seq-registry/consts"
	"github.com/ozontech/seq-registry/cursor"
	"github.com/ozontech/seq-registry/kv"
	"github.com/ozontech/seq-registry/logger"
	"github.com/ozontech/seq-registry/metric"
	"github.com/ozontech/seq-registry/paging"
	"github.com/ozontech/seq-registry/tracing"
)

const mixnodesEndpoint = "mixnodes"

var (
	ErrNotFound = errors.New("mixnode bond not found")
	// ErrCorruptedBond is returned when a stored value can't be decoded.
	ErrCorruptedBond = errors.New("stored bond is corrupted")
)

// ownerCodec accepts owner addresses: at most MaxKeySize visible ASCII characters.
var ownerCodec = cursor.NewCodec(cursor.Policy{
	MaxSize: consts.MaxKeySize,
	Allowed: cursor.PrintableASCII,
})

type Registry struct {
	bonds kv.ReadWriter
	pager *paging.Pager
}

// New scopes rw to the mixnodes namespace.
func New(rw kv.ReadWriter, cfg paging.Config) (*Registry, error) {
	pager, err := paging.New(cfg, ownerCodec)
	if err != nil {
		return nil, err
	}
	return &Registry{
		bonds: kv.Prefixed(rw, consts.MixnodesNamespace),
		pager: pager,
	}, nil
}

func (r *Registry) PagingConfig() paging.Config {
	return r.pager.Config()
}

// Bond saves the bond, replacing the previous bond of the same owner.
func (r *Registry) Bond(ctx context.Context, bond MixNodeBond) error {
	ctx, span := tracing.StartSpan(ctx, "registry.Bond")
	defer span.End()

	if err := validate(bond); err != nil {
		return err
	}
	value, err := bond.encode()
	if err != nil {
		return err
	}
	if err := r.bonds.Put(ctx, []byte(bond.Owner), value); err != nil {
		metric.StoreErrorsTotal.WithLabelValues("put").Inc()
		tracing.SetError(span, trace.StatusCodeInternal, err)
		return fmt.Errorf("saving bond of %q: %w", bond.Owner, err)
	}

	metric.BondsTotal.WithLabelValues("bond").Inc()
	logger.Debug("mixnode bonded",
		zap.String("owner", bond.Owner),
		zap.String("host", bond.MixNode.Host),
		zap.Uint64("layer", bond.MixNode.Layer),
	)
	return nil
}

// Unbond removes the bond of owner.
func (r *Registry) Unbond(ctx context.Context, owner string) error {
	ctx, span := tracing.StartSpan(ctx, "registry.Unbond")
	defer span.End()

	if _, err := r.Get(ctx, owner); err != nil {
		return err
	}
	if err := r.bonds.Delete(ctx, []byte(owner)); err != nil {
		metric.StoreErrorsTotal.WithLabelValues("delete").Inc()
		tracing.SetError(span, trace.StatusCodeInternal, err)
		return fmt.Errorf("removing bond of %q: %w", owner, err)
	}

	metric.BondsTotal.WithLabelValues("unbond").Inc()
	logger.Debug("mixnode unbonded", zap.String("owner", owner))
	return nil
}

func (r *Registry) Get(ctx context.Context, owner string) (MixNodeBond, error) {
	if err := ownerCodec.Validate([]byte(owner)); err != nil || owner == "" {
		return MixNodeBond{}, fmt.Errorf("%w: %q", ErrNotFound, owner)
	}

	value, err := r.bonds.Get(ctx, []byte(owner))
	if errors.Is(err, kv.ErrNotFound) {
		return MixNodeBond{}, fmt.Errorf("%w: %q", ErrNotFound, owner)
	}
	if err != nil {
		metric.StoreErrorsTotal.WithLabelValues("get").Inc()
		return MixNodeBond{}, fmt.Errorf("loading bond of %q: %w", owner, err)
	}
	return decodeStored(owner, value)
}

// QueryMixnodesPaged lists bonds in ascending owner order starting right after
// startAfter. A nil limit means the configured default, larger limits are
// clamped to the configured maximum.
//
// Errors: cursor.ErrMalformedCursor for a bad startAfter, paging.ErrInvalidLimit
// for a zero limit, *scan.StoreError for backend failures and ErrCorruptedBond.
func (r *Registry) QueryMixnodesPaged(ctx context.Context, startAfter *string, limit *uint32) (_ PagedResponse, err error) {
	ctx, span := tracing.StartSpan(ctx, "registry.QueryMixnodesPaged")
	defer span.End()

	start := time.Now()
	defer func() {
		metric.PagedQueryDurationSeconds.WithLabelValues(mixnodesEndpoint).Observe(time.Since(start).Seconds())
		metric.PagedQueriesTotal.WithLabelValues(mixnodesEndpoint, queryStatus(err)).Inc()
	}()

	var marker cursor.Marker
	if startAfter != nil {
		span.AddAttributes(trace.StringAttribute("start_after", *startAfter))
		if marker, err = ownerCodec.Parse(*startAfter); err != nil {
			metric.MalformedCursorsTotal.WithLabelValues(mixnodesEndpoint).Inc()
			tracing.SetError(span, trace.StatusCodeInvalidArgument, err)
			return PagedResponse{}, err
		}
	}

	page, err := r.pager.Query(ctx, r.bonds, marker, limit)
	if err != nil {
		if !errors.Is(err, paging.ErrInvalidLimit) {
			metric.StoreErrorsTotal.WithLabelValues("scan").Inc()
		}
		tracing.SetError(span, trace.StatusCodeUnknown, err)
		return PagedResponse{}, err
	}

	resp := PagedResponse{
		Nodes:   make([]MixNodeBond, 0, len(page.Records)),
		PerPage: page.PerPage,
	}
	for _, rec := range page.Records {
		bond, err := decodeStored(string(rec.Key), rec.Value)
		if err != nil {
			tracing.SetError(span, trace.StatusCodeDataLoss, err)
			return PagedResponse{}, err
		}
		resp.Nodes = append(resp.Nodes, bond)
	}
	if page.StartNextAfter != nil {
		next := page.StartNextAfter.String()
		resp.StartNextAfter = &next
	}

	metric.PageRecords.WithLabelValues(mixnodesEndpoint).Observe(float64(len(resp.Nodes)))
	span.AddAttributes(trace.Int64Attribute("nodes", int64(len(resp.Nodes))))
	return resp, nil
}

func decodeStored(owner string, value []byte) (MixNodeBond, error) {
	bond, err := DecodeBond(value)
	if err != nil {
		logger.Error("stored bond is not decodable", zap.String("owner", owner), zap.Error(err))
		return MixNodeBond{}, fmt.Errorf("%w: owner %q: %s", ErrCorruptedBond, owner, err)
	}
	if bond.Owner != owner {
		return MixNodeBond{}, fmt.Errorf("%w: owner %q is stored under %q", ErrCorruptedBond, bond.Owner, owner)
	}
	return bond, nil
}

func queryStatus(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, cursor.ErrMalformedCursor), errors.Is(err, paging.ErrInvalidLimit):
		return "bad_request"
	default:
		return "error"
	}
}
