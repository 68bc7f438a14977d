// Package paging assembles bounded pages of an ordered store.
//
// A query clamps the requested size, turns the "start after" marker into an
// exclusive bound, drains at most that many records and hands back the key of
// the last record as the marker of the next page.
//
// Pages are not snapshots. Nothing is held between calls, so records inserted
// or removed between two page fetches of the same marker chain may show up,
// disappear or shift: a walk over a changing store may miss or newly include
// records compared to any single point in time view.
package paging

import (
	"context"
	"errors"
	"fmt"

	"github.com/ozontech/seq-registry/consts"
	"github.com/ozontech/seq-registry/cursor"
	"github.com/ozontech/seq-registry/kv"
	"github.com/ozontech/seq-registry/scan"
)

var (
	ErrInvalidLimit  = errors.New("invalid limit")
	ErrInvalidConfig = errors.New("invalid paging config")
)

// Config is the capacity policy of one endpoint.
type Config struct {
	// DefaultLimit is used when the caller does not specify a limit.
	DefaultLimit uint32 `yaml:"defaultLimit"`
	// MaxLimit caps any requested limit.
	MaxLimit uint32 `yaml:"maxLimit"`
}

func DefaultConfig() Config {
	return Config{
		DefaultLimit: consts.DefaultPageLimit,
		MaxLimit:     consts.MaxPageLimit,
	}
}

func (c Config) Validate() error {
	if c.DefaultLimit < 1 || c.MaxLimit < 1 {
		return fmt.Errorf("%w: limits must be positive, default=%d max=%d", ErrInvalidConfig, c.DefaultLimit, c.MaxLimit)
	}
	if c.DefaultLimit > c.MaxLimit {
		return fmt.Errorf("%w: default limit %d exceeds max limit %d", ErrInvalidConfig, c.DefaultLimit, c.MaxLimit)
	}
	return nil
}

// EffectiveLimit resolves a requested limit: absent means DefaultLimit,
// anything above MaxLimit is clamped to it and zero is rejected.
func (c Config) EffectiveLimit(limit *uint32) (int, error) {
	if limit == nil {
		return int(c.DefaultLimit), nil
	}
	if *limit == 0 {
		return 0, fmt.Errorf("%w: must be at least 1", ErrInvalidLimit)
	}
	return int(min(*limit, c.MaxLimit)), nil
}

// Page is one slice of the store.
type Page struct {
	Records []kv.Pair
	// PerPage is the effective limit the page was assembled with.
	PerPage int
	// StartNextAfter is the marker of the next page, nil for an empty page.
	StartNextAfter cursor.Marker
}

type Pager struct {
	cfg   Config
	codec cursor.Codec
}

func New(cfg Config, codec cursor.Codec) (*Pager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Pager{
		cfg:   cfg,
		codec: codec,
	}, nil
}

func (p *Pager) Config() Config {
	return p.cfg
}

func (p *Pager) Codec() cursor.Codec {
	return p.codec
}

// Query returns the page of store that starts right after startAfter.
//
// Errors: cursor.ErrMalformedCursor, ErrInvalidLimit, or *scan.StoreError
// wrapping the store failure as is. The context is passed to the store.
func (p *Pager) Query(ctx context.Context, store kv.Store, startAfter cursor.Marker, limit *uint32) (Page, error) {
	perPage, err := p.cfg.EffectiveLimit(limit)
	if err != nil {
		return Page{}, err
	}
	if err := p.codec.Validate(startAfter); err != nil {
		return Page{}, err
	}

	records, err := scan.New(ctx, store, cursor.BoundFrom(startAfter), perPage).Collect()
	if err != nil {
		return Page{}, err
	}

	page := Page{
		Records: records,
		PerPage: perPage,
	}
	if len(records) > 0 {
		page.StartNextAfter = cursor.Marker(records[len(records)-1].Key)
	}
	return page, nil
}
