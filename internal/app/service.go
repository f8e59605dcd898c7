// Package app wires the table source, the report cache and the assembler
// into the provider the CLI and HTTP surfaces call.
package app

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/revlens/revlens/internal/cache"
	"github.com/revlens/revlens/internal/config"
	"github.com/revlens/revlens/internal/rank"
	"github.com/revlens/revlens/internal/report"
	"github.com/revlens/revlens/internal/source"
)

// Service loads fresh tables per request and assembles the payload,
// consulting the optional cache first.
type Service struct {
	source    source.TableSource
	assembler *report.Assembler
	cache     *cache.ReportCache

	// Optional cache counters, registered by the HTTP layer.
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter
}

// NewService builds a service from configuration. The cache may be nil.
func NewService(src source.TableSource, cfg config.ReportConfig, reportCache *cache.ReportCache) *Service {
	assembler := report.NewAssembler(nil, nil, rank.Options{
		CostBins:        cfg.CostBins,
		MaxCategoryBins: cfg.MaxCategoryBins,
	}, cfg.IVThreshold, cfg.TopN)

	return &Service{
		source:    src,
		assembler: assembler,
		cache:     reportCache,
	}
}

// Report returns the payload for one (today, baseline) pair. Every request
// re-reads the source tables; the engine itself keeps no state between
// calls, only the cache shortcuts repeats of the same date pair.
func (s *Service) Report(ctx context.Context, today, baseline time.Time) (*report.Payload, error) {
	if s.cache != nil {
		if payload, ok := s.cache.Get(ctx, today, baseline); ok {
			if s.CacheHits != nil {
				s.CacheHits.Inc()
			}
			log.Debug().Str("key", cache.Key(today, baseline)).Msg("report cache hit")
			return payload, nil
		}
		if s.CacheMisses != nil {
			s.CacheMisses.Inc()
		}
	}

	ds, err := s.source.Load(ctx)
	if err != nil {
		return nil, err
	}

	payload, err := s.assembler.Assemble(ds, today, baseline)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Put(ctx, today, baseline, payload); err != nil {
			log.Warn().Err(err).Msg("report cache put failed")
		}
	}
	return payload, nil
}
