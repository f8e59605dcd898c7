package report

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/revlens/revlens/internal/domain"
	"github.com/revlens/revlens/internal/metrics"
	"github.com/revlens/revlens/internal/rank"
)

// Meta identifies one assembled report.
type Meta struct {
	ReportID    string    `json:"report_id"`
	GeneratedAt time.Time `json:"generated_at"`
	Today       string    `json:"today"`
	Baseline    string    `json:"baseline"`
}

// RankingEntry is one row of the serialized factor ranking.
type RankingEntry struct {
	Factor string  `json:"factor"`
	IV     float64 `json:"iv"`
}

// Payload is the single structured object handed to the narrative and chat
// collaborators. The engine never formats prose; everything a downstream
// consumer may state must be present here.
type Payload struct {
	Meta       Meta              `json:"meta"`
	KeyMetrics []DayAggregate    `json:"key_metrics"`
	Changes    map[string]Change `json:"changes"`
	Ranking    []RankingEntry    `json:"ranking"`
	HighIV     []FactorTables    `json:"high_iv_tables"`
}

// Assembler builds payloads from a dataset and a (today, baseline) pair.
type Assembler struct {
	aggregator *Aggregator
	builder    *rank.Builder
	threshold  float64
	topN       int
}

// NewAssembler wires the assembler. Nil registry/factors select the
// defaults; threshold and topN fall back to the reference values 20 and 5.
func NewAssembler(registry *metrics.Registry, factors []rank.Factor, opts rank.Options, threshold float64, topN int) *Assembler {
	if threshold <= 0 {
		threshold = 20
	}
	if topN <= 0 {
		topN = 5
	}
	return &Assembler{
		aggregator: NewAggregator(registry),
		builder:    rank.NewBuilder(factors, opts),
		threshold:  threshold,
		topN:       topN,
	}
}

// Assemble produces the payload for one (today, baseline) request. The input
// dataset is cloned up front, so callers may reuse their tables across
// requests. Factor-level failures have already degraded to IV 0 inside the
// ranking; only key-metric configuration errors propagate.
func (a *Assembler) Assemble(ds *domain.Dataset, today, baseline time.Time) (*Payload, error) {
	started := time.Now()
	data := ds.Clone()

	todayAgg, err := a.aggregator.AggregateDay(data, today)
	if err != nil {
		return nil, err
	}
	baselineAgg, err := a.aggregator.AggregateDay(data, baseline)
	if err != nil {
		return nil, err
	}

	ranking := a.builder.Rank(data, today, baseline)
	highIV := BuildDrilldowns(data, today, baseline, ranking, a.threshold, a.topN)

	entries := make([]RankingEntry, len(ranking))
	for i, e := range ranking {
		entries[i] = RankingEntry{Factor: e.Factor.Label, IV: e.IV}
	}

	payload := &Payload{
		Meta: Meta{
			ReportID:    uuid.New().String(),
			GeneratedAt: time.Now().UTC(),
			Today:       domain.FormatDay(today),
			Baseline:    domain.FormatDay(baseline),
		},
		KeyMetrics: []DayAggregate{todayAgg, baselineAgg},
		Changes:    Changes(todayAgg, baselineAgg),
		Ranking:    entries,
		HighIV:     highIV,
	}

	log.Info().
		Str("report_id", payload.Meta.ReportID).
		Str("today", payload.Meta.Today).
		Str("baseline", payload.Meta.Baseline).
		Int("factors", len(entries)).
		Int("high_iv", len(highIV)).
		Dur("elapsed", time.Since(started)).
		Msg("report assembled")

	return payload, nil
}
