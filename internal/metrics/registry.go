// Package metrics is a declarative registry of named daily metrics. Metrics
// declare dependencies by key; the registry resolves them as an explicit DAG
// with per-call memoization and fails fast on wiring mistakes.
package metrics

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/revlens/revlens/internal/domain"
)

// ErrConfig marks registry wiring bugs: unknown keys, cyclic dependencies,
// compute functions that return nothing. These are fatal by design, unlike
// degenerate data conditions elsewhere in the engine.
var ErrConfig = errors.New("metric registry misconfigured")

// Context carries the inputs a compute function may read: the source tables
// and the inclusive day range to aggregate over.
type Context struct {
	Data  *domain.Dataset
	Start time.Time
	End   time.Time
}

// InRange reports whether ts falls inside the context's day range.
func (c Context) InRange(ts time.Time) bool {
	d := domain.DayOf(ts)
	return !d.Before(domain.DayOf(c.Start)) && !d.After(domain.DayOf(c.End))
}

// Point is one dated metric value.
type Point struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// Series is a date-ascending run of metric values.
type Series []Point

// ComputeFunc derives a metric's daily series from the context and the
// already-resolved results of its dependencies.
type ComputeFunc func(ctx Context, deps map[string]Series) (Series, error)

// Metric describes one registered metric. Category/Subcategory/Tags are
// grouping metadata for display layers; the engine only uses Key and
// DependsOn.
type Metric struct {
	Key         string
	Title       string
	Description string
	Category    string
	Subcategory string
	Tags        []string
	DependsOn   []string
	Compute     ComputeFunc
}

func (m Metric) hasTag(tag string) bool {
	for _, t := range m.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Registry holds metrics keyed by name. Registration order is preserved so
// listings are deterministic.
type Registry struct {
	name    string
	metrics map[string]*Metric
	order   []string
}

// NewRegistry creates an empty registry.
func NewRegistry(name string) *Registry {
	return &Registry{name: name, metrics: make(map[string]*Metric)}
}

// Register adds a metric. Duplicate keys and missing compute functions are
// configuration errors.
func (r *Registry) Register(m Metric) error {
	if m.Key == "" {
		return fmt.Errorf("%w: metric key is required", ErrConfig)
	}
	if m.Category == "" {
		return fmt.Errorf("%w: metric %q has no category", ErrConfig, m.Key)
	}
	if m.Compute == nil {
		return fmt.Errorf("%w: metric %q has no compute function", ErrConfig, m.Key)
	}
	if _, exists := r.metrics[m.Key]; exists {
		return fmt.Errorf("%w: metric %q registered twice", ErrConfig, m.Key)
	}
	cp := m
	r.metrics[m.Key] = &cp
	r.order = append(r.order, m.Key)
	return nil
}

// Get returns a registered metric.
func (r *Registry) Get(key string) (*Metric, error) {
	m, ok := r.metrics[key]
	if !ok {
		return nil, fmt.Errorf("%w: unknown metric %q", ErrConfig, key)
	}
	return m, nil
}

// Categories lists every distinct category, sorted.
func (r *Registry) Categories() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, key := range r.order {
		c := r.metrics[key].Category
		if _, ok := seen[c]; !ok {
			seen[c] = struct{}{}
			out = append(out, c)
		}
	}
	sort.Strings(out)
	return out
}

// ListByCategory returns the metrics of a category in registration order,
// optionally narrowed to a subcategory.
func (r *Registry) ListByCategory(category, subcategory string) []*Metric {
	var out []*Metric
	for _, key := range r.order {
		m := r.metrics[key]
		if m.Category != category {
			continue
		}
		if subcategory != "" && m.Subcategory != subcategory {
			continue
		}
		out = append(out, m)
	}
	return out
}

// ListByTag returns the metrics carrying the tag, in registration order.
func (r *Registry) ListByTag(tag string) []*Metric {
	var out []*Metric
	for _, key := range r.order {
		if r.metrics[key].hasTag(tag) {
			out = append(out, r.metrics[key])
		}
	}
	return out
}

// ComputeMetric resolves the metric's dependency graph depth-first and
// returns its series. Every node is computed at most once per call.
func (r *Registry) ComputeMetric(key string, ctx Context) (Series, error) {
	cache := make(map[string]Series)
	return r.resolve(key, ctx, cache, make(map[string]bool))
}

// ComputeCategory computes every metric of a category (optionally filtered
// by tag) under one shared memo cache, so dependencies reached from several
// metrics are evaluated once.
func (r *Registry) ComputeCategory(category string, ctx Context, tag string) (map[string]Series, error) {
	cache := make(map[string]Series)
	out := make(map[string]Series)
	for _, metric := range r.ListByCategory(category, "") {
		if tag != "" && !metric.hasTag(tag) {
			continue
		}
		series, err := r.resolve(metric.Key, ctx, cache, make(map[string]bool))
		if err != nil {
			return nil, err
		}
		out[metric.Key] = series
	}
	return out, nil
}

// resolve walks the dependency graph. The visiting set tracks the current
// DFS path so cycles surface as a configuration error instead of recursing
// until the stack blows.
func (r *Registry) resolve(key string, ctx Context, cache map[string]Series, visiting map[string]bool) (Series, error) {
	if series, ok := cache[key]; ok {
		return series, nil
	}
	if visiting[key] {
		return nil, fmt.Errorf("%w: dependency cycle through metric %q", ErrConfig, key)
	}
	metric, err := r.Get(key)
	if err != nil {
		return nil, err
	}

	visiting[key] = true
	deps := make(map[string]Series, len(metric.DependsOn))
	for _, dep := range metric.DependsOn {
		series, err := r.resolve(dep, ctx, cache, visiting)
		if err != nil {
			return nil, err
		}
		deps[dep] = series
	}
	visiting[key] = false

	series, err := metric.Compute(ctx, deps)
	if err != nil {
		return nil, fmt.Errorf("compute metric %q: %w", key, err)
	}
	if series == nil {
		return nil, fmt.Errorf("%w: metric %q returned no value series", ErrConfig, key)
	}
	sort.SliceStable(series, func(i, j int) bool { return series[i].Date.Before(series[j].Date) })
	cache[key] = series
	return series, nil
}

// ValueOn returns the series value for a given day, zero when the day is
// absent.
func (s Series) ValueOn(day time.Time) float64 {
	d := domain.DayOf(day)
	for _, p := range s {
		if domain.DayOf(p.Date).Equal(d) {
			return p.Value
		}
	}
	return 0
}
