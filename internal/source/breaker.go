package source

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"github.com/revlens/revlens/internal/domain"
)

// BreakerSource guards a backing store with a circuit breaker, so a
// collapsing warehouse fails fast instead of piling up slow report requests.
type BreakerSource struct {
	inner   TableSource
	breaker *gobreaker.CircuitBreaker
}

// NewBreakerSource wraps a source. The breaker opens after five consecutive
// failures and probes again after 30 seconds.
func NewBreakerSource(name string, inner TableSource) *BreakerSource {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("source", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("table source breaker state change")
		},
	}
	return &BreakerSource{inner: inner, breaker: gobreaker.NewCircuitBreaker(settings)}
}

// Load proxies to the inner source through the breaker.
func (s *BreakerSource) Load(ctx context.Context) (*domain.Dataset, error) {
	result, err := s.breaker.Execute(func() (interface{}, error) {
		return s.inner.Load(ctx)
	})
	if err != nil {
		return nil, err
	}
	return result.(*domain.Dataset), nil
}
