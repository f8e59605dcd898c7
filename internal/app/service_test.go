package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/revlens/revlens/internal/config"
	"github.com/revlens/revlens/internal/domain"
)

type stubSource struct {
	ds    *domain.Dataset
	err   error
	loads int
}

func (s *stubSource) Load(context.Context) (*domain.Dataset, error) {
	s.loads++
	return s.ds, s.err
}

func mustDay(t *testing.T, s string) time.Time {
	t.Helper()
	day, err := domain.ParseDay(s)
	require.NoError(t, err)
	return day
}

func TestServiceReportWithoutCache(t *testing.T) {
	today := mustDay(t, "2026-02-20")
	baseline := mustDay(t, "2026-02-19")
	src := &stubSource{ds: &domain.Dataset{
		Transactions: []domain.Transaction{
			{OrderTS: today, OrderID: "o1", GrossAmount: 100},
			{OrderTS: baseline, OrderID: "o2", GrossAmount: 50},
		},
	}}

	svc := NewService(src, config.Default().Report, nil)
	payload, err := svc.Report(context.Background(), today, baseline)
	require.NoError(t, err)

	assert.Equal(t, 1, src.loads, "tables are read fresh per request")
	assert.Equal(t, "2026-02-20", payload.Meta.Today)
	require.Len(t, payload.KeyMetrics, 2)
	assert.InDelta(t, 100.0, payload.KeyMetrics[0].GrossSales, 1e-9)
	assert.InDelta(t, 50.0, payload.KeyMetrics[1].GrossSales, 1e-9)
}

func TestServiceReportSourceErrorPropagates(t *testing.T) {
	src := &stubSource{err: errors.New("connection refused")}
	svc := NewService(src, config.Default().Report, nil)

	_, err := svc.Report(context.Background(), mustDay(t, "2026-02-20"), mustDay(t, "2026-02-19"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestServiceReloadsPerRequest(t *testing.T) {
	src := &stubSource{ds: &domain.Dataset{}}
	svc := NewService(src, config.Default().Report, nil)

	today, baseline := mustDay(t, "2026-02-20"), mustDay(t, "2026-02-19")
	_, err := svc.Report(context.Background(), today, baseline)
	require.NoError(t, err)
	_, err = svc.Report(context.Background(), today, baseline)
	require.NoError(t, err)
	assert.Equal(t, 2, src.loads, "no cache configured means no shortcut")
}
