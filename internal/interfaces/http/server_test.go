package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/revlens/revlens/internal/report"
)

type stubProvider struct {
	payload *report.Payload
	err     error

	gotToday    time.Time
	gotBaseline time.Time
}

func (p *stubProvider) Report(_ context.Context, today, baseline time.Time) (*report.Payload, error) {
	p.gotToday, p.gotBaseline = today, baseline
	return p.payload, p.err
}

func newTestServer(provider ReportProvider) *Server {
	return NewServer(DefaultServerConfig(), provider)
}

func doGet(s *Server, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestHandleReportOK(t *testing.T) {
	provider := &stubProvider{payload: &report.Payload{
		Meta: report.Meta{ReportID: "r-42", Today: "2026-02-20", Baseline: "2026-02-19"},
	}}
	s := newTestServer(provider)

	rec := doGet(s, "/v1/report?today=2026-02-20&baseline=2026-02-19")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var got report.Payload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "r-42", got.Meta.ReportID)
	assert.Equal(t, "2026-02-20", provider.gotToday.Format("2006-01-02"))
	assert.Equal(t, "2026-02-19", provider.gotBaseline.Format("2006-01-02"))
}

func TestHandleReportBaselineDefaultsToPreviousDay(t *testing.T) {
	provider := &stubProvider{payload: &report.Payload{}}
	s := newTestServer(provider)

	rec := doGet(s, "/v1/report?today=2026-02-20")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2026-02-19", provider.gotBaseline.Format("2006-01-02"))
}

func TestHandleReportBadDates(t *testing.T) {
	s := newTestServer(&stubProvider{payload: &report.Payload{}})

	for _, target := range []string{
		"/v1/report",
		"/v1/report?today=20-02-2026",
		"/v1/report?today=2026-02-20&baseline=yesterday",
	} {
		rec := doGet(s, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)

		var resp struct {
			Error string `json:"error"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.Error)
	}
}

func TestHandleReportProviderError(t *testing.T) {
	s := newTestServer(&stubProvider{err: errors.New("backend down")})

	rec := doGet(s, "/v1/report?today=2026-02-20")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "backend down",
		"internal error details stay out of the response")
}

func TestHandleHealth(t *testing.T) {
	rec := doGet(newTestServer(&stubProvider{}), "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
}

func TestHandleNotFound(t *testing.T) {
	rec := doGet(newTestServer(&stubProvider{}), "/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	rec := doGet(newTestServer(&stubProvider{}), "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimitExceeded(t *testing.T) {
	cfg := DefaultServerConfig()
	cfg.RateRPS = 0.001
	cfg.RateBurst = 1
	s := NewServer(cfg, &stubProvider{payload: &report.Payload{}})

	first := doGet(s, "/healthz")
	require.Equal(t, http.StatusOK, first.Code)

	second := doGet(s, "/healthz")
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}
