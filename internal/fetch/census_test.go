package fetch

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"panelcli/internal/config"
)

func censusFixture() [][]string {
	return [][]string{
		{"YEAR", "AGE", "POV_RATE", "time"},
		{"2021", "All people", "11.6", "2021"},
		{"2021", "Under 18 years", "15.3", "2021"},
		{"2022", "All people", "11.5", "2022"},
		{"2022", "65 years and over", "10.2", "2022"},
		{"2020", "All people", "11.4", "2020"},
	}
}

func newCensusTestServer(t *testing.T, rows [][]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "YEAR,AGE,POV_RATE", r.URL.Query().Get("get"))
		assert.Equal(t, "from 1959 to 2024", r.URL.Query().Get("time"))
		require.NoError(t, json.NewEncoder(w).Encode(rows))
	}))
}

func censusTestClient(srvURL string) *CensusClient {
	client := NewClient(testFetchConfig(), slog.Default())
	cfg := config.CensusConfig{BaseURL: srvURL, FromYear: 1959, ToYear: 2024}
	return NewCensusClient(cfg, client, slog.Default())
}

func TestCensusFetch_AllPeopleRowsOnly(t *testing.T) {
	srv := newCensusTestServer(t, censusFixture())
	defer srv.Close()

	raw := censusTestClient(srv.URL).Fetch(context.Background(), "", "POVERTY_RATE_OFFICIAL")

	assert.Equal(t, censusSeriesID, raw.ID)
	assert.Equal(t, "POVERTY_RATE_OFFICIAL", raw.Column)
	assert.Equal(t, "Annual", raw.Meta.Frequency)

	require.Len(t, raw.Observations, 3, "only the all-people rows survive the filter")
	assert.Equal(t, "2021-12-31", raw.Observations[0].DateToken)
	assert.Equal(t, "11.6", raw.Observations[0].ValueToken)
	assert.Equal(t, "2022-12-31", raw.Observations[1].DateToken)
	assert.Equal(t, "2020-12-31", raw.Observations[2].DateToken)
}

func TestCensusFetch_CoverageSpansObservedYears(t *testing.T) {
	srv := newCensusTestServer(t, censusFixture())
	defer srv.Close()

	raw := censusTestClient(srv.URL).Fetch(context.Background(), "", "POVERTY_RATE_OFFICIAL")

	require.NotNil(t, raw.Meta.ObservationStart)
	require.NotNil(t, raw.Meta.ObservationEnd)
	assert.Equal(t, "2020-12-31", *raw.Meta.ObservationStart)
	assert.Equal(t, "2022-12-31", *raw.Meta.ObservationEnd)
}

func TestCensusFetch_UnexpectedHeaderYieldsEmptySeries(t *testing.T) {
	rows := [][]string{
		{"YEAR", "GROUP", "RATE"},
		{"2021", "All people", "11.6"},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(rows)
	}))
	defer srv.Close()

	raw := censusTestClient(srv.URL).Fetch(context.Background(), "", "POVERTY_RATE_OFFICIAL")

	assert.Empty(t, raw.Observations)
	assert.Nil(t, raw.Meta.ObservationStart)
}

func TestCensusFetch_ServerFailureYieldsEmptySeries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	raw := censusTestClient(srv.URL).Fetch(context.Background(), "", "POVERTY_RATE_OFFICIAL")

	assert.Empty(t, raw.Observations, "a failed fetch degrades to empty, it never errors")
	assert.Equal(t, "Annual", raw.Meta.Frequency, "static metadata is still attached")
}

func TestCensusFetch_NoMatchingRows(t *testing.T) {
	rows := [][]string{
		{"YEAR", "AGE", "POV_RATE"},
		{"2021", "Under 18 years", "15.3"},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(rows)
	}))
	defer srv.Close()

	raw := censusTestClient(srv.URL).Fetch(context.Background(), "", "POVERTY_RATE_OFFICIAL")

	assert.Empty(t, raw.Observations)
}
