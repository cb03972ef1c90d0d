package registry_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Brieuc-fav/scrapping-naf-domains-v2/internal/registry"
	"github.com/Brieuc-fav/scrapping-naf-domains-v2/pkg/domain"
	"github.com/Brieuc-fav/scrapping-naf-domains-v2/pkg/logger"
	"github.com/Brieuc-fav/scrapping-naf-domains-v2/pkg/serrors"
)

func TestMain(m *testing.M) {
	logger.Setup(logger.DevelopmentEnvironment)
	os.Exit(m.Run())
}

func TestFetchByNAFPaginatesAndNormalizes(t *testing.T) {
	t.Parallel()

	var queries []map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := map[string]string{}
		for k := range r.URL.Query() {
			q[k] = r.URL.Query().Get(k)
		}
		queries = append(queries, q)

		if q["page"] == "1" {
			_, _ = w.Write([]byte(`{
				"results": [
					{"siren": "111111111", "nom_complet": "Atlas Conseil", "nom_raison_sociale": "ATLAS CONSEIL",
					 "activite_principale": "62.02A", "tranche_effectif_salarie": "22",
					 "siege": {"siret": "11111111100012"}},
					{"siren": "222222222", "nom_complet": "Etude Martin",
					 "siege": {"siret": "22222222200024", "activite_principale": "71.12B", "tranche_effectif_salarie": "12"}}
				],
				"total_results": 3, "page": 1, "per_page": 2
			}`))

			return
		}
		_, _ = w.Write([]byte(`{
			"results": [
				{"siren": "333333333", "nom_raison_sociale": "TIERS SAS", "nom_complet": "Tiers",
				 "activite_principale": "62.02A", "tranche_effectif_salarie": "11",
				 "siege": {"siret": "33333333300036"}}
			],
			"total_results": 3, "page": 2, "per_page": 2
		}`))
	}))
	defer srv.Close()

	client := registry.New(srv.Client(), registry.Options{
		BaseURL:  srv.URL,
		PerPage:  2,
		MaxPages: 10,
	})

	records, err := client.FetchByNAF(context.Background(), "62.02A", []string{"11", "12", "NN"})
	require.NoError(t, err)
	require.Len(t, records, 3)

	// Requests stop once the reported total is covered.
	require.Len(t, queries, 2)
	require.Equal(t, "62.02A", queries[0]["activite_principale"])
	require.Equal(t, "A", queries[0]["etat_administratif"])
	require.Equal(t, "true", queries[0]["minimal"])
	require.Equal(t, "siege", queries[0]["include"])
	require.Equal(t, "11,12,NN", queries[0]["tranche_effectif_salarie"])
	require.Equal(t, "2", queries[1]["page"])

	require.Equal(t, domain.BusinessRecord{
		SIREN:       "111111111",
		SIRET:       "11111111100012",
		LegalName:   "ATLAS CONSEIL",
		DisplayName: "Atlas Conseil",
		NAF:         "62.02A",
		Tranche:     "22",
		HeadOffice:  true,
	}, records[0])

	// Legal-unit fields fall back to the head-office establishment.
	require.Equal(t, "Etude Martin", records[1].LegalName)
	require.Equal(t, "71.12B", records[1].NAF)
	require.Equal(t, domain.Tranche("12"), records[1].Tranche)
}

func TestFetchByNAFStopsOnEmptyPage(t *testing.T) {
	t.Parallel()

	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			_, _ = w.Write([]byte(`{"results": [{"siren": "111111111", "nom_complet": "A"}], "total_results": 100}`))

			return
		}
		_, _ = w.Write([]byte(`{"results": [], "total_results": 100}`))
	}))
	defer srv.Close()

	client := registry.New(srv.Client(), registry.Options{BaseURL: srv.URL, PerPage: 25, MaxPages: 5})

	records, err := client.FetchByNAF(context.Background(), "62.02A", nil)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, 2, calls)
}

func TestFetchByNAFRetriesOnThrottle(t *testing.T) {
	t.Parallel()

	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)

			return
		}
		_, _ = w.Write([]byte(`{"results": [{"siren": "111111111", "nom_complet": "A"}], "total_results": 1}`))
	}))
	defer srv.Close()

	client := registry.New(srv.Client(), registry.Options{
		BaseURL:      srv.URL,
		MaxPages:     1,
		RetryBackoff: time.Millisecond,
	})

	records, err := client.FetchByNAF(context.Background(), "62.02A", nil)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, 2, calls)
}

func TestFetchByNAFGivesUpAfterBoundedRetries(t *testing.T) {
	t.Parallel()

	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := registry.New(srv.Client(), registry.Options{
		BaseURL:      srv.URL,
		MaxPages:     3,
		RetryBackoff: time.Millisecond,
	})

	_, err := client.FetchByNAF(context.Background(), "62.02A", nil)
	require.ErrorIs(t, err, serrors.ErrUnreachable)
	require.Equal(t, 3, calls)
}

func TestFetchByNAFMalformedBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>not json</html>`))
	}))
	defer srv.Close()

	client := registry.New(srv.Client(), registry.Options{BaseURL: srv.URL, MaxPages: 1})

	_, err := client.FetchByNAF(context.Background(), "62.02A", nil)
	require.ErrorIs(t, err, serrors.ErrMalformed)
}

func TestCollectFailsOnEmptyRegistryResult(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results": [], "total_results": 0}`))
	}))
	defer srv.Close()

	client := registry.New(srv.Client(), registry.Options{BaseURL: srv.URL, MaxPages: 5})

	records, err := client.Collect(context.Background(), []string{"62.02A", "71.12B"}, nil)
	require.ErrorIs(t, err, serrors.ErrBadRequest)
	require.Empty(t, records)
}

func TestCollectMergesCodesAndDedupes(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// the same head office shows up under both queried codes
		_, _ = w.Write([]byte(`{
			"results": [{"siren": "111111111", "nom_complet": "Atlas Conseil", "activite_principale": "62.02A"}],
			"total_results": 1
		}`))
	}))
	defer srv.Close()

	client := registry.New(srv.Client(), registry.Options{BaseURL: srv.URL, MaxPages: 5})

	records, err := client.Collect(context.Background(), []string{"62.02A", "71.12B"}, nil)
	require.NoError(t, err)
	require.Len(t, records, 1)
}

func TestDedupePrefersHeadOffice(t *testing.T) {
	t.Parallel()

	records := []domain.BusinessRecord{
		{SIREN: "111111111", LegalName: "BRANCH", HeadOffice: false},
		{SIREN: "222222222", LegalName: "OTHER", HeadOffice: true},
		{SIREN: "111111111", LegalName: "HQ", HeadOffice: true},
		{SIREN: "", LegalName: "NO SIREN"},
		{SIREN: "222222222", LegalName: "OTHER BRANCH", HeadOffice: false},
	}

	out := registry.Dedupe(records)
	require.Len(t, out, 2)
	require.Equal(t, "HQ", out[0].LegalName)
	require.Equal(t, "OTHER", out[1].LegalName)
}

func TestFeedDrainsAndStops(t *testing.T) {
	t.Parallel()

	feed := registry.NewFeed([]domain.BusinessRecord{
		{SIREN: "111111111"},
		{SIREN: "222222222"},
	})
	require.Equal(t, 2, feed.Len())

	ctx := context.Background()

	rec, ok, err := feed.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "111111111", rec.SIREN)

	_, ok, err = feed.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = feed.Next(ctx)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestFeedHonorsContext(t *testing.T) {
	t.Parallel()

	feed := registry.NewFeed([]domain.BusinessRecord{{SIREN: "111111111"}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok, err := feed.Next(ctx)
	require.False(t, ok)
	require.ErrorIs(t, err, context.Canceled)
}
