package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/servicemarket/internal/domain/entities"
	"github.com/zatekoja/servicemarket/internal/domain/repositories"
)

func TestBuildSearchParams(t *testing.T) {
	lat, lon := 6.5244, 3.3792

	tests := []struct {
		name       string
		params     repositories.ProviderSearchParams
		wantQ      string
		wantFilter *string
		wantSort   string
	}{
		{
			name:     "Match all",
			params:   repositories.ProviderSearchParams{Page: 1, PerPage: 20},
			wantQ:    "*",
			wantSort: "rating:desc,review_count:desc",
		},
		{
			name: "Filters",
			params: repositories.ProviderSearchParams{
				Query:         " leak ",
				Categories:    []string{"plumber", "handyman"},
				MinRating:     4.5,
				MaxHourlyRate: 8000,
				Page:          2,
				PerPage:       10,
			},
			wantQ:      "leak",
			wantFilter: strPtr("service_categories:=[plumber,handyman] && rating:>=4.5 && hourly_rate_min:<=8000"),
			wantSort:   "rating:desc,review_count:desc",
		},
		{
			name: "Near a point",
			params: repositories.ProviderSearchParams{
				Latitude: &lat, Longitude: &lon, RadiusKm: 10, Page: 1, PerPage: 20,
			},
			wantQ:      "*",
			wantFilter: strPtr("location:(6.524400, 3.379200, 10 km)"),
			wantSort:   "location(6.524400, 3.379200):asc,rating:desc",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sp := buildSearchParams(tt.params)
			require.NotNil(t, sp.Q)
			assert.Equal(t, tt.wantQ, *sp.Q)
			assert.Equal(t, tt.wantFilter, sp.FilterBy)
			assert.Equal(t, tt.wantSort, *sp.SortBy)
			assert.Equal(t, tt.params.Page, *sp.Page)
			assert.Equal(t, tt.params.PerPage, *sp.PerPage)
		})
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	doc := &entities.ProviderDocument{
		ID:                "prov-1",
		BusinessName:      "Pat's Plumbing",
		ServiceCategories: []string{"plumber"},
		HourlyRateMin:     4000,
		HourlyRateMax:     9000,
		Rating:            4.5,
		ReviewCount:       2,
		Location:          &entities.Location{Latitude: 6.5, Longitude: 3.3},
		CreatedAt:         1700000000,
	}

	raw := toDocument(doc)
	assert.NotContains(t, raw, "bio")

	// Typesense hands documents back as decoded JSON.
	hit := map[string]interface{}{}
	for k, v := range raw {
		hit[k] = v
	}
	hit["location"] = []interface{}{6.5, 3.3}
	hit["service_categories"] = []interface{}{"plumber"}
	hit["hourly_rate_min"] = float64(4000)
	hit["hourly_rate_max"] = float64(9000)
	hit["review_count"] = float64(2)
	hit["created_at"] = float64(1700000000)

	got, err := fromDocument(hit)
	require.NoError(t, err)
	assert.Equal(t, doc, got)
}

func TestDecodeFacets(t *testing.T) {
	raw := []map[string]interface{}{
		{
			"field_name": "service_categories",
			"counts": []map[string]interface{}{
				{"count": 3, "value": "plumber"},
				{"count": 1, "value": "electrician"},
			},
		},
	}
	facets, err := decodeFacets(raw)
	require.NoError(t, err)
	assert.Equal(t, map[string]map[string]int{
		"service_categories": {"plumber": 3, "electrician": 1},
	}, facets)
}

func strPtr(s string) *string { return &s }
