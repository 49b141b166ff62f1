package search

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"
	"github.com/zatekoja/servicemarket/internal/domain/entities"
	"github.com/zatekoja/servicemarket/internal/domain/repositories"
	tsclient "github.com/zatekoja/servicemarket/internal/infrastructure/clients/typesense"
)

// ProvidersCollection is the Typesense collection holding provider documents
const ProvidersCollection = "providers"

const queryBy = "business_name,service_categories,bio"

// TypesenseAdapter implements provider search using Typesense
type TypesenseAdapter struct {
	client *tsclient.Client
}

// Ensure TypesenseAdapter implements ProviderSearchRepository
var _ repositories.ProviderSearchRepository = (*TypesenseAdapter)(nil)

// NewTypesenseAdapter creates a new Typesense adapter
func NewTypesenseAdapter(client *tsclient.Client) *TypesenseAdapter {
	return &TypesenseAdapter{client: client}
}

// InitSchema ensures the collection exists
func (a *TypesenseAdapter) InitSchema(ctx context.Context) error {
	if _, err := a.client.Client().Collection(ProvidersCollection).Retrieve(ctx); err == nil {
		return nil
	}

	_, err := a.client.Client().Collections().Create(ctx, providerSchema())
	if err != nil {
		return fmt.Errorf("failed to create typesense collection: %w", err)
	}
	return nil
}

// DropCollection deletes the provider collection so the next InitSchema
// starts from an empty index
func (a *TypesenseAdapter) DropCollection(ctx context.Context) error {
	if _, err := a.client.Client().Collection(ProvidersCollection).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete typesense collection: %w", err)
	}
	return nil
}

func providerSchema() *api.CollectionSchema {
	return &api.CollectionSchema{
		Name: ProvidersCollection,
		Fields: []api.Field{
			{Name: "id", Type: "string"},
			{Name: "business_name", Type: "string"},
			{Name: "bio", Type: "string", Optional: pointer.True()},
			{Name: "service_categories", Type: "string[]", Facet: pointer.True()},
			{Name: "hourly_rate_min", Type: "int64"},
			{Name: "hourly_rate_max", Type: "int64"},
			{Name: "rating", Type: "float", Facet: pointer.True()},
			{Name: "review_count", Type: "int32"},
			{Name: "insurance", Type: "bool", Facet: pointer.True()},
			{Name: "location", Type: "geopoint", Optional: pointer.True()},
			{Name: "created_at", Type: "int64"},
		},
		DefaultSortingField: pointer.String("created_at"),
	}
}

// Index upserts a provider document
func (a *TypesenseAdapter) Index(ctx context.Context, doc *entities.ProviderDocument) error {
	_, err := a.client.Client().Collection(ProvidersCollection).Documents().Upsert(ctx, toDocument(doc))
	if err != nil {
		return fmt.Errorf("failed to index provider: %w", err)
	}
	return nil
}

// Delete removes a provider from the index
func (a *TypesenseAdapter) Delete(ctx context.Context, providerID string) error {
	_, err := a.client.Client().Collection(ProvidersCollection).Document(providerID).Delete(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete provider from index: %w", err)
	}
	return nil
}

// Search searches providers
func (a *TypesenseAdapter) Search(ctx context.Context, params repositories.ProviderSearchParams) (*repositories.ProviderSearchResult, error) {
	result, err := a.client.Client().Collection(ProvidersCollection).Documents().Search(ctx, buildSearchParams(params))
	if err != nil {
		return nil, fmt.Errorf("failed to search providers: %w", err)
	}

	out := &repositories.ProviderSearchResult{
		Providers: []*entities.ProviderDocument{},
		Page:      params.Page,
	}
	if result.Found != nil {
		out.TotalCount = *result.Found
	}
	if result.Hits != nil {
		for _, hit := range *result.Hits {
			if hit.Document == nil {
				continue
			}
			doc, err := fromDocument(*hit.Document)
			if err != nil {
				return nil, err
			}
			out.Providers = append(out.Providers, doc)
		}
	}
	if result.FacetCounts != nil {
		facets, err := decodeFacets(result.FacetCounts)
		if err != nil {
			return nil, err
		}
		out.Facets = facets
	}
	return out, nil
}

func toDocument(doc *entities.ProviderDocument) map[string]interface{} {
	categories := doc.ServiceCategories
	if categories == nil {
		categories = []string{}
	}
	out := map[string]interface{}{
		"id":                 doc.ID,
		"business_name":      doc.BusinessName,
		"service_categories": categories,
		"hourly_rate_min":    doc.HourlyRateMin,
		"hourly_rate_max":    doc.HourlyRateMax,
		"rating":             doc.Rating,
		"review_count":       doc.ReviewCount,
		"insurance":          doc.Insurance,
		"created_at":         doc.CreatedAt,
	}
	if doc.Bio != "" {
		out["bio"] = doc.Bio
	}
	if doc.Location != nil {
		out["location"] = []float64{doc.Location.Latitude, doc.Location.Longitude}
	}
	return out
}

func fromDocument(raw map[string]interface{}) (*entities.ProviderDocument, error) {
	location, hasLocation := raw["location"]
	delete(raw, "location")

	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to re-encode search hit: %w", err)
	}
	var doc entities.ProviderDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode search hit: %w", err)
	}

	if hasLocation {
		if pair, ok := location.([]interface{}); ok && len(pair) == 2 {
			lat, latOK := pair[0].(float64)
			lon, lonOK := pair[1].(float64)
			if latOK && lonOK {
				doc.Location = &entities.Location{Latitude: lat, Longitude: lon}
			}
		}
	}
	return &doc, nil
}

func buildSearchParams(params repositories.ProviderSearchParams) *api.SearchCollectionParams {
	q := strings.TrimSpace(params.Query)
	if q == "" {
		q = "*"
	}

	var filters []string
	if len(params.Categories) > 0 {
		filters = append(filters, fmt.Sprintf("service_categories:=[%s]", strings.Join(params.Categories, ",")))
	}
	if params.MinRating > 0 {
		filters = append(filters, fmt.Sprintf("rating:>=%g", params.MinRating))
	}
	if params.MaxHourlyRate > 0 {
		filters = append(filters, fmt.Sprintf("hourly_rate_min:<=%d", params.MaxHourlyRate))
	}
	sortBy := "rating:desc,review_count:desc"
	if params.Latitude != nil && params.Longitude != nil {
		filters = append(filters, fmt.Sprintf("location:(%f, %f, %g km)", *params.Latitude, *params.Longitude, params.RadiusKm))
		sortBy = fmt.Sprintf("location(%f, %f):asc,rating:desc", *params.Latitude, *params.Longitude)
	}

	sp := &api.SearchCollectionParams{
		Q:       pointer.String(q),
		QueryBy: pointer.String(queryBy),
		SortBy:  pointer.String(sortBy),
		FacetBy: pointer.String("service_categories"),
		Page:    pointer.Int(params.Page),
		PerPage: pointer.Int(params.PerPage),
	}
	if len(filters) > 0 {
		sp.FilterBy = pointer.String(strings.Join(filters, " && "))
	}
	return sp
}

type facetCounts struct {
	FieldName string `json:"field_name"`
	Counts    []struct {
		Count int    `json:"count"`
		Value string `json:"value"`
	} `json:"counts"`
}

// decodeFacets reads the facet section through its JSON form, which is
// stable across client versions.
func decodeFacets(raw interface{}) (map[string]map[string]int, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	var facets []facetCounts
	if err := json.Unmarshal(data, &facets); err != nil {
		return nil, fmt.Errorf("failed to decode facets: %w", err)
	}
	out := make(map[string]map[string]int, len(facets))
	for _, f := range facets {
		counts := make(map[string]int, len(f.Counts))
		for _, c := range f.Counts {
			counts[c.Value] = c.Count
		}
		out[f.FieldName] = counts
	}
	return out, nil
}
