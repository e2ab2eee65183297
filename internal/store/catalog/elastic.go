package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"scholarship-matcher/internal/common/logger"
	"scholarship-matcher/internal/models"
)

// DefaultPageSize is the number of hits requested per search round trip.
const DefaultPageSize = 500

// document is the indexed shape of a scholarship.
type document struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Levels           []string  `json:"levels"`
	FundingType      string    `json:"funding_type"`
	Field            string    `json:"field"`
	CountryCode      string    `json:"country_code"`
	Deadline         time.Time `json:"deadline"`
	IsPublished      bool      `json:"is_published"`
	MinGPAPercentage *float64  `json:"min_gpa_percentage"`
}

func (d document) toModel(hitID string) models.Scholarship {
	id := d.ID
	if id == "" {
		id = hitID
	}
	levels := make([]models.Level, 0, len(d.Levels))
	for _, l := range d.Levels {
		levels = append(levels, models.Level(l))
	}
	return models.Scholarship{
		ID:               id,
		Title:            d.Title,
		Levels:           levels,
		FundingType:      models.FundingType(d.FundingType),
		Field:            models.FieldOfStudy(d.Field),
		CountryCode:      d.CountryCode,
		Deadline:         d.Deadline,
		IsPublished:      d.IsPublished,
		MinGPAPercentage: d.MinGPAPercentage,
	}
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			ID     string        `json:"_id"`
			Source document      `json:"_source"`
			Sort   []interface{} `json:"sort"`
		} `json:"hits"`
	} `json:"hits"`
}

// ElasticCatalog queries the scholarships index.
type ElasticCatalog struct {
	client   *elasticsearch.Client
	index    string
	pageSize int
	logger   logger.Logger
}

func NewElasticCatalog(client *elasticsearch.Client, index string, pageSize int, log logger.Logger) *ElasticCatalog {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &ElasticCatalog{
		client:   client,
		index:    index,
		pageSize: pageSize,
		logger:   log.WithFields(map[string]interface{}{"component": "catalog", "index": index}),
	}
}

// BuildQuery renders the search body for c.
func BuildQuery(c Criteria) map[string]interface{} {
	filters := []interface{}{
		map[string]interface{}{"term": map[string]interface{}{"is_published": true}},
		map[string]interface{}{"range": map[string]interface{}{
			"deadline": map[string]interface{}{"gte": c.OpenAt.UTC().Format(time.RFC3339)},
		}},
	}
	if c.Level != "" {
		filters = append(filters, map[string]interface{}{
			"term": map[string]interface{}{"levels": string(c.Level)},
		})
	}
	if len(c.Fields) > 0 {
		fields := make([]string, 0, len(c.Fields))
		for _, f := range c.Fields {
			fields = append(fields, string(f))
		}
		filters = append(filters, map[string]interface{}{
			"terms": map[string]interface{}{"field": fields},
		})
	}
	if c.FullyFundedOnly {
		filters = append(filters, map[string]interface{}{
			"term": map[string]interface{}{"funding_type": string(models.FundingFull)},
		})
	}

	return map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{"filter": filters},
		},
		"sort": []interface{}{
			map[string]interface{}{"deadline": "asc"},
			map[string]interface{}{"id": "asc"},
		},
	}
}

// ListEligibleCandidates reads every hit for c, following the
// (deadline, id) sort with search_after until a short page comes back.
func (e *ElasticCatalog) ListEligibleCandidates(ctx context.Context, c Criteria) ([]models.Scholarship, error) {
	query := BuildQuery(c)
	out := []models.Scholarship{}
	pages := 0

	for {
		parsed, err := e.search(ctx, query)
		if err != nil {
			return nil, err
		}
		pages++

		hits := parsed.Hits.Hits
		for _, hit := range hits {
			out = append(out, hit.Source.toModel(hit.ID))
		}
		if len(hits) < e.pageSize {
			break
		}

		last := hits[len(hits)-1].Sort
		if len(last) == 0 {
			return nil, fmt.Errorf("%w: hit without sort values", ErrCatalogUnavailable)
		}
		query["search_after"] = last
	}

	e.logger.Debug("catalog query", map[string]interface{}{
		"candidates": len(out),
		"pages":      pages,
		"level":      string(c.Level),
	})
	return out, nil
}

func (e *ElasticCatalog) search(ctx context.Context, query map[string]interface{}) (*searchResponse, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("%w: encode query: %v", ErrCatalogUnavailable, err)
	}

	size := e.pageSize
	req := esapi.SearchRequest{
		Index: []string{e.index},
		Body:  bytes.NewReader(body),
		Size:  &size,
	}

	res, err := req.Do(ctx, e.client)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("%w: search failed: %s", ErrCatalogUnavailable, res.Status())
	}

	// Numbers stay json.Number so epoch-millis sort keys round-trip exactly.
	dec := json.NewDecoder(res.Body)
	dec.UseNumber()
	var parsed searchResponse
	if err := dec.Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrCatalogUnavailable, err)
	}
	return &parsed, nil
}
