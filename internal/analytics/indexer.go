// internal/analytics/indexer.go
package analytics

import (
	"context"
	"encoding/json"

	"autoparts-relay/internal/common/database"
	"autoparts-relay/internal/models"
)

// ESIndexer writes analytics events into an Elasticsearch index for ad-hoc
// analysis. Callers treat indexing failures the same as any other analytics
// failure: logged, never propagated.
type ESIndexer struct {
	es    *database.ElasticsearchClient
	index string
}

func NewESIndexer(es *database.ElasticsearchClient, index string) *ESIndexer {
	return &ESIndexer{es: es, index: index}
}

func (i *ESIndexer) Index(ctx context.Context, event models.AnalyticsEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return i.es.Index(ctx, i.index, event.ID, body)
}
