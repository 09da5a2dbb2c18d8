package rules

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	opensearch "github.com/opensearch-project/opensearch-go/v2"
)

// OpenSearchClient implements Client against a real OpenSearch cluster,
// the concrete collaborator Engine.New expects at startup.
type OpenSearchClient struct {
	client *opensearch.Client
	index  string
}

// NewOpenSearchClient wraps an already-configured opensearch-go client,
// scoping every Search call to index.
func NewOpenSearchClient(client *opensearch.Client, index string) *OpenSearchClient {
	return &OpenSearchClient{client: client, index: index}
}

// Search runs queryBody against the configured index and decodes the hit
// count, a small sample of source documents, and the reported took time.
func (c *OpenSearchClient) Search(ctx context.Context, queryBody map[string]any, timeoutMS int64) (SearchResult, error) {
	body, err := json.Marshal(queryBody)
	if err != nil {
		return SearchResult{}, fmt.Errorf("rules: encode opensearch query: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(timeoutMS)*time.Millisecond)
	defer cancel()

	res, err := c.client.Search(
		c.client.Search.WithContext(ctx),
		c.client.Search.WithIndex(c.index),
		c.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return SearchResult{}, fmt.Errorf("rules: opensearch search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return SearchResult{}, fmt.Errorf("rules: opensearch search returned %s", res.Status())
	}

	var parsed struct {
		Took int64 `json:"took"`
		Hits struct {
			Total struct {
				Value int `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source map[string]any `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return SearchResult{}, fmt.Errorf("rules: decode opensearch response: %w", err)
	}

	samples := make([]map[string]any, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		samples = append(samples, h.Source)
	}

	return SearchResult{
		TotalHits:  parsed.Hits.Total.Value,
		SampleHits: samples,
		TookMS:     parsed.Took,
	}, nil
}
