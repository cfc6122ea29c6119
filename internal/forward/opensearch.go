package forward

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
)

// OpenSearchPublisher bulk-indexes documents into daily indices named
// <prefix>-YYYY.MM.DD after each document's observation time.
type OpenSearchPublisher struct {
	client *opensearch.Client
	prefix string
}

// NewOpenSearchPublisher creates a publisher for the given cluster addresses.
func NewOpenSearchPublisher(addresses []string, prefix string) (*OpenSearchPublisher, error) {
	if len(addresses) == 0 {
		return nil, fmt.Errorf("opensearch: no addresses configured")
	}
	if prefix == "" {
		prefix = "lognorm"
	}
	client, err := opensearch.NewClient(opensearch.Config{Addresses: addresses})
	if err != nil {
		return nil, fmt.Errorf("failed to create opensearch client: %w", err)
	}
	return &OpenSearchPublisher{client: client, prefix: prefix}, nil
}

func (p *OpenSearchPublisher) Name() string { return "opensearch" }

func (p *OpenSearchPublisher) Publish(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	body, err := bulkBody(p.prefix, docs)
	if err != nil {
		return err
	}

	req := opensearchapi.BulkRequest{Body: bytes.NewReader(body)}
	res, err := req.Do(ctx, p.client)
	if err != nil {
		return fmt.Errorf("failed to execute bulk request: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("opensearch bulk error: %s", res.String())
	}
	return nil
}

func (p *OpenSearchPublisher) Close() error { return nil }

// bulkBody renders docs in the _bulk NDJSON format.
func bulkBody(prefix string, docs []Document) ([]byte, error) {
	var buf bytes.Buffer
	for _, doc := range docs {
		index := fmt.Sprintf("%s-%s", prefix, doc.ObservedAt.UTC().Format("2006.01.02"))
		meta, err := json.Marshal(map[string]map[string]string{"index": {"_index": index}})
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("marshal document %s:%d: %w", doc.Source, doc.Line, err)
		}
		buf.Write(meta)
		buf.WriteByte('\n')
		buf.Write(data)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}
