package service

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/rs/zerolog/log"
)

// ElasticsearchCorpus searches chunk documents stored in one Elasticsearch index.
// Documents have the shape {content, document_name, metadata{...}}.
type ElasticsearchCorpus struct {
	client  *elasticsearch.Client
	index   string
	timeout time.Duration
}

// ElasticsearchOptions configures the corpus client. Timeout bounds each
// search including retries; zero means no limit. Transport is for tests.
type ElasticsearchOptions struct {
	Addresses   []string
	Username    string
	Password    string
	Index       string
	MaxRetries  int
	VerifyCerts bool
	Timeout     time.Duration
	Transport   http.RoundTripper
}

func NewElasticsearchCorpus(opts ElasticsearchOptions) (*ElasticsearchCorpus, error) {
	cfg := elasticsearch.Config{
		Addresses:  opts.Addresses,
		MaxRetries: opts.MaxRetries,
		Transport:  opts.Transport,
	}
	if opts.Username != "" {
		cfg.Username = opts.Username
		cfg.Password = opts.Password
	}
	if opts.Transport == nil {
		tr := http.DefaultTransport.(*http.Transport).Clone()
		tr.ResponseHeaderTimeout = opts.Timeout
		if !opts.VerifyCerts {
			tr.TLSClientConfig = &tls.Config{
				InsecureSkipVerify: true, // #nosec G402 - verification explicitly disabled in config
			}
		}
		cfg.Transport = tr
	}

	client, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch.NewClient: %w", err)
	}
	return &ElasticsearchCorpus{client: client, index: opts.Index, timeout: opts.Timeout}, nil
}

func (s *ElasticsearchCorpus) Backend() string { return "elasticsearch" }

// TestConnection pings the cluster
func (s *ElasticsearchCorpus) TestConnection(ctx context.Context) error {
	res, err := s.client.Ping(s.client.Ping.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("ping error: %s", res.Status())
	}
	return nil
}

type esChunkSource struct {
	Content      string                 `json:"content"`
	DocumentName string                 `json:"document_name"`
	Metadata     map[string]interface{} `json:"metadata"`
}

type esSearchResponse struct {
	Hits struct {
		Hits []struct {
			Score  float64       `json:"_score"`
			Source esChunkSource `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// searchBody builds a match query on content. Filters use the keyword
// sub-field produced by dynamic mapping of metadata strings.
func searchBody(q CorpusQuery) map[string]interface{} {
	boolQuery := map[string]interface{}{
		"must": []interface{}{
			map[string]interface{}{"match": map[string]interface{}{"content": q.Query}},
		},
	}
	if len(q.Filter) > 0 {
		filters := make([]interface{}, 0, len(q.Filter))
		for k, v := range q.Filter {
			filters = append(filters, map[string]interface{}{
				"term": map[string]interface{}{"metadata." + k + ".keyword": v},
			})
		}
		boolQuery["filter"] = filters
	}

	body := map[string]interface{}{
		"query": map[string]interface{}{"bool": boolQuery},
	}
	if q.Limit > 0 {
		body["size"] = q.Limit
	}
	return body
}

func (s *ElasticsearchCorpus) Search(ctx context.Context, q CorpusQuery) ([]Chunk, error) {
	bodyBytes, err := json.Marshal(searchBody(q))
	if err != nil {
		return nil, fmt.Errorf("marshal search body: %w", err)
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(s.index),
		s.client.Search.WithBody(bytes.NewReader(bodyBytes)),
	)
	if err != nil {
		logCorpusCall(log.Error().Err(err), s.Backend(), q).Msg("corpus search failed")
		return nil, fmt.Errorf("%w: elasticsearch search: %v", ErrUpstream, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		body, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBodyLength))
		logCorpusCall(log.Error(), s.Backend(), q).Int("status", res.StatusCode).Str("response", string(body)).Msg("corpus search failed")
		return nil, fmt.Errorf("%w: elasticsearch error: %s", ErrUpstream, res.Status())
	}

	var parsed esSearchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: decode elasticsearch response: %v", ErrUpstream, err)
	}

	chunks := make([]Chunk, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		chunks = append(chunks, Chunk{
			Content:      h.Source.Content,
			Metadata:     h.Source.Metadata,
			DocumentName: h.Source.DocumentName,
			Score:        h.Score,
		})
	}

	logCorpusCall(log.Info(), s.Backend(), q).Int("status", res.StatusCode).Int("chunks", len(chunks)).Msg("corpus search")
	return chunks, nil
}

// IndexDocuments writes documents one by one and refreshes the index once at the end.
func (s *ElasticsearchCorpus) IndexDocuments(ctx context.Context, docs []CorpusDocument) error {
	for _, doc := range docs {
		meta := make(map[string]interface{}, len(doc.Metadata))
		for k, v := range doc.Metadata {
			meta[k] = v
		}
		body, err := json.Marshal(esChunkSource{
			Content:      doc.Content,
			DocumentName: doc.DocumentName,
			Metadata:     meta,
		})
		if err != nil {
			return fmt.Errorf("marshal document %s: %w", doc.ID, err)
		}

		req := esapi.IndexRequest{
			Index:      s.index,
			DocumentID: doc.ID,
			Body:       bytes.NewReader(body),
		}
		res, err := req.Do(ctx, s.client)
		if err != nil {
			return fmt.Errorf("index document %s: %w", doc.ID, err)
		}
		status := res.Status()
		isErr := res.IsError()
		res.Body.Close()
		if isErr {
			return fmt.Errorf("index document %s: %s", doc.ID, status)
		}
	}

	res, err := s.client.Indices.Refresh(
		s.client.Indices.Refresh.WithContext(ctx),
		s.client.Indices.Refresh.WithIndex(s.index),
	)
	if err != nil {
		return fmt.Errorf("refresh index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("refresh index: %s", strings.TrimSpace(res.Status()))
	}
	return nil
}
