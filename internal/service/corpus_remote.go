package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// RemoteCorpus calls the hosted corpus search API with a bearer token.
type RemoteCorpus struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

func NewRemoteCorpus(baseURL, apiKey string, timeout time.Duration, httpClient *http.Client) *RemoteCorpus {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	return &RemoteCorpus{
		client:  httpClient,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
	}
}

func (c *RemoteCorpus) Backend() string { return "remote" }

type remoteSearchRequest struct {
	QueryString    string            `json:"query_string"`
	ChunkLimit     int               `json:"chunk_limit,omitempty"`
	MetadataFilter map[string]string `json:"metadata_filter,omitempty"`
}

type remoteSearchResponse struct {
	Chunks []Chunk `json:"chunks"`
}

// Search posts one query; any status other than 200 is an error.
func (c *RemoteCorpus) Search(ctx context.Context, q CorpusQuery) ([]Chunk, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("%w: corpus service key is not configured, set CORPUS_API_KEY", ErrMissingCredential)
	}

	payload, err := json.Marshal(remoteSearchRequest{
		QueryString:    q.Query,
		ChunkLimit:     q.Limit,
		MetadataFilter: q.Filter,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal corpus request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build corpus request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		logCorpusCall(log.Error().Err(err), c.Backend(), q).Msg("corpus search failed")
		return nil, fmt.Errorf("%w: corpus search: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyLength))
		logCorpusCall(log.Error(), c.Backend(), q).Int("status", resp.StatusCode).Str("response", string(body)).Msg("corpus search failed")
		return nil, fmt.Errorf("%w: corpus search returned %d", ErrUpstream, resp.StatusCode)
	}

	var out remoteSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		logCorpusCall(log.Error().Err(err), c.Backend(), q).Int("status", resp.StatusCode).Msg("corpus search failed")
		return nil, fmt.Errorf("%w: decode corpus response: %v", ErrUpstream, err)
	}

	logCorpusCall(log.Info(), c.Backend(), q).Int("status", resp.StatusCode).Int("chunks", len(out.Chunks)).Msg("corpus search")
	return out.Chunks, nil
}
