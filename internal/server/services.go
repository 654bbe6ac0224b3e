package server

import (
	"fmt"

	"github.com/seattleguide/seattleguide/internal/agent"
	"github.com/seattleguide/seattleguide/internal/config"
	"github.com/seattleguide/seattleguide/internal/service"
)

// NewModel builds the conversational model selected by model.provider.
func NewModel(cfg *config.Config) (agent.Model, error) {
	m := cfg.Model
	switch m.Provider {
	case config.ProviderAnthropic:
		return agent.NewAnthropicModel(m.AnthropicAPIKey, m.Name, firstNonEmpty(m.BaseURL, m.AnthropicBaseURL)), nil
	case config.ProviderOpenAI:
		return agent.NewOpenAIModel(m.OpenAIAPIKey, m.Name, firstNonEmpty(m.BaseURL, m.OpenAIBaseURL)), nil
	default:
		return nil, fmt.Errorf("unknown model provider %q", m.Provider)
	}
}

// NewMapsService builds the mapping service client.
func NewMapsService(cfg *config.Config) (*service.MapsService, error) {
	timeout, err := config.Duration(cfg.Maps.Timeout, config.DefaultMapsTimeout)
	if err != nil {
		return nil, fmt.Errorf("maps.timeout: %w", err)
	}
	return service.NewMapsService(cfg.Maps.BaseURL, cfg.Maps.APIKey, timeout, nil), nil
}

// NewCorpus builds the corpus backend selected by corpus.backend.
func NewCorpus(cfg *config.Config) (service.CorpusSearcher, error) {
	c := cfg.Corpus
	switch c.Backend {
	case config.CorpusBackendRemote:
		timeout, err := config.Duration(c.Timeout, config.DefaultCorpusTimeout)
		if err != nil {
			return nil, fmt.Errorf("corpus.timeout: %w", err)
		}
		return service.NewRemoteCorpus(c.BaseURL, c.APIKey, timeout, nil), nil
	case config.CorpusBackendElasticsearch:
		es := c.Elasticsearch
		timeout, err := config.Duration(c.Timeout, config.DefaultCorpusTimeout)
		if err != nil {
			return nil, fmt.Errorf("corpus.timeout: %w", err)
		}
		corpus, err := service.NewElasticsearchCorpus(service.ElasticsearchOptions{
			Addresses:   es.Addresses,
			Username:    es.Username,
			Password:    es.Password,
			Index:       es.Index,
			MaxRetries:  es.MaxRetries,
			VerifyCerts: es.VerifyCerts,
			Timeout:     timeout,
		})
		if err != nil {
			return nil, err
		}
		return corpus, nil
	case config.CorpusBackendLocal:
		embed := service.NewOpenAIEmbedding(cfg.Model.OpenAIAPIKey, c.Local.EmbeddingModel)
		corpus, err := service.NewLocalCorpus(c.Local.Path, c.Local.Collection, embed)
		if err != nil {
			return nil, err
		}
		return corpus, nil
	default:
		return nil, fmt.Errorf("unknown corpus backend %q", c.Backend)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
