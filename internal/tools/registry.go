package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/seattleguide/seattleguide/internal/config"
	"github.com/seattleguide/seattleguide/internal/service"
)

var (
	ErrUnknownTool      = errors.New("unknown tool")
	ErrInvalidArguments = errors.New("invalid tool arguments")
)

// MapsClient is the subset of the mapping service the tools call.
type MapsClient interface {
	TextSearch(ctx context.Context, req service.PlaceSearchRequest) (string, error)
	Geocode(ctx context.Context, address string) (string, error)
	Directions(ctx context.Context, req service.DirectionsRequest) (string, error)
}

// Config holds the values tool constructors close over.
type Config struct {
	DefaultLocation string
	DefaultRadius   float64
	RegionSuffix    string
	DirectionsMode  string
	CorpusLimit     int
}

// ConfigFrom extracts tool settings from the service configuration.
func ConfigFrom(c *config.Config) Config {
	return Config{
		DefaultLocation: c.Maps.DefaultLocation,
		DefaultRadius:   c.Maps.DefaultRadius,
		RegionSuffix:    c.Maps.RegionSuffix,
		DirectionsMode:  c.Maps.DirectionsMode,
		CorpusLimit:     c.Corpus.DefaultLimit,
	}
}

// Services are the process-wide clients tools call into.
type Services struct {
	Maps   MapsClient
	Corpus service.CorpusSearcher
}

// Registry maps tool names to tools. It is built per request and not shared.
type Registry struct {
	tools map[Name]Tool
}

func newRegistry() *Registry {
	return &Registry{tools: make(map[Name]Tool)}
}

// NewRegistry builds a registry holding the named tools. It does no I/O.
func NewRegistry(cfg Config, svc Services, names ...Name) (*Registry, error) {
	r := newRegistry()
	for _, name := range names {
		var t Tool
		switch name {
		case SearchPlaces, GeocodeAddress, GetDirections:
			if svc.Maps == nil {
				return nil, fmt.Errorf("tool %s: mapping service not configured", name)
			}
			switch name {
			case SearchPlaces:
				t = SearchPlacesTool(svc.Maps, cfg)
			case GeocodeAddress:
				t = GeocodeTool(svc.Maps)
			default:
				t = DirectionsTool(svc.Maps, cfg)
			}
		case SearchCorpus:
			if svc.Corpus == nil {
				return nil, fmt.Errorf("tool %s: corpus backend not configured", name)
			}
			t = CorpusSearchTool(svc.Corpus, cfg)
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownTool, name)
		}
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a tool. Names must be known and unique within the registry.
func (r *Registry) Register(t Tool) error {
	if err := t.validate(); err != nil {
		return err
	}
	if _, exists := r.tools[t.Name]; exists {
		return fmt.Errorf("tool %s already registered", t.Name)
	}
	r.tools[t.Name] = t
	return nil
}

// Tools returns the registered tools sorted by name.
func (r *Registry) Tools() []Tool {
	out := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names returns the registered tool names sorted.
func (r *Registry) Names() []Name {
	tools := r.Tools()
	names := make([]Name, len(tools))
	for i, t := range tools {
		names[i] = t.Name
	}
	return names
}

func (r *Registry) Len() int { return len(r.tools) }

// Dispatch validates raw JSON arguments against the named tool's parameters
// and invokes it. Nothing is called when validation fails.
func (r *Registry) Dispatch(ctx context.Context, name string, raw json.RawMessage) (string, error) {
	t, ok := r.tools[Name(name)]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownTool, name)
	}
	args, err := t.bind(raw)
	if err != nil {
		return "", fmt.Errorf("tool %s: %w", name, err)
	}
	result, err := t.Execute(ctx, args)
	if err != nil {
		return "", fmt.Errorf("tool %s: %w", name, err)
	}
	return result, nil
}

// ForIntents maps routed intents to tool names, without duplicates.
func ForIntents(intents []service.Intent) []Name {
	seen := make(map[Name]bool)
	var names []Name
	for _, in := range intents {
		var n Name
		switch in {
		case service.IntentPlaces:
			n = SearchPlaces
		case service.IntentGeocode:
			n = GeocodeAddress
		case service.IntentDirections:
			n = GetDirections
		case service.IntentCorpus:
			n = SearchCorpus
		default:
			continue
		}
		if !seen[n] {
			seen[n] = true
			names = append(names, n)
		}
	}
	return names
}
