package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	// ErrUpstream marks a transport failure or non-success answer from an external service.
	ErrUpstream = errors.New("upstream request failed")
	// ErrMissingCredential marks a configuration error: the service cannot be called at all.
	ErrMissingCredential = errors.New("missing credential")
)

const (
	mapsKeyParam       = "key"
	maxLoggedResponse  = 2000
	maxErrorBodyLength = 300
)

// MapsService calls the read-only text search, geocoding and directions
// endpoints of the mapping service. The credential is always injected here and
// never accepted from callers.
type MapsService struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

// NewMapsService builds a client; a nil httpClient gets one with the given timeout.
func NewMapsService(baseURL, apiKey string, timeout time.Duration, httpClient *http.Client) *MapsService {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	return &MapsService{
		client:  httpClient,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
	}
}

// PlaceSearchRequest is a text search around a coordinate.
type PlaceSearchRequest struct {
	Query    string
	Location string
	Radius   float64
	OpenNow  *bool
}

// DirectionsRequest holds already-normalized origin and destination.
type DirectionsRequest struct {
	Origin      string
	Destination string
	Mode        string
}

// TextSearch runs a place text search and returns the raw JSON body.
func (s *MapsService) TextSearch(ctx context.Context, req PlaceSearchRequest) (string, error) {
	params := url.Values{}
	params.Set("query", req.Query)
	if req.Location != "" {
		params.Set("location", req.Location)
	}
	if req.Radius > 0 {
		params.Set("radius", strconv.FormatFloat(req.Radius, 'f', -1, 64))
	}
	if req.OpenNow != nil && *req.OpenNow {
		params.Set("opennow", "true")
	}
	return s.get(ctx, "place/textsearch/json", params)
}

// Geocode resolves a free-form address.
func (s *MapsService) Geocode(ctx context.Context, address string) (string, error) {
	params := url.Values{}
	params.Set("address", address)
	return s.get(ctx, "geocode/json", params)
}

// Directions fetches a route between two places.
func (s *MapsService) Directions(ctx context.Context, req DirectionsRequest) (string, error) {
	params := url.Values{}
	params.Set("origin", req.Origin)
	params.Set("destination", req.Destination)
	if req.Mode != "" {
		params.Set("mode", req.Mode)
	}
	return s.get(ctx, "directions/json", params)
}

// mapsStatus is the envelope every mapping endpoint wraps its payload in.
type mapsStatus struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
}

func (s *MapsService) get(ctx context.Context, endpoint string, params url.Values) (string, error) {
	if s.apiKey == "" {
		return "", fmt.Errorf("%w: mapping service key is not configured, set GOOGLE_MAPS_API_KEY", ErrMissingCredential)
	}

	query := url.Values{}
	for k, v := range params {
		query[k] = v
	}
	query.Set(mapsKeyParam, s.apiKey)

	evt := func(e *zerolog.Event) *zerolog.Event {
		return e.Str("service", "maps").Str("endpoint", endpoint).Dict("args", argsDict(params))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/"+endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("build %s request: %w", endpoint, err)
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		err = redactURLError(err)
		evt(log.Error()).Err(err).Msg("maps call failed")
		return "", fmt.Errorf("%w: %s: %v", ErrUpstream, endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		evt(log.Error()).Err(err).Int("status", resp.StatusCode).Msg("maps call failed")
		return "", fmt.Errorf("%w: %s: read body: %v", ErrUpstream, endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		evt(log.Error()).Int("status", resp.StatusCode).Str("response", truncate(string(body), maxErrorBodyLength)).Msg("maps call failed")
		return "", fmt.Errorf("%w: %s returned %d", ErrUpstream, endpoint, resp.StatusCode)
	}

	var st mapsStatus
	if err := json.Unmarshal(body, &st); err == nil && st.Status != "" && st.Status != "OK" && st.Status != "ZERO_RESULTS" {
		evt(log.Error()).Int("status", resp.StatusCode).Str("api_status", st.Status).Str("error_message", st.ErrorMessage).Msg("maps call failed")
		return "", fmt.Errorf("%w: %s status %s: %s", ErrUpstream, endpoint, st.Status, st.ErrorMessage)
	}

	evt(log.Info()).Int("status", resp.StatusCode).Str("response", truncate(string(body), maxLoggedResponse)).Msg("maps call")
	return string(body), nil
}

// argsDict renders call arguments for logging; the credential never reaches it.
func argsDict(params url.Values) *zerolog.Event {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == mapsKeyParam {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	d := zerolog.Dict()
	for _, k := range keys {
		d = d.Str(k, params.Get(k))
	}
	return d
}

// redactURLError drops the request URL (which carries the key) from client errors.
func redactURLError(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return fmt.Errorf("%s: %w", uerr.Op, uerr.Err)
	}
	return err
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
