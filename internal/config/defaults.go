package config

const (
	DefaultHost        = "0.0.0.0"
	DefaultPort        = 8000
	DefaultEnvironment = "development"
	DefaultAPIPrefix   = "/api/v1"
	DefaultLogLevel    = "info"

	DefaultReadTimeout     = "15s"
	DefaultWriteTimeout    = "610s" // above the longest chat timeout
	DefaultIdleTimeout     = "120s"
	DefaultShutdownTimeout = "10s"

	DefaultAPIKeyHeader       = "X-API-Key"
	DefaultRateLimitPerMinute = 60

	DefaultMaxMessageLength = 4000

	DefaultModelProvider      = "anthropic"
	DefaultAnthropicModel     = "claude-sonnet-4-6"
	DefaultOpenAIModel        = "gpt-4o"
	DefaultModelMaxTokens     = 1024
	DefaultModelMaxIterations = 6

	DefaultRoutingMode = RoutingModeKeyword

	DefaultMapsBaseURL     = "https://maps.googleapis.com/maps/api"
	DefaultMapsTimeout     = "30s"
	DefaultMapsLocation    = "47.6062,-122.3321" // downtown Seattle
	DefaultMapsRadius      = 1000
	DefaultMapsRegion      = "WA"
	DefaultDirectionsMode  = "transit"
	DefaultCorpusBackend   = CorpusBackendRemote
	DefaultCorpusBaseURL   = "https://api.seattleguide.app/corpus/v1"
	DefaultCorpusTimeout   = "30s"
	DefaultCorpusLimit     = 5
	DefaultCorpusESIndex   = "seattle-corpus"
	DefaultCorpusLocalPath = "data/corpus"
	DefaultCorpusLocalName = "seattle"
	DefaultEmbeddingModel  = "text-embedding-3-small"
)

const (
	RoutingModeKeyword = "keyword"
	RoutingModeModel   = "model"

	CorpusBackendRemote        = "remote"
	CorpusBackendElasticsearch = "elasticsearch"
	CorpusBackendLocal         = "local"

	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
)

var DefaultCORSOrigins = []string{
	"http://localhost:3000",
	"http://localhost:8080",
}

var DefaultESAddresses = []string{"http://localhost:9200"}

// DefaultPIIKeywords block messages that look like they carry secrets.
var DefaultPIIKeywords = []string{
	"my password", "password is", "password:", "credit card number", "card number", "cvv",
	"ssn", "social security number", "passport number",
}
