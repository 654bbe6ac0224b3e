package service

import (
	"strings"
	"unicode"
)

// Intent is a kind of external lookup a message may need.
type Intent string

const (
	IntentPlaces     Intent = "places"
	IntentGeocode    Intent = "geocode"
	IntentDirections Intent = "directions"
	IntentCorpus     Intent = "corpus"
)

var directionsKeywords = []string{
	"direction", "how do i get", "how to get", "get to", "get from", "route",
	"drive to", "driving", "walk to", "walking", "bike to", "bus to", "transit",
	"light rail", "ferry to", "how far", "how long does it take",
}

var placesKeywords = []string{
	"restaurant", "coffee", "cafe", "café", "bar", "brewer", "bakery",
	"hotel", "museum", "gallery", "park", "shop", "store", "market",
	"near", "nearby", "close to", "around here", "where can i", "where should i eat",
	"eat", "food", "dinner", "lunch", "breakfast", "brunch", "seafood", "open now",
}

var geocodeKeywords = []string{
	"where is", "where's", "address of", "address for", "located", "location of",
	"coordinates", "latitude", "longitude", "zip code",
}

var corpusKeywords = []string{
	"seattle", "visit", "visiting", "trip", "travel", "itinerary", "things to do",
	"recommend", "suggest", "tips", "guide", "neighborhood", "neighbourhood",
	"weekend", "day trip", "season", "rain", "weather", "festival", "tour",
	"pike place", "space needle", "capitol hill", "ballard", "fremont", "queen anne",
	"pioneer square", "belltown", "south lake union", "georgetown", "u district",
	"waterfront", "puget sound", "mount rainier", "mt rainier", "bainbridge",
	"discovery park", "chihuly", "mopop", "kerry park",
}

// RoutingResult contains the intents detected in a message.
type RoutingResult struct {
	Intents    []Intent
	Confidence float64
	Reasoning  string
}

// IntentRouter maps the latest user message to the lookups worth offering.
type IntentRouter struct{}

func NewIntentRouter() *IntentRouter {
	return &IntentRouter{}
}

// Route scores each intent by keyword hits. No hits means no augmentation:
// the model answers from its own context and nothing external is called.
func (r *IntentRouter) Route(prompt string) RoutingResult {
	lower := normalize(prompt)

	scores := []struct {
		intent   Intent
		keywords []string
	}{
		{IntentDirections, directionsKeywords},
		{IntentPlaces, placesKeywords},
		{IntentGeocode, geocodeKeywords},
		{IntentCorpus, corpusKeywords},
	}

	var (
		intents []Intent
		hits    int
		matched int
	)
	for _, s := range scores {
		n := countMatches(lower, s.keywords)
		if n > 0 {
			intents = append(intents, s.intent)
			hits += n
			matched++
		}
	}

	if hits == 0 {
		return RoutingResult{
			Confidence: 1.0,
			Reasoning:  "no travel-related keywords, answering without lookups",
		}
	}

	// A message that hits only one intent is routed with more certainty than
	// one spread across several.
	return RoutingResult{
		Intents:    intents,
		Confidence: 1.0 / float64(matched),
		Reasoning:  "matched keywords for " + joinIntents(intents),
	}
}

// countMatches counts keywords found at a word start, so "eat" matches
// "eating" but not "great".
func countMatches(normalized string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if strings.Contains(normalized, normalize(kw)) {
			n++
		}
	}
	return n
}

// normalize lowercases s and collapses punctuation into single spaces, with a
// leading space so every word is preceded by one.
func normalize(s string) string {
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return " " + strings.Join(words, " ")
}

func joinIntents(intents []Intent) string {
	parts := make([]string, len(intents))
	for i, in := range intents {
		parts[i] = string(in)
	}
	return strings.Join(parts, ", ")
}
