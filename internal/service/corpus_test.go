package service_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seattleguide/seattleguide/internal/service"
)

func TestFormatChunks_SourceOrder(t *testing.T) {
	chunks := []service.Chunk{
		{Content: "Take the water taxi to West Seattle.", Metadata: map[string]interface{}{"source": "blogA"}},
		{Content: "Go early to Pike Place.", Metadata: map[string]interface{}{"source": "blogB"}},
	}

	out := service.FormatChunks(chunks)

	assert.Equal(t, 2, strings.Count(out, "Chunk from source: "))
	a := strings.Index(out, "Chunk from source: blogA\n```\nTake the water taxi to West Seattle.\n```")
	b := strings.Index(out, "Chunk from source: blogB\n```\nGo early to Pike Place.\n```")
	require.GreaterOrEqual(t, a, 0)
	require.GreaterOrEqual(t, b, 0)
	assert.Less(t, a, b)
	assert.Contains(t, out, "```\n\nChunk from source: blogB")
}

func TestFormatChunks_ContentWithFence(t *testing.T) {
	content := "Ferry schedule:\n```\n7:05 Bainbridge\n```\nArrive early."
	out := service.FormatChunks([]service.Chunk{
		{Content: content, Metadata: map[string]interface{}{"source": "wsdot"}},
		{Content: "Plain text.", Metadata: map[string]interface{}{"source": "blogB"}},
	})

	assert.Contains(t, out, "Chunk from source: wsdot\n````\n"+content+"\n````")
	assert.Contains(t, out, "Chunk from source: blogB\n```\nPlain text.\n```")
}

func TestFormatChunks_Empty(t *testing.T) {
	assert.Equal(t, "No matching documents found.", service.FormatChunks(nil))
}

func TestChunkSource_Fallbacks(t *testing.T) {
	assert.Equal(t, "guide.md", service.Chunk{DocumentName: "guide.md"}.Source())
	assert.Equal(t, "unknown", service.Chunk{}.Source())
	assert.Equal(t, "blogA", service.Chunk{
		DocumentName: "guide.md",
		Metadata:     map[string]interface{}{"source": "blogA"},
	}.Source())
}

func TestRemoteCorpus_Search(t *testing.T) {
	var (
		mu       sync.Mutex
		gotAuth  string
		gotPath  string
		gotBody  map[string]interface{}
		gotCType string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		gotAuth = r.Header.Get("Authorization")
		gotCType = r.Header.Get("Content-Type")
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(`{"chunks":[
			{"content":"first","metadata":{"source":"blogA"},"document_name":"a.md","score":0.9},
			{"content":"second","metadata":{"source":"blogB"},"document_name":"b.md","score":0.7}
		]}`))
	}))
	defer srv.Close()

	c := service.NewRemoteCorpus(srv.URL+"/", "corpus-token", time.Second, nil)
	chunks, err := c.Search(context.Background(), service.CorpusQuery{
		Query:  "rainy day museums",
		Limit:  2,
		Filter: map[string]string{"source": "blogA"},
	})
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "blogA", chunks[0].Source())
	assert.Equal(t, "blogB", chunks[1].Source())
	assert.InDelta(t, 0.9, chunks[0].Score, 1e-9)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "/search", gotPath)
	assert.Equal(t, "Bearer corpus-token", gotAuth)
	assert.Equal(t, "application/json", gotCType)
	assert.Equal(t, "rainy day museums", gotBody["query_string"])
	assert.EqualValues(t, 2, gotBody["chunk_limit"])
	assert.Equal(t, map[string]interface{}{"source": "blogA"}, gotBody["metadata_filter"])
}

func TestRemoteCorpus_OmitsOptionalFields(t *testing.T) {
	var raw []byte
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		raw, _ = io.ReadAll(r.Body)
		mu.Unlock()
		_, _ = w.Write([]byte(`{"chunks":[]}`))
	}))
	defer srv.Close()

	c := service.NewRemoteCorpus(srv.URL, "corpus-token", time.Second, nil)
	chunks, err := c.Search(context.Background(), service.CorpusQuery{Query: "ferries"})
	require.NoError(t, err)
	assert.Empty(t, chunks)

	mu.Lock()
	defer mu.Unlock()
	assert.JSONEq(t, `{"query_string":"ferries"}`, string(raw))
}

func TestRemoteCorpus_Non200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"chunks":[]}`))
	}))
	defer srv.Close()

	c := service.NewRemoteCorpus(srv.URL, "corpus-token", time.Second, nil)
	chunks, err := c.Search(context.Background(), service.CorpusQuery{Query: "ferries"})
	require.ErrorIs(t, err, service.ErrUpstream)
	assert.Nil(t, chunks)
}

func TestRemoteCorpus_MissingKey(t *testing.T) {
	c := service.NewRemoteCorpus("http://127.0.0.1:1", "", time.Second, nil)
	_, err := c.Search(context.Background(), service.CorpusQuery{Query: "ferries"})
	require.ErrorIs(t, err, service.ErrMissingCredential)
	assert.Contains(t, err.Error(), "CORPUS_API_KEY")
}

// newFakeElasticsearch answers the few endpoints the corpus backend uses.
func newFakeElasticsearch(t *testing.T, searchStatus int) (*httptest.Server, func() []map[string]interface{}) {
	t.Helper()
	var (
		mu     sync.Mutex
		bodies []map[string]interface{}
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")

		switch {
		case r.Method == http.MethodHead && r.URL.Path == "/":
			w.WriteHeader(http.StatusOK)
		case strings.HasSuffix(r.URL.Path, "/_search"):
			var body map[string]interface{}
			_ = json.NewDecoder(r.Body).Decode(&body)
			mu.Lock()
			bodies = append(bodies, body)
			mu.Unlock()
			w.WriteHeader(searchStatus)
			_, _ = w.Write([]byte(`{"hits":{"hits":[
				{"_score":3.2,"_source":{"content":"Kerry Park has the classic skyline view.","document_name":"views.md","metadata":{"source":"blogA"}}},
				{"_score":1.1,"_source":{"content":"Gas Works Park at sunset.","document_name":"parks.md","metadata":{}}}
			]}}`))
		case strings.Contains(r.URL.Path, "/_doc/"):
			var body map[string]interface{}
			_ = json.NewDecoder(r.Body).Decode(&body)
			mu.Lock()
			bodies = append(bodies, body)
			mu.Unlock()
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"result":"created"}`))
		case strings.HasSuffix(r.URL.Path, "/_refresh"):
			_, _ = w.Write([]byte(`{}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, func() []map[string]interface{} {
		mu.Lock()
		defer mu.Unlock()
		return append([]map[string]interface{}(nil), bodies...)
	}
}

func TestElasticsearchCorpus_Search(t *testing.T) {
	srv, bodies := newFakeElasticsearch(t, http.StatusOK)
	es, err := service.NewElasticsearchCorpus(service.ElasticsearchOptions{
		Addresses:   []string{srv.URL},
		Index:       "seattle-corpus",
		VerifyCerts: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "elasticsearch", es.Backend())
	require.NoError(t, es.TestConnection(context.Background()))

	chunks, err := es.Search(context.Background(), service.CorpusQuery{
		Query:  "skyline view",
		Limit:  2,
		Filter: map[string]string{"source": "blogA"},
	})
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "blogA", chunks[0].Source())
	assert.Equal(t, "parks.md", chunks[1].Source())
	assert.InDelta(t, 3.2, chunks[0].Score, 1e-9)

	sent := bodies()
	require.Len(t, sent, 1)
	raw, err := json.Marshal(sent[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"size": 2,
		"query": {"bool": {
			"must": [{"match": {"content": "skyline view"}}],
			"filter": [{"term": {"metadata.source.keyword": "blogA"}}]
		}}
	}`, string(raw))
}

func TestElasticsearchCorpus_SearchError(t *testing.T) {
	srv, _ := newFakeElasticsearch(t, http.StatusInternalServerError)
	es, err := service.NewElasticsearchCorpus(service.ElasticsearchOptions{
		Addresses:   []string{srv.URL},
		Index:       "seattle-corpus",
		VerifyCerts: true,
	})
	require.NoError(t, err)

	_, err = es.Search(context.Background(), service.CorpusQuery{Query: "ferries"})
	require.ErrorIs(t, err, service.ErrUpstream)
}

func TestElasticsearchCorpus_SearchTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(3 * time.Second):
		}
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		_, _ = w.Write([]byte(`{"hits":{"hits":[]}}`))
	}))
	t.Cleanup(srv.Close)

	es, err := service.NewElasticsearchCorpus(service.ElasticsearchOptions{
		Addresses:   []string{srv.URL},
		Index:       "seattle-corpus",
		VerifyCerts: true,
		Timeout:     100 * time.Millisecond,
	})
	require.NoError(t, err)

	start := time.Now()
	_, err = es.Search(context.Background(), service.CorpusQuery{Query: "ferries"})
	require.ErrorIs(t, err, service.ErrUpstream)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestElasticsearchCorpus_IndexDocuments(t *testing.T) {
	srv, bodies := newFakeElasticsearch(t, http.StatusOK)
	es, err := service.NewElasticsearchCorpus(service.ElasticsearchOptions{
		Addresses:   []string{srv.URL},
		Index:       "seattle-corpus",
		VerifyCerts: true,
	})
	require.NoError(t, err)

	docs := service.SplitDocument("ferries", "Take the Bainbridge ferry.\n\nSit on the west side.", 10)
	require.NoError(t, es.IndexDocuments(context.Background(), docs))

	sent := bodies()
	require.Len(t, sent, 2)
	assert.Equal(t, "Take the Bainbridge ferry.", sent[0]["content"])
	assert.Equal(t, "ferries", sent[0]["document_name"])
	assert.Equal(t, map[string]interface{}{"source": "ferries"}, sent[0]["metadata"])
}

// wordEmbedding is a deterministic bag-of-words embedding over a tiny vocabulary.
func wordEmbedding(_ context.Context, text string) ([]float32, error) {
	vocab := []string{"coffee", "ferry", "market", "rain"}
	vec := make([]float32, len(vocab)+1)
	lower := strings.ToLower(text)
	for i, w := range vocab {
		vec[i] = float32(strings.Count(lower, w))
	}
	vec[len(vocab)] = 0.1
	return vec, nil
}

func TestLocalCorpus_SearchAndFilter(t *testing.T) {
	lc, err := service.NewLocalCorpus("", "test", wordEmbedding)
	require.NoError(t, err)
	assert.Equal(t, "local", lc.Backend())
	require.Error(t, lc.TestConnection(context.Background()))

	ctx := context.Background()
	require.NoError(t, lc.IndexDocuments(ctx, []service.CorpusDocument{
		{ID: "c1", DocumentName: "coffee.md", Content: "Coffee coffee everywhere, try a coffee roastery.", Metadata: map[string]string{"source": "blogA"}},
		{ID: "f1", DocumentName: "ferry.md", Content: "The ferry to Bainbridge leaves from the ferry terminal.", Metadata: map[string]string{"source": "blogB"}},
		{ID: "m1", DocumentName: "market.md", Content: "Pike Place market in the rain.", Metadata: map[string]string{"source": "blogB"}},
	}))
	assert.Equal(t, 3, lc.Count())
	require.NoError(t, lc.TestConnection(ctx))

	chunks, err := lc.Search(ctx, service.CorpusQuery{Query: "best coffee", Limit: 1})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "blogA", chunks[0].Source())
	assert.Equal(t, "coffee.md", chunks[0].DocumentName)
	assert.Greater(t, chunks[0].Score, 0.0)

	// Limit larger than the collection is clamped.
	chunks, err = lc.Search(ctx, service.CorpusQuery{Query: "ferry", Limit: 50})
	require.NoError(t, err)
	assert.Len(t, chunks, 3)
	assert.Equal(t, "ferry.md", chunks[0].DocumentName)

	chunks, err = lc.Search(ctx, service.CorpusQuery{Query: "coffee", Limit: 3, Filter: map[string]string{"source": "blogB"}})
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	for _, c := range chunks {
		assert.Equal(t, "blogB", c.Source())
	}
}

func TestLocalCorpus_EmptyCollection(t *testing.T) {
	lc, err := service.NewLocalCorpus("", "empty", wordEmbedding)
	require.NoError(t, err)

	chunks, err := lc.Search(context.Background(), service.CorpusQuery{Query: "coffee", Limit: 5})
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestSplitDocument(t *testing.T) {
	text := "First paragraph.\r\n\r\nSecond paragraph.\n\n\n\nA third, rather longer paragraph."

	docs := service.SplitDocument("seattle-basics", text, 40)
	require.Len(t, docs, 2)
	assert.Equal(t, "seattle-basics-0", docs[0].ID)
	assert.Equal(t, "First paragraph.\n\nSecond paragraph.", docs[0].Content)
	assert.Equal(t, "A third, rather longer paragraph.", docs[1].Content)
	assert.Equal(t, "seattle-basics-1", docs[1].ID)
	for _, d := range docs {
		assert.Equal(t, "seattle-basics", d.DocumentName)
		assert.Equal(t, map[string]string{"source": "seattle-basics"}, d.Metadata)
	}

	assert.Len(t, service.SplitDocument("one", text, 0), 1)
	assert.Empty(t, service.SplitDocument("blank", "\n\n  \n", 100))
}
