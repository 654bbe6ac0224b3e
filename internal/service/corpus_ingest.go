package service

import (
	"fmt"
	"strings"
)

// DefaultChunkSize is the soft upper bound, in bytes, for one ingested chunk.
const DefaultChunkSize = 1200

// SplitDocument cuts text into paragraph-aligned chunks of at most maxSize
// bytes (a single oversized paragraph stays whole). Every chunk carries the
// document name as its source.
func SplitDocument(name, text string, maxSize int) []CorpusDocument {
	if maxSize <= 0 {
		maxSize = DefaultChunkSize
	}

	var (
		docs    []CorpusDocument
		current strings.Builder
	)
	flush := func() {
		content := strings.TrimSpace(current.String())
		current.Reset()
		if content == "" {
			return
		}
		docs = append(docs, CorpusDocument{
			ID:           fmt.Sprintf("%s-%d", name, len(docs)),
			DocumentName: name,
			Content:      content,
			Metadata:     map[string]string{"source": name},
		})
	}

	for _, para := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if current.Len() > 0 && current.Len()+len(para)+2 > maxSize {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
	}
	flush()

	return docs
}
