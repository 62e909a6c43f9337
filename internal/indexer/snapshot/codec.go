// Package snapshot persists an inverted index as a single UTF-8 JSON
// document and restores it with integrity checks. Stores move the encoded
// bytes to and from a file or a PostgreSQL table.
package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/textsearch/pkg/errors"
)

// FormatVersion is written into every snapshot. Snapshots without a version
// field are accepted as version 0.
const FormatVersion = 1

type fileFormat struct {
	Version   int                        `json:"version"`
	TotalDocs *int                       `json:"total_docs,omitempty"`
	Terms     map[string]map[string]int  `json:"terms"`
	Documents map[string]*index.Document `json:"documents"`
}

// Encode serialises idx to indented JSON. Non-ASCII text is written as-is.
func Encode(idx *index.Index) ([]byte, error) {
	entries := idx.Snapshot()
	terms := make(map[string]map[string]int, len(entries))
	for _, entry := range entries {
		docs := make(map[string]int, len(entry.Postings))
		for _, p := range entry.Postings {
			docs[p.DocID] = p.Frequency
		}
		terms[entry.Term] = docs
	}
	documents := make(map[string]*index.Document)
	for _, doc := range idx.Documents() {
		documents[doc.ID] = doc
	}
	total := len(documents)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(fileFormat{
		Version:   FormatVersion,
		TotalDocs: &total,
		Terms:     terms,
		Documents: documents,
	}); err != nil {
		return nil, fmt.Errorf("encoding index snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses and validates a snapshot. Every failure wraps
// errors.ErrCorruptIndex. The document count is recomputed from the
// document table; a stored total_docs must agree with it. Postings are
// taken as stored and are not re-derived from document text.
func Decode(data []byte, tok *tokenizer.Tokenizer) (*index.Index, error) {
	var raw fileFormat
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, apperrors.Corruptf("parsing snapshot: %v", err)
	}
	if raw.Version < 0 || raw.Version > FormatVersion {
		return nil, apperrors.Corruptf("unsupported snapshot version %d", raw.Version)
	}
	if raw.Terms == nil {
		return nil, apperrors.Corruptf("snapshot has no terms table")
	}
	if raw.Documents == nil {
		return nil, apperrors.Corruptf("snapshot has no documents table")
	}
	for key, doc := range raw.Documents {
		if doc == nil {
			return nil, apperrors.Corruptf("document %q is null", key)
		}
		if doc.ID != key {
			return nil, apperrors.Corruptf("document key %q does not match id %q", key, doc.ID)
		}
		if doc.TermCount < 0 {
			return nil, apperrors.Corruptf("document %q has negative term count", key)
		}
	}
	for term, docs := range raw.Terms {
		if docs == nil {
			return nil, apperrors.Corruptf("term %q has null postings", term)
		}
		for docID, freq := range docs {
			doc, ok := raw.Documents[docID]
			if !ok {
				return nil, apperrors.Corruptf("term %q references unknown document %q", term, docID)
			}
			if freq < 1 {
				return nil, apperrors.Corruptf("term %q has frequency %d for document %q", term, freq, docID)
			}
			if doc.TermCount == 0 {
				return nil, apperrors.Corruptf("term %q posted to document %q with zero term count", term, docID)
			}
		}
	}
	if raw.TotalDocs != nil && *raw.TotalDocs != len(raw.Documents) {
		return nil, apperrors.Corruptf("total_docs is %d but %d documents are stored",
			*raw.TotalDocs, len(raw.Documents))
	}
	return index.Restore(tok, raw.Terms, raw.Documents), nil
}
