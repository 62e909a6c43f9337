package index

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"sort"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer/tokenizer"
)

// Index is an in-memory inverted index: term -> doc id -> frequency, plus the
// document table. totalDocs always equals len(documents).
type Index struct {
	mu        sync.RWMutex
	terms     map[string]map[string]int
	documents map[string]*Document
	// docTerms lists the terms each document is posted under, so a
	// replaced document loses exactly the postings it had.
	docTerms  map[string][]string
	totalDocs int
	tok       *tokenizer.Tokenizer
}

// Stats summarises index size.
type Stats struct {
	Documents int `json:"documents"`
	Terms     int `json:"terms"`
	Postings  int `json:"postings"`
}

func New(tok *tokenizer.Tokenizer) *Index {
	if tok == nil {
		tok = tokenizer.Default()
	}
	return &Index{
		terms:     make(map[string]map[string]int),
		documents: make(map[string]*Document),
		docTerms:  make(map[string][]string),
		tok:       tok,
	}
}

// Restore builds an Index from already validated tables. The maps are owned
// by the returned Index.
func Restore(tok *tokenizer.Tokenizer, terms map[string]map[string]int, documents map[string]*Document) *Index {
	ix := New(tok)
	if terms != nil {
		ix.terms = terms
	}
	if documents != nil {
		ix.documents = documents
	}
	for term, docs := range ix.terms {
		for docID := range docs {
			ix.docTerms[docID] = append(ix.docTerms[docID], term)
		}
	}
	ix.totalDocs = len(ix.documents)
	return ix
}

// AddDocument tokenizes doc.Text and records a posting for every distinct
// term. Stop-words are kept. Re-adding an id replaces the previous document
// and its postings without changing the document count.
func (ix *Index) AddDocument(doc *Document) {
	termFreq := make(map[string]int)
	for _, term := range ix.tok.Tokenize(doc.Text) {
		termFreq[term]++
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	if _, exists := ix.documents[doc.ID]; exists {
		ix.removePostingsLocked(doc.ID)
	} else {
		ix.totalDocs++
	}
	posted := make([]string, 0, len(termFreq))
	for term, freq := range termFreq {
		docs, exists := ix.terms[term]
		if !exists {
			docs = make(map[string]int)
			ix.terms[term] = docs
		}
		docs[doc.ID] = freq
		posted = append(posted, term)
	}
	ix.documents[doc.ID] = doc
	ix.docTerms[doc.ID] = posted
}

func (ix *Index) removePostingsLocked(docID string) {
	for _, term := range ix.docTerms[docID] {
		docs, ok := ix.terms[term]
		if !ok {
			continue
		}
		delete(docs, docID)
		if len(docs) == 0 {
			delete(ix.terms, term)
		}
	}
	delete(ix.docTerms, docID)
}

// Postings returns the postings for term sorted by document id, or nil.
func (ix *Index) Postings(term string) PostingList {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	docs, exists := ix.terms[term]
	if !exists {
		return nil
	}
	result := make(PostingList, 0, len(docs))
	for docID, freq := range docs {
		result = append(result, Posting{DocID: docID, Frequency: freq})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].DocID < result[j].DocID
	})
	return result
}

// Frequency returns the raw frequency of term in docID, or 0.
func (ix *Index) Frequency(term, docID string) int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.terms[term][docID]
}

// DocFreq returns the number of documents containing term.
func (ix *Index) DocFreq(term string) int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.terms[term])
}

func (ix *Index) Document(id string) (*Document, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	doc, ok := ix.documents[id]
	return doc, ok
}

// Documents returns every document sorted by id.
func (ix *Index) Documents() []*Document {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	docs := make([]*Document, 0, len(ix.documents))
	for _, doc := range ix.documents {
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool {
		return docs[i].ID < docs[j].ID
	})
	return docs
}

func (ix *Index) TotalDocs() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.totalDocs
}

// Terms returns the vocabulary sorted lexicographically.
func (ix *Index) Terms() []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	terms := make([]string, 0, len(ix.terms))
	for term := range ix.terms {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	return terms
}

// Snapshot returns every term with its postings, both sorted.
func (ix *Index) Snapshot() []TermEntry {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	entries := make([]TermEntry, 0, len(ix.terms))
	for term, docs := range ix.terms {
		postings := make(PostingList, 0, len(docs))
		for docID, freq := range docs {
			postings = append(postings, Posting{DocID: docID, Frequency: freq})
		}
		sort.Slice(postings, func(i, j int) bool {
			return postings[i].DocID < postings[j].DocID
		})
		entries = append(entries, TermEntry{
			Term:     term,
			Postings: postings,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Term < entries[j].Term
	})
	return entries
}

func (ix *Index) Stats() Stats {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	s := Stats{Documents: ix.totalDocs, Terms: len(ix.terms)}
	for _, docs := range ix.terms {
		s.Postings += len(docs)
	}
	return s
}

// Fingerprint is a hex sha256 over the document table and every posting.
// Indexes with equal content have equal fingerprints in any process.
func (ix *Index) Fingerprint() string {
	docs := ix.Documents()
	entries := ix.Snapshot()

	h := sha256.New()
	for _, doc := range docs {
		writeField(h, doc.ID)
		writeField(h, doc.Text)
		fmt.Fprintf(h, "%d;", doc.TermCount)
	}
	h.Write([]byte{0})
	for _, entry := range entries {
		writeField(h, entry.Term)
		for _, p := range entry.Postings {
			writeField(h, p.DocID)
			fmt.Fprintf(h, "%d;", p.Frequency)
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

func writeField(h hash.Hash, s string) {
	fmt.Fprintf(h, "%d:%s", len(s), s)
}

// Tokenizer returns the tokenizer used for documents and queries against
// this index.
func (ix *Index) Tokenizer() *tokenizer.Tokenizer {
	return ix.tok
}
