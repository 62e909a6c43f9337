package index

import "strings"

// Document is the unit that is indexed and returned in results. It is
// immutable once created.
type Document struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	TermCount int    `json:"term_count"`
}

// NewDocument creates a Document whose TermCount is the number of
// whitespace-delimited tokens in text.
func NewDocument(id, text string) *Document {
	return &Document{
		ID:        id,
		Text:      text,
		TermCount: len(strings.Fields(text)),
	}
}

// Posting is one (document, frequency) entry under a term.
type Posting struct {
	DocID     string `json:"doc_id"`
	Frequency int    `json:"frequency"`
}

type PostingList []Posting

// TermEntry pairs a term with its postings sorted by document id.
type TermEntry struct {
	Term     string
	Postings PostingList
}
