package analytics

import (
	"time"

	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/observe"
)

type EventType string

const (
	EventSearch   EventType = "search"
	EventIndexDoc EventType = "index_document"
)

// Event is the envelope published to Kafka. Exactly one payload is set,
// matching Type.
type Event struct {
	Type     EventType      `json:"type"`
	Search   *SearchEvent   `json:"search,omitempty"`
	Document *DocumentEvent `json:"document,omitempty"`
}

type SearchEvent struct {
	Query     string    `json:"query"`
	Terms     []string  `json:"terms"`
	Limit     int       `json:"limit"`
	TotalHits int       `json:"total_hits"`
	LatencyMs float64   `json:"latency_ms"`
	CacheHit  bool      `json:"cache_hit"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

type DocumentEvent struct {
	DocumentID string    `json:"document_id"`
	TermCount  int       `json:"term_count"`
	Timestamp  time.Time `json:"timestamp"`
}

func newSearchEvent(ev observe.SearchEvent, requestID string) Event {
	return Event{
		Type: EventSearch,
		Search: &SearchEvent{
			Query:     ev.Query,
			Terms:     ev.Terms,
			Limit:     ev.Limit,
			TotalHits: ev.Hits,
			LatencyMs: float64(ev.Latency) / float64(time.Millisecond),
			CacheHit:  ev.CacheHit,
			Timestamp: ev.Timestamp,
			RequestID: requestID,
		},
	}
}

func newDocumentEvent(id string, terms int) Event {
	return Event{
		Type: EventIndexDoc,
		Document: &DocumentEvent{
			DocumentID: id,
			TermCount:  terms,
			Timestamp:  time.Now().UTC(),
		},
	}
}
