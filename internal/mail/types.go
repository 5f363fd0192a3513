// Package mail is the mail collaborator: searching a mailbox for threads and
// fetching the messages inside them.
package mail

import (
	"context"
	"time"
)

// Thread identifies a conversation returned by a search.
type Thread struct {
	ID string
}

// Message is a single notification email.
type Message struct {
	Date      time.Time
	ID        string
	From      string
	Subject   string
	HTMLBody  string
	PlainBody string
}

// Searcher is the mail collaborator used by extractors.
type Searcher interface {
	// Search returns threads matching query, newest first. A positive limit
	// caps the number of threads returned.
	Search(ctx context.Context, query string, limit int) ([]Thread, error)
	// FetchMessages returns the messages of each thread, grouped per thread.
	FetchMessages(ctx context.Context, threads []Thread) ([][]Message, error)
}
