package mail

import (
	"strings"
	"time"
)

// QueryDateLayout is the date format understood by Gmail's after: operator.
const QueryDateLayout = "2006/01/02"

// WithAfter scopes query to messages after the calendar day of t in loc.
// A zero t leaves the query unchanged.
func WithAfter(query string, t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return query
	}
	return strings.TrimSpace(query) + " after:" + t.In(loc).Format(QueryDateLayout)
}
