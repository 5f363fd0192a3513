package extract

import (
	"fmt"
	"sort"
	"time"
)

// Built-in source ids.
const (
	SourceICICI      = "icici"
	SourceHDFC       = "hdfc"
	SourceHDFCUpdate = "hdfc-update"
	SourceSBI        = "sbi"
	SourceAmex       = "amex"
)

// DefaultLimit caps thread fetches for sources that do not override it.
const DefaultLimit = 50

// DefaultAmexLegacyUntil returns the local midnight when Amex stopped
// sending one-time-password style transaction alerts.
func DefaultAmexLegacyUntil(loc *time.Location) time.Time {
	return time.Date(2025, time.April, 1, 0, 0, 0, 0, loc)
}

// Options tune a built-in source for one owner.
type Options struct {
	Location *time.Location
	// Limit overrides DefaultLimit when set. A value of 0 disables the cap.
	Limit *int
	// LegacyUntil overrides DefaultAmexLegacyUntil when non-zero.
	LegacyUntil time.Time
}

type factory func(opts Options) *Source

var registry = map[string]factory{
	SourceICICI: func(Options) *Source {
		return &Source{
			ID:      SourceICICI,
			Bank:    BankICICI,
			Query:   `from:credit_cards@icicibank.com OR from:alerts@icicibank.com subject:"Transaction alert"`,
			Formats: []Format{iciciFormat()},
		}
	},
	SourceHDFC: func(Options) *Source {
		return &Source{
			ID:      SourceHDFC,
			Bank:    BankHDFC,
			Query:   `from:alerts@hdfcbank.net subject:("Alert : Update on your HDFC Bank Credit Card" OR "debited via Credit Card")`,
			Formats: []Format{hdfcFormat()},
		}
	},
	SourceHDFCUpdate: func(o Options) *Source {
		return &Source{
			ID:        SourceHDFCUpdate,
			Bank:      BankHDFC,
			Query:     `from:alerts@hdfcbank.net subject:"Alert : Update on your HDFC Bank Credit Card"`,
			DebitOnly: true,
			Formats:   []Format{hdfcUpdateFormat(o.Location)},
		}
	},
	SourceSBI: func(o Options) *Source {
		return &Source{
			ID:        SourceSBI,
			Bank:      BankSBI,
			Query:     `from:onlinesbicard@sbicard.com subject:"Transaction Alert"`,
			DebitOnly: true,
			Formats:   []Format{sbiFormat(o.Location)},
		}
	},
	SourceAmex: func(o Options) *Source {
		until := DefaultAmexLegacyUntil(o.Location)
		if !o.LegacyUntil.IsZero() {
			until = o.LegacyUntil
		}
		return &Source{
			ID:        SourceAmex,
			Bank:      BankAmex,
			Query:     `from:AmericanExpress@welcome.americanexpress.com OR from:alerts@americanexpress.com`,
			DebitOnly: true,
			Formats: []Format{
				amexLegacyFormat(until),
				amexCurrentFormat(o.Location),
			},
		}
	},
}

// Lookup builds the built-in source with the given id.
func Lookup(id string, opts Options) (*Source, error) {
	f, ok := registry[id]
	if !ok {
		return nil, fmt.Errorf("unknown source %q (known: %v)", id, IDs())
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}

	src := f(opts)
	src.Limit = DefaultLimit
	if opts.Limit != nil {
		src.Limit = *opts.Limit
	}
	return src, nil
}

// IDs lists the built-in source ids in sorted order.
func IDs() []string {
	ids := make([]string, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
