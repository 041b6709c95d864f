package moderation

import (
	"context"
	"regexp"
	"strings"

	"github.com/pkg/errors"

	"github.com/paradox-zenu/Aoi-SakamotoBot/internal/db"
)

// MatchFilters returns the first filter, in store order, whose keyword
// appears as a whole word in text. Matching is case-insensitive and
// word-bounded: "hi" fires on "hi there" but not on "chihuahua". At most
// one filter fires per message.
func (e *Engine) MatchFilters(ctx context.Context, chatID int64, text string) (*db.Filter, error) {
	if text == "" {
		return nil, nil
	}
	filters, err := e.store.GetFilters(ctx, chatID)
	if err != nil {
		return nil, errors.WithMessage(err, "get filters")
	}

	lowered := strings.ToLower(text)
	for i := range filters {
		if wholeWordMatch(lowered, filters[i].Name) {
			return &filters[i], nil
		}
	}
	return nil, nil
}

// wholeWordMatch reports whether keyword occurs in text bounded by
// non-word characters. Text and keyword are expected lowercased already.
func wholeWordMatch(text, keyword string) bool {
	if keyword == "" {
		return false
	}
	pattern, err := regexp.Compile(`(?:^|[^\w])` + regexp.QuoteMeta(keyword) + `(?:[^\w]|$)`)
	if err != nil {
		return false
	}
	return pattern.MatchString(text)
}
