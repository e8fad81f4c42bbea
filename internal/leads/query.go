package leads

import (
	"fmt"
	"math/rand"
	"sort"
)

// SearchQuery is one rendered map-search query. Immutable once generated.
type SearchQuery struct {
	Category string
	Keyword  string
	Location string
	Text     string
}

// BuildQueries expands the cross product of keyword categories and locations
// eagerly, before any browser session opens. An empty location list yields
// bare-keyword queries. Categories are walked in sorted order so generation
// is deterministic ahead of shuffling.
func BuildQueries(keywords map[string][]string, locations []string) []SearchQuery {
	var locs []string
	for _, l := range locations {
		if l != "" {
			locs = append(locs, l)
		}
	}
	if len(locs) == 0 {
		locs = []string{""}
	}

	categories := make([]string, 0, len(keywords))
	for c := range keywords {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	var out []SearchQuery
	for _, category := range categories {
		for _, kw := range keywords[category] {
			for _, loc := range locs {
				text := kw
				if loc != "" {
					text = fmt.Sprintf("%s in %s", kw, loc)
				}
				out = append(out, SearchQuery{
					Category: category,
					Keyword:  kw,
					Location: loc,
					Text:     text,
				})
			}
		}
	}
	return out
}

// ShuffleQueries randomizes query order in place so repeated runs do not hit
// the search surface in the same sequence.
func ShuffleQueries(qs []SearchQuery, rnd *rand.Rand) {
	rnd.Shuffle(len(qs), func(i, j int) {
		qs[i], qs[j] = qs[j], qs[i]
	})
}
