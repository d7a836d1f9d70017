package insight

import (
	"strings"
	"time"

	"github.com/samber/lo"
)

// Filter decides which candidate insights are worth persisting. It is
// the noise-control layer between a chatty extractor and a deliberately
// small long-term store: the downstream context window only surfaces a
// handful of insights per turn, so near-duplicates crowd out signal.
type Filter struct {
	// DedupWindow is how many of the user's most recent insights are
	// checked for near-duplicates.
	DedupWindow int
	// DedupMaxAge bounds how far back a duplicate can suppress a new
	// candidate.
	DedupMaxAge time.Duration
}

func NewFilter() *Filter {
	return &Filter{
		DedupWindow: 10,
		DedupMaxAge: 24 * time.Hour,
	}
}

// genericStressorTerms flag low-signal stressor phrasings that are not
// worth persisting.
var genericStressorTerms = []string{"a little", "bit stressed", "kinda", "slightly"}

// ShouldPersist reports whether candidate deserves a slot in long-term
// memory. recent must be the user's insights ordered most-recent-first.
// Crisis insights always persist. A non-crisis candidate is suppressed
// when an insight of the same type with identical derived content exists
// within the dedup window and age cutoff; duplicate detection is
// exact-match on the content template, which is stricter than fuzzy
// matching but cheap and predictable.
func (f *Filter) ShouldPersist(candidate Insight, recent []Insight) bool {
	if candidate.Type == TypeCrisis {
		return true
	}

	if candidate.Type == TypeStressor {
		content := strings.ToLower(candidate.Content)
		for _, term := range genericStressorTerms {
			if strings.Contains(content, term) {
				return false
			}
		}
	}

	cutoff := candidate.Timestamp.Add(-f.DedupMaxAge)
	window := recent
	if len(window) > f.DedupWindow {
		window = window[:f.DedupWindow]
	}

	duplicate := lo.ContainsBy(window, func(existing Insight) bool {
		return existing.Type == candidate.Type &&
			existing.Content == candidate.Content &&
			existing.Timestamp.After(cutoff)
	})

	return !duplicate
}
