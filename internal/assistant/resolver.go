package assistant

import (
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
	"github.com/wolfman30/health-assistant/internal/session"
)

// DefaultMatchThreshold is the minimum similarity for a fuzzy catalog match.
const DefaultMatchThreshold = 0.70

var diceMetric = &metrics.SorensenDice{CaseSensitive: false, NgramSize: 2}

// Similarity scores two names in [0, 1] using bigram Sorensen-Dice, ignoring
// case and whitespace.
func Similarity(a, b string) float64 {
	a, b = squash(a), squash(b)
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	return strutil.Similarity(a, b, diceMetric)
}

// ResolveFuzzy returns the best-scoring candidate when it reaches threshold.
// Otherwise ok is false and the full candidate list is returned for disambiguation.
func ResolveFuzzy(name string, candidates []session.Entity, threshold float64) (session.Entity, bool, []session.Entity) {
	if threshold <= 0 {
		threshold = DefaultMatchThreshold
	}
	best, bestScore := -1, 0.0
	for i, c := range candidates {
		if score := Similarity(name, c.Name); score > bestScore {
			best, bestScore = i, score
		}
	}
	if best >= 0 && bestScore >= threshold {
		return candidates[best], true, nil
	}
	return session.Entity{}, false, candidates
}

// ResolveExact matches name case-insensitively.
func ResolveExact(name string, candidates []session.Entity) (session.Entity, bool) {
	name = strings.TrimSpace(name)
	for _, c := range candidates {
		if strings.EqualFold(strings.TrimSpace(c.Name), name) {
			return c, true
		}
	}
	return session.Entity{}, false
}

func squash(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), "")
}

func candidateList(entities []session.Entity) string {
	var b strings.Builder
	for _, e := range entities {
		b.WriteString("\n- ")
		b.WriteString(e.Name)
	}
	return b.String()
}
