package assistant

import (
	"regexp"
	"sort"
	"strings"
)

// Decision is the outcome of reading a reply to "do you want to cancel?".
type Decision int

const (
	DecisionUnclear Decision = iota
	DecisionCancel
	DecisionContinue
)

func (d Decision) String() string {
	switch d {
	case DecisionCancel:
		return "cancel"
	case DecisionContinue:
		return "continue"
	}
	return "unclear"
}

// Phrases is the yes/no table for the exit sub-dialogue. Hindi entries are
// romanized the way users type them.
type Phrases struct {
	Cancel   []string
	Continue []string
}

var DefaultPhrases = Phrases{
	Cancel: []string{
		"yes", "yeah", "yep", "sure", "ok cancel", "okay cancel", "yes cancel",
		"cancel", "exit", "stop", "quit", "start over", "restart",
		"haan", "han", "haa", "haan cancel", "cancel kardo", "cancel karo", "band karo",
	},
	Continue: []string{
		"no", "nope", "nah", "continue", "keep going", "don't cancel", "dont cancel",
		"don't stop", "dont stop", "not now", "nahi", "nahin", "mat cancel", "mat karo",
		"rakho", "continue rakho", "chalu rakho",
	},
}

var affirmatives = map[string]struct{}{
	"yes": {}, "yeah": {}, "yep": {}, "yup": {}, "sure": {}, "ok": {}, "okay": {},
	"correct": {}, "right": {}, "that's right": {}, "yes please": {},
	"haan": {}, "han": {}, "haa": {}, "ha": {}, "ji": {}, "ji haan": {},
	"sahi": {}, "sahi hai": {}, "thik hai": {}, "theek hai": {},
}

var fillerWords = map[string]struct{}{
	"please": {}, "it": {}, "that": {}, "this": {}, "ok": {}, "okay": {},
	"and": {}, "so": {}, "then": {}, "now": {}, "the": {}, "flow": {},
}

var phraseCleanRe = regexp.MustCompile(`[^\p{L}\p{N}' ]+`)

// phraseWords splits s into words with punctuation dropped and case kept.
func phraseWords(s string) []string {
	s = strings.NewReplacer("’", "'", "‘", "'").Replace(s)
	return strings.Fields(phraseCleanRe.ReplaceAllString(s, " "))
}

// normalizePhrase lowercases, unifies apostrophes and drops punctuation.
func normalizePhrase(s string) string {
	return strings.ToLower(strings.Join(phraseWords(s), " "))
}

// Classify checks continue phrases first so "don't cancel" continues. A phrase
// matches when it is a leading word-boundary prefix. The returned remainder is
// the rest of the reply, case preserved, with the matched phrase and filler
// stripped.
func (p Phrases) Classify(reply string) (Decision, string) {
	words := phraseWords(reply)
	text := strings.ToLower(strings.Join(words, " "))
	if text == "" {
		return DecisionUnclear, ""
	}
	if phrase, ok := leadingPhrase(text, p.Continue); ok {
		return DecisionContinue, p.remainder(words[len(strings.Fields(phrase)):])
	}
	if phrase, ok := leadingPhrase(text, p.Cancel); ok {
		return DecisionCancel, p.remainder(words[len(strings.Fields(phrase)):])
	}
	return DecisionUnclear, ""
}

func (p Phrases) remainder(words []string) string {
	for len(words) > 0 {
		if _, ok := fillerWords[strings.ToLower(words[0])]; ok {
			words = words[1:]
			continue
		}
		if phrase, ok := leadingPhrase(strings.ToLower(strings.Join(words, " ")), p.Cancel); ok {
			words = words[len(strings.Fields(phrase)):]
			continue
		}
		break
	}
	return strings.Join(words, " ")
}

func leadingPhrase(text string, phrases []string) (string, bool) {
	sorted := append([]string(nil), phrases...)
	sort.Slice(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })
	for _, phrase := range sorted {
		phrase = normalizePhrase(phrase)
		if text == phrase || strings.HasPrefix(text, phrase+" ") {
			return phrase, true
		}
	}
	return "", false
}

// IsAffirmative reports whether the whole reply is a plain yes.
func IsAffirmative(reply string) bool {
	_, ok := affirmatives[normalizePhrase(reply)]
	return ok
}
