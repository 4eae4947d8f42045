package conversation

import (
	"regexp"
	"strings"
)

// OutputGuardResult contains the result of scanning an outbound model reply.
type OutputGuardResult struct {
	// Flagged is true if the reply matched any pattern.
	Flagged bool
	// Reasons lists the detection signals that fired.
	Reasons []string
	// Sanitized is the cleaned reply, or empty when the reply must be replaced.
	Sanitized string
}

type outputPattern struct {
	re     *regexp.Regexp
	reason string
	block  bool // false means the reply can be sanitized instead
}

var outputPatterns = []outputPattern{
	// System prompt / instruction leaks
	{regexp.MustCompile(`(?i)my (system\s+)?prompt\s+(is|says|tells|instructs)`), "leak:system_prompt_disclosure", true},
	{regexp.MustCompile(`(?i)my instructions?\s+(are|say|tell|include|require)`), "leak:instructions_disclosure", true},
	{regexp.MustCompile(`(?i)(here are|these are|the following are)\s+(my )?(system )?(instructions|rules|guidelines|prompts)`), "leak:rules_listing", true},

	// Credential / infrastructure leaks
	{regexp.MustCompile(`(?i)(api[_\s]?key|secret[_\s]?key|access[_\s]?token|bearer\s+token)\s*[:=]\s*\S+`), "leak:credential", true},
	{regexp.MustCompile(`(?i)\bsk-[a-zA-Z0-9_-]{20,}`), "leak:openai_key", true},
	{regexp.MustCompile(`(?i)AKIA[A-Z0-9]{16}`), "leak:aws_key", true},
	{regexp.MustCompile(`(?i)(postgres|mysql|redis|mongodb)://\S+`), "leak:database_url", true},

	// Harmful instructions
	{regexp.MustCompile(`(?i)\b(make|build|assemble)\b.{0,40}\b(bomb|explosive|weapon)s?\b`), "harm:weapons", true},
	{regexp.MustCompile(`(?i)\b(ways?|how) to\b.{0,30}\b(kill (yourself|myself|someone)|commit suicide|end (your|my) life|self.harm)\b`), "harm:self_harm", true},
	{regexp.MustCompile(`(?i)\b(lethal|fatal|deadly) (dose|amount)\b.{0,20}\b(is|of|would be)\b`), "harm:lethal_dose", true},
	{regexp.MustCompile(`(?i)\b(poison|drug) (someone|a person|him|her|them)\b`), "harm:poisoning", true},

	// Markup that the chat client would render
	{regexp.MustCompile(`(?i)<\s*/?\s*(script|iframe|img|a)\b[^>]*>`), "markup:html", false},
}

var htmlTagRE = regexp.MustCompile(`(?i)<\s*/?\s*[a-z][^>]*>`)

// ScanOutput checks an outbound reply for leaks, harmful instructions and markup.
func ScanOutput(reply string) OutputGuardResult {
	if strings.TrimSpace(reply) == "" {
		return OutputGuardResult{Sanitized: reply}
	}

	var reasons []string
	shouldBlock := false
	for _, p := range outputPatterns {
		if p.re.MatchString(reply) {
			reasons = append(reasons, p.reason)
			if p.block {
				shouldBlock = true
			}
		}
	}
	if len(reasons) == 0 {
		return OutputGuardResult{Sanitized: reply}
	}

	result := OutputGuardResult{Flagged: true, Reasons: reasons}
	if !shouldBlock {
		result.Sanitized = sanitizeOutput(reply)
	}
	return result
}

func sanitizeOutput(reply string) string {
	return strings.TrimSpace(htmlTagRE.ReplaceAllString(reply, ""))
}
