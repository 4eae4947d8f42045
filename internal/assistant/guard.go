package assistant

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxMessageRunes bounds accepted and sanitized message length.
const MaxMessageRunes = 1000

// Severity grades a blocked message.
type Severity string

const (
	SeverityNone   Severity = ""
	SeverityLow    Severity = "LOW"
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

func (s Severity) rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	}
	return 0
}

var safetyResponses = map[Severity]string{
	SeverityHigh:   "I cannot and will not provide information that could be harmful or dangerous. If you're experiencing thoughts of self-harm, please contact a mental health professional immediately or call a crisis helpline. Your safety is important.",
	SeverityMedium: "I cannot provide information about potentially harmful activities. If you have health concerns, I'd be happy to help with safe, medical advice instead.",
	SeverityLow:    "I'm designed to provide helpful health information. I cannot assist with that type of request. How else can I help you with your health needs?",
}

// SafetyResponse is the reply shown for a blocked message of severity s.
func SafetyResponse(s Severity) string {
	if r, ok := safetyResponses[s]; ok {
		return r
	}
	return safetyResponses[SeverityLow]
}

type harmRule struct {
	category string
	severity Severity
	re       *regexp.Regexp
}

const howTo = `\b(how\s+(to|do\s+i|can\s+i|do\s+you)|ways?\s+to|steps\s+to|instructions\s+(for|to)|tutorial|method\s+to)\b`

var harmRules = []harmRule{
	{"self_harm", SeverityHigh, regexp.MustCompile(`\b(suicid(e|al)|self[\s-]?(harm|injury|mutilation)|kill\s+myself|end\s+my\s+life|take\s+my\s+(own\s+)?life|kys|kms|unalive)\b`)},
	{"self_harm", SeverityHigh, regexp.MustCompile(`\b(hang|cut|strangle|choke|suffocate|poison|hurt|harm|starve)\s+myself\b`)},
	{"self_harm", SeverityHigh, regexp.MustCompile(`\b(jump\s+off|jump\s+from)\s+(a|the)\s+(bridge|building|roof)\b`)},
	{"weapons", SeverityHigh, regexp.MustCompile(howTo + `.*\b(make|build|create|construct|assemble)\b.*\b(bombs?|explosives?|weapons?|poisons?|nerve\s+agents?)\b`)},
	{"weapons", SeverityHigh, regexp.MustCompile(`\b(pipe\s+bomb|chemical\s+weapons?|biological\s+weapons?|explosives?)\b`)},
	{"violence", SeverityHigh, regexp.MustCompile(howTo + `.*\b(kill|murder|strangle|choke|suffocate|poison)\b`)},
	{"terrorism", SeverityHigh, regexp.MustCompile(`\b(terroris[mt]s?|bombing|mass\s+shooting)\b`)},
	{"violence", SeverityMedium, regexp.MustCompile(`\b(kill|murder|stab|shoot|strangle|poison)\s+(him|her|them|someone|somebody|people|others|my\s+\w+)\b`)},
	{"violence", SeverityMedium, regexp.MustCompile(`\b(hurt|harm|attack)\s+(someone|somebody|others|people)\b`)},
	{"dangerous_dosing", SeverityMedium, regexp.MustCompile(`\b(lethal|deadly|fatal|dangerous|excessive)\s+(dose|dosage|amount)\b`)},
	{"dangerous_dosing", SeverityMedium, regexp.MustCompile(`\bhow\s+(much|many)\b.*\b(to\s+(die|overdose)|overdose\s+on)\b`)},
	{"illegal", SeverityMedium, regexp.MustCompile(`\b(forge\s+(a\s+)?prescription|fake\s+prescription|without\s+(a\s+)?prescription\s+illegally|fraud|hacking|cyber\s*attack)\b`)},
	{"hate", SeverityLow, regexp.MustCompile(`\b(racist|sexist|hate\s+speech|slurs?)\b`)},
	{"adult", SeverityLow, regexp.MustCompile(`\b(porn\w*|nudes?|explicit\s+sex\w*)\b`)},
}

// SafetyVerdict is the outcome of ScanHarmful.
type SafetyVerdict struct {
	Harmful    bool
	Severity   Severity
	Categories []string
}

// ScanHarmful checks text against every rule and keeps the highest severity.
func ScanHarmful(text string) SafetyVerdict {
	lower := strings.ToLower(text)
	var v SafetyVerdict
	seen := map[string]bool{}
	for _, rule := range harmRules {
		if !rule.re.MatchString(lower) {
			continue
		}
		v.Harmful = true
		if rule.severity.rank() > v.Severity.rank() {
			v.Severity = rule.severity
		}
		if !seen[rule.category] {
			seen[rule.category] = true
			v.Categories = append(v.Categories, rule.category)
		}
	}
	return v
}

var symptomPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(am having|having|feeling|feel|experiencing|experience|suffering from|suffering)\b`),
	regexp.MustCompile(`\b(pain|ache|hurt|hurts|sore|tired|weak|dizzy|nausea|fever|cough|cold|headache|stomach|back|chest|throat|joint|muscle)\b`),
	regexp.MustCompile(`\b(symptoms?|problems?|issues?|conditions?|discomforts?)\b`),
	regexp.MustCompile(`\b(not feeling well|don't feel well|feel sick|feeling sick|unwell|ill|sick|uncomfortable)\b`),
	regexp.MustCompile(`\b(what should i do|what to do|help me|advice|suggestions|recommendations|guidance)\b`),
	regexp.MustCompile(`\b(head|neck|shoulder|arm|leg|knee|ankle|foot|hand|finger|eye|ear|nose|mouth|tooth|teeth)\b.*\b(hurts|pain|ache|sore|problem|issue)\b`),
}

// IsSymptomQuery reports whether text reads like someone describing how they feel.
func IsSymptomQuery(text string) bool {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return false
	}
	for _, re := range symptomPatterns {
		if re.MatchString(lower) {
			return true
		}
	}
	return false
}

var (
	scriptRe       = regexp.MustCompile(`(?i)(<\s*/?\s*script|javascript:|\bon\w+\s*=)`)
	angleRe        = regexp.MustCompile(`[<>]`)
	jsProtoRe      = regexp.MustCompile(`(?i)javascript:`)
	eventHandlerRe = regexp.MustCompile(`(?i)\bon\w+\s*=`)
)

// ValidateInput rejects over-long messages and markup or script injection.
func ValidateInput(text string) bool {
	if utf8.RuneCountInString(text) > MaxMessageRunes {
		return false
	}
	return !angleRe.MatchString(text) && !scriptRe.MatchString(text)
}

// Sanitize strips markup characters and script handlers, then trims and caps length.
func Sanitize(text string) string {
	text = angleRe.ReplaceAllString(text, "")
	text = jsProtoRe.ReplaceAllString(text, "")
	text = eventHandlerRe.ReplaceAllString(text, "")
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) > MaxMessageRunes {
		text = string([]rune(text)[:MaxMessageRunes])
	}
	return text
}
