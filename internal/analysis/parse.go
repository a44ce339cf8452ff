package analysis

import (
	"encoding/json"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ExtractJSONObject returns the first complete JSON object embedded in text.
// Decoding starts at each '{' in turn and stops at the end of the first value
// that parses, so braces in trailing prose or a second object are ignored.
func ExtractJSONObject(text string) (string, bool) {
	for i := 0; i < len(text); i++ {
		off := strings.IndexByte(text[i:], '{')
		if off < 0 {
			break
		}
		i += off

		var raw json.RawMessage
		if err := json.NewDecoder(strings.NewReader(text[i:])).Decode(&raw); err == nil {
			return string(raw), true
		}
	}
	return "", false
}

// ParseAnalysis extracts an analysis result from a model reply. Labels are
// normalized and values outside the known sets fall back to the defaults.
func ParseAnalysis(text string) (Result, bool) {
	raw, ok := ExtractJSONObject(text)
	if !ok {
		return Result{}, false
	}

	var r Result
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return Result{}, false
	}
	if r.RecommendedActions == nil {
		r.RecommendedActions = []string{}
	}
	return normalize(r), true
}

var (
	sentiments = map[string]bool{SentimentPositive: true, SentimentNegative: true, SentimentNeutral: true}
	urgencies  = map[string]bool{UrgencyHigh: true, UrgencyMedium: true, UrgencyLow: true}
)

func normalize(r Result) Result {
	r.Sentiment = NormalizeLabel(r.Sentiment)
	if !sentiments[r.Sentiment] {
		r.Sentiment = SentimentNeutral
	}
	r.Urgency = NormalizeLabel(r.Urgency)
	if !urgencies[r.Urgency] {
		r.Urgency = UrgencyMedium
	}
	r.Category = NormalizeLabel(r.Category)
	if r.Category == "" {
		r.Category = CategoryOther
	}
	return r
}

// NormalizeLabel trims, lowercases and strips diacritics from a label, so
// "Média" and "media" compare equal.
func NormalizeLabel(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return s
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// ParseInsights extracts mailbox insights from a model reply.
func ParseInsights(text string) (Insights, bool) {
	raw, ok := ExtractJSONObject(text)
	if !ok {
		return Insights{}, false
	}

	var in Insights
	if err := json.Unmarshal([]byte(raw), &in); err != nil {
		return Insights{}, false
	}
	if in.MainTopics == nil {
		in.MainTopics = []string{}
	}
	if in.FrequentSenders == nil {
		in.FrequentSenders = []string{}
	}
	if in.OrganizationSuggestions == nil {
		in.OrganizationSuggestions = []string{}
	}
	return in, true
}
