package scoring

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/okian/talentscore/internal/domain/assessment"
)

// Defaults for required fields missing from a model response.
const (
	DefaultPerformanceScore = 70.0
	DefaultQualityScore     = 75.0
	DefaultTimingScore      = 70.0
	DefaultExpressionScore  = 70.0

	snippetLimit = 160
)

// ParseOutcome classifies a parse attempt.
type ParseOutcome int

// Parse outcomes.
const (
	ParseOK ParseOutcome = iota
	ParseNoObject
	ParseInvalidObject
)

func (o ParseOutcome) String() string {
	switch o {
	case ParseOK:
		return "ok"
	case ParseNoObject:
		return "no_object"
	case ParseInvalidObject:
		return "invalid_object"
	default:
		return "unknown"
	}
}

// ParseResult is the outcome of ParseResponse. Assessment is only
// meaningful when Outcome is ParseOK.
type ParseResult struct {
	Outcome    ParseOutcome
	Assessment assessment.Assessment
	Detail     string
}

// OK reports whether parsing succeeded.
func (r ParseResult) OK() bool { return r.Outcome == ParseOK }

// Err returns nil on success and an error wrapping ErrMalformedResponse
// otherwise.
func (r ParseResult) Err() error {
	if r.OK() {
		return nil
	}
	return fmt.Errorf("%w: %s: %s", ErrMalformedResponse, r.Outcome, r.Detail)
}

var fencePattern = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*(.*?)```")

// ParseResponse extracts a score record from untrusted model text. It
// tries a fenced block first, then the first balanced object in the text,
// then decodes. Missing required fields get defaults; optional fields stay
// absent unless a number is present.
func ParseResponse(text string) ParseResult {
	candidate, ok := extractObject(text)
	if !ok {
		return ParseResult{Outcome: ParseNoObject, Detail: snippet(text)}
	}

	dec := json.NewDecoder(strings.NewReader(candidate))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return ParseResult{Outcome: ParseInvalidObject, Detail: err.Error()}
	}

	a := assessment.Assessment{
		PerformanceScore: numberOr(fields, DefaultPerformanceScore, "performanceScore", "performance_score"),
		QualityScore:     numberOr(fields, DefaultQualityScore, "qualityScore", "quality_score"),
		TimingScore:      numberOr(fields, DefaultTimingScore, "timingScore", "timing_score"),
		ExpressionScore:  numberOr(fields, DefaultExpressionScore, "expressionScore", "expression_score"),
		VocalScore:       optionalNumber(fields, "vocalScore", "vocal_score"),
		MovementScore:    optionalNumber(fields, "movementScore", "movement_score"),
		CategoryTags:     tags(fields, "categoryTags", "category_tags"),
		Feedback:         stringField(fields, "feedback"),
		Strategy:         assessment.StrategyVision,
	}
	return ParseResult{Outcome: ParseOK, Assessment: a.Normalized()}
}

// extractObject returns the JSON object candidate inside text.
func extractObject(text string) (string, bool) {
	if m := fencePattern.FindStringSubmatch(text); m != nil {
		if obj, ok := firstBalancedObject(m[1]); ok {
			return obj, true
		}
	}
	return firstBalancedObject(text)
}

// firstBalancedObject returns the first {...} substring whose braces balance,
// ignoring braces inside JSON strings.
func firstBalancedObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	for start >= 0 {
		depth, inString, escaped := 0, false, false
		for i := start; i < len(text); i++ {
			c := text[i]
			switch {
			case escaped:
				escaped = false
			case inString && c == '\\':
				escaped = true
			case c == '"':
				inString = !inString
			case inString:
			case c == '{':
				depth++
			case c == '}':
				depth--
				if depth == 0 {
					return text[start : i+1], true
				}
			}
		}
		next := strings.IndexByte(text[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}

func lookup(fields map[string]any, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := fields[k]; ok {
			return v, true
		}
	}
	return nil, false
}

func toNumber(v any) (float64, bool) {
	var f float64
	var err error
	switch n := v.(type) {
	case json.Number:
		f, err = n.Float64()
	case string:
		f, err = strconv.ParseFloat(strings.TrimSpace(n), 64)
	case float64:
		f = n
	default:
		return 0, false
	}
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func numberOr(fields map[string]any, def float64, keys ...string) float64 {
	v, ok := lookup(fields, keys...)
	if !ok {
		return def
	}
	if f, ok := toNumber(v); ok {
		return f
	}
	return def
}

func optionalNumber(fields map[string]any, keys ...string) assessment.Optional[float64] {
	v, ok := lookup(fields, keys...)
	if !ok {
		return assessment.None[float64]()
	}
	if f, ok := toNumber(v); ok {
		return assessment.Some(f)
	}
	return assessment.None[float64]()
}

func tags(fields map[string]any, keys ...string) []string {
	v, _ := lookup(fields, keys...)
	switch t := v.(type) {
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return assessment.NormalizeTags(out)
	case string:
		return assessment.TagsFromHint(t)
	default:
		return assessment.NormalizeTags(nil)
	}
}

func stringField(fields map[string]any, key string) string {
	if s, ok := fields[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

func snippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > snippetLimit {
		return s[:snippetLimit] + "..."
	}
	return s
}
