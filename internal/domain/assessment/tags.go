package assessment

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// GenericTag is used when no category can be determined.
const GenericTag = "general"

// NormalizeTags lower-cases and trims tags, drops empties and duplicates
// while keeping first-seen order. An empty result becomes [GenericTag].
func NormalizeTags(tags []string) []string {
	lower := cases.Lower(language.Und)
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.Join(strings.Fields(lower.String(t)), "-")
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	if len(out) == 0 {
		return []string{GenericTag}
	}
	return out
}

// TagsFromHint derives category tags from a caller supplied hint, which may
// hold several comma separated categories.
func TagsFromHint(hint string) []string {
	return NormalizeTags(strings.Split(hint, ","))
}
