package llm

import (
	"regexp"
	"strconv"
)

var citationPattern = regexp.MustCompile(`\[(\d{1,3})\]`)

// ExtractCitationIndices parses bracketed source markers like [2] from
// completion text, returning the 1-based indices in order of first
// appearance with duplicates removed. Zero is never a valid index.
func ExtractCitationIndices(text string) []int {
	matches := citationPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[int]struct{}, len(matches))
	var indices []int
	for _, m := range matches {
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		indices = append(indices, n)
	}
	return indices
}
