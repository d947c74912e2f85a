package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractCitationIndices(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []int
	}{
		{
			name: "no citations",
			text: "Information not available in the reviewed announcements.",
			want: nil,
		},
		{
			name: "single citation",
			text: "Net profit was $4.2M [1].",
			want: []int{1},
		},
		{
			name: "order of first appearance",
			text: "Revenue rose 23% [3], driven by the mine expansion [1] and grants [2].",
			want: []int{3, 1, 2},
		},
		{
			name: "duplicates removed",
			text: "Cash was $7.8M [2]. As of March [2], the raise [4] settled [2].",
			want: []int{2, 4},
		},
		{
			name: "zero is not a valid index",
			text: "Strange marker [0] then a real one [5].",
			want: []int{5},
		},
		{
			name: "ignores non numeric brackets",
			text: "See [appendix] and [n/a], but cite [12].",
			want: []int{12},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractCitationIndices(tt.text))
		})
	}
}
