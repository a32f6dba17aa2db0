package textutil_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/directional-star/diggit/pkg/textutil"
)

func TestIsBinary(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data []byte
		want bool
	}{
		{"nil", nil, false},
		{"empty", []byte{}, false},
		{"text", []byte("class Cart\nend\n"), false},
		{"null_inside", []byte("GIF89a\x00\x01"), true},
		{"null_at_window_end", append([]byte(strings.Repeat("a", textutil.BinarySniffLength-1)), 0), true},
		{"null_past_window", append([]byte(strings.Repeat("a", textutil.BinarySniffLength)), 0), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, textutil.IsBinary(tt.data))
		})
	}
}

func TestSplitLines(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"a\n", "b"}, textutil.SplitLines("a\nb"))
	assert.Equal(t, []string{"a\n", "b\n"}, textutil.SplitLines("a\nb\n"))
	assert.Equal(t, []string{"\n", "\n"}, textutil.SplitLines("\n\n"))
	assert.Empty(t, textutil.SplitLines(""))
}

func TestCountLinesMatchesSplitLines(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"", "a", "a\n", "a\nb", "a\nb\n", "\n\n\n", "  x\n\ty"} {
		assert.Equal(t, len(textutil.SplitLines(s)), textutil.CountLines([]byte(s)), "%q", s)
	}
}
