package complexity

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/directional-star/diggit/pkg/alg/stats"
	"github.com/directional-star/diggit/pkg/textutil"
)

// MinLines is the shortest file that gets a non-zero score.
const MinLines = 10

// DefaultIndent is the nominal indent unit of files with no indented lines.
const DefaultIndent = " "

// Leading whitespace must be uniformly spaces or uniformly tabs and be
// followed by content; blank and mixed lines do not match.
var indentPattern = regexp.MustCompile(`^( *|\t*)\S`)

// Score measures structural complexity as the population standard deviation
// of logical indentation depth across lines. Files shorter than [MinLines],
// binary or not valid UTF-8 score 0.
func Score(contents []byte) float64 {
	if textutil.CountLines(contents) < MinLines || textutil.IsBinary(contents) || !utf8.Valid(contents) {
		return 0
	}

	lines := textutil.SplitLines(string(contents))

	indents := whitespaceIndents(lines)
	nominal := NominalIndent(indents)

	depths := make([]float64, len(indents))
	for i, ws := range indents {
		depths[i] = float64(strings.Count(ws, nominal))
	}

	return stats.StdDev(depths)
}

// NominalIndent infers the indent unit as the most common non-empty leading
// whitespace, defaulting to [DefaultIndent].
func NominalIndent(indents []string) string {
	nonEmpty := make([]string, 0, len(indents))

	for _, ws := range indents {
		if ws != "" {
			nonEmpty = append(nonEmpty, ws)
		}
	}

	return stats.Mode(nonEmpty, DefaultIndent)
}

func whitespaceIndents(lines []string) []string {
	indents := make([]string, 0, len(lines))

	for _, line := range lines {
		m := indentPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		indents = append(indents, m[1])
	}

	return indents
}
