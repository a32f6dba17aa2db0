// Package textutil provides line and binary-content helpers shared by the
// content-scoring reporters.
package textutil

import (
	"bytes"
	"strings"
)

// BinarySniffLength is the maximum number of bytes scanned for null-byte
// detection, the same window git uses.
const BinarySniffLength = 8000

// IsBinary reports whether data has a null byte within its first
// BinarySniffLength bytes. Empty data is text.
func IsBinary(data []byte) bool {
	sniff := data[:min(len(data), BinarySniffLength)]

	return bytes.IndexByte(sniff, 0) >= 0
}

// SplitLines splits s after each newline. Terminators stay on their lines and
// a final unterminated line is kept; an empty string has no lines.
func SplitLines(s string) []string {
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	return lines
}

// CountLines returns len(SplitLines(string(data))) without allocating.
func CountLines(data []byte) int {
	if len(data) == 0 {
		return 0
	}

	lines := bytes.Count(data, []byte{'\n'})
	if data[len(data)-1] != '\n' {
		lines++
	}

	return lines
}
