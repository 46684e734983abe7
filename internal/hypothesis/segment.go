// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package hypothesis turns free-text Phase 4 model output into ordered
// HypothesisRecord values. Parsing never fails on malformed content:
// blocks that cannot be read are counted in ParseDiagnostics and dropped.
package hypothesis

import (
	"iter"
	"strings"
)

// minRuleLen is the shortest run of '=' accepted as a block delimiter.
// Shorter runs are left in place as inline emphasis.
const minRuleLen = 20

// Segment lazily splits text into candidate blocks. A delimiter is a line
// consisting of minRuleLen or more '=' characters (trailing spaces allowed)
// that is preceded and followed by a newline, so a rule on the first line
// of text is content. Blocks are trimmed; blocks that are blank are not
// yielded. Text without delimiters yields one block.
func Segment(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		start, pos := 0, 0
		for line := range strings.Lines(text) {
			end := pos + len(line)
			if pos > 0 && strings.HasSuffix(line, "\n") && isRule(line) {
				if !emit(text[start:pos], yield) {
					return
				}
				start = end
			}
			pos = end
		}
		emit(text[start:], yield)
	}
}

// Blocks collects Segment into a slice.
func Blocks(text string) []string {
	var out []string
	for b := range Segment(text) {
		out = append(out, b)
	}
	return out
}

func emit(block string, yield func(string) bool) bool {
	block = strings.TrimSpace(block)
	if block == "" {
		return true
	}
	return yield(block)
}

func isRule(line string) bool {
	line = strings.TrimRight(line, " \t\r\n")
	if len(line) < minRuleLen {
		return false
	}
	return strings.Trim(line, "=") == ""
}
