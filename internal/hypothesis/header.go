// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package hypothesis

import (
	"regexp"
	"strconv"
	"strings"
)

// Header is the identifying line of a hypothesis block.
type Header struct {
	SequenceID int
	Title      string

	// end is the byte offset just past the header in the block.
	end int
}

// headerPattern accepts the id-and-colon bounded by "**" on both sides, with
// the title either inside the markers ("**H3: Title**") or after them
// ("**H-3:** Title").
var headerPattern = regexp.MustCompile(
	`(?i)\*\*[ \t]*H-?[ \t]*(\d+)[ \t]*:` +
		`(?:` +
		`[ \t]*\*\*[ \t]*([^\n]*[^\s*][^\n]*)` +
		`|` +
		`[ \t]*([^\n]*?[^\s*])[ \t]*\*\*` +
		`)`)

// ExtractHeader finds the first header in block. It reports false when no
// header matches, the title is empty, or the id is not a positive integer.
func ExtractHeader(block string) (Header, bool) {
	m := headerPattern.FindStringSubmatchIndex(block)
	if m == nil {
		return Header{}, false
	}

	id, err := strconv.Atoi(block[m[2]:m[3]])
	if err != nil || id <= 0 {
		return Header{}, false
	}

	var title string
	switch {
	case m[4] >= 0:
		title = block[m[4]:m[5]]
	case m[6] >= 0:
		title = block[m[6]:m[7]]
	}
	title = strings.TrimSpace(strings.Trim(strings.TrimSpace(title), "*"))
	if title == "" {
		return Header{}, false
	}

	return Header{SequenceID: id, Title: title, end: m[1]}, true
}
