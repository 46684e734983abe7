// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package phases

import (
	"embed"
	"fmt"
	"strings"
	"text/template"
	"unicode/utf8"
)

//go:embed prompts/*.tmpl
var promptFS embed.FS

var prompts = template.Must(template.New("").ParseFS(promptFS, "prompts/*.tmpl"))

// questionRule is the delimiter the question prompts ask the model to put
// between hypotheses. The parser accepts any run of 20 or more '='.
var questionRule = strings.Repeat("=", 60)

// minLensSets is the minimum number of alternative sets asked of each lens.
const minLensSets = 10

type sourceData struct {
	Text       string
	Brainstorm string
	Truncated  bool
}

type lensData struct {
	Summary string
	MinSets int
}

type synthesisData struct {
	LensA, LensB, LensC string
}

type questionData struct {
	Synthesis    string
	NumQuestions int
	Rule         string
}

type rankingData struct {
	Questions string
	Ranking   string
	TopN      int
}

// render executes the named prompt template.
func render(name string, data any) (string, error) {
	var b strings.Builder
	if err := prompts.ExecuteTemplate(&b, name, data); err != nil {
		return "", fmt.Errorf("rendering %s prompt: %w", name, err)
	}
	return b.String(), nil
}

// systemPrompt is sent as the system instruction on every phase call.
var systemPrompt = func() string {
	s, err := render("system", nil)
	if err != nil {
		panic(err)
	}
	return s
}()

// truncate cuts s to at most n bytes on a rune boundary and reports
// whether anything was removed. n <= 0 disables truncation.
func truncate(s string, n int) (string, bool) {
	if n <= 0 || len(s) <= n {
		return s, false
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n], true
}
