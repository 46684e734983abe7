// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package hypothesis

import (
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/chronos/pkg/types"
)

// ErrEmptyInput is returned by ParseStrict when the model produced no text.
// Callers treat it as an upstream generation failure.
var ErrEmptyInput = errors.New("empty model output")

// Result is the outcome of one parse.
type Result struct {
	Records     []types.HypothesisRecord `json:"hypotheses" yaml:"hypotheses"`
	Diagnostics types.ParseDiagnostics   `json:"diagnostics" yaml:"diagnostics"`
}

// Warning returns the user-facing warning for an empty result, or "".
func (r Result) Warning() string {
	if r.Diagnostics.Empty() {
		return types.NoHypothesesWarning
	}
	return ""
}

// Parser assembles hypothesis records from model output.
type Parser struct {
	logger *zap.Logger
}

// NewParser returns a Parser that logs rejected blocks at debug level.
// A nil logger disables logging.
func NewParser(logger *zap.Logger) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{logger: logger}
}

// Parse parses text with a non-logging Parser.
func Parse(text string) Result {
	return NewParser(nil).Parse(text)
}

// ParseStrict is Parse, except that empty or whitespace-only input is
// reported as ErrEmptyInput.
func (p *Parser) ParseStrict(text string) (Result, error) {
	if strings.TrimSpace(text) == "" {
		return Result{}, ErrEmptyInput
	}
	return p.Parse(text), nil
}

// Parse splits text into blocks and assembles one record per readable block,
// in input order. It never fails; rejected blocks are counted in the
// diagnostics. Parsing the same text twice gives the same result.
func (p *Parser) Parse(text string) Result {
	var res Result
	seen := map[int]bool{}

	index := 0
	for block := range Segment(text) {
		index++
		res.Diagnostics.BlocksSeen++

		hdr, ok := ExtractHeader(block)
		if !ok {
			res.Diagnostics.HeaderRejected++
			p.logger.Debug("block rejected", zap.Int("block", index), zap.String("reason", "no header"), zap.String("start", preview(block)))
			continue
		}
		if seen[hdr.SequenceID] {
			res.Diagnostics.HeaderRejected++
			p.logger.Debug("block rejected", zap.Int("block", index), zap.String("reason", "duplicate sequence id"), zap.Int("sequence_id", hdr.SequenceID))
			continue
		}

		rec, ok := assemble(hdr, block[hdr.end:])
		if !ok {
			res.Diagnostics.EmptyRejected++
			p.logger.Debug("block rejected", zap.Int("block", index), zap.String("reason", "no fields"), zap.Int("sequence_id", hdr.SequenceID))
			continue
		}

		seen[hdr.SequenceID] = true
		res.Records = append(res.Records, rec)
		res.Diagnostics.Assembled++
	}

	if res.Diagnostics.Empty() {
		p.logger.Warn(types.NoHypothesesWarning, zap.Int("blocks_seen", res.Diagnostics.BlocksSeen))
	} else {
		p.logger.Debug("parsed hypotheses",
			zap.Int("blocks_seen", res.Diagnostics.BlocksSeen),
			zap.Int("header_rejected", res.Diagnostics.HeaderRejected),
			zap.Int("empty_rejected", res.Diagnostics.EmptyRejected),
			zap.Int("assembled", res.Diagnostics.Assembled))
	}
	return res
}

// assemble builds a record from a header and the block text after it. It
// reports false when neither sub-schema yielded a field.
func assemble(hdr Header, body string) (types.HypothesisRecord, bool) {
	compact, detailed := extractFields(body)
	if compact.Present() == 0 && len(detailed) == 0 {
		return types.HypothesisRecord{}, false
	}
	return types.HypothesisRecord{
		SequenceID:       hdr.SequenceID,
		DomainTitle:      hdr.Title,
		Compact:          compact,
		Detailed:         detailed,
		TestabilityScore: testabilityScore(compact.Testability),
		InnovationLevel:  innovationLevel(compact.Innovation),
	}, true
}

func preview(s string) string {
	const n = 60
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > n {
		return string(r[:n]) + "..."
	}
	return s
}
