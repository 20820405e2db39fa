// Package vocab extracts English headwords from pasted vocabulary lists.
//
// Input is whatever a learner copies out of a word book or app export, one
// entry per line: "abandon v. 放弃", "1. ability [əˈbɪləti] n. 能力",
// "- economy". Only the leading Latin word of each line is kept.
package vocab

import (
	"regexp"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/SmartRead/internal/analysis/normalizer"
)

// prefixRules are stripped from the start of a line, in order, before the
// headword rule is applied.
var prefixRules = []*regexp.Regexp{
	regexp.MustCompile(`^\s+`),
	regexp.MustCompile(`^\(?\d+\s*[.)、:：]?\s*`),
	regexp.MustCompile(`^[-*•·>]+\s*`),
}

var (
	headwordPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z'-]+`)
	nonWordChars    = regexp.MustCompile(`[^a-z-]`)
)

// Parser extracts deduplicated headwords. The zero value is not usable; use
// NewParser.
type Parser struct {
	stop map[string]struct{}
}

// NewParser returns a Parser that drops the base English stop-words.
func NewParser() *Parser {
	return &Parser{stop: normalizer.BaseStopWords()}
}

// Parse never fails. Lines without a Latin headword contribute nothing; an
// input with no headwords yields an empty, non-nil slice. The result is
// sorted.
func (p *Parser) Parse(text string) []string {
	seen := make(map[string]struct{})
	for _, line := range strings.Split(text, "\n") {
		word, ok := p.ParseLine(line)
		if !ok {
			continue
		}
		seen[word] = struct{}{}
	}
	words := make([]string, 0, len(seen))
	for w := range seen {
		words = append(words, w)
	}
	sort.Strings(words)
	return words
}

// ParseLine extracts the headword of a single line.
func (p *Parser) ParseLine(line string) (string, bool) {
	line = strings.TrimRight(line, "\r")
	if strings.TrimSpace(line) == "" {
		return "", false
	}
	for _, rule := range prefixRules {
		line = rule.ReplaceAllString(line, "")
	}
	match := headwordPattern.FindString(line)
	if match == "" {
		return "", false
	}
	word := nonWordChars.ReplaceAllString(strings.ToLower(match), "")
	word = strings.Trim(word, "-")
	if len(word) < 2 {
		return "", false
	}
	if _, isStop := p.stop[word]; isStop {
		return "", false
	}
	return word, true
}

// Parse extracts headwords with a default Parser.
func Parse(text string) []string {
	return NewParser().Parse(text)
}
