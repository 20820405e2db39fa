// Package normalizer turns raw English text into a set of lemmas.
//
// The pipeline is lowercase -> strip punctuation -> tokenize -> filter ->
// lemmatize as verb -> lemmatize as noun -> dedupe. Each stage is exported
// so it can be exercised on its own; Normalize runs them in order.
package normalizer

import (
	"sort"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/blevesearch/bleve/v2/analysis"
	bleveunicode "github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
)

// asciiPunctuation matches Python's string.punctuation.
const asciiPunctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

func isPunctuation(r rune) bool {
	if r < utf8.RuneSelf {
		return strings.ContainsRune(asciiPunctuation, r)
	}
	return unicode.IsPunct(r)
}

// LemmaSet is an unordered set of normalised word forms.
type LemmaSet map[string]struct{}

// NewLemmaSet builds a set from the given words.
func NewLemmaSet(words ...string) LemmaSet {
	s := make(LemmaSet, len(words))
	for _, w := range words {
		s[w] = struct{}{}
	}
	return s
}

// Has reports whether w is in the set.
func (s LemmaSet) Has(w string) bool {
	_, ok := s[w]
	return ok
}

// Len returns the number of lemmas.
func (s LemmaSet) Len() int { return len(s) }

// Sorted returns the lemmas in ascending order.
func (s LemmaSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for w := range s {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}

// Intersect returns the sorted lemmas present in both sets.
func (s LemmaSet) Intersect(other LemmaSet) []string {
	small, large := s, other
	if len(large) < len(small) {
		small, large = large, small
	}
	out := make([]string, 0)
	for w := range small {
		if _, ok := large[w]; ok {
			out = append(out, w)
		}
	}
	sort.Strings(out)
	return out
}

// Normalizer holds the immutable resources of the pipeline. It is safe for
// concurrent use.
type Normalizer struct {
	stop       map[string]struct{}
	tokenizer  analysis.Tokenizer
	lemmatizer *Lemmatizer
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithStopWords replaces the base stop-word set.
func WithStopWords(stop map[string]struct{}) Option {
	return func(n *Normalizer) { n.stop = stop }
}

// WithLemmatizer replaces the English dictionary lemmatizer.
func WithLemmatizer(l *Lemmatizer) Option {
	return func(n *Normalizer) { n.lemmatizer = l }
}

// New builds a Normalizer. Without WithLemmatizer the bundled English
// dictionary is loaded, which can fail.
func New(opts ...Option) (*Normalizer, error) {
	n := &Normalizer{
		stop:      BaseStopWords(),
		tokenizer: bleveunicode.NewUnicodeTokenizer(),
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.lemmatizer == nil {
		l, err := NewEnglishLemmatizer()
		if err != nil {
			return nil, err
		}
		n.lemmatizer = l
	}
	return n, nil
}

var defaultNormalizer = sync.OnceValues(func() (*Normalizer, error) {
	return New()
})

// Default returns the process-wide normaliser, loading the dictionary on
// first use.
func Default() (*Normalizer, error) {
	return defaultNormalizer()
}

// Normalize runs the full pipeline and returns the lemma set of text.
func (n *Normalizer) Normalize(text string) LemmaSet {
	tokens := n.Tokenize(StripPunctuation(Lowercase(text)))
	return Dedupe(n.Lemmatize(n.Filter(tokens)))
}

// Lowercase is the first stage.
func Lowercase(text string) string {
	return strings.ToLower(text)
}

// StripPunctuation replaces every punctuation character with a space so
// neighbouring words are never joined. Curly quotes and apostrophes count:
// "company’s" must yield "company".
func StripPunctuation(text string) string {
	return strings.Map(func(r rune) rune {
		if isPunctuation(r) {
			return ' '
		}
		return r
	}, text)
}

// Tokenize splits text on Unicode word boundaries.
func (n *Normalizer) Tokenize(text string) []string {
	stream := n.tokenizer.Tokenize([]byte(text))
	tokens := make([]string, 0, len(stream))
	for _, tok := range stream {
		tokens = append(tokens, string(tok.Term))
	}
	return tokens
}

// Filter keeps tokens that are not stop-words, longer than one character and
// purely alphabetic. Numerals, percentages and years are dropped here.
func (n *Normalizer) Filter(tokens []string) []string {
	kept := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if _, isStop := n.stop[tok]; isStop {
			continue
		}
		if utf8.RuneCountInString(tok) < 2 || !isAlpha(tok) {
			continue
		}
		kept = append(kept, tok)
	}
	return kept
}

// Lemmatize reduces each token as a verb and then reduces that result as a
// noun. The order matters: "studies" and "running" only collapse to "study"
// and "run" when the verb pass runs first.
func (n *Normalizer) Lemmatize(tokens []string) []string {
	out := make([]string, len(tokens))
	for i, tok := range tokens {
		out[i] = n.lemmatizer.Lemmatize(n.lemmatizer.Lemmatize(tok, Verb), Noun)
	}
	return out
}

// Dedupe collects tokens into a set.
func Dedupe(tokens []string) LemmaSet {
	return NewLemmaSet(tokens...)
}

func isAlpha(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
