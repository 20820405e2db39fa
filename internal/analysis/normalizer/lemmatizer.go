package normalizer

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/aaaton/golem/v4"
	"github.com/aaaton/golem/v4/dicts/en"
)

// POS selects the detachment rule table used during lemmatisation.
type POS int

const (
	Noun POS = iota
	Verb
)

func (p POS) String() string {
	switch p {
	case Noun:
		return "noun"
	case Verb:
		return "verb"
	default:
		return "unknown"
	}
}

// Dictionary answers lemma lookups. *golem.Lemmatizer satisfies it.
type Dictionary interface {
	InDict(word string) bool
	Lemmas(word string) []string
}

type detachRule struct {
	suffix      string
	replacement string
}

// Candidates are generated in rule order; among those the dictionary accepts
// the shortest wins.
var detachRules = map[POS][]detachRule{
	Noun: {
		{"s", ""},
		{"ses", "s"},
		{"ves", "f"},
		{"xes", "x"},
		{"zes", "z"},
		{"ches", "ch"},
		{"shes", "sh"},
		{"men", "man"},
		{"ies", "y"},
	},
	Verb: {
		{"s", ""},
		{"ies", "y"},
		{"ied", "y"},
		{"es", "e"},
		{"es", ""},
		{"ed", "e"},
		{"ed", ""},
		{"ing", "e"},
		{"ing", ""},
	},
}

// invariantForms end like inflections but are their own base form in both
// passes.
var invariantForms = map[string]struct{}{
	"news": {}, "politics": {}, "physics": {}, "economics": {},
	"mathematics": {}, "ethics": {}, "species": {}, "series": {},
}

// verbExceptions are irregular participles the rule table would misread.
var verbExceptions = map[string]string{
	"dying": "die",
	"lying": "lie",
	"tying": "tie",
	"vying": "vie",
}

// Lemmatizer reduces inflected forms to a base form for one part of speech
// at a time.
type Lemmatizer struct {
	dict Dictionary
}

// NewLemmatizer wraps a Dictionary. A nil dictionary makes every lookup an
// identity.
func NewLemmatizer(dict Dictionary) *Lemmatizer {
	return &Lemmatizer{dict: dict}
}

// NewEnglishLemmatizer loads the bundled English dictionary.
func NewEnglishLemmatizer() (*Lemmatizer, error) {
	g, err := golem.New(en.New())
	if err != nil {
		return nil, fmt.Errorf("loading english lemma dictionary: %w", err)
	}
	return NewLemmatizer(&lockedDict{dict: g}), nil
}

// lockedDict serialises lookups; golem sorts its lemma slices in place on
// every Lemmas call.
type lockedDict struct {
	mu   sync.Mutex
	dict Dictionary
}

func (d *lockedDict) InDict(word string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dict.InDict(word)
}

func (d *lockedDict) Lemmas(word string) []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.dict.Lemmas(word))
}

// Lemmatize returns the base form of word for the given part of speech, or
// word itself when no base form is known.
func (l *Lemmatizer) Lemmatize(word string, pos POS) string {
	if l == nil || l.dict == nil || word == "" {
		return word
	}
	if _, ok := invariantForms[word]; ok {
		return word
	}
	if pos == Verb {
		if base, ok := verbExceptions[word]; ok {
			return base
		}
	}
	candidates := candidatesFor(word, pos)
	if !l.dict.InDict(word) {
		return shortest(candidates, l.dict.InDict, word)
	}

	lemmas := l.dict.Lemmas(word)
	inLemmas := func(c string) bool { return slices.Contains(lemmas, c) }
	if c := shortest(candidates, inLemmas, ""); c != "" {
		return c
	}
	// The dictionary lists many participles ("learning", "building") as
	// nouns of their own without linking them back to the verb.
	if pos == Verb && listedAsInflection(word, lemmas) && !l.isVerbBase(word, lemmas) {
		if c := l.verbBase(candidates); c != "" {
			return c
		}
	}
	if len(lemmas) == 0 || slices.Contains(lemmas, word) {
		return word
	}
	// irregular form, e.g. "went" or "children"
	return lemmas[0]
}

// isBase reports whether the dictionary treats w as a head word.
func (l *Lemmatizer) isBase(w string) bool {
	return l.dict.InDict(w) && slices.Contains(l.dict.Lemmas(w), w)
}

// verbBase picks the longest rule candidate the dictionary knows as a head
// word. A stem+"e" candidate only beats its bare stem when the stem needs
// the silent e: "hoped" is "hope" but "singing" is "sing".
func (l *Lemmatizer) verbBase(candidates []string) string {
	bases := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if len(c) >= 3 && l.isBase(c) {
			bases = append(bases, c)
		}
	}
	best := ""
	for _, c := range bases {
		if stem, ok := strings.CutSuffix(c, "e"); ok && slices.Contains(bases, stem) && !needsSilentE(stem) {
			continue
		}
		if len(c) > len(best) {
			best = c
		}
	}
	return best
}

// isVerbBase reports whether word is a head word that carries inflections of
// its own, as "feed" (feeding) or "atlas" (atlases) do.
func (l *Lemmatizer) isVerbBase(word string, lemmas []string) bool {
	if !slices.Contains(lemmas, word) || strings.HasSuffix(word, "ing") {
		return false
	}
	if strings.HasSuffix(word, "ed") && !strings.HasSuffix(word, "eed") {
		return false
	}
	last := word[len(word)-1:]
	forms := []string{word + "ed", word + "ing", word + last + "ed", word + last + "ing"}
	if strings.HasSuffix(word, "e") {
		forms = append(forms, word+"d", word[:len(word)-1]+"ing")
	}
	if strings.HasSuffix(word, "s") {
		forms = append(forms, word+"es")
	}
	return slices.ContainsFunc(forms, l.dict.InDict)
}

func listedAsInflection(word string, lemmas []string) bool {
	return len(lemmas) > 1 || (len(lemmas) == 1 && lemmas[0] != word)
}

// needsSilentE reports whether a stem ends consonant-vowel-consonant, or in
// a letter English words do not end on.
func needsSilentE(stem string) bool {
	if strings.HasSuffix(stem, "v") || strings.HasSuffix(stem, "u") {
		return true
	}
	n := len(stem)
	if n < 3 {
		return false
	}
	return !isVowel(stem[n-1]) && strings.IndexByte("wxy", stem[n-1]) < 0 &&
		isVowel(stem[n-2]) && !isVowel(stem[n-3])
}

func isVowel(b byte) bool {
	return strings.IndexByte("aeiou", b) >= 0
}

// shortest returns the shortest accepted candidate, the earliest on ties.
func shortest(candidates []string, accept func(string) bool, fallback string) string {
	best := ""
	for _, c := range candidates {
		if !accept(c) {
			continue
		}
		if best == "" || len(c) < len(best) {
			best = c
		}
	}
	if best == "" {
		return fallback
	}
	return best
}

func candidatesFor(word string, pos POS) []string {
	rules := detachRules[pos]
	out := make([]string, 0, len(rules)+1)
	for _, r := range rules {
		if !strings.HasSuffix(word, r.suffix) {
			continue
		}
		stem := word[:len(word)-len(r.suffix)]
		if len(stem) < 2 {
			continue
		}
		out = append(out, stem+r.replacement)
		if pos == Verb && r.replacement == "" && (r.suffix == "ed" || r.suffix == "ing") {
			if undoubled, ok := undouble(stem); ok {
				out = append(out, undoubled)
			}
		}
	}
	return out
}

// undouble handles "running" -> "run" and "stopped" -> "stop".
func undouble(stem string) (string, bool) {
	n := len(stem)
	if n < 3 || stem[n-1] != stem[n-2] {
		return "", false
	}
	if isVowel(stem[n-1]) {
		return "", false
	}
	return stem[:n-1], true
}
