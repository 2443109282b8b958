package schema

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// stopWords carry no meaning for option matching ("can be sown directly").
var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "or": {}, "the": {}, "to": {}, "of": {}, "in": {},
	"into": {}, "with": {}, "can": {}, "be": {}, "is": {}, "are": {}, "some": {},
	"it": {}, "its": {}, "for": {}, "but": {}, "as": {}, "on": {}, "at": {},
	"by": {}, "from": {}, "may": {}, "also": {}, "well": {}, "very": {},
	"best": {}, "should": {}, "then": {}, "this": {}, "that": {},
}

// lemmas folds inflections onto one token. Keys are already de-pluralized.
var lemmas = map[string]string{
	"sown":         "sow",
	"sowed":        "sow",
	"sowing":       "sow",
	"directly":     "direct",
	"started":      "start",
	"starting":     "start",
	"inside":       "indoor",
	"outside":      "outdoor",
	"part":         "partial",
	"partially":    "partial",
	"shady":        "shade",
	"shaded":       "shade",
	"sunny":        "sun",
	"sunlight":     "sun",
	"transplanted": "transplant",
	"grown":        "grow",
	"growing":      "grow",
	"veggie":       "vegetable",
	"flowering":    "flower",
}

// Tokens splits s into the normalized token set used for enum matching:
// NFKC, lowercase, split on anything that is not a letter or digit, stop
// words removed, trailing plural "s" dropped, then lemmatized. Order is
// first-seen and tokens are unique.
func Tokens(s string) []string {
	s = strings.ToLower(norm.NFKC.String(s))
	words := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	seen := make(map[string]struct{}, len(words))
	out := make([]string, 0, len(words))
	for _, w := range words {
		if _, stop := stopWords[w]; stop {
			continue
		}
		if len(w) > 3 && strings.HasSuffix(w, "s") && !strings.HasSuffix(w, "ss") {
			w = strings.TrimSuffix(w, "s")
		}
		if l, ok := lemmas[w]; ok {
			w = l
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}

// CanonicalizeEnumValue maps free text onto one of an enum field's canonical
// values. It tries, in order:
//
//  1. an exact case-insensitive match on an option value,
//  2. an exact case-insensitive match on an option synonym,
//  3. token containment: raw contains every token of a value or synonym, or
//     one of those contains every token of raw.
//
// When several options match in step 3, the first declared option wins.
func (r *Registry) CanonicalizeEnumValue(key, raw string) (string, bool) {
	f, ok := r.Get(key)
	if !ok || !f.Kind.IsEnum() {
		return "", false
	}

	needle := strings.TrimSpace(norm.NFKC.String(raw))
	if needle == "" {
		return "", false
	}

	for _, o := range f.Options {
		if strings.EqualFold(o.Value, needle) {
			return o.Value, true
		}
	}
	for _, o := range f.Options {
		for _, syn := range o.Synonyms {
			if strings.EqualFold(syn, needle) {
				return o.Value, true
			}
		}
	}

	rawTokens := Tokens(needle)
	if len(rawTokens) == 0 {
		return "", false
	}
	for _, o := range f.Options {
		terms := append([]string{o.Value}, o.Synonyms...)
		for _, term := range terms {
			termTokens := Tokens(term)
			if len(termTokens) == 0 {
				continue
			}
			if containsAll(rawTokens, termTokens) || containsAll(termTokens, rawTokens) {
				return o.Value, true
			}
		}
	}
	return "", false
}

func containsAll(haystack, needles []string) bool {
	set := make(map[string]struct{}, len(haystack))
	for _, h := range haystack {
		set[h] = struct{}{}
	}
	for _, n := range needles {
		if _, ok := set[n]; !ok {
			return false
		}
	}
	return true
}
