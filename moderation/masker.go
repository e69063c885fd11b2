// Package moderation masks forbidden words in visitor content before it is
// stored. Matching runs over a normalized view of the text (lowercased,
// leet-speak folded, punctuation stripped) while replacement happens on the
// original runes, so spacing and casing of the surroundings survive.
package moderation

import (
	"unicode"

	"github.com/abadojack/whatlanggo"
	goahocorasick "github.com/anknown/ahocorasick"
	"github.com/samber/lo"

	"chat-core/errors"
)

type Masker struct {
	machine     *goahocorasick.Machine
	replacement rune
}

// NewMasker builds the Aho-Corasick automaton once; Mask is then safe for
// concurrent use.
func NewMasker(words []string, replacement rune) (*Masker, error) {
	if len(words) == 0 {
		return nil, errors.ErrEmptyWords
	}
	patterns := lo.FilterMap(words, func(w string, _ int) ([]rune, bool) {
		p := normalize([]rune(w))
		return p, len(p) > 0
	})
	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return nil, err
	}
	return &Masker{machine: m, replacement: replacement}, nil
}

// Mask returns the content with every forbidden span replaced and the list
// of matched (normalized) words for audit metadata.
func (m *Masker) Mask(content string) (string, []string) {
	orig := []rune(content)
	norm := make([]rune, 0, len(orig))
	origIdx := make([]int, 0, len(orig))
	for i, r := range orig {
		c := foldLeet(r)
		if isNoise(c) {
			continue
		}
		norm = append(norm, unicode.ToLower(c))
		origIdx = append(origIdx, i)
	}
	if len(norm) == 0 {
		return content, nil
	}

	spans := m.machine.MultiPatternSearch(norm, false)
	if len(spans) == 0 {
		return content, nil
	}

	var hits []string
	for _, span := range spans {
		start := span.Pos
		end := start + len(span.Word)
		if start < 0 || end > len(origIdx) {
			continue
		}
		hits = append(hits, string(span.Word))
		for i := origIdx[start]; i <= origIdx[end-1]; i++ {
			orig[i] = m.replacement
		}
	}
	return string(orig), hits
}

// DetectLanguage returns the ISO 639-1 code of the content, or "" when
// detection is unreliable.
func DetectLanguage(content string) string {
	info := whatlanggo.Detect(content)
	if !info.IsReliable() {
		return ""
	}
	return info.Lang.Iso6391()
}

func normalize(in []rune) []rune {
	out := make([]rune, 0, len(in))
	for _, r := range in {
		c := foldLeet(r)
		if isNoise(c) {
			continue
		}
		out = append(out, unicode.ToLower(c))
	}
	return out
}

// foldLeet maps common letter substitutions back to their plain form so
// "h4te" matches "hate".
func foldLeet(r rune) rune {
	switch r {
	case '4', '@':
		return 'a'
	case '3':
		return 'e'
	case '1', '!', '|':
		return 'i'
	case '0':
		return 'o'
	case '5', '$':
		return 's'
	default:
		return r
	}
}

func isNoise(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r)
}
