package matcher

import (
	"strings"
	"unicode"
)

// DefaultMaxVariations ограничивает выдачу генератора: семейства
// применяются по порядку, хвост обрезается.
const DefaultMaxVariations = 64

// leetTable — замены leet-speak; до двух проходов подстановки. Порядок
// букв фиксирован: при усечении по max выдача должна быть стабильной.
var leetTable = []struct {
	letter rune
	subs   []string
}{
	{'a', []string{"4", "@", "*", "æ"}},
	{'b', []string{"8", "6", "|3"}},
	{'e', []string{"3", "€"}},
	{'g', []string{"9", "6"}},
	{'i', []string{"1", "!", "|", "ï"}},
	{'l', []string{"1", "|", "£"}},
	{'o', []string{"0", "@"}},
	{'s', []string{"5", "$", "z"}},
	{'t', []string{"7", "+", "†"}},
	{'z', []string{"2", "s"}},
}

var (
	separators      = []string{"_", ".", "-", ""}
	numericSuffixes = []string{"1", "123", "007", "42", "69", "99", "365", "777"}
	yearSuffixes    = []string{"90", "91", "92", "93", "94", "95", "96", "97", "98", "99", "00", "01", "02", "03", "04", "05", "06", "07", "08", "09"}
	commonPrefixes  = []string{"the", "mr", "mrs", "ms", "dr", "real", "iam", "its", "im"}
	commonSuffixes  = []string{"official", "real", "verified", "xoxo", "xo", "xx", "lol", "yolo"}
)

// variationSet накапливает варианты, сохраняя порядок вставки и лимит.
type variationSet struct {
	seen  map[string]struct{}
	items []string
	max   int
	base  string
}

func newVariationSet(base string, max int) *variationSet {
	return &variationSet{
		seen: map[string]struct{}{strings.ToLower(base): {}},
		max:  max,
		base: base,
	}
}

func (s *variationSet) add(v string) bool {
	if v == "" || len(s.items) >= s.max {
		return len(s.items) < s.max
	}
	key := strings.ToLower(v)
	if _, dup := s.seen[key]; dup {
		return true
	}
	s.seen[key] = struct{}{}
	s.items = append(s.items, v)
	return true
}

// Variations генерирует до max трансформаций handle. Семейства идут в
// фиксированном порядке, поэтому при усечении выживают ранние: замены
// разделителей, leet, регистр, обрезки, числовые суффиксы, приставки.
func Variations(handle string, max int) []string {
	handle = strings.TrimPrefix(strings.TrimSpace(handle), "@")
	if handle == "" {
		return nil
	}
	if max <= 0 {
		max = DefaultMaxVariations
	}

	set := newVariationSet(handle, max)
	separatorSwaps(set, handle)
	leetVariants(set, handle)
	caseVariants(set, handle)
	patternStrips(set, handle)
	numericTails(set, handle)
	affixes(set, handle)
	return set.items
}

// separatorSwaps заменяет существующие разделители и вставляет новые на
// границах буква-цифра.
func separatorSwaps(set *variationSet, handle string) {
	hasSeparator := strings.ContainsAny(handle, "_.-")
	for _, sep := range separators {
		if hasSeparator {
			v := handle
			for _, old := range []string{"_", ".", "-"} {
				v = strings.ReplaceAll(v, old, sep)
			}
			set.add(v)
		}
		if sep == "" {
			continue
		}
		if v := insertAtDigitBoundary(handle, sep); v != handle {
			set.add(v)
		}
	}
}

func insertAtDigitBoundary(handle, sep string) string {
	var b strings.Builder
	runes := []rune(handle)
	for i, r := range runes {
		if i > 0 {
			prev := runes[i-1]
			if (unicode.IsLetter(prev) && unicode.IsDigit(r)) ||
				(unicode.IsDigit(prev) && unicode.IsLetter(r)) {
				b.WriteString(sep)
			}
		}
		b.WriteRune(r)
	}
	return b.String()
}

// leetVariants — одна замена на вариант, затем второй проход поверх
// результатов первого.
func leetVariants(set *variationSet, handle string) {
	lower := strings.ToLower(handle)
	firstPass := substitutions(lower)
	for _, v := range firstPass {
		if !set.add(v) {
			return
		}
	}
	for _, v := range firstPass {
		for _, vv := range substitutions(v) {
			if !set.add(vv) {
				return
			}
		}
	}
}

func substitutions(s string) []string {
	var out []string
	for _, entry := range leetTable {
		if !strings.ContainsRune(s, entry.letter) {
			continue
		}
		for _, sub := range entry.subs {
			out = append(out, strings.ReplaceAll(s, string(entry.letter), sub))
		}
	}
	return out
}

func caseVariants(set *variationSet, handle string) {
	set.add(strings.ToLower(handle))
	set.add(strings.ToUpper(handle))
	if len(handle) > 1 {
		set.add(strings.ToUpper(handle[:1]) + strings.ToLower(handle[1:]))
	}
}

// patternStrips: без хвостовых цифр; инициалы из частей по разделителям.
func patternStrips(set *variationSet, handle string) {
	stripped := strings.TrimRightFunc(handle, unicode.IsDigit)
	if stripped != handle {
		set.add(stripped)
	}

	parts := strings.FieldsFunc(handle, func(r rune) bool {
		return r == '_' || r == '.' || r == '-'
	})
	if len(parts) > 1 {
		var initials strings.Builder
		for _, p := range parts {
			r := []rune(p)
			if len(r) > 0 {
				initials.WriteRune(r[0])
			}
		}
		set.add(initials.String())
	}
}

func numericTails(set *variationSet, handle string) {
	for _, suffix := range numericSuffixes {
		if !set.add(handle + suffix) {
			return
		}
	}
	for _, year := range yearSuffixes {
		if !set.add(handle + year) {
			return
		}
	}
}

func affixes(set *variationSet, handle string) {
	for _, prefix := range commonPrefixes {
		for _, sep := range []string{"", "_", "."} {
			if !set.add(prefix + sep + handle) {
				return
			}
		}
	}
	for _, suffix := range commonSuffixes {
		for _, sep := range []string{"", "_", "."} {
			if !set.add(handle + sep + suffix) {
				return
			}
		}
	}
}
