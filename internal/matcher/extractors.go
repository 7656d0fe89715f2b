package matcher

import (
	"strings"
	"unicode"
)

// t9Letters — раскладка телефонной клавиатуры для декодирования цифр.
var t9Letters = map[rune]string{
	'2': "abc", '3': "def", '4': "ghi", '5': "jkl",
	'6': "mno", '7': "pqrs", '8': "tuv", '9': "wxyz",
}

// FromEmail выводит кандидатов-handle из адреса: локальная часть,
// она же без точек и без +tag, плюс пересборки точечных частей
// через разные разделители.
func FromEmail(email string) []string {
	at := strings.IndexByte(email, '@')
	if at <= 0 {
		return nil
	}
	local := strings.ToLower(email[:at])

	set := newVariationSet("", DefaultMaxVariations)
	set.add(local)

	noTag := local
	if plus := strings.IndexByte(local, '+'); plus > 0 {
		noTag = local[:plus]
		set.add(noTag)
	}
	set.add(strings.ReplaceAll(noTag, ".", ""))

	parts := strings.Split(noTag, ".")
	if len(parts) > 1 {
		for _, sep := range []string{"", "_", "-", "."} {
			set.add(strings.Join(parts, sep))
		}
	}
	return set.items
}

// FromName строит кандидатов из настоящего имени: комбинации first/last
// с разными разделителями, инициалами и перестановкой.
func FromName(name string) []string {
	var tokens []string
	for _, t := range strings.Fields(strings.ToLower(name)) {
		cleaned := strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) {
				return r
			}
			return -1
		}, t)
		if cleaned != "" {
			tokens = append(tokens, cleaned)
		}
	}
	if len(tokens) == 0 {
		return nil
	}

	set := newVariationSet("", DefaultMaxVariations)
	first := tokens[0]
	set.add(first)

	if len(tokens) == 1 {
		return set.items
	}

	last := tokens[len(tokens)-1]
	fi, li := first[:1], last[:1]

	for _, sep := range []string{"", ".", "_", "-"} {
		set.add(first + sep + last)
	}
	set.add(first + li)
	set.add(first + "_" + li)
	set.add(fi + last)
	set.add(fi + "_" + last)
	set.add(last + first)
	set.add(last + "_" + first)
	set.add(last)

	// Формы со средним инициалом.
	if len(tokens) > 2 {
		mi := tokens[1][:1]
		set.add(first + mi + last)
		set.add(fi + mi + last)
	}
	return set.items
}

// FromPhone выводит кандидатов из номера: последние 4/6/7 цифр и T9-
// декодирования последних четырех (не более десяти).
func FromPhone(phone string) []string {
	var digits []rune
	for _, r := range phone {
		if unicode.IsDigit(r) {
			digits = append(digits, r)
		}
	}
	if len(digits) < 4 {
		return nil
	}

	set := newVariationSet("", DefaultMaxVariations)
	for _, n := range []int{4, 6, 7} {
		if len(digits) >= n {
			set.add(string(digits[len(digits)-n:]))
		}
	}

	last4 := digits[len(digits)-4:]
	for _, decoded := range t9Decode(last4, 10) {
		set.add(decoded)
	}
	return set.items
}

// t9Decode перебирает буквенные раскодировки цифр, ограничивая выдачу.
func t9Decode(digits []rune, limit int) []string {
	results := []string{""}
	for _, d := range digits {
		letters, ok := t9Letters[d]
		if !ok {
			// 0 и 1 не несут букв — оставляем цифру как есть.
			letters = string(d)
		}
		var next []string
		for _, prefix := range results {
			for _, l := range letters {
				next = append(next, prefix+string(l))
				if len(next) >= limit {
					break
				}
			}
			if len(next) >= limit {
				break
			}
		}
		results = next
	}
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}
