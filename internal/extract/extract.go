package extract

import (
	"regexp"
	"sort"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// Пакет-уровневые паттерны: компилируются один раз при старте,
// а не на каждый вызов, т.к. extraction — горячий путь пайплайна.
var (
	// emailPattern — намеренно нестрогий (RFC-lax) паттерн адреса.
	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)

	// urlPattern ловит и полные http(s)-ссылки, и "голые" www-хосты.
	urlPattern = regexp.MustCompile(`(?i)(?:https?://|www\.)[^\s<>"'` + "`" + `]+`)

	// phonePattern — кандидаты телефонных номеров; валидация отдельно.
	phonePattern = regexp.MustCompile(`\+?\d[\d\-\s().]{5,}\d`)

	hashtagPattern = regexp.MustCompile(`#([A-Za-z0-9_]{2,100})`)
	mentionPattern = regexp.MustCompile(`@([A-Za-z0-9_.]{2,50})`)

	digitsOnly = regexp.MustCompile(`\D`)
)

// Emails возвращает отсортированный список уникальных адресов в нижнем регистре.
func Emails(text string) []string {
	seen := make(map[string]struct{})
	for _, m := range emailPattern.FindAllString(text, -1) {
		seen[strings.ToLower(strings.Trim(m, "."))] = struct{}{}
	}
	return sortedKeys(seen)
}

// URLs возвращает отсортированные уникальные ссылки; голые www-хосты
// получают префикс https://.
func URLs(text string) []string {
	seen := make(map[string]struct{})
	for _, m := range urlPattern.FindAllString(text, -1) {
		u := strings.TrimRight(m, ".,;:!?)]}\"'")
		if u == "" {
			continue
		}
		if strings.HasPrefix(strings.ToLower(u), "www.") {
			u = "https://" + u
		}
		seen[u] = struct{}{}
	}
	return sortedKeys(seen)
}

// Phones возвращает отсортированные уникальные номера в формате E.164.
// Кандидаты без кода страны парсятся как US; остаются только номера,
// прошедшие валидацию библиотеки.
func Phones(text string) []string {
	seen := make(map[string]struct{})
	for _, m := range phonePattern.FindAllString(text, -1) {
		if len(digitsOnly.ReplaceAllString(m, "")) < 7 {
			continue
		}
		region := "US"
		if strings.HasPrefix(m, "+") {
			region = ""
		}
		num, err := phonenumbers.Parse(m, region)
		if err != nil || !phonenumbers.IsValidNumber(num) {
			continue
		}
		seen[phonenumbers.Format(num, phonenumbers.E164)] = struct{}{}
	}
	return sortedKeys(seen)
}

// Hashtags возвращает отсортированные уникальные теги без символа '#'.
func Hashtags(text string) []string {
	seen := make(map[string]struct{})
	for _, m := range hashtagPattern.FindAllStringSubmatch(text, -1) {
		seen[m[1]] = struct{}{}
	}
	return sortedKeys(seen)
}

// Mentions возвращает отсортированные уникальные упоминания без '@'.
// Адреса почты предварительно вырезаются, чтобы домены не считались
// упоминаниями.
func Mentions(text string) []string {
	cleaned := emailPattern.ReplaceAllString(text, " ")
	seen := make(map[string]struct{})
	for _, m := range mentionPattern.FindAllStringSubmatch(cleaned, -1) {
		handle := strings.Trim(m[1], ".")
		if len(handle) >= 2 {
			seen[handle] = struct{}{}
		}
	}
	return sortedKeys(seen)
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
