package sources

import (
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// timeLayouts — форматы дат, встречающиеся у платформ. Порядок важен:
// первым пробуется строгий RFC3339.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	time.RFC1123Z,
	time.RFC1123,
	"Mon Jan 2 15:04:05 -0700 2006", // twitter v1 / legacy
	"2006-01-02T15:04:05.000Z",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseTime разбирает дату терпимо: неразбираемое значение дает nil,
// никогда не ошибку.
func parseTime(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return &t
		}
	}
	return nil
}

// unixTime интерпретирует число как unix-секунды либо миллисекунды.
func unixTime(v float64) *time.Time {
	if v <= 0 {
		return nil
	}
	sec := int64(v)
	if sec > 1e12 { // миллисекунды
		t := time.UnixMilli(sec).UTC()
		return &t
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}

// optInt возвращает указатель на число, только если поле присутствует.
func optInt(res gjson.Result) *int64 {
	if !res.Exists() {
		return nil
	}
	n := res.Int()
	return &n
}

// optBool — как optInt для булевых полей.
func optBool(res gjson.Result) *bool {
	if !res.Exists() {
		return nil
	}
	b := res.Bool()
	return &b
}

// htmlTagPattern используется для грубой очистки HTML-разметки статусов.
var htmlTagPattern = regexp.MustCompile(`<[^>]+>`)

// stripHTMLTags убирает разметку и декодирует базовые сущности.
func stripHTMLTags(s string) string {
	out := htmlTagPattern.ReplaceAllString(strings.ReplaceAll(s, "</p>", "\n"), "")
	return strings.TrimSpace(html.UnescapeString(out))
}

// rawMap превращает произвольный JSON-узел в дерево map[string]any для
// поля raw. Не-объекты заворачиваются под ключ value.
func rawMap(res gjson.Result) map[string]any {
	if !res.Exists() {
		return nil
	}
	if v, ok := res.Value().(map[string]any); ok {
		return v
	}
	return map[string]any{"value": res.Value()}
}
