package matcher

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// Tolerance — уровень терпимости поиска, отображаемый в порог схожести.
type Tolerance string

const (
	ToleranceLow    Tolerance = "low"
	ToleranceMedium Tolerance = "medium"
	ToleranceHigh   Tolerance = "high"
)

// Threshold возвращает минимальный балл схожести для уровня.
func (t Tolerance) Threshold() int {
	switch t {
	case ToleranceLow:
		return 80
	case ToleranceHigh:
		return 60
	default:
		return 70
	}
}

// Типы совпадений.
const (
	MatchExact     = "exact"
	MatchVariation = "variation"
	MatchFuzzy     = "fuzzy"
	MatchPattern   = "pattern"
)

// Similarity возвращает балл 0–100. Метрика симметрична и рефлексивна:
// точное совпадение без учета регистра — 100, пустой вход — 0. Иначе
// расстояние Левенштейна, нормированное на длину большей строки.
func Similarity(a, b string) int {
	if a == "" || b == "" {
		return 0
	}
	la, lb := strings.ToLower(a), strings.ToLower(b)
	if la == lb {
		return 100
	}

	dist := levenshtein.ComputeDistance(la, lb)
	maxLen := len([]rune(la))
	if n := len([]rune(lb)); n > maxLen {
		maxLen = n
	}
	score := 100 - (100*dist)/maxLen
	if score < 0 {
		return 0
	}
	return score
}

// Match — кандидат с баллом схожести.
type Match struct {
	Candidate string `json:"candidate"`
	Score     int    `json:"score"`
}

// FuzzyMatch возвращает до limit кандидатов с баллом >= threshold,
// по убыванию балла. Равные баллы упорядочены по имени для
// детерминированности.
func FuzzyMatch(query string, candidates []string, threshold, limit int) []Match {
	var matches []Match
	for _, c := range candidates {
		if score := Similarity(query, c); score >= threshold {
			matches = append(matches, Match{Candidate: c, Score: score})
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Candidate < matches[j].Candidate
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// separatorReplacer выбрасывает все разделители для сравнения вариаций.
var separatorReplacer = strings.NewReplacer("_", "", ".", "", "-", "")

// MatchType классифицирует совпадение a и b при известном балле.
func MatchType(a, b string, score int) string {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	if la == lb {
		return MatchExact
	}
	if separatorReplacer.Replace(la) == separatorReplacer.Replace(lb) {
		return MatchVariation
	}
	if score >= 70 {
		return MatchFuzzy
	}
	return MatchPattern
}
