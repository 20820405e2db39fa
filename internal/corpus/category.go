package corpus

import (
	"regexp"
	"strconv"
	"strings"
)

// DefaultCategory labels files whose names match no rule.
const DefaultCategory = "其他"

// CategoryRule maps any of Keywords, found as a substring of the lowercased
// file name, to Label.
type CategoryRule struct {
	Label    string
	Keywords []string
}

// CategoryRules are evaluated in order and the first match wins, so more
// specific keywords must come before keywords they contain.
var CategoryRules = []CategoryRule{
	{Label: "英语一", Keywords: []string{"eng1", "english1", "英语一", "英一"}},
	{Label: "英语二", Keywords: []string{"eng2", "english2", "英语二", "英二"}},
	{Label: "四级", Keywords: []string{"cet4", "cet-4", "cet_4", "四级"}},
	{Label: "六级", Keywords: []string{"cet6", "cet-6", "cet_6", "六级"}},
	{Label: "专四", Keywords: []string{"tem4", "tem-4", "专四"}},
	{Label: "专八", Keywords: []string{"tem8", "tem-8", "专八"}},
	{Label: "雅思", Keywords: []string{"ielts", "雅思"}},
	{Label: "托福", Keywords: []string{"toefl", "托福"}},
}

// ClassifyFilename returns the label of the first rule with a keyword in
// name, or DefaultCategory.
func ClassifyFilename(name string) string {
	return classify(CategoryRules, name)
}

func classify(rules []CategoryRule, name string) string {
	lower := strings.ToLower(name)
	for _, rule := range rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(lower, kw) {
				return rule.Label
			}
		}
	}
	return DefaultCategory
}

var yearPattern = regexp.MustCompile(`20\d{2}`)

// ExtractYear returns the first 20xx year in name, or UnknownYear.
func ExtractYear(name string) int {
	m := yearPattern.FindString(name)
	if m == "" {
		return UnknownYear
	}
	year, err := strconv.Atoi(m)
	if err != nil {
		return UnknownYear
	}
	return year
}
