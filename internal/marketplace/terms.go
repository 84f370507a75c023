package marketplace

import "strings"

// TermRule adds search terms when every All keyword is present in the item
// name and no None keyword is.
type TermRule struct {
	All   []string
	None  []string
	Terms []string
}

// TermRules is applied in order after the item name itself.
var TermRules = []TermRule{
	{All: []string{"wilson", "football"}, Terms: []string{
		"Wilson NFL football", "Wilson football official", "Wilson composite football",
		"football Wilson", "NFL football", "football official size",
	}},
	{All: []string{"baseball", "equipment"}, Terms: []string{"baseball cap", "baseball hat", "MLB cap", "sports cap"}},
	{All: []string{"baseball", "cap"}, Terms: []string{"baseball cap", "MLB cap", "fitted cap", "snapback cap"}},
	{All: []string{"hat"}, None: []string{"baseball"}, Terms: []string{"baseball cap", "sports hat", "fitted hat"}},
	{All: []string{"titleist"}, Terms: []string{"Titleist golf hat", "Titleist cap", "golf cap", "golf hat"}},
	{All: []string{"football"}, Terms: []string{"NFL football", "football official", "composite football", "football leather"}},
	{All: []string{"basketball"}, Terms: []string{"basketball official", "NBA basketball", "basketball spalding"}},
	{All: []string{"sneakers"}, Terms: []string{"athletic shoes", "running shoes", "basketball shoes"}},
	{All: []string{"shoes"}, Terms: []string{"athletic shoes", "running shoes", "basketball shoes"}},
	{All: []string{"electronics"}, Terms: []string{"vintage electronics", "electronic device"}},
}

// SearchTerms expands an item name into the ordered, de-duplicated list of
// search terms to try. The item name always comes first.
func SearchTerms(itemName string) []string {
	return expandTerms(itemName, TermRules)
}

func expandTerms(itemName string, rules []TermRule) []string {
	name := strings.TrimSpace(itemName)
	if name == "" {
		return nil
	}
	lower := strings.ToLower(name)

	seen := map[string]bool{}
	var terms []string
	add := func(term string) {
		key := strings.ToLower(term)
		if seen[key] {
			return
		}
		seen[key] = true
		terms = append(terms, term)
	}

	add(name)
	for _, rule := range rules {
		if !containsAll(lower, rule.All) || containsAny(lower, rule.None) {
			continue
		}
		for _, term := range rule.Terms {
			add(term)
		}
	}
	return terms
}

func containsAll(s string, words []string) bool {
	for _, w := range words {
		if !strings.Contains(s, w) {
			return false
		}
	}
	return len(words) > 0
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
