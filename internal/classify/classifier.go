// Package classify derives a human readable item category and brand from a
// bag of vision detections.
package classify

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/guarzo/thriftflip/internal/model"
)

// UnknownCategory is returned when nothing usable was detected.
const UnknownCategory = "Unknown Item"

// textOnlyConfidence is reported when a rule fired on OCR text alone.
const textOnlyConfidence = 0.5

// Classifier evaluates an ordered rule table and an independent brand table.
// A Classifier holds no mutable state and is safe for concurrent use.
type Classifier struct {
	rules  []Rule
	brands []Brand
}

// New returns a Classifier over the package default tables.
func New() *Classifier {
	return NewWithTables(Rules, Brands)
}

// NewWithTables returns a Classifier over caller supplied tables.
func NewWithTables(rules []Rule, brands []Brand) *Classifier {
	return &Classifier{rules: rules, brands: brands}
}

// Classify maps a detection bag to a category. It never fails.
func (c *Classifier) Classify(bag model.DetectionBag) model.CategoryResult {
	if bag.Empty() {
		return model.CategoryResult{Category: UnknownCategory}
	}

	detections := bag.All()
	blob := buildBlob(detections, bag.Text)
	brand, found := c.detectBrand(blob, buildBlob(bag.Logos, bag.Text))

	for _, rule := range c.rules {
		if !matchesAll(rule.Patterns, blob) {
			continue
		}

		result := model.CategoryResult{
			Category:        render(rule.Category, brand, found),
			Brand:           brand.Key,
			MatchConfidence: ruleConfidence(rule, detections),
		}
		if rule.Brand != "" {
			result.Brand = rule.Brand
		}
		return result
	}

	top, ok := firstDescribed(detections)
	if !ok {
		// OCR text only and no rule recognised it.
		return model.CategoryResult{Category: UnknownCategory, Brand: brand.Key}
	}

	name := capitalize(top.Description)
	if found && !containsFold(name, brand.Display) {
		name = brand.Display + " " + name
	}
	if vintageKeywords.MatchString(blob) {
		name = "Vintage " + name
	}

	return model.CategoryResult{
		Category:        name,
		Brand:           brand.Key,
		MatchConfidence: clampUnit(top.Score),
	}
}

func (c *Classifier) detectBrand(blob, marks string) (Brand, bool) {
	for _, b := range c.brands {
		if b.Pattern != nil && b.Pattern.MatchString(blob) {
			return b, true
		}
		if b.Marks != nil && b.Marks.MatchString(marks) {
			return b, true
		}
	}
	return Brand{}, false
}

// buildBlob joins the lower-cased detection descriptions, highest score
// first, followed by the OCR text.
func buildBlob(detections []model.Detection, text string) string {
	parts := make([]string, 0, len(detections)+1)
	for _, d := range detections {
		if desc := strings.TrimSpace(d.Description); desc != "" {
			parts = append(parts, strings.ToLower(desc))
		}
	}
	if t := strings.TrimSpace(text); t != "" {
		parts = append(parts, strings.ToLower(t))
	}
	return strings.Join(parts, " ")
}

func matchesAll(patterns []*regexp.Regexp, blob string) bool {
	if len(patterns) == 0 {
		return false
	}
	for _, p := range patterns {
		if !p.MatchString(blob) {
			return false
		}
	}
	return true
}

// ruleConfidence is the best score among detections that contributed to the
// match. A rule satisfied only by OCR text gets a flat confidence.
func ruleConfidence(rule Rule, detections []model.Detection) float64 {
	best := -1.0
	for _, d := range detections {
		for _, p := range rule.Patterns {
			if p.MatchString(d.Description) && d.Score > best {
				best = d.Score
			}
		}
	}
	if best < 0 {
		return textOnlyConfidence
	}
	return clampUnit(best)
}

// render fills the brand placeholder, dropping it when no brand was found or
// the remaining name already mentions the brand.
func render(template string, brand Brand, found bool) string {
	if !strings.Contains(template, BrandPlaceholder) {
		return template
	}
	rest := strings.TrimSpace(strings.ReplaceAll(template, BrandPlaceholder, ""))
	if !found || containsFold(rest, brand.Display) {
		return rest
	}
	return strings.TrimSpace(strings.ReplaceAll(template, BrandPlaceholder, brand.Display))
}

func firstDescribed(detections []model.Detection) (model.Detection, bool) {
	for _, d := range detections {
		if strings.TrimSpace(d.Description) != "" {
			return d, true
		}
	}
	return model.Detection{}, false
}

func capitalize(s string) string {
	s = strings.TrimSpace(s)
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func clampUnit(v float64) float64 {
	if v < 0 || v != v {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
