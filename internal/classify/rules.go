package classify

import (
	"regexp"
	"strings"
)

// BrandPlaceholder is replaced by the detected brand's display name in a
// rule's category template.
const BrandPlaceholder = "{brand}"

// Rule maps a set of patterns onto a category. Every pattern must match the
// detection blob for the rule to fire.
type Rule struct {
	Name     string
	Patterns []*regexp.Regexp
	Category string // template, may contain BrandPlaceholder
	Brand    string // brand key forced by this rule, empty to use the detected brand
}

// Brand is an entry of the brand keyword table. Pattern is matched against
// every detection and the OCR text. Marks, when set, is matched only against
// logo detections and OCR text, for brand names that are also common words.
type Brand struct {
	Key     string
	Display string
	Pattern *regexp.Regexp
	Marks   *regexp.Regexp
}

// words compiles a case-insensitive whole-word alternation.
func words(alternatives ...string) *regexp.Regexp {
	quoted := make([]string, len(alternatives))
	for i, a := range alternatives {
		quoted[i] = strings.ReplaceAll(regexp.QuoteMeta(a), ` `, `\s+`)
	}
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
}

var headwear = words("hat", "hats", "cap", "caps", "beanie", "headgear", "fedora", "visor")

// Rules is evaluated top to bottom and the first match wins. Specific rules
// sit above the generic rules they would otherwise lose to.
var Rules = []Rule{
	{Name: "wilson-football", Patterns: []*regexp.Regexp{words("football", "american football"), words("wilson")}, Category: "Wilson Football", Brand: "wilson"},
	{Name: "football", Patterns: []*regexp.Regexp{words("football", "american football")}, Category: "{brand} Football"},
	{Name: "nike-basketball", Patterns: []*regexp.Regexp{words("basketball"), words("nike")}, Category: "Nike Basketball", Brand: "nike"},
	{Name: "basketball", Patterns: []*regexp.Regexp{words("basketball")}, Category: "{brand} Basketball"},
	{Name: "titleist-hat", Patterns: []*regexp.Regexp{headwear, words("titleist")}, Category: "Titleist Golf Hat", Brand: "titleist"},
	{Name: "golf-hat", Patterns: []*regexp.Regexp{headwear, words("golf")}, Category: "{brand} Golf Hat"},
	{Name: "baseball-cap", Patterns: []*regexp.Regexp{headwear, words("baseball")}, Category: "{brand} Baseball Cap"},
	{Name: "baseball", Patterns: []*regexp.Regexp{words("baseball", "bat", "baseball bat", "baseball glove")}, Category: "Baseball Equipment"},
	{Name: "soccer-ball", Patterns: []*regexp.Regexp{words("soccer"), words("ball", "soccer ball")}, Category: "{brand} Soccer Ball"},
	{Name: "hat", Patterns: []*regexp.Regexp{headwear}, Category: "{brand} Hat"},
	{Name: "golf", Patterns: []*regexp.Regexp{words("golf", "golf club", "golf ball")}, Category: "{brand} Golf Equipment"},
	{Name: "jacket", Patterns: []*regexp.Regexp{words("jacket", "coat", "leather", "outerwear")}, Category: "{brand} Jacket"},
	{Name: "sneakers", Patterns: []*regexp.Regexp{words("shoe", "shoes", "sneaker", "sneakers", "boot", "boots", "footwear")}, Category: "{brand} Athletic Sneakers"},
	{Name: "shirt", Patterns: []*regexp.Regexp{words("shirt", "t-shirt", "tee", "jersey")}, Category: "{brand} T-Shirt"},
	{Name: "smartphone", Patterns: []*regexp.Regexp{words("phone", "mobile phone", "smartphone", "mobile")}, Category: "{brand} Smartphone"},
	{Name: "camera", Patterns: []*regexp.Regexp{words("camera", "digital camera", "camera lens")}, Category: "{brand} Camera"},
	{Name: "electronics", Patterns: []*regexp.Regexp{words("radio", "stereo", "electronics", "electronic device")}, Category: "{brand} Electronics"},
	{Name: "binoculars", Patterns: []*regexp.Regexp{words("binoculars", "binocular")}, Category: "{brand} Binoculars"},
}

// Brands is the independent brand pass, checked in order.
var Brands = []Brand{
	{Key: "titleist", Display: "Titleist", Pattern: words("titleist")},
	{Key: "wilson", Display: "Wilson", Pattern: words("wilson")},
	{Key: "jordan", Display: "Jordan", Pattern: words("jordan", "air jordan", "jumpman")},
	{Key: "nike", Display: "Nike", Pattern: words("nike", "swoosh")},
	{Key: "adidas", Display: "Adidas", Pattern: words("adidas")},
	{Key: "under armour", Display: "Under Armour", Pattern: words("under armour")},
	{Key: "spalding", Display: "Spalding", Pattern: words("spalding")},
	{Key: "rawlings", Display: "Rawlings", Pattern: words("rawlings")},
	{Key: "callaway", Display: "Callaway", Pattern: words("callaway")},
	{Key: "new era", Display: "New Era", Pattern: words("new era")},
	{Key: "patagonia", Display: "Patagonia", Pattern: words("patagonia")},
	{Key: "the north face", Display: "The North Face", Pattern: words("north face", "the north face")},
	{Key: "supreme", Display: "Supreme", Pattern: words("supreme")},
	{Key: "gucci", Display: "Gucci", Pattern: words("gucci")},
	{Key: "louis vuitton", Display: "Louis Vuitton", Pattern: words("louis vuitton")},
	{Key: "levi's", Display: "Levi's", Pattern: words("levi's", "levis")},
	{Key: "apple", Display: "Apple", Pattern: words("iphone", "ipad", "macbook", "airpods", "imac"), Marks: words("apple")},
	{Key: "samsung", Display: "Samsung", Pattern: words("samsung")},
	{Key: "sony", Display: "Sony", Pattern: words("sony")},
	{Key: "canon", Display: "Canon", Pattern: words("canon")},
	{Key: "nikon", Display: "Nikon", Pattern: words("nikon")},
	{Key: "nintendo", Display: "Nintendo", Pattern: words("nintendo")},
}

// vintageKeywords mark antique item types whose fallback names get a
// "Vintage" prefix.
var vintageKeywords = words(
	"antique", "typewriter", "gramophone", "phonograph", "rotary phone",
	"sewing machine", "pocket watch", "lantern",
)
