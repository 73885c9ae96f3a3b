// Package vision maps an external visual-content classifier's label
// vocabulary into a fixed set of safety categories. Unlike the reputation
// component this one fails open: an unavailable classifier means "needs
// review", never "unsafe".
package vision

import "strings"

// Category is one of the ten fixed internal safety categories.
type Category string

const (
	CategoryExplicitNudity     Category = "explicit_nudity"
	CategorySuggestive         Category = "suggestive"
	CategoryViolence           Category = "violence"
	CategoryVisuallyDisturbing Category = "visually_disturbing"
	CategoryRudeGestures       Category = "rude_gestures"
	CategoryDrugs              Category = "drugs"
	CategoryTobacco            Category = "tobacco"
	CategoryAlcohol            Category = "alcohol"
	CategoryGambling           Category = "gambling"
	CategoryHateSymbols        Category = "hate_symbols"
)

// Categories lists every internal category in a fixed order.
var Categories = []Category{
	CategoryExplicitNudity,
	CategorySuggestive,
	CategoryViolence,
	CategoryVisuallyDisturbing,
	CategoryRudeGestures,
	CategoryDrugs,
	CategoryTobacco,
	CategoryAlcohol,
	CategoryGambling,
	CategoryHateSymbols,
}

// blockReasons are the category-specific reasons used when a category
// crosses the critical threshold.
var blockReasons = map[Category]string{
	CategoryExplicitNudity:     "explicit content detected",
	CategorySuggestive:         "suggestive content detected",
	CategoryViolence:           "violent content detected",
	CategoryVisuallyDisturbing: "disturbing content detected",
	CategoryRudeGestures:       "rude gesture detected",
	CategoryDrugs:              "drug-related content detected",
	CategoryTobacco:            "tobacco-related content detected",
	CategoryAlcohol:            "alcohol-related content detected",
	CategoryGambling:           "gambling content detected",
	CategoryHateSymbols:        "hate symbol detected",
}

// BlockReason returns the human-readable block reason for a category.
func BlockReason(c Category) string {
	if r, ok := blockReasons[c]; ok {
		return r
	}
	return "unsafe content detected"
}

// labelMap routes external label names (lowercased) into internal
// categories. Labels with no mapping are ignored.
var labelMap = map[string]Category{
	"explicit nudity":      CategoryExplicitNudity,
	"nudity":               CategoryExplicitNudity,
	"graphic nudity":       CategoryExplicitNudity,
	"sexual activity":      CategoryExplicitNudity,
	"suggestive":           CategorySuggestive,
	"partial nudity":       CategorySuggestive,
	"revealing clothes":    CategorySuggestive,
	"violence":             CategoryViolence,
	"graphic violence":     CategoryViolence,
	"physical violence":    CategoryViolence,
	"weapons":              CategoryViolence,
	"weapon violence":      CategoryViolence,
	"self injury":          CategoryVisuallyDisturbing,
	"visually disturbing":  CategoryVisuallyDisturbing,
	"emaciated bodies":     CategoryVisuallyDisturbing,
	"corpses":              CategoryVisuallyDisturbing,
	"air crash":            CategoryVisuallyDisturbing,
	"rude gestures":        CategoryRudeGestures,
	"middle finger":        CategoryRudeGestures,
	"drugs":                CategoryDrugs,
	"drug products":        CategoryDrugs,
	"drug use":             CategoryDrugs,
	"pills":                CategoryDrugs,
	"drug paraphernalia":   CategoryDrugs,
	"tobacco":              CategoryTobacco,
	"tobacco products":     CategoryTobacco,
	"smoking":              CategoryTobacco,
	"alcohol":              CategoryAlcohol,
	"alcoholic beverages":  CategoryAlcohol,
	"drinking":             CategoryAlcohol,
	"gambling":             CategoryGambling,
	"hate symbols":         CategoryHateSymbols,
	"nazi party":           CategoryHateSymbols,
	"white supremacy":      CategoryHateSymbols,
	"extremist":            CategoryHateSymbols,
}

// Scores holds a 0-100 confidence per category. Values are monotonic
// maxima: once a label raises a category, a weaker label never lowers it.
type Scores map[Category]float64

// NewScores creates an empty score set.
func NewScores() Scores {
	return make(Scores, len(Categories))
}

// Raise records a confidence for a category, keeping the maximum.
func (s Scores) Raise(c Category, confidence float64) {
	if confidence > s[c] {
		s[c] = confidence
	}
}

// RaiseLabel maps an external label into its category, if any, and raises
// that category's confidence.
func (s Scores) RaiseLabel(label string, confidence float64) {
	if c, ok := labelMap[strings.ToLower(label)]; ok {
		s.Raise(c, confidence)
	}
}

// Max returns the highest-scoring category and its confidence.
func (s Scores) Max() (Category, float64) {
	var maxCat Category
	var maxConf float64
	for _, c := range Categories {
		if s[c] > maxConf {
			maxCat, maxConf = c, s[c]
		}
	}
	return maxCat, maxConf
}
