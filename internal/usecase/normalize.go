package usecase

import (
	"sort"
	"strings"

	"github.com/pillscan/backend/internal/domain"
)

// Canonical shape vocabulary. Polygonal shapes use the N-sided naming the
// reference store indexes by.
const (
	ShapeRound     = "Round"
	ShapeOval      = "Oval"
	ShapeCapsule   = "Capsule/Oblong"
	ShapeRectangle = "Rectangle"
	ShapeBarrel    = "Barrel"
	Shape3Sided    = "3 Sided"
	Shape4Sided    = "4 Sided"
	Shape5Sided    = "5 Sided"
	Shape6Sided    = "6 Sided"
	Shape7Sided    = "7 Sided"
	Shape8Sided    = "8 Sided"
)

// Scoring vocabulary is closed: exactly these three values.
const (
	ScoringNone = "no score"
	ScoringOne  = "1 score"
	ScoringTwo  = "2 scores"
)

// shapeSynonyms folds free-text shape descriptions onto the canonical set.
// Keys are lowercase; canonical values map to themselves via canonicalShapes.
var shapeSynonyms = map[string]string{
	"round":       ShapeRound,
	"circle":      ShapeRound,
	"circular":    ShapeRound,
	"disc":        ShapeRound,
	"disk":        ShapeRound,
	"oval":        ShapeOval,
	"elliptical":  ShapeOval,
	"ellipse":     ShapeOval,
	"egg":         ShapeOval,
	"capsule":     ShapeCapsule,
	"oblong":      ShapeCapsule,
	"caplet":      ShapeCapsule,
	"pill":        ShapeCapsule,
	"rectangle":   ShapeRectangle,
	"rectangular": ShapeRectangle,
	"bar":         ShapeRectangle,
	"barrel":      ShapeBarrel,
	"triangle":    Shape3Sided,
	"triangular":  Shape3Sided,
	"square":      Shape4Sided,
	"diamond":     Shape4Sided,
	"rhombus":     Shape4Sided,
	"pentagon":    Shape5Sided,
	"pentagonal":  Shape5Sided,
	"hexagon":     Shape6Sided,
	"hexagonal":   Shape6Sided,
	"heptagon":    Shape7Sided,
	"heptagonal":  Shape7Sided,
	"octagon":     Shape8Sided,
	"octagonal":   Shape8Sided,
}

var canonicalShapes = map[string]string{}

// shapeSynonymOrder fixes the lookup order for the composite-input fallback:
// longest synonym first so "barrel-shaped" hits "barrel" before "bar".
var shapeSynonymOrder []string

// singleToneColors is the closed single-tone color vocabulary.
var singleToneColors = []string{
	"Beige", "Black", "Blue", "Brown", "Clear", "Gold", "Gray", "Green",
	"Maroon", "Orange", "Peach", "Pink", "Purple", "Red", "Tan", "White",
	"Yellow",
}

// twoToneColors is the restricted two-tone vocabulary.
var twoToneColors = []string{
	"Blue & White", "Brown & White", "Green & White", "Orange & White",
	"Pink & White", "Red & White", "Yellow & White", "Blue & Yellow",
	"Red & Yellow", "Green & Yellow",
}

// colorSynonyms folds common model phrasings onto the single-tone set.
var colorSynonyms = map[string]string{
	"grey":        "Gray",
	"silver":      "Gray",
	"golden":      "Gold",
	"cream":       "Beige",
	"off-white":   "Beige",
	"off white":   "Beige",
	"ivory":       "Beige",
	"transparent": "Clear",
	"violet":      "Purple",
	"lavender":    "Purple",
	"salmon":      "Peach",
	"crimson":     "Red",
	"turquoise":   "Blue",
	"navy":        "Blue",
	"lime":        "Green",
	"olive":       "Green",
}

var (
	canonicalColors = map[string]string{}
	canonicalScores = map[string]string{
		ScoringNone: ScoringNone,
		ScoringOne:  ScoringOne,
		ScoringTwo:  ScoringTwo,
	}
)

func init() {
	for _, s := range []string{
		ShapeRound, ShapeOval, ShapeCapsule, ShapeRectangle, ShapeBarrel,
		Shape3Sided, Shape4Sided, Shape5Sided, Shape6Sided, Shape7Sided,
		Shape8Sided,
	} {
		canonicalShapes[strings.ToLower(s)] = s
	}
	for _, c := range singleToneColors {
		canonicalColors[strings.ToLower(c)] = c
	}
	for _, c := range twoToneColors {
		canonicalColors[strings.ToLower(c)] = c
	}

	for syn := range shapeSynonyms {
		shapeSynonymOrder = append(shapeSynonymOrder, syn)
	}
	sort.Slice(shapeSynonymOrder, func(i, j int) bool {
		if len(shapeSynonymOrder[i]) != len(shapeSynonymOrder[j]) {
			return len(shapeSynonymOrder[i]) > len(shapeSynonymOrder[j])
		}
		return shapeSynonymOrder[i] < shapeSynonymOrder[j]
	})
}

// NormalizeShape maps a free-text shape description onto the canonical shape
// vocabulary. Unrecognized values normalize to empty rather than passing
// through raw. Idempotent: canonical input returns unchanged.
func NormalizeShape(s string) string {
	key := strings.ToLower(strings.TrimSpace(s))
	if key == "" {
		return ""
	}
	if canonical, ok := canonicalShapes[key]; ok {
		return canonical
	}
	if canonical, ok := shapeSynonyms[key]; ok {
		return canonical
	}
	// "capsule-shaped", "round tablet" and similar composites
	for _, syn := range shapeSynonymOrder {
		if strings.Contains(key, syn) {
			return shapeSynonyms[syn]
		}
	}
	return ""
}

// NormalizeColor maps a free-text color description onto the closed color
// vocabulary (single-tone plus a restricted two-tone set). Two-tone separators
// ("and", "/", "+") are folded to "&". Unrecognized values normalize to empty.
func NormalizeColor(s string) string {
	key := strings.ToLower(strings.TrimSpace(s))
	if key == "" {
		return ""
	}

	key = strings.ReplaceAll(key, " and ", " & ")
	key = strings.ReplaceAll(key, "/", " & ")
	key = strings.ReplaceAll(key, "+", " & ")
	key = strings.Join(strings.Fields(key), " ")

	if canonical, ok := canonicalColors[key]; ok {
		return canonical
	}
	if canonical, ok := colorSynonyms[key]; ok {
		return canonical
	}

	// Two-tone phrasing in the reverse order of the vocabulary entry
	if parts := strings.Split(key, " & "); len(parts) == 2 {
		first := NormalizeColor(parts[0])
		second := NormalizeColor(parts[1])
		if first != "" && second != "" {
			for _, combo := range []string{first + " & " + second, second + " & " + first} {
				if canonical, ok := canonicalColors[strings.ToLower(combo)]; ok {
					return canonical
				}
			}
		}
	}
	return ""
}

// NormalizeScoring maps a free-text scoring description onto exactly
// {"no score", "1 score", "2 scores"}. Any string containing "2" maps to
// "2 scores", containing "1" to "1 score", everything else (including
// "unclear") to "no score".
func NormalizeScoring(s string) string {
	key := strings.ToLower(strings.TrimSpace(s))
	if canonical, ok := canonicalScores[key]; ok {
		return canonical
	}
	switch {
	case strings.Contains(key, "2"):
		return ScoringTwo
	case strings.Contains(key, "1"):
		return ScoringOne
	default:
		return ScoringNone
	}
}

// NormalizeAttributes rewrites the closed-vocabulary fields of attrs in place.
// Free-text imprint fields are trimmed only; they are matched by containment,
// not vocabulary.
func NormalizeAttributes(attrs *domain.ExtractedAttributes) {
	attrs.Shape = NormalizeShape(attrs.Shape)
	attrs.Color = NormalizeColor(attrs.Color)
	attrs.Scoring = NormalizeScoring(attrs.Scoring)
	attrs.FrontImprint = normalizeImprint(attrs.FrontImprint)
	attrs.BackImprint = normalizeImprint(attrs.BackImprint)
}

// normalizeImprint trims imprint text and blanks the "unclear"/"none"
// sentinels; absent evidence is represented as empty, never a guessed value.
func normalizeImprint(s string) string {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "unclear", "none", "n/a", "no imprint":
		return ""
	}
	return s
}
