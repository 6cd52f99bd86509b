package usecase

import (
	"testing"

	"github.com/pillscan/backend/internal/domain"
)

func TestNormalizeShape(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"round", "Round"},
		{"Circle", "Round"},
		{"OBLONG", "Capsule/Oblong"},
		{"capsule", "Capsule/Oblong"},
		{"oval", "Oval"},
		{"hexagonal", "6 Sided"},
		{"octagon", "8 Sided"},
		{"diamond", "4 Sided"},
		{"  barrel  ", "Barrel"},
		{"barrel-shaped", "Barrel"},
		{"round tablet", "Round"},
		{"unclear", ""},
		{"banana", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizeShape(tt.in); got != tt.want {
			t.Errorf("NormalizeShape(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeColor(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"white", "White"},
		{"WHITE", "White"},
		{"grey", "Gray"},
		{"off-white", "Beige"},
		{"blue & white", "Blue & White"},
		{"blue and white", "Blue & White"},
		{"white/blue", "Blue & White"},
		{"navy", "Blue"},
		{"unclear", ""},
		{"polka dot", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizeColor(tt.in); got != tt.want {
			t.Errorf("NormalizeColor(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeScoring(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2", "2 scores"},
		{"2 scores", "2 scores"},
		{"two lines, looks like 2", "2 scores"},
		{"1", "1 score"},
		{"1 score", "1 score"},
		{"single score line (1)", "1 score"},
		{"12", "2 scores"},
		{"no score", "no score"},
		{"unclear", "no score"},
		{"none", "no score"},
		{"", "no score"},
	}

	for _, tt := range tests {
		if got := NormalizeScoring(tt.in); got != tt.want {
			t.Errorf("NormalizeScoring(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeShape_CompositeInputIsDeterministic(t *testing.T) {
	// Inputs containing more than one synonym substring must resolve the same
	// way on every call: the longest synonym wins, so "barrel-shaped" always
	// folds via "barrel", never via its "bar" substring.
	tests := []struct {
		in   string
		want string
	}{
		{"barrel-shaped", "Barrel"},
		{"barrel shaped tablet", "Barrel"},
		{"rectangular bar", "Rectangle"},
	}

	for _, tt := range tests {
		for i := 0; i < 200; i++ {
			if got := NormalizeShape(tt.in); got != tt.want {
				t.Fatalf("NormalizeShape(%q) = %q on call %d, want %q every call", tt.in, got, i+1, tt.want)
			}
		}
	}
}

func TestNormalizationIdempotence(t *testing.T) {
	inputs := []string{
		"round", "circle", "Capsule/Oblong", "oblong", "hexagon", "banana",
		"white", "blue and white", "Blue & White", "grey", "polka dot",
		"2", "1 score", "no score", "unclear", "", "  spaced  ",
	}

	for _, in := range inputs {
		if a, b := NormalizeShape(in), NormalizeShape(NormalizeShape(in)); a != b {
			t.Errorf("shape not idempotent for %q: %q vs %q", in, a, b)
		}
		if a, b := NormalizeColor(in), NormalizeColor(NormalizeColor(in)); a != b {
			t.Errorf("color not idempotent for %q: %q vs %q", in, a, b)
		}
		if a, b := NormalizeScoring(in), NormalizeScoring(NormalizeScoring(in)); a != b {
			t.Errorf("scoring not idempotent for %q: %q vs %q", in, a, b)
		}
	}
}

func TestNormalizeAttributes(t *testing.T) {
	attrs := &domain.ExtractedAttributes{
		Shape:        "round",
		Color:        "white",
		Scoring:      "2",
		FrontImprint: "  L484 ",
		BackImprint:  "unclear",
		Confidence:   0.85,
	}

	NormalizeAttributes(attrs)

	if attrs.Shape != "Round" {
		t.Errorf("Shape = %q, want Round", attrs.Shape)
	}
	if attrs.Color != "White" {
		t.Errorf("Color = %q, want White", attrs.Color)
	}
	if attrs.Scoring != "2 scores" {
		t.Errorf("Scoring = %q, want \"2 scores\"", attrs.Scoring)
	}
	if attrs.FrontImprint != "L484" {
		t.Errorf("FrontImprint = %q, want L484", attrs.FrontImprint)
	}
	if attrs.BackImprint != "" {
		t.Errorf("BackImprint = %q, want empty (unclear sentinel)", attrs.BackImprint)
	}
}
