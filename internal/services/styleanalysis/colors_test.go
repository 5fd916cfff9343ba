package styleanalysis

import (
	"fmt"
	"testing"

	"github.com/donorkit/styleforge/internal/domain"
)

func TestRGBToHex(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"rgb(42,42,114)", "#2a2a72"},
		{"rgb(42, 42, 114)", "#2a2a72"},
		{"rgba(40, 167, 69, 0.5)", "#28a745"},
		{"rgb(0, 0, 0)", "#000000"},
		{"rgb(255, 255, 255)", "#ffffff"},
		{"hsl(120, 50%)", "hsl(120, 50%)"},
		{"currentcolor", "currentcolor"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := RGBToHex(tt.in); got != tt.want {
				t.Errorf("RGBToHex(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestToHexColors_DropsNonHex(t *testing.T) {
	got := ToHexColors([]string{"rgb(42, 42, 114)", "hsl(0, 0%, 50%)", "#ABCDEF", "red", "#abc"})

	want := []string{"#2a2a72", "#ABCDEF"}
	if len(got) != len(want) {
		t.Fatalf("ToHexColors() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ToHexColors()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestIsNeutral(t *testing.T) {
	tests := []struct {
		hex  string
		want bool
	}{
		{"#ffffff", true},
		{"#000000", true},
		{"#aabbcc", true},
		{"#333333", true},
		{"#112233", true},
		{"#abcdef", false},
		{"#2a2a72", false},
		{"#28a745", false},
	}

	for _, tt := range tests {
		if got := IsNeutral(tt.hex); got != tt.want {
			t.Errorf("IsNeutral(%q) = %v, want %v", tt.hex, got, tt.want)
		}
	}
}

func TestReduceColors_EmptyInput(t *testing.T) {
	got := ReduceColors(nil)

	if got.Primary != "#2a2a72" || got.Secondary != "#666666" || got.Accent != "#28a745" {
		t.Errorf("ranks = %s/%s/%s, want defaults", got.Primary, got.Secondary, got.Accent)
	}
	if got.Background != "#ffffff" || got.Text != "#333333" {
		t.Errorf("background/text = %s/%s, want defaults", got.Background, got.Text)
	}
	if got.Palette == nil || len(got.Palette) != 0 {
		t.Errorf("palette = %v, want empty non-nil", got.Palette)
	}
}

func TestReduceColors_RanksByFrequency(t *testing.T) {
	raw := []string{
		"rgb(42, 42, 114)",
		"rgb(200, 16, 46)",
		"rgba(42, 42, 114, 0.5)",
		"rgb(40, 167, 69)",
		"rgba(42, 42, 114, 0.8)",
	}

	got := ReduceColors(raw)

	if got.Primary != "#2a2a72" {
		t.Errorf("Primary = %s, want #2a2a72", got.Primary)
	}
	if got.Secondary != "#c8102e" {
		t.Errorf("Secondary = %s, want #c8102e (first seen among ties)", got.Secondary)
	}
	if got.Accent != "#28a745" {
		t.Errorf("Accent = %s, want #28a745", got.Accent)
	}

	if len(got.Palette) != 3 {
		t.Fatalf("palette size = %d, want 3", len(got.Palette))
	}
	first := got.Palette[0]
	if first.Usage != "60%" || first.Name != "Primary Brand" || first.Category != domain.CategoryPrimary {
		t.Errorf("first swatch = %+v", first)
	}
	if got.Palette[1].Usage != "20%" || got.Palette[1].Category != domain.CategorySecondary {
		t.Errorf("second swatch = %+v", got.Palette[1])
	}
	if got.Palette[2].Category != domain.CategoryAccent {
		t.Errorf("third swatch category = %s, want accent", got.Palette[2].Category)
	}
}

func TestReduceColors_NeutralsNeverInPalette(t *testing.T) {
	raw := []string{"#ffffff", "#000000", "#aabbcc", "#FFFFFF", "rgb(51, 51, 51)", "#abcdef"}

	got := ReduceColors(raw)

	for _, s := range got.Palette {
		if IsNeutral(s.Hex) {
			t.Errorf("neutral color %s in palette", s.Hex)
		}
	}
	if got.Primary != "#abcdef" {
		t.Errorf("Primary = %s, want #abcdef", got.Primary)
	}
	// usage is relative to every valid hex color, neutrals included
	if got.Palette[0].Usage != "17%" {
		t.Errorf("usage = %s, want 17%%", got.Palette[0].Usage)
	}
}

func TestReduceColors_PaletteCap(t *testing.T) {
	var raw []string
	for i := 0; i < 40; i++ {
		raw = append(raw, fmt.Sprintf("rgb(%d, %d, %d)", 10+i, 100+i, 200-i))
	}

	got := ReduceColors(raw)

	if len(got.Palette) != 8 {
		t.Fatalf("palette size = %d, want 8", len(got.Palette))
	}
	if got.Palette[7].Name != "Feature" {
		t.Errorf("eighth swatch name = %s, want Feature", got.Palette[7].Name)
	}
}

func TestPaletteName(t *testing.T) {
	if got := paletteName(8); got != "Color 9" {
		t.Errorf("paletteName(8) = %s, want Color 9", got)
	}
}
