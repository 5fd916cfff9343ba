package styleanalysis

import (
	"reflect"
	"testing"

	"github.com/donorkit/styleforge/internal/domain"
)

func TestCleanFamilies(t *testing.T) {
	families := []string{
		`"Helvetica Neue", Arial, sans-serif`,
		`'Playfair Display', Georgia`,
		`sans-serif`,
		`Roboto Mono, monospace`,
		`ui-monospace, Menlo`,
		`Noto Serif`,
		`Inter`,
	}

	got := CleanFamilies(families)
	want := []string{"Helvetica Neue", "Playfair Display", "Roboto Mono", "Inter"}

	if !reflect.DeepEqual(got, want) {
		t.Errorf("CleanFamilies() = %v, want %v", got, want)
	}
}

func TestCleanFamilies_KeepsRepeats(t *testing.T) {
	// Distinct stacks that share a first family stay separate entries
	got := CleanFamilies([]string{"Inter, sans-serif", `"Inter"`, "Lato"})
	want := []string{"Inter", "Inter", "Lato"}

	if !reflect.DeepEqual(got, want) {
		t.Errorf("CleanFamilies() = %v, want %v", got, want)
	}
}

func TestSuggestWebFont(t *testing.T) {
	tests := []struct {
		family string
		role   FontRole
		want   string
	}{
		{"Roboto Condensed", RoleHeading, "Roboto"},
		{"Montserrat", RoleHeading, "Montserrat"},
		{"Montserrat", RoleBody, "Inter"},
		{"IBM Plex Sans", RoleBody, "IBM Plex Sans"},
		{"Nunito Sans", RoleHeading, "Nunito"},
		{"Nunito Sans", RoleBody, "Nunito Sans"},
		{"Open", RoleBody, "Open Sans"},
		{"Comic Sans MS", RoleHeading, "Inter"},
	}

	for _, tt := range tests {
		t.Run(tt.family+"/"+string(tt.role), func(t *testing.T) {
			if got := SuggestWebFont(tt.family, tt.role); got != tt.want {
				t.Errorf("SuggestWebFont(%q, %s) = %q, want %q", tt.family, tt.role, got, tt.want)
			}
		})
	}
}

func TestResolveFonts_FromStyles(t *testing.T) {
	styles := map[string]domain.FontStyle{
		"h2":     {FontFamily: `"Poppins", sans-serif`, FontWeight: "700", FontSize: "28px"},
		"p":      {FontFamily: "Lato, Helvetica", FontWeight: "300", FontSize: "16px"},
		"button": {FontFamily: "'Work Sans', sans-serif"},
	}

	got := ResolveFonts([]string{"Poppins, sans-serif", "Lato"}, styles)
	rec := got.Recommendations

	if rec.Heading.Family != "Poppins" || rec.Heading.Weight != "700" || rec.Heading.Size != "2rem" {
		t.Errorf("heading = %+v", rec.Heading)
	}
	if rec.Heading.Suggested != "Poppins" {
		t.Errorf("heading suggestion = %s, want Poppins", rec.Heading.Suggested)
	}
	if rec.Body.Family != "Lato" || rec.Body.Weight != "300" || rec.Body.Size != "16px" {
		t.Errorf("body = %+v", rec.Body)
	}
	if rec.Button.Family != "Work Sans" || rec.Button.Weight != "500" || rec.Button.Size != "1rem" {
		t.Errorf("button = %+v", rec.Button)
	}
	if got.Primary != "Poppins" || got.Secondary != "Lato" {
		t.Errorf("primary/secondary = %s/%s", got.Primary, got.Secondary)
	}
}

func TestResolveFonts_FallsBackToCleanFamilies(t *testing.T) {
	got := ResolveFonts([]string{"Merriweather Sans, sans-serif", "Source Sans Pro"}, nil)

	// "Merriweather Sans" is kept. Only names containing a generic keyword are dropped.
	if got.Primary != "Merriweather Sans" {
		t.Errorf("heading = %s, want Merriweather Sans", got.Primary)
	}
	if got.Secondary != "Source Sans Pro" {
		t.Errorf("body = %s, want Source Sans Pro", got.Secondary)
	}
	if got.Recommendations.Button.Family != "Merriweather Sans" {
		t.Errorf("button = %s, want heading family", got.Recommendations.Button.Family)
	}
	if got.Recommendations.Heading.Weight != "600" || got.Recommendations.Body.Weight != "400" {
		t.Errorf("default weights = %s/%s", got.Recommendations.Heading.Weight, got.Recommendations.Body.Weight)
	}
}

func TestResolveFonts_SingleFamilyUsedForBoth(t *testing.T) {
	got := ResolveFonts([]string{"Inter"}, nil)

	if got.Primary != "Inter" || got.Secondary != "Inter" {
		t.Errorf("primary/secondary = %s/%s, want Inter/Inter", got.Primary, got.Secondary)
	}
}

func TestResolveFonts_Empty(t *testing.T) {
	got := ResolveFonts(nil, nil)

	if got.Primary != "Arial, sans-serif" || got.Secondary != "Arial, sans-serif" {
		t.Errorf("primary/secondary = %s/%s, want Arial fallback", got.Primary, got.Secondary)
	}
	if got.Recommendations.Heading.Size != "2rem" || got.Recommendations.Body.Size != "1rem" {
		t.Errorf("default sizes = %s/%s", got.Recommendations.Heading.Size, got.Recommendations.Body.Size)
	}
	if len(got.CleanFamilies) != 0 {
		t.Errorf("clean families = %v, want none", got.CleanFamilies)
	}
}
