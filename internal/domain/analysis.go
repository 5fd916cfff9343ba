package domain

import "time"

// Default colors used when a page yields no usable palette
const (
	DefaultPrimaryColor    = "#2a2a72"
	DefaultSecondaryColor  = "#666666"
	DefaultAccentColor     = "#28a745"
	DefaultBackgroundColor = "#ffffff"
	DefaultTextColor       = "#333333"
)

// SwatchCategory is the role a palette color plays
type SwatchCategory string

const (
	CategoryPrimary   SwatchCategory = "primary"
	CategorySecondary SwatchCategory = "secondary"
	CategoryAccent    SwatchCategory = "accent"
)

// StyleAnalysis is the result of analyzing one website
type StyleAnalysis struct {
	URL        string         `json:"url"`
	Timestamp  time.Time      `json:"timestamp"`
	Colors     ColorAnalysis  `json:"colors"`
	Fonts      FontAnalysis   `json:"fonts"`
	Layout     LayoutAnalysis `json:"layout"`
	Content    ContentSummary `json:"content"`
	Screenshot *Screenshot    `json:"screenshot"`
	Summary    Summary        `json:"summary"`
	Confidence int            `json:"confidence"`

	// Set only on degraded results
	Error    string `json:"error,omitempty"`
	Fallback bool   `json:"fallback,omitempty"`
}

// Succeeded reports whether the analysis came from a live extraction
func (a *StyleAnalysis) Succeeded() bool {
	return a.Error == "" && !a.Fallback
}

// ColorAnalysis holds the sampled colors and the reduced palette
type ColorAnalysis struct {
	Raw        []string `json:"raw,omitempty"`
	Hex        []string `json:"hex,omitempty"`
	Palette    []Swatch `json:"palette"`
	Primary    string   `json:"primary"`
	Secondary  string   `json:"secondary"`
	Accent     string   `json:"accent"`
	Background string   `json:"background"`
	Text       string   `json:"text"`
}

// Swatch is one ranked palette color
type Swatch struct {
	Hex      string         `json:"hex"`
	Name     string         `json:"name"`
	Usage    string         `json:"usage"`
	Category SwatchCategory `json:"category"`
}

// FontAnalysis holds sampled font families and the resolved recommendations
type FontAnalysis struct {
	Families        []string             `json:"families,omitempty"`
	CleanFamilies   []string             `json:"cleanFamilies,omitempty"`
	Styles          map[string]FontStyle `json:"styles,omitempty"`
	Recommendations FontRecommendations  `json:"recommendations"`
	Primary         string               `json:"primary"`
	Secondary       string               `json:"secondary"`
}

// FontStyle is the computed typography of the first element matching a selector
type FontStyle struct {
	FontFamily    string `json:"fontFamily"`
	FontSize      string `json:"fontSize"`
	FontWeight    string `json:"fontWeight"`
	LineHeight    string `json:"lineHeight"`
	LetterSpacing string `json:"letterSpacing"`
	TextTransform string `json:"textTransform"`
}

// FontRecommendations groups the heading, body and button picks
type FontRecommendations struct {
	Heading FontRecommendation `json:"heading"`
	Body    FontRecommendation `json:"body"`
	Button  FontRecommendation `json:"button"`
}

// FontRecommendation is a resolved font choice
type FontRecommendation struct {
	Family    string `json:"family"`
	Weight    string `json:"weight"`
	Size      string `json:"size"`
	Suggested string `json:"suggested,omitempty"`
}

// LayoutAnalysis holds spacing samples and the derived layout recommendation
type LayoutAnalysis struct {
	Spacing         Spacing                `json:"spacing"`
	BorderRadii     []float64              `json:"borderRadii"`
	ButtonStyles    []ButtonStyle          `json:"buttonStyles"`
	Recommendations *LayoutRecommendations `json:"recommendations"`
}

// Spacing holds positive margin and padding samples in ascending order
type Spacing struct {
	Margins  []float64 `json:"margins"`
	Paddings []float64 `json:"paddings"`
}

// ButtonStyle is a computed style snapshot of a button-like element
type ButtonStyle struct {
	BorderRadius    string `json:"borderRadius"`
	Padding         string `json:"padding"`
	BackgroundColor string `json:"backgroundColor"`
	Color           string `json:"color"`
	Border          string `json:"border"`
	FontSize        string `json:"fontSize"`
	FontWeight      string `json:"fontWeight"`
}

// LayoutRecommendations are the most common rounded spacing values
type LayoutRecommendations struct {
	Margin       string       `json:"margin"`
	Padding      string       `json:"padding"`
	BorderRadius string       `json:"borderRadius"`
	ButtonStyle  *ButtonStyle `json:"buttonStyle"`
}

// ContentSummary is basic page metadata
type ContentSummary struct {
	Title       string   `json:"title"`
	Headings    []string `json:"headings"`
	Description string   `json:"description"`
	BrandName   string   `json:"brandName"`
}

// Screenshot is a base64 encoded PNG of the viewport
type Screenshot struct {
	Data       string    `json:"data"`
	URL        string    `json:"url"`
	Timestamp  time.Time `json:"timestamp"`
	StorageURI string    `json:"storageUri,omitempty"`
}

// Summary condenses an analysis for listings and logs
type Summary struct {
	ColorsExtracted int    `json:"colorsExtracted"`
	FontsFound      int    `json:"fontsFound"`
	PrimaryColor    string `json:"primaryColor"`
	PrimaryFont     string `json:"primaryFont"`
	Confidence      int    `json:"confidence"`
}

// RequestContext describes the caller of an analysis, for error logging
type RequestContext struct {
	UserAgent string    `json:"userAgent,omitempty"`
	IP        string    `json:"ip,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// StoredAnalysis is a persisted analysis record
type StoredAnalysis struct {
	URL          string
	URLHash      string
	Analysis     *StyleAnalysis
	Success      bool
	ErrorMessage string
	ClientIP     string
	CreatedAt    time.Time
}

// HistoryEntry is one row of the analysis history listing
type HistoryEntry struct {
	URL     string          `json:"url"`
	URLHash string          `json:"urlHash"`
	Date    time.Time       `json:"date"`
	Success bool            `json:"success"`
	Error   *string         `json:"error"`
	Summary *HistorySummary `json:"summary"`
}

// HistorySummary is the short form of a successful stored analysis
type HistorySummary struct {
	Colors     int `json:"colors"`
	Fonts      int `json:"fonts"`
	Confidence int `json:"confidence"`
}
