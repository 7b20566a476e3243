package acceptability

import "fmt"

type Category string

const (
	Unacceptable          Category = "Unacceptable"
	MinorEditsRecommended Category = "Minor Edits Recommended"
	Acceptable            Category = "Acceptable"
)

// Bracket lower bounds. A score equal to a bound belongs to the upper bracket.
const (
	MinorEditsThreshold = 35.0
	AcceptableThreshold = 75.0
)

// Colors is the badge palette shared by the summary badge and the chart's
// central score label.
type Colors struct {
	Foreground string `json:"foreground"`
	Background string `json:"background"`
	Border     string `json:"border"`
}

type Result struct {
	Category Category `json:"category"`
	Colors   Colors   `json:"colors"`
}

var palettes = map[Category]Colors{
	Unacceptable:          {Foreground: "#dc2626", Background: "#fef2f2", Border: "#dc2626"},
	MinorEditsRecommended: {Foreground: "#d97706", Background: "#fffbeb", Border: "#d97706"},
	Acceptable:            {Foreground: "#16a34a", Background: "#f0fdf4", Border: "#16a34a"},
}

// Classify maps a composite plan score onto the three-tier acceptability scale.
func Classify(score float64) Result {
	var category Category
	switch {
	case score < MinorEditsThreshold:
		category = Unacceptable
	case score < AcceptableThreshold:
		category = MinorEditsRecommended
	default:
		category = Acceptable
	}
	return Result{Category: category, Colors: palettes[category]}
}

// Range describes one bracket for legends.
type Range struct {
	Category Category `json:"category"`
	Label    string   `json:"label"`
	Color    string   `json:"color"`
}

func Ranges() []Range {
	return []Range{
		{Category: Unacceptable, Label: fmt.Sprintf("Unacceptable (<%g%%)", MinorEditsThreshold), Color: palettes[Unacceptable].Foreground},
		{Category: MinorEditsRecommended, Label: fmt.Sprintf("Minor Edits Recommended (%g-%g%%)", MinorEditsThreshold, AcceptableThreshold), Color: palettes[MinorEditsRecommended].Foreground},
		{Category: Acceptable, Label: fmt.Sprintf("Acceptable (>%g%%)", AcceptableThreshold), Color: palettes[Acceptable].Foreground},
	}
}
