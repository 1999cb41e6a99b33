// Package analyze defines the contract for the external document-analysis
// collaborator that turns raw resume bytes into structured fields.
package analyze

import "context"

// Analysis is the structured result of analyzing one document. Every field is
// optional: the analyzer may return a subset, and a degraded response carries
// only RawText with Partial set.
type Analysis struct {
	Name  string `mapstructure:"name"`
	Email string `mapstructure:"email"`
	Phone string `mapstructure:"phone"`

	Skills     []string          `mapstructure:"skills"`
	Education  []EducationEntry  `mapstructure:"education"`
	Experience []ExperienceEntry `mapstructure:"experience"`

	ExecutiveSummary     string   `mapstructure:"executive_summary"`
	ExperienceHighlights []string `mapstructure:"experience_highlights"`
	EducationHighlights  []string `mapstructure:"education_highlights"`
	InterestingFacts     []string `mapstructure:"interesting_facts"`

	RawText string `mapstructure:"raw_text"`

	// Partial marks a degraded result: the analyzer could not produce
	// structured fields and only RawText is trustworthy.
	Partial bool `mapstructure:"-"`
}

type EducationEntry struct {
	Text string `mapstructure:"text" json:"text"`
}

type ExperienceEntry struct {
	Title string  `mapstructure:"title" json:"title"`
	Years float64 `mapstructure:"years" json:"years"`
}

// Analyzer converts document bytes into an Analysis. An error means the item
// failed entirely and should be retried on a later pass.
type Analyzer interface {
	Analyze(ctx context.Context, filename string, document []byte) (*Analysis, error)
}
