// Package scoring computes a weighted 0-100 match score for a decrypted
// candidate record against a job profile.
package scoring

import (
	"fmt"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// JobProfile is the externally supplied, read-only requirements document a
// candidate is scored against.
type JobProfile struct {
	Title      string                 `mapstructure:"title"`
	Weights    Weights                `mapstructure:"weights"`
	Skills     SkillRequirements      `mapstructure:"skills"`
	Education  EducationRequirements  `mapstructure:"education"`
	Experience ExperienceRequirements `mapstructure:"experience"`
}

type Weights struct {
	Skills     float64 `mapstructure:"skills"`
	Education  float64 `mapstructure:"education"`
	Experience float64 `mapstructure:"experience"`
}

type SkillRequirements struct {
	Required   []string `mapstructure:"required"`
	Preferred  []string `mapstructure:"preferred"`
	NiceToHave []string `mapstructure:"nice_to_have"`
}

type EducationRequirements struct {
	Required  []string `mapstructure:"required"`
	Preferred []string `mapstructure:"preferred"`
}

type ExperienceRequirements struct {
	MinimumYears    float64  `mapstructure:"minimum_years"`
	PreferredYears  float64  `mapstructure:"preferred_years"`
	RequiredDomains []string `mapstructure:"required_domains"`
}

// DefaultWeights apply when the profile does not configure any.
var DefaultWeights = Weights{Skills: 60, Education: 20, Experience: 20}

// LoadProfile reads a job profile from a YAML file.
func LoadProfile(path string, logger *zap.Logger) (*JobProfile, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read job profile: %w", err)
	}

	var profile JobProfile
	if err := v.Unmarshal(&profile); err != nil {
		return nil, fmt.Errorf("parse job profile: %w", err)
	}

	if profile.Weights == (Weights{}) {
		profile.Weights = DefaultWeights
	}

	// A profile that states only a minimum treats it as the preferred
	// figure too; otherwise every candidate would clear the years bar.
	if profile.Experience.PreferredYears == 0 {
		profile.Experience.PreferredYears = profile.Experience.MinimumYears
	}

	if err := profile.Validate(logger); err != nil {
		return nil, err
	}

	return &profile, nil
}

// Validate rejects negative weights and warns when the weights do not sum to
// 100: the weighted average still computes, but its scale is distorted. The
// sum is deliberately not corrected.
func (p *JobProfile) Validate(logger *zap.Logger) error {
	w := p.Weights
	if w.Skills < 0 || w.Education < 0 || w.Experience < 0 {
		return fmt.Errorf("job profile weights must be non-negative: %+v", w)
	}

	if sum := w.Skills + w.Education + w.Experience; sum != 100 && logger != nil {
		logger.Warn("job profile weights do not sum to 100, scores will be on a distorted scale",
			zap.Float64("sum", sum),
		)
	}

	if p.Experience.PreferredYears < p.Experience.MinimumYears && logger != nil {
		logger.Warn("preferred_years is below minimum_years",
			zap.Float64("minimum_years", p.Experience.MinimumYears),
			zap.Float64("preferred_years", p.Experience.PreferredYears),
		)
	}

	return nil
}
