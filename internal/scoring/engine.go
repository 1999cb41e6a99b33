package scoring

import (
	"strings"

	"github.com/cvlens/cvlens/internal/candidate"
	"go.uber.org/zap"
)

// Factor is the per-factor slice of a score breakdown, kept for
// explainability: raw score, configured weight, weighted contribution and the
// items that matched.
type Factor struct {
	Score    float64  `json:"score"`
	Weight   float64  `json:"weight"`
	Weighted float64  `json:"weighted_score"`
	Matched  []string `json:"matched,omitempty"`
	Years    float64  `json:"total_years,omitempty"`
}

// Breakdown decomposes a total score into its factors.
type Breakdown struct {
	Skills     Factor  `json:"skills"`
	Education  Factor  `json:"education"`
	Experience Factor  `json:"experience"`
	Total      float64 `json:"total_score"`
}

// Engine scores decrypted candidate records against one job profile.
type Engine struct {
	profile *JobProfile
	logger  *zap.Logger
}

func NewEngine(profile *JobProfile, logger *zap.Logger) *Engine {
	return &Engine{profile: profile, logger: logger}
}

// Score computes the weighted 0-100 total and its breakdown.
func (e *Engine) Score(plain *candidate.PlainRecord) (float64, *Breakdown) {
	weights := e.profile.Weights

	skillsScore, matchedSkills := e.scoreSkills(plain.Skills)
	educationScore, matchedEducation := e.scoreEducation(plain)
	experienceScore, years, matchedDomains := e.scoreExperience(plain)

	// Weighted average over a 100-point weight budget, reported on a 0-100
	// scale; the two scale factors cancel out.
	total := skillsScore*weights.Skills +
		educationScore*weights.Education +
		experienceScore*weights.Experience

	breakdown := &Breakdown{
		Skills: Factor{
			Score:    skillsScore,
			Weight:   weights.Skills,
			Weighted: skillsScore * weights.Skills,
			Matched:  matchedSkills,
		},
		Education: Factor{
			Score:    educationScore,
			Weight:   weights.Education,
			Weighted: educationScore * weights.Education,
			Matched:  matchedEducation,
		},
		Experience: Factor{
			Score:    experienceScore,
			Weight:   weights.Experience,
			Weighted: experienceScore * weights.Experience,
			Matched:  matchedDomains,
			Years:    years,
		},
		Total: total,
	}

	e.logger.Debug("scored candidate",
		zap.String("document_hash", plain.DocumentHash),
		zap.Float64("total", total),
		zap.Float64("skills", skillsScore),
		zap.Float64("education", educationScore),
		zap.Float64("experience", experienceScore),
	)

	return total, breakdown
}

// scoreSkills weights required over preferred over nice-to-have matches, with
// a small bonus for unusually broad matches. No configured required or
// preferred skills means no signal, which scores as the neutral default.
func (e *Engine) scoreSkills(skills []string) (float64, []string) {
	req := e.profile.Skills.Required
	pref := e.profile.Skills.Preferred
	nice := e.profile.Skills.NiceToHave

	if len(req) == 0 && len(pref) == 0 {
		return neutralSkillScore, nil
	}

	have := lowerSet(skills)
	reqMatched := intersect(req, have)
	prefMatched := intersect(pref, have)
	niceMatched := intersect(nice, have)

	score := 0.0
	if len(req) > 0 {
		score += float64(len(reqMatched)) / float64(len(req)) * requiredSkillShare
	}
	if len(pref) > 0 {
		score += float64(len(prefMatched)) / float64(len(pref)) * preferredSkillShare
	}
	if len(nice) > 0 {
		score += float64(len(niceMatched)) / float64(len(nice)) * niceToHaveSkillShare
	}

	if len(reqMatched)+len(prefMatched)+len(niceMatched) > breadthBonusThreshold {
		score = clamp01(score * breadthBonusMultiplier)
	}

	matched := make([]string, 0, len(reqMatched)+len(prefMatched)+len(niceMatched))
	matched = append(matched, reqMatched...)
	matched = append(matched, prefMatched...)
	matched = append(matched, niceMatched...)

	return clamp01(score), matched
}

// scoreEducation is a textual containment check over the concatenated
// education entries. Required and preferred phrases fire independently.
func (e *Engine) scoreEducation(plain *candidate.PlainRecord) (float64, []string) {
	parts := make([]string, 0, len(plain.Education))
	for _, entry := range plain.Education {
		parts = append(parts, strings.ToLower(entry.Text))
	}
	educationText := strings.Join(parts, " ")

	if strings.TrimSpace(educationText) == "" {
		return 0, nil
	}

	score := 0.0
	var matched []string

	for _, phrase := range e.profile.Education.Required {
		if strings.Contains(educationText, strings.ToLower(phrase)) {
			score += requiredEducationScore
			matched = append(matched, phrase)
			break
		}
	}
	for _, phrase := range e.profile.Education.Preferred {
		if strings.Contains(educationText, strings.ToLower(phrase)) {
			score += preferredEducationScore
			matched = append(matched, phrase)
			break
		}
	}

	return clamp01(score), matched
}

// scoreExperience combines a years component with a domain-containment
// component over the raw text.
func (e *Engine) scoreExperience(plain *candidate.PlainRecord) (float64, float64, []string) {
	req := e.profile.Experience
	years := plain.TotalExperienceYears()
	if len(plain.Experience) == 0 {
		years = ExtractYears(plain.RawText)
	}

	// A preferred figure below the minimum (or left unset) is read as
	// "the minimum is also the preferred"; without this a profile stating
	// only minimum_years would hand every candidate a perfect years score.
	preferredYears := req.PreferredYears
	if preferredYears < req.MinimumYears {
		preferredYears = req.MinimumYears
	}

	var yearsScore float64
	switch {
	case years >= preferredYears:
		yearsScore = 1.0
	case years >= req.MinimumYears:
		yearsScore = minimumYearsScore +
			(years-req.MinimumYears)/(preferredYears-req.MinimumYears)*(1-minimumYearsScore)
	case req.MinimumYears > 0:
		yearsScore = years / req.MinimumYears * minimumYearsScore
	default:
		yearsScore = 0.5
	}

	rawText := strings.ToLower(plain.RawText)
	domainScore := 1.0
	var matched []string
	if len(req.RequiredDomains) > 0 {
		for _, domain := range req.RequiredDomains {
			if strings.Contains(rawText, strings.ToLower(domain)) {
				matched = append(matched, domain)
			}
		}
		domainScore = float64(len(matched)) / float64(len(req.RequiredDomains))
	}

	return clamp01(yearsScore*yearsWeight + domainScore*domainWeight), years, matched
}
