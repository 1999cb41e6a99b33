package scoring

import (
	"regexp"
	"strconv"
	"strings"
)

// Factor-internal constants. Kept in one place so the scoring rules are
// testable independently of the orchestration.
const (
	requiredSkillShare   = 0.6
	preferredSkillShare  = 0.3
	niceToHaveSkillShare = 0.1

	// Candidates matching more than breadthBonusThreshold relevant skills in
	// total get a small breadth bonus.
	breadthBonusThreshold  = 5
	breadthBonusMultiplier = 1.1

	// No skill requirements configured: no signal, neutral default.
	neutralSkillScore = 0.5

	requiredEducationScore  = 0.7
	preferredEducationScore = 0.3

	minimumYearsScore = 0.7

	yearsWeight  = 0.7
	domainWeight = 0.3
)

// yearsPattern extracts "N years of experience" style statements from raw
// resume text when no structured experience entries exist.
var yearsPattern = regexp.MustCompile(`(?i)(\d+)\+?\s*years?\s*(?:of\s*)?experience`)

// ExtractYears returns the first years-of-experience figure stated in the
// text, or 0 when none is found.
func ExtractYears(text string) float64 {
	match := yearsPattern.FindStringSubmatch(text)
	if match == nil {
		return 0
	}

	years, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0
	}
	return years
}

// lowerSet builds a case-insensitive membership set.
func lowerSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[strings.ToLower(strings.TrimSpace(v))] = struct{}{}
	}
	delete(set, "")
	return set
}

// intersect returns the entries of wanted found in have, preserving the
// wanted order, and the match count.
func intersect(wanted []string, have map[string]struct{}) []string {
	var matched []string
	for _, w := range wanted {
		if _, ok := have[strings.ToLower(strings.TrimSpace(w))]; ok {
			matched = append(matched, w)
		}
	}
	return matched
}

func clamp01(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < 0 {
		return 0
	}
	return v
}
