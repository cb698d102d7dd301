package reasoning

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/KUNALSHAWW/SentinelAI-AML/internal/assessment/models"
)

// Parser defaults, used when a response carries no usable value.
const (
	DefaultConfidence = 0.5
	DefaultRiskLevel  = models.RiskMedium
)

var (
	riskCodePattern = regexp.MustCompile(`\b[A-Z][A-Z_]{3,}[A-Z]\b`)

	scorePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:risk\s*score|score)[:\s]*(\d{1,3})`),
		regexp.MustCompile(`(\d{1,3})\s*/\s*100`),
		regexp.MustCompile(`RISK_SCORE[:\s]*(\d{1,3})`),
	}

	confidencePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)confidence[:\s]*([\d.]+)`),
		regexp.MustCompile(`(?i)confidence\s+(?:level|score)[:\s]*([\d.]+)`),
		regexp.MustCompile(`(?i)([\d.]+)\s*%?\s*confidence`),
	}

	codeStopWords = map[string]struct{}{
		"THE": {}, "AND": {}, "FOR": {}, "NOT": {}, "BUT": {}, "FROM": {},
		"WITH": {}, "THIS": {}, "THAT": {}, "WHEN": {}, "WHERE": {},
	}
)

// ExtractRiskCodes returns upper-case codes such as TBML_OVER_INVOICING in
// first-seen order, without duplicates. Empty when none are found.
func ExtractRiskCodes(text string) []string {
	matches := riskCodePattern.FindAllString(text, -1)
	codes := make([]string, 0, len(matches))
	seen := make(map[string]struct{}, len(matches))
	for _, m := range matches {
		if _, stop := codeStopWords[m]; stop {
			continue
		}
		if _, dup := seen[m]; dup {
			continue
		}
		seen[m] = struct{}{}
		codes = append(codes, m)
	}
	return codes
}

// ExtractScore returns the first score found, clamped to [0,100], or def.
func ExtractScore(text string, def int) int {
	for _, p := range scorePatterns {
		m := p.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		v, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		return min(max(v, 0), 100)
	}
	return def
}

// ExtractConfidence returns the first confidence found in [0,1], or def.
// Percent-style values above 1 are divided by 100.
func ExtractConfidence(text string, def float64) float64 {
	for _, p := range confidencePatterns {
		m := p.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimRight(m[1], "."), 64)
		if err != nil {
			continue
		}
		if v > 1 {
			v /= 100
		}
		return min(max(v, 0), 1)
	}
	return def
}

// ExtractRiskLevel reads a level keyword, defaulting to MEDIUM.
func ExtractRiskLevel(text string) models.RiskLevel {
	upper := strings.ToUpper(text)
	switch {
	case strings.Contains(upper, "CRITICAL"):
		return models.RiskCritical
	case strings.Contains(upper, "HIGH") && strings.Contains(upper, "RISK"):
		return models.RiskHigh
	case strings.Contains(upper, "MEDIUM"):
		return models.RiskMedium
	case strings.Contains(upper, "LOW") && strings.Contains(upper, "RISK"):
		return models.RiskLow
	default:
		return DefaultRiskLevel
	}
}

// IndicatesPEP reports whether the response affirms politically exposed
// status: PEP is mentioned and NOT does not appear in the ten characters
// before the first mention.
func IndicatesPEP(text string) bool {
	upper := strings.ToUpper(text)
	idx := strings.Index(upper, "PEP")
	if idx < 0 {
		return false
	}
	lead := upper[max(0, idx-10):idx]
	return !strings.Contains(lead, "NOT")
}

// FilterCodes keeps codes accepted by keep, in order.
func FilterCodes(codes []string, keep func(string) bool) []string {
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out
}
