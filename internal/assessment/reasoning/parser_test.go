package reasoning

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/KUNALSHAWW/SentinelAI-AML/internal/assessment/models"
)

func TestExtractRiskCodes(t *testing.T) {
	text := "THE review found TBML_OVER_INVOICING and DOC_MISMATCH. AND again TBML_OVER_INVOICING; risk ok"
	assert.Equal(t, []string{"TBML_OVER_INVOICING", "DOC_MISMATCH"}, ExtractRiskCodes(text))
	assert.Equal(t, []string{}, ExtractRiskCodes("nothing notable here"))
}

func TestExtractScore(t *testing.T) {
	tests := []struct {
		text     string
		def      int
		expected int
	}{
		{"Risk Score: 72", 0, 72},
		{"overall 85/100", 0, 85},
		{"RISK_SCORE: 999", 0, 100},
		{"no number", 50, 50},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, ExtractScore(tt.text, tt.def), tt.text)
	}
}

func TestExtractConfidence(t *testing.T) {
	assert.Equal(t, 0.82, ExtractConfidence("Confidence: 0.82", DefaultConfidence))
	assert.Equal(t, 0.9, ExtractConfidence("confidence 90", DefaultConfidence))
	assert.Equal(t, 1.0, ExtractConfidence("confidence: 250", DefaultConfidence))
	assert.Equal(t, 0.85, ExtractConfidence("Assessed with 85% confidence.", DefaultConfidence))
	assert.Equal(t, 0.7, ExtractConfidence("Confidence level: 0.7", DefaultConfidence))
	assert.Equal(t, DefaultConfidence, ExtractConfidence("unsure", DefaultConfidence))
}

func TestExtractRiskLevel(t *testing.T) {
	assert.Equal(t, models.RiskCritical, ExtractRiskLevel("critical exposure"))
	assert.Equal(t, models.RiskHigh, ExtractRiskLevel("high risk customer"))
	assert.Equal(t, models.RiskMedium, ExtractRiskLevel("medium"))
	assert.Equal(t, models.RiskLow, ExtractRiskLevel("low risk"))
	assert.Equal(t, DefaultRiskLevel, ExtractRiskLevel("inconclusive"))
}

func TestIndicatesPEP(t *testing.T) {
	assert.True(t, IndicatesPEP("Subject is a PEP (deputy minister)"))
	assert.False(t, IndicatesPEP("Subject is NOT a PEP"))
	assert.False(t, IndicatesPEP("no political exposure"))
}
