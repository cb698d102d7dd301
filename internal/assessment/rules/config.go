package rules

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	pstrings "github.com/KUNALSHAWW/SentinelAI-AML/pkg/platform/strings"
)

// Thresholds are the numeric limits shared by the stages, routers and the
// aggregator.
type Thresholds struct {
	Medium   int `yaml:"medium"`
	High     int `yaml:"high"`
	Critical int `yaml:"critical"`

	LargeTransaction     float64 `yaml:"large_transaction"`
	VeryLargeTransaction float64 `yaml:"very_large_transaction"`
	MaxDailyTransactions int     `yaml:"max_daily_transactions"`
	MaxDailyAmount       float64 `yaml:"max_daily_amount"`
	NewAccountDays       int     `yaml:"new_account_days"`

	StructuringFloor   float64 `yaml:"structuring_floor"`
	StructuringCeiling float64 `yaml:"structuring_ceiling"`
	HighValueCrypto    float64 `yaml:"high_value_crypto"`
}

// Weight maps a factor keyword to the points the aggregator adds for it.
type Weight struct {
	Keyword string `yaml:"keyword"`
	Points  int    `yaml:"points"`
}

// Config is the read-only rule configuration handed to every stage
// constructor. It is safe to share across concurrent runs once loaded.
type Config struct {
	Thresholds Thresholds `yaml:"thresholds"`

	HighRiskCountries []string `yaml:"high_risk_countries"`
	TaxHavens         []string `yaml:"tax_havens"`
	GreyList          []string `yaml:"grey_list"`

	SanctionedEntities      []string `yaml:"sanctioned_entities"`
	SanctionedJurisdictions []string `yaml:"sanctioned_jurisdictions"`
	JurisdictionKeywords    []string `yaml:"jurisdiction_keywords"`

	PEPKeywords    []string `yaml:"pep_keywords"`
	DarknetMarkets []string `yaml:"darknet_markets"`

	// Weights is ordered; the first keyword contained in a factor wins.
	Weights []Weight `yaml:"weights"`
}

// DefaultConfig returns the built-in rule set.
func DefaultConfig() *Config {
	cfg := &Config{
		Thresholds: Thresholds{
			Medium:               60,
			High:                 80,
			Critical:             95,
			LargeTransaction:     10000,
			VeryLargeTransaction: 100000,
			MaxDailyTransactions: 10,
			MaxDailyAmount:       50000,
			NewAccountDays:       30,
			StructuringFloor:     9000,
			StructuringCeiling:   10000,
			HighValueCrypto:      100000,
		},
		HighRiskCountries: []string{"IR", "KP", "SY", "CU", "MM", "RU", "BY", "VE", "ZW", "AF", "YE", "SO", "LY"},
		TaxHavens:         []string{"KY", "VG", "BM", "PA", "MT", "AE", "JE", "GG", "IM", "BZ", "SC", "MU", "LI", "MC"},
		GreyList:          []string{"PK", "NG", "PH", "TZ", "UG", "JM", "HT", "AL", "BA"},
		SanctionedEntities: []string{
			"sanctioned_russian_bank",
			"terror_group_abc",
			"narcotics_cartel_xyz",
			"north_korea_trading",
			"iran_shipping_co",
		},
		SanctionedJurisdictions: []string{"IR", "KP", "SY", "CU"},
		JurisdictionKeywords: []string{
			"iran", "tehran", "persia",
			"korea", "dprk", "pyongyang",
			"syria", "damascus",
			"cuba", "havana",
		},
		PEPKeywords: []string{
			"minister", "gov", "official", "president", "senator", "ambassador",
			"military", "general", "director", "secretary", "parliament",
			"congress", "royal", "prince", "king", "queen",
		},
		DarknetMarkets: []string{"hydra", "alphabay", "dark0de", "versus", "world market"},
		Weights: []Weight{
			{Keyword: "SANCTIONS", Points: 40},
			{Keyword: "PEP", Points: 25},
			{Keyword: "CRYPTO_MIXER", Points: 30},
			{Keyword: "DARKNET", Points: 35},
			{Keyword: "HIGH_RISK", Points: 20},
			{Keyword: "TAX_HAVEN", Points: 15},
			{Keyword: "STRUCTURING", Points: 25},
			{Keyword: "VELOCITY", Points: 15},
			{Keyword: "TBML", Points: 20},
			{Keyword: "DOC", Points: 15},
			{Keyword: "NEW_ACCOUNT", Points: 10},
		},
	}
	cfg.normalize()
	return cfg
}

// LoadConfig overlays the YAML file at path on DefaultConfig. An empty path
// or a missing file yields the defaults. Lists present in the file replace
// the default list rather than extending it.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse rules file %s: %w", path, err)
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks threshold ordering, limits and list disjointness.
func (c *Config) Validate() error {
	t := c.Thresholds
	if t.Medium < 0 || t.Medium > t.High || t.High > t.Critical || t.Critical > 100 {
		return fmt.Errorf("risk thresholds must satisfy 0 <= medium <= high <= critical <= 100, got %d/%d/%d",
			t.Medium, t.High, t.Critical)
	}
	if t.LargeTransaction <= 0 || t.VeryLargeTransaction <= 0 || t.MaxDailyAmount <= 0 || t.HighValueCrypto <= 0 {
		return fmt.Errorf("amount thresholds must be positive")
	}
	if t.MaxDailyTransactions <= 0 {
		return fmt.Errorf("max_daily_transactions must be positive")
	}
	if t.NewAccountDays < 0 {
		return fmt.Errorf("new_account_days must not be negative")
	}
	if t.StructuringFloor <= 0 || t.StructuringFloor >= t.StructuringCeiling {
		return fmt.Errorf("structuring range [%v, %v) is empty", t.StructuringFloor, t.StructuringCeiling)
	}
	if len(c.Weights) == 0 {
		return fmt.Errorf("at least one factor weight is required")
	}
	for _, w := range c.Weights {
		if w.Keyword == "" || w.Points < 0 {
			return fmt.Errorf("invalid weight %q=%d", w.Keyword, w.Points)
		}
	}

	seen := make(map[string]string)
	for class, list := range map[string][]string{
		"high_risk_countries": c.HighRiskCountries,
		"tax_havens":          c.TaxHavens,
		"grey_list":           c.GreyList,
	} {
		for _, cc := range list {
			if other, ok := seen[cc]; ok {
				return fmt.Errorf("country %s listed in both %s and %s", cc, other, class)
			}
			seen[cc] = class
		}
	}
	return nil
}

func (c *Config) normalize() {
	c.HighRiskCountries = pstrings.DedupeAndTrimUpper(c.HighRiskCountries)
	c.TaxHavens = pstrings.DedupeAndTrimUpper(c.TaxHavens)
	c.GreyList = pstrings.DedupeAndTrimUpper(c.GreyList)
	c.SanctionedJurisdictions = pstrings.DedupeAndTrimUpper(c.SanctionedJurisdictions)
	c.SanctionedEntities = pstrings.DedupeAndTrimLower(c.SanctionedEntities)
	c.JurisdictionKeywords = pstrings.DedupeAndTrimLower(c.JurisdictionKeywords)
	c.PEPKeywords = pstrings.DedupeAndTrimLower(c.PEPKeywords)
	c.DarknetMarkets = pstrings.DedupeAndTrimLower(c.DarknetMarkets)
}

func containsString(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
