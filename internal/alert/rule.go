package alert

import (
	"fmt"
	"strings"
)

// Rule types.
const (
	TypeFluctuation = "fluctuation"
	TypePriceTarget = "price_target"
)

// DefaultThreshold is the abnormal move, in percent, between consecutive observations.
const DefaultThreshold = 2.0

// Rule is one configured alert.
type Rule struct {
	Symbol               string  `yaml:"symbol" json:"symbol"`
	Type                 string  `yaml:"type" json:"type"`
	AbnormalityThreshold float64 `yaml:"abnormality_threshold" json:"abnormality_threshold"`
	TargetPrice          float64 `yaml:"target_price" json:"target_price"`
	Direction            string  `yaml:"direction" json:"direction"` // "above" or "below"
}

// Threshold returns the configured abnormality threshold or the default.
func (r Rule) Threshold() float64 {
	if r.AbnormalityThreshold > 0 {
		return r.AbnormalityThreshold
	}
	return DefaultThreshold
}

// Kind returns the rule type, fluctuation when unset.
func (r Rule) Kind() string {
	if r.Type == "" {
		return TypeFluctuation
	}
	return r.Type
}

// StateKey is the suppression key of the rule.
func (r Rule) StateKey() string {
	return r.Symbol + "_" + r.Kind()
}

// Validate checks the rule is usable.
func (r Rule) Validate() error {
	if strings.TrimSpace(r.Symbol) == "" {
		return fmt.Errorf("alert rule: symbol is required")
	}
	switch r.Kind() {
	case TypeFluctuation:
	case TypePriceTarget:
		if r.TargetPrice <= 0 {
			return fmt.Errorf("alert rule %s: target_price must be positive", r.Symbol)
		}
		if r.Direction != "above" && r.Direction != "below" {
			return fmt.Errorf("alert rule %s: direction must be above or below, got %q", r.Symbol, r.Direction)
		}
	default:
		return fmt.Errorf("alert rule %s: unknown type %q", r.Symbol, r.Type)
	}
	if r.AbnormalityThreshold < 0 {
		return fmt.Errorf("alert rule %s: abnormality_threshold must not be negative", r.Symbol)
	}
	return nil
}
