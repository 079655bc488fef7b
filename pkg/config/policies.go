package config

import (
	"fmt"
	"os"

	"trade-executor/internal/order"

	"gopkg.in/yaml.v3"
)

// LoadPolicies reads a per-strategy order-policy map from a YAML file:
//
//	trend:
//	  orderType: Market
//	  leverage: 10
//	  requireReversal: true
//	  defaultStopLossPct: 0.05
//
// An empty path returns an empty map; strategies not listed fall back to
// the default policy at run time.
func LoadPolicies(path string) (map[string]order.Policy, error) {
	if path == "" {
		return map[string]order.Policy{}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policies file: %w", err)
	}
	var policies map[string]order.Policy
	if err := yaml.Unmarshal(raw, &policies); err != nil {
		return nil, fmt.Errorf("parse policies file: %w", err)
	}
	for name, p := range policies {
		policies[name] = p.Normalize()
	}
	return policies, nil
}
