package billing

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Plan describes a purchasable subscription plan. PriceID must match the
// payment provider's price object so checkout and webhook processing map
// directly.
type Plan struct {
	ID        string `yaml:"id"`
	Name      string `yaml:"name"`
	PriceID   string `yaml:"price_id"`
	TrialDays int    `yaml:"trial_days"`
	Interval  string `yaml:"interval"` // monthly or annual
}

// Catalog is the set of configured plans keyed by plan id.
type Catalog map[string]Plan

// Plan returns a catalog plan by id.
func (c Catalog) Plan(id string) (Plan, error) {
	plan, ok := c[id]
	if !ok {
		return Plan{}, errors.Join(ErrPlanNotFound, fmt.Errorf("plan %q", id))
	}
	return plan, nil
}

// LoadCatalog reads a plan catalog from a YAML file.
//
// Example:
//
//	plans:
//	  - id: pro_monthly
//	    name: Pro
//	    price_id: price_1PhpOrLXVTuI8YtKeLlLupp6
//	    trial_days: 7
//	    interval: monthly
func LoadCatalog(path string) (Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Join(ErrInvalidPlanConfig, err)
	}

	var doc struct {
		Plans []Plan `yaml:"plans"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Join(ErrInvalidPlanConfig, err)
	}
	if len(doc.Plans) == 0 {
		return nil, errors.Join(ErrInvalidPlanConfig, errors.New("catalog defines no plans"))
	}

	catalog := make(Catalog, len(doc.Plans))
	for _, plan := range doc.Plans {
		if plan.ID == "" || plan.PriceID == "" {
			return nil, errors.Join(ErrInvalidPlanConfig,
				fmt.Errorf("plan %q must set id and price_id", plan.ID))
		}
		if plan.TrialDays < 0 {
			return nil, errors.Join(ErrInvalidPlanConfig,
				fmt.Errorf("plan %q has negative trial days", plan.ID))
		}
		if _, exists := catalog[plan.ID]; exists {
			return nil, errors.Join(ErrInvalidPlanConfig,
				fmt.Errorf("duplicate plan id %q", plan.ID))
		}
		catalog[plan.ID] = plan
	}
	return catalog, nil
}
