package services

import (
	"fmt"

	"insurance-analytics/models"
	"insurance-analytics/utils"
)

// Validator checks a generated dataset against the portfolio invariants
// before anything is persisted.
type Validator struct {
	logger *utils.Logger
}

// NewValidator creates a Validator with the given logger.
func NewValidator(logger *utils.Logger) *Validator {
	return &Validator{logger: logger}
}

// Validate returns an error describing the first violated invariant: IDs
// must be unique, premiums positive, claim amounts non-negative, and every
// claim must reference an existing policy.
func (v *Validator) Validate(ds *models.Dataset) error {
	if ds == nil || len(ds.Policies) == 0 {
		return fmt.Errorf("validator: dataset has no policies")
	}

	policyIDs := make(map[int64]struct{}, len(ds.Policies))
	for _, p := range ds.Policies {
		if _, dup := policyIDs[p.ID]; dup {
			return fmt.Errorf("validator: duplicate policy ID %d", p.ID)
		}
		policyIDs[p.ID] = struct{}{}

		if p.Premium <= 0 {
			return fmt.Errorf("validator: policy %d has non-positive premium %.2f", p.ID, p.Premium)
		}
		if p.CarType == "" {
			return fmt.Errorf("validator: policy %d has no car type", p.ID)
		}
		if p.AgeGroup == "" {
			return fmt.Errorf("validator: policy %d has no age group", p.ID)
		}
	}

	claimIDs := make(map[int64]struct{}, len(ds.Claims))
	for _, c := range ds.Claims {
		if _, dup := claimIDs[c.ID]; dup {
			return fmt.Errorf("validator: duplicate claim ID %d", c.ID)
		}
		claimIDs[c.ID] = struct{}{}

		if _, ok := policyIDs[c.PolicyID]; !ok {
			return fmt.Errorf("validator: claim %d references unknown policy %d", c.ID, c.PolicyID)
		}
		if c.Amount < 0 {
			return fmt.Errorf("validator: claim %d has negative amount %.2f", c.ID, c.Amount)
		}
	}

	v.logger.Info("[validator] Dataset OK: %d policies, %d claims, referential integrity holds",
		len(ds.Policies), len(ds.Claims))
	return nil
}
