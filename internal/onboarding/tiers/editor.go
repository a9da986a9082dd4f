// Package tiers manages the ordered, bounded collection of pricing tiers
// within the pricing step. Operations are pure: each takes the current
// collection and returns the updated one, leaving the caller (the onboarding
// service) to merge the result back into wizard state. That keeps every
// tier mutation on the single form-data merge path.
package tiers

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"analysthub/internal/onboarding/models"
	dErrors "analysthub/pkg/domain-errors"
)

// MaxTiers is the hard upper bound on the collection.
const MaxTiers = 5

// Add appends a new tier with creation defaults. Adding beyond the bound is
// rejected; the collection is returned unchanged.
func Add(tiers []models.Tier) ([]models.Tier, error) {
	if len(tiers) >= MaxTiers {
		return tiers, dErrors.New(dErrors.CodeUnprocessable,
			fmt.Sprintf("a maximum of %d pricing tiers is allowed", MaxTiers))
	}
	return append(tiers, models.NewTier()), nil
}

// Remove deletes a tier by id. The last remaining tier can never be
// removed, even when inactive.
func Remove(tiers []models.Tier, tierID string) ([]models.Tier, error) {
	idx, err := indexOf(tiers, tierID)
	if err != nil {
		return tiers, err
	}
	if len(tiers) <= 1 {
		return tiers, dErrors.New(dErrors.CodeUnprocessable, "at least one pricing tier must exist")
	}
	updated := make([]models.Tier, 0, len(tiers)-1)
	updated = append(updated, tiers[:idx]...)
	updated = append(updated, tiers[idx+1:]...)
	return updated, nil
}

// ToggleActive flips a tier's active flag. Tier data is retained either
// way, so toggling off and back on is lossless.
func ToggleActive(tiers []models.Tier, tierID string) ([]models.Tier, error) {
	idx, err := indexOf(tiers, tierID)
	if err != nil {
		return tiers, err
	}
	updated := clone(tiers)
	updated[idx].IsActive = !updated[idx].IsActive
	return updated, nil
}

// OptionalPrice distinguishes "field absent" from "field set to null". A
// null clears the price; absence leaves it untouched.
type OptionalPrice struct {
	Set   bool
	Value *float64
}

// UnmarshalJSON is only invoked when the key is present, which is what
// flips Set.
func (p *OptionalPrice) UnmarshalJSON(raw []byte) error {
	p.Set = true
	if string(raw) == "null" {
		p.Value = nil
		return nil
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	p.Value = &v
	return nil
}

// Patch is a partial update for one tier's name and prices.
type Patch struct {
	Name         *string       `json:"name,omitempty"`
	WeeklyPrice  OptionalPrice `json:"weekly_price"`
	MonthlyPrice OptionalPrice `json:"monthly_price"`
	YearlyPrice  OptionalPrice `json:"yearly_price"`
}

// Update applies a patch to one tier.
func Update(tiers []models.Tier, tierID string, patch Patch) ([]models.Tier, error) {
	idx, err := indexOf(tiers, tierID)
	if err != nil {
		return tiers, err
	}
	updated := clone(tiers)
	tier := &updated[idx]
	if patch.Name != nil {
		tier.Name = *patch.Name
	}
	if patch.WeeklyPrice.Set {
		tier.WeeklyPrice = patch.WeeklyPrice.Value
	}
	if patch.MonthlyPrice.Set {
		tier.MonthlyPrice = patch.MonthlyPrice.Value
	}
	if patch.YearlyPrice.Set {
		tier.YearlyPrice = patch.YearlyPrice.Value
	}
	return updated, nil
}

// AddFeature appends an empty feature slot to one tier.
func AddFeature(tiers []models.Tier, tierID string) ([]models.Tier, error) {
	idx, err := indexOf(tiers, tierID)
	if err != nil {
		return tiers, err
	}
	updated := clone(tiers)
	updated[idx].Features = append(updated[idx].Features, "")
	return updated, nil
}

// UpdateFeature sets the text of one feature slot.
func UpdateFeature(tiers []models.Tier, tierID string, index int, text string) ([]models.Tier, error) {
	idx, err := indexOf(tiers, tierID)
	if err != nil {
		return tiers, err
	}
	if index < 0 || index >= len(tiers[idx].Features) {
		return tiers, dErrors.New(dErrors.CodeNotFound, "feature index out of range")
	}
	updated := clone(tiers)
	updated[idx].Features[index] = text
	return updated, nil
}

// RemoveFeature drops one feature slot. Removing the last remaining slot is
// a silent no-op: a tier always keeps at least one slot to edit.
func RemoveFeature(tiers []models.Tier, tierID string, index int) ([]models.Tier, error) {
	idx, err := indexOf(tiers, tierID)
	if err != nil {
		return tiers, err
	}
	features := tiers[idx].Features
	if index < 0 || index >= len(features) {
		return tiers, dErrors.New(dErrors.CodeNotFound, "feature index out of range")
	}
	if len(features) <= 1 {
		return tiers, nil
	}
	updated := clone(tiers)
	updated[idx].Features = append(
		append([]string(nil), features[:index]...),
		features[index+1:]...,
	)
	return updated, nil
}

// ValidateForSubmit is the deep gate run when the user attempts to leave
// the pricing step. Inactive tiers are skipped entirely. Violations are
// keyed "tiers[<index>].<field>"; an empty map means valid.
//
// The cross-price sanity checks require weekly billing to cost less than
// the monthly price over four weeks, and the yearly price to be a discount
// against twelve months of monthly billing.
func ValidateForSubmit(tiers []models.Tier) map[string]string {
	violations := map[string]string{}

	for i, tier := range tiers {
		if !tier.IsActive {
			continue
		}
		key := func(field string) string {
			return fmt.Sprintf("tiers[%d].%s", i, field)
		}

		if strings.TrimSpace(tier.Name) == "" {
			violations[key("name")] = "tier name is required"
		}

		hasFeature := false
		for _, feature := range tier.Features {
			if strings.TrimSpace(feature) != "" {
				hasFeature = true
				break
			}
		}
		if !hasFeature {
			violations[key("features")] = "add at least one feature"
		}

		prices := map[string]*float64{
			"weekly_price":  tier.WeeklyPrice,
			"monthly_price": tier.MonthlyPrice,
			"yearly_price":  tier.YearlyPrice,
		}
		anySet := false
		for field, price := range prices {
			if price == nil {
				continue
			}
			anySet = true
			if math.IsNaN(*price) || math.IsInf(*price, 0) || *price <= 0 {
				violations[key(field)] = "price must be a positive number"
			}
		}
		if !anySet {
			violations[key("prices")] = "set at least one of weekly, monthly or yearly price"
		}

		if tier.WeeklyPrice != nil && tier.MonthlyPrice != nil &&
			*tier.WeeklyPrice*4 >= *tier.MonthlyPrice {
			violations[key("weekly_price")] = "four weeks of the weekly price must stay below the monthly price"
		}
		if tier.MonthlyPrice != nil && tier.YearlyPrice != nil &&
			*tier.YearlyPrice > *tier.MonthlyPrice*12 {
			violations[key("yearly_price")] = "yearly price must not exceed twelve months of the monthly price"
		}
	}

	return violations
}

func indexOf(tiers []models.Tier, tierID string) (int, error) {
	for i, tier := range tiers {
		if tier.ID.String() == tierID {
			return i, nil
		}
	}
	return 0, dErrors.New(dErrors.CodeNotFound, "pricing tier not found")
}

func clone(tiers []models.Tier) []models.Tier {
	cloned := make([]models.Tier, len(tiers))
	for i, tier := range tiers {
		cloned[i] = tier
		cloned[i].Features = append([]string(nil), tier.Features...)
	}
	return cloned
}
