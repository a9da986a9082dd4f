// Package submission composes the final application payload and delivers it
// to the external Submission Endpoint.
package submission

import (
	"strings"

	"analysthub/internal/onboarding/models"
)

// TierPayload is a pricing tier as the Submission Endpoint expects it. The
// price keys are camelCase on the wire; that is the endpoint's contract,
// not ours to normalize.
type TierPayload struct {
	Name         string   `json:"name"`
	Features     []string `json:"features"`
	WeeklyPrice  *float64 `json:"weeklyPrice"`
	MonthlyPrice *float64 `json:"monthlyPrice"`
	YearlyPrice  *float64 `json:"yearlyPrice"`
	IsActive     bool     `json:"isActive"`
}

// Payload is the composed analyst application.
type Payload struct {
	DisplayName        string        `json:"display_name"`
	Bio                string        `json:"bio"`
	Specializations    []string      `json:"specializations"`
	Languages          []string      `json:"languages"`
	YearsOfExperience  int           `json:"years_of_experience"`
	AllowFreeAudience  bool          `json:"allow_free_audience"`
	ProfilePhotoURL    string        `json:"profile_photo_url"`
	PricingTiers       []TierPayload `json:"pricing_tiers"`
	SEBINumber         string        `json:"sebi_number"`
	RIANumber          string        `json:"ria_number"`
	SEBICertificateURL string        `json:"sebi_certificate_url"`
}

// BuildPayload reduces wizard state to the canonical application: profile
// and credentials slices verbatim, pricing reduced to active tiers only
// with empty feature slots stripped. The derivation is pure, so a retry
// after a failed submission produces an identical payload.
func BuildPayload(state models.WizardState) Payload {
	form := state.FormData

	years := 0
	if form.YearsOfExperience != nil {
		years = *form.YearsOfExperience
	}

	tierPayloads := make([]TierPayload, 0, len(form.PricingTiers))
	for _, tier := range form.PricingTiers {
		if !tier.IsActive {
			continue
		}
		features := make([]string, 0, len(tier.Features))
		for _, feature := range tier.Features {
			if trimmed := strings.TrimSpace(feature); trimmed != "" {
				features = append(features, trimmed)
			}
		}
		tierPayloads = append(tierPayloads, TierPayload{
			Name:         tier.Name,
			Features:     features,
			WeeklyPrice:  tier.WeeklyPrice,
			MonthlyPrice: tier.MonthlyPrice,
			YearlyPrice:  tier.YearlyPrice,
			IsActive:     true,
		})
	}

	return Payload{
		DisplayName:        form.DisplayName,
		Bio:                form.Bio,
		Specializations:    form.Specializations,
		Languages:          form.Languages,
		YearsOfExperience:  years,
		AllowFreeAudience:  form.AllowFreeAudience,
		ProfilePhotoURL:    form.ProfilePhotoURL,
		PricingTiers:       tierPayloads,
		SEBINumber:         form.SEBINumber,
		RIANumber:          form.RIANumber,
		SEBICertificateURL: form.CertificateURL,
	}
}
