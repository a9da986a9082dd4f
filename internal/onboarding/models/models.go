package models

import (
	"time"

	"github.com/google/uuid"

	pkgstrings "analysthub/pkg/platform/strings"
)

// Step identifies a position in the linear onboarding wizard.
type Step int

const (
	StepProfile     Step = 1
	StepPricing     Step = 2
	StepCredentials Step = 3
	StepSubmit      Step = 4
)

const (
	StepMin = StepProfile
	StepMax = StepSubmit
)

func (s Step) String() string {
	switch s {
	case StepProfile:
		return "profile"
	case StepPricing:
		return "pricing"
	case StepCredentials:
		return "credentials"
	case StepSubmit:
		return "submit"
	default:
		return "unknown"
	}
}

// Tier is one subscription pricing plan an analyst offers. Prices are
// pointers so an unset price is distinguishable from zero; at least one of
// the three must be set for an active tier to pass the submit-time gate.
type Tier struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Features     []string  `json:"features"`
	WeeklyPrice  *float64  `json:"weekly_price"`
	MonthlyPrice *float64  `json:"monthly_price"`
	YearlyPrice  *float64  `json:"yearly_price"`
	IsActive     bool      `json:"is_active"`
}

// NewTier returns a tier with creation defaults: active, one empty feature
// slot ready for editing.
func NewTier() Tier {
	return Tier{
		ID:       uuid.New(),
		Features: []string{""},
		IsActive: true,
	}
}

// MonthlyEquivalent derives a normalized per-month figure for display:
// monthly price when set, else yearly/12, else weekly*4, else 0. Never
// persisted, purely a read-time projection.
func (t Tier) MonthlyEquivalent() float64 {
	switch {
	case t.MonthlyPrice != nil:
		return *t.MonthlyPrice
	case t.YearlyPrice != nil:
		return *t.YearlyPrice / 12
	case t.WeeklyPrice != nil:
		return *t.WeeklyPrice * 4
	default:
		return 0
	}
}

// FormData is the single aggregate record accumulated across the wizard.
// Append-only until reset: mutations happen only through ApplyPatch.
type FormData struct {
	// Profile slice.
	DisplayName       string   `json:"display_name"`
	Bio               string   `json:"bio"`
	Specializations   []string `json:"specializations"`
	Languages         []string `json:"languages"`
	YearsOfExperience *int     `json:"years_of_experience"`
	AllowFreeAudience bool     `json:"allow_free_audience"`
	ProfilePhotoURL   string   `json:"profile_photo_url"`

	// Pricing slice.
	PricingTiers []Tier `json:"pricing_tiers"`

	// Credentials slice.
	SEBINumber     string `json:"sebi_number"`
	RIANumber      string `json:"ria_number"`
	CertificateURL string `json:"sebi_certificate_url"`
}

// FormDataPatch is a shallow partial update. Nil fields leave the existing
// value untouched; set fields overwrite it wholesale.
type FormDataPatch struct {
	DisplayName       *string  `json:"display_name,omitempty"`
	Bio               *string  `json:"bio,omitempty"`
	Specializations   []string `json:"specializations,omitempty"`
	Languages         []string `json:"languages,omitempty"`
	YearsOfExperience *int     `json:"years_of_experience,omitempty"`
	AllowFreeAudience *bool    `json:"allow_free_audience,omitempty"`
	ProfilePhotoURL   *string  `json:"profile_photo_url,omitempty"`
	PricingTiers      []Tier   `json:"pricing_tiers,omitempty"`
	SEBINumber        *string  `json:"sebi_number,omitempty"`
	RIANumber         *string  `json:"ria_number,omitempty"`
	CertificateURL    *string  `json:"sebi_certificate_url,omitempty"`
}

// ApplyPatch merges the patch shallowly into f. Tag sets are deduped and
// trimmed at this boundary so validation and submission never see junk
// entries.
func (f *FormData) ApplyPatch(p FormDataPatch) {
	if p.DisplayName != nil {
		f.DisplayName = *p.DisplayName
	}
	if p.Bio != nil {
		f.Bio = *p.Bio
	}
	if p.Specializations != nil {
		f.Specializations = pkgstrings.DedupeAndTrim(p.Specializations)
	}
	if p.Languages != nil {
		f.Languages = pkgstrings.DedupeAndTrim(p.Languages)
	}
	if p.YearsOfExperience != nil {
		years := *p.YearsOfExperience
		f.YearsOfExperience = &years
	}
	if p.AllowFreeAudience != nil {
		f.AllowFreeAudience = *p.AllowFreeAudience
	}
	if p.ProfilePhotoURL != nil {
		f.ProfilePhotoURL = *p.ProfilePhotoURL
	}
	if p.PricingTiers != nil {
		f.PricingTiers = p.PricingTiers
	}
	if p.SEBINumber != nil {
		f.SEBINumber = *p.SEBINumber
	}
	if p.RIANumber != nil {
		f.RIANumber = *p.RIANumber
	}
	if p.CertificateURL != nil {
		f.CertificateURL = *p.CertificateURL
	}
}

// WizardState is the single source of truth for one analyst's onboarding
// session. Exactly one exists per authenticated user; the persisted copy
// lives under one store key per user.
type WizardState struct {
	CurrentStep Step      `json:"current_step"`
	FormData    FormData  `json:"form_data"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewWizardState returns the all-empty default: cursor at the profile step
// and one fresh tier, because the tier editor guarantees the collection is
// never empty.
func NewWizardState() *WizardState {
	return &WizardState{
		CurrentStep: StepProfile,
		FormData: FormData{
			PricingTiers: []Tier{NewTier()},
		},
	}
}
