// Package rules holds the pure validation predicates for each wizard step.
// Nothing here touches stores or services: every function is a function of
// the form data it is given.
//
// Pricing validation is deliberately two-layered. The step gate here only
// checks that a plausible tier collection exists, which is what progress
// indicators need while the editor is open. The strict per-tier field gate
// lives in the tiers package and runs when the user tries to leave the
// pricing step.
package rules

import (
	"fmt"
	"regexp"
	"strings"

	"analysthub/internal/onboarding/models"
)

const (
	DisplayNameMin = 3
	DisplayNameMax = 50
	BioMin         = 50
	BioMax         = 500
	ExperienceMax  = 50
)

// SEBIPattern matches an Individual Investment Adviser registration number.
var SEBIPattern = regexp.MustCompile(`^INA\d{9}$`)

// Result is the outcome of a step gate. Violations are keyed by field name
// with human-readable messages; an empty map means the gate passed.
type Result struct {
	Valid      bool
	Violations map[string]string
}

func valid() Result {
	return Result{Valid: true, Violations: map[string]string{}}
}

func fromViolations(violations map[string]string) Result {
	return Result{Valid: len(violations) == 0, Violations: violations}
}

// ValidateStep evaluates the gate for the given step against the current
// form data. StepSubmit is terminal and always valid.
func ValidateStep(step models.Step, form models.FormData) Result {
	switch step {
	case models.StepProfile:
		return ValidateProfile(form)
	case models.StepPricing:
		return ValidatePricing(form)
	case models.StepCredentials:
		return ValidateCredentials(form)
	default:
		return valid()
	}
}

// ValidateProfile gates step 1.
func ValidateProfile(form models.FormData) Result {
	violations := map[string]string{}

	name := strings.TrimSpace(form.DisplayName)
	if len(name) < DisplayNameMin || len(name) > DisplayNameMax {
		violations["display_name"] = fmt.Sprintf("display name must be %d-%d characters", DisplayNameMin, DisplayNameMax)
	}

	bio := strings.TrimSpace(form.Bio)
	if len(bio) < BioMin {
		violations["bio"] = fmt.Sprintf("bio must be at least %d characters", BioMin)
	} else if len(bio) > BioMax {
		violations["bio"] = fmt.Sprintf("bio must be at most %d characters", BioMax)
	}

	if len(form.Specializations) < 1 {
		violations["specializations"] = "select at least one specialization"
	}
	if len(form.Languages) < 1 {
		violations["languages"] = "select at least one language"
	}

	switch {
	case form.YearsOfExperience == nil:
		violations["years_of_experience"] = "years of experience is required"
	case *form.YearsOfExperience < 0 || *form.YearsOfExperience > ExperienceMax:
		violations["years_of_experience"] = fmt.Sprintf("years of experience must be between 0 and %d", ExperienceMax)
	}

	return fromViolations(violations)
}

// ValidatePricing is the shallow step 2 gate: a tier collection exists and
// at least one tier is active. Per-tier field checks belong to the tiers
// package and run at step-submit time, not here.
func ValidatePricing(form models.FormData) Result {
	violations := map[string]string{}

	if len(form.PricingTiers) < 1 {
		violations["pricing_tiers"] = "add at least one pricing tier"
		return fromViolations(violations)
	}

	active := false
	for _, tier := range form.PricingTiers {
		if tier.IsActive {
			active = true
			break
		}
	}
	if !active {
		violations["pricing_tiers"] = "at least one tier must be active"
	}

	return fromViolations(violations)
}

// ValidateCredentials gates step 3. The certificate must already have been
// uploaded, so an empty URL blocks advancement.
func ValidateCredentials(form models.FormData) Result {
	violations := map[string]string{}

	sebi := strings.TrimSpace(form.SEBINumber)
	switch {
	case sebi == "":
		violations["sebi_number"] = "SEBI registration number is required"
	case !SEBIPattern.MatchString(sebi):
		violations["sebi_number"] = "SEBI registration number must match INA followed by 9 digits"
	}

	if strings.TrimSpace(form.CertificateURL) == "" {
		violations["sebi_certificate_url"] = "upload the SEBI registration certificate"
	}

	return fromViolations(violations)
}
