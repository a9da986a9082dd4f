package tiers

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"analysthub/internal/onboarding/models"
	dErrors "analysthub/pkg/domain-errors"
)

func floatPtr(v float64) *float64 { return &v }

// submittableTier builds a tier that clears the deep gate on its own.
func submittableTier() models.Tier {
	tier := models.NewTier()
	tier.Name = "Premium"
	tier.Features = []string{"Daily calls", "Weekly webinar"}
	tier.MonthlyPrice = floatPtr(999)
	return tier
}

func TestAdd(t *testing.T) {
	t.Run("appends a tier with creation defaults", func(t *testing.T) {
		updated, err := Add([]models.Tier{models.NewTier()})
		require.NoError(t, err)
		require.Len(t, updated, 2)
		assert.True(t, updated[1].IsActive)
		assert.Equal(t, []string{""}, updated[1].Features)
	})

	t.Run("rejects adding beyond the bound", func(t *testing.T) {
		collection := []models.Tier{models.NewTier()}
		var err error
		for i := 1; i < MaxTiers; i++ {
			collection, err = Add(collection)
			require.NoError(t, err)
		}
		require.Len(t, collection, MaxTiers)

		unchanged, err := Add(collection)
		require.True(t, dErrors.Is(err, dErrors.CodeUnprocessable))
		assert.Len(t, unchanged, MaxTiers)
	})
}

func TestRemove(t *testing.T) {
	t.Run("removes by id preserving order", func(t *testing.T) {
		a, b, c := models.NewTier(), models.NewTier(), models.NewTier()
		updated, err := Remove([]models.Tier{a, b, c}, b.ID.String())
		require.NoError(t, err)
		require.Len(t, updated, 2)
		assert.Equal(t, a.ID, updated[0].ID)
		assert.Equal(t, c.ID, updated[1].ID)
	})

	t.Run("last remaining tier cannot be removed", func(t *testing.T) {
		tier := models.NewTier()
		tier.IsActive = false
		unchanged, err := Remove([]models.Tier{tier}, tier.ID.String())
		require.True(t, dErrors.Is(err, dErrors.CodeUnprocessable))
		assert.Len(t, unchanged, 1)
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		_, err := Remove([]models.Tier{models.NewTier(), models.NewTier()}, "bogus")
		assert.True(t, dErrors.Is(err, dErrors.CodeNotFound))
	})
}

func TestToggleActive(t *testing.T) {
	tier := submittableTier()

	toggled, err := ToggleActive([]models.Tier{tier}, tier.ID.String())
	require.NoError(t, err)
	assert.False(t, toggled[0].IsActive)

	// Toggling back on is lossless: name, features and prices survive.
	restored, err := ToggleActive(toggled, tier.ID.String())
	require.NoError(t, err)
	assert.Equal(t, tier, restored[0])
}

func TestOptionalPrice(t *testing.T) {
	t.Run("absent key leaves the price untouched", func(t *testing.T) {
		var patch Patch
		require.NoError(t, json.Unmarshal([]byte(`{"name":"Basic"}`), &patch))
		assert.False(t, patch.MonthlyPrice.Set)
	})

	t.Run("null clears the price", func(t *testing.T) {
		var patch Patch
		require.NoError(t, json.Unmarshal([]byte(`{"monthly_price":null}`), &patch))
		assert.True(t, patch.MonthlyPrice.Set)
		assert.Nil(t, patch.MonthlyPrice.Value)
	})

	t.Run("value sets the price", func(t *testing.T) {
		var patch Patch
		require.NoError(t, json.Unmarshal([]byte(`{"monthly_price":999.5}`), &patch))
		require.True(t, patch.MonthlyPrice.Set)
		require.NotNil(t, patch.MonthlyPrice.Value)
		assert.InDelta(t, 999.5, *patch.MonthlyPrice.Value, 1e-9)
	})
}

func TestUpdate(t *testing.T) {
	tier := submittableTier()
	tier.WeeklyPrice = floatPtr(199)

	name := "Pro"
	updated, err := Update([]models.Tier{tier}, tier.ID.String(), Patch{
		Name:         &name,
		WeeklyPrice:  OptionalPrice{Set: true, Value: nil},
		MonthlyPrice: OptionalPrice{Set: true, Value: floatPtr(1499)},
	})
	require.NoError(t, err)

	got := updated[0]
	assert.Equal(t, "Pro", got.Name)
	assert.Nil(t, got.WeeklyPrice)
	assert.Equal(t, 1499.0, *got.MonthlyPrice)
	// Untouched fields survive the patch.
	assert.Equal(t, tier.Features, got.Features)
}

func TestFeatures(t *testing.T) {
	t.Run("add and update a slot", func(t *testing.T) {
		tier := models.NewTier()
		collection := []models.Tier{tier}

		collection, err := AddFeature(collection, tier.ID.String())
		require.NoError(t, err)
		require.Len(t, collection[0].Features, 2)

		collection, err = UpdateFeature(collection, tier.ID.String(), 1, "Portfolio reviews")
		require.NoError(t, err)
		assert.Equal(t, "Portfolio reviews", collection[0].Features[1])
	})

	t.Run("out-of-range index is not found", func(t *testing.T) {
		tier := models.NewTier()
		_, err := UpdateFeature([]models.Tier{tier}, tier.ID.String(), 3, "x")
		assert.True(t, dErrors.Is(err, dErrors.CodeNotFound))

		_, err = RemoveFeature([]models.Tier{tier}, tier.ID.String(), -1)
		assert.True(t, dErrors.Is(err, dErrors.CodeNotFound))
	})

	t.Run("remove keeps at least one slot", func(t *testing.T) {
		tier := models.NewTier()
		tier.Features = []string{"a", "b"}
		collection := []models.Tier{tier}

		collection, err := RemoveFeature(collection, tier.ID.String(), 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"b"}, collection[0].Features)

		// Removing the last slot is a silent no-op.
		collection, err = RemoveFeature(collection, tier.ID.String(), 0)
		require.NoError(t, err)
		assert.Equal(t, []string{"b"}, collection[0].Features)
	})
}

func TestEditsDoNotAliasTheInput(t *testing.T) {
	tier := models.NewTier()
	original := []models.Tier{tier}

	updated, err := UpdateFeature(original, tier.ID.String(), 0, "changed")
	require.NoError(t, err)
	assert.Equal(t, "changed", updated[0].Features[0])
	assert.Equal(t, "", original[0].Features[0])
}

func TestValidateForSubmit(t *testing.T) {
	t.Run("passes a complete active tier", func(t *testing.T) {
		assert.Empty(t, ValidateForSubmit([]models.Tier{submittableTier()}))
	})

	t.Run("inactive tiers are skipped entirely", func(t *testing.T) {
		broken := models.NewTier()
		broken.IsActive = false
		assert.Empty(t, ValidateForSubmit([]models.Tier{submittableTier(), broken}))
	})

	tests := []struct {
		name   string
		mutate func(*models.Tier)
		field  string
	}{
		{"requires a name", func(tier *models.Tier) { tier.Name = "  " }, "tiers[0].name"},
		{"requires a non-blank feature", func(tier *models.Tier) { tier.Features = []string{"", "  "} }, "tiers[0].features"},
		{"requires at least one price", func(tier *models.Tier) { tier.MonthlyPrice = nil }, "tiers[0].prices"},
		{"rejects a zero price", func(tier *models.Tier) { tier.MonthlyPrice = floatPtr(0) }, "tiers[0].monthly_price"},
		{"rejects a negative price", func(tier *models.Tier) { tier.WeeklyPrice = floatPtr(-5) }, "tiers[0].weekly_price"},
		{"rejects a NaN price", func(tier *models.Tier) { tier.YearlyPrice = floatPtr(math.NaN()) }, "tiers[0].yearly_price"},
		{
			"four weeks of weekly must undercut monthly",
			func(tier *models.Tier) { tier.WeeklyPrice = floatPtr(250) }, // 1000 over four weeks vs 999 monthly
			"tiers[0].weekly_price",
		},
		{
			"yearly must not exceed twelve months of monthly",
			func(tier *models.Tier) { tier.YearlyPrice = floatPtr(12000) }, // 999 monthly caps yearly at 11988
			"tiers[0].yearly_price",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tier := submittableTier()
			tt.mutate(&tier)
			violations := ValidateForSubmit([]models.Tier{tier})
			assert.Contains(t, violations, tt.field)
		})
	}

	t.Run("a genuine yearly discount passes", func(t *testing.T) {
		tier := submittableTier()
		tier.YearlyPrice = floatPtr(9990)
		assert.Empty(t, ValidateForSubmit([]models.Tier{tier}))
	})

	t.Run("violations are keyed per tier index", func(t *testing.T) {
		first := submittableTier()
		second := submittableTier()
		second.Name = ""
		violations := ValidateForSubmit([]models.Tier{first, second})
		assert.Contains(t, violations, "tiers[1].name")
		assert.NotContains(t, violations, "tiers[0].name")
	})
}
