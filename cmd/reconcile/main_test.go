package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/charterdesk/recon-engine/internal/config"
)

func TestApplyMatchingOverrides(t *testing.T) {
	base := config.MatchingConfig{
		AmountTolerancePct: 0.05,
		DateWindowDays:     7,
		NameSimilarityMin:  0.70,
	}

	t.Run("zero values keep configured tolerances", func(t *testing.T) {
		m := base
		applyMatchingOverrides(&m, 0, 0, 0)
		assert.Equal(t, base, m)
	})

	t.Run("each flag overrides its tolerance", func(t *testing.T) {
		m := base
		applyMatchingOverrides(&m, 0.10, 14, 0.85)
		assert.Equal(t, 0.10, m.AmountTolerancePct)
		assert.Equal(t, 14, m.DateWindowDays)
		assert.Equal(t, 0.85, m.NameSimilarityMin)
	})

	t.Run("name similarity alone", func(t *testing.T) {
		m := base
		applyMatchingOverrides(&m, 0, 0, 0.95)
		assert.Equal(t, base.AmountTolerancePct, m.AmountTolerancePct)
		assert.Equal(t, base.DateWindowDays, m.DateWindowDays)
		assert.Equal(t, 0.95, m.NameSimilarityMin)
	})
}
