package present

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"raincast/internal/types"
)

type keyLocalizer struct{}

func (keyLocalizer) T(key string) string { return "<" + key + ">" }
func (keyLocalizer) Percent(p float64) string {
	return fmt.Sprintf("%.1f%%", p*100)
}

func TestTierFor(t *testing.T) {
	tests := []struct {
		p    float64
		want Tier
	}{
		{0.75, TierHigh},
		{0.5, TierModerate},
		{0.2, TierLow},
		// Boundaries use strict comparisons.
		{0.7, TierModerate},
		{0.4, TierLow},
		{0.7000001, TierHigh},
		{0.4000001, TierModerate},
		{0, TierLow},
		{1, TierHigh},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.p), func(t *testing.T) {
			assert.Equal(t, tt.want, TierFor(tt.p))
		})
	}
}

func TestPresent_Rain(t *testing.T) {
	v := Present(types.Prediction{Label: types.LabelRain, Probabilities: [2]float64{0.18, 0.82}}, keyLocalizer{})

	assert.Equal(t, "<result.yes>", v.Headline)
	assert.Equal(t, "<result.yes_detail>", v.Detail)
	assert.Equal(t, StyleAlert, v.Style)
	assert.Equal(t, "82.0%", v.RainPercent)
	assert.Equal(t, "18.0%", v.DryPercent)
	assert.Equal(t, 82, v.BarPercent)
	assert.Equal(t, TierHigh, v.Tier)
	assert.Equal(t, "<advisory.high>", v.Advisory)
	assert.Equal(t, StyleInfo, v.AdvisoryStyle)
}

func TestPresent_NoRain(t *testing.T) {
	v := Present(types.Prediction{Label: types.LabelNoRain, Probabilities: [2]float64{0.8918, 0.1082}}, keyLocalizer{})

	assert.Equal(t, "<result.no>", v.Headline)
	assert.Equal(t, "<result.no_detail>", v.Detail)
	assert.Equal(t, StyleSuccess, v.Style)
	assert.Equal(t, "10.8%", v.RainPercent)
	assert.Equal(t, 11, v.BarPercent)
	assert.Equal(t, TierLow, v.Tier)
	assert.Equal(t, StyleSuccess, v.AdvisoryStyle)
}

// The headline follows the label even when the tier disagrees with it.
func TestPresent_LabelAndTierIndependent(t *testing.T) {
	v := Present(types.Prediction{Label: types.LabelNoRain, Probabilities: [2]float64{0.55, 0.45}}, keyLocalizer{})
	assert.Equal(t, "<result.no>", v.Headline)
	assert.Equal(t, TierModerate, v.Tier)
	assert.Equal(t, StyleWarning, v.AdvisoryStyle)
}

func TestTextBar(t *testing.T) {
	v := View{RainProbability: 0.5}
	assert.Equal(t, "[##########..........]", v.TextBar(20))

	v.RainProbability = 1
	assert.Equal(t, "[####]", v.TextBar(4))

	v.RainProbability = 0
	assert.Equal(t, "[...]", v.TextBar(3))
	assert.Equal(t, "", v.TextBar(0))
}
