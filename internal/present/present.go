// Package present turns a prediction into what the user sees: a headline,
// the two probabilities as percentages, a confidence bar and a tiered
// advisory. It is a pure function of the prediction and the message catalog.
package present

import (
	"math"
	"strings"

	"raincast/internal/types"
)

// Tier is a qualitative band of P(rain).
type Tier string

const (
	TierHigh     Tier = "high"
	TierModerate Tier = "moderate"
	TierLow      Tier = "low"
)

// Tier thresholds. Both comparisons are strict: exactly 0.7 is moderate and
// exactly 0.4 is low.
const (
	highAbove     = 0.7
	moderateAbove = 0.4
)

// TierFor classifies P(rain).
func TierFor(pRain float64) Tier {
	switch {
	case pRain > highAbove:
		return TierHigh
	case pRain > moderateAbove:
		return TierModerate
	default:
		return TierLow
	}
}

// Style is the visual treatment of a message.
type Style string

const (
	StyleAlert   Style = "alert"
	StyleSuccess Style = "success"
	StyleInfo    Style = "info"
	StyleWarning Style = "warning"
)

var advisoryStyle = map[Tier]Style{
	TierHigh:     StyleInfo,
	TierModerate: StyleWarning,
	TierLow:      StyleSuccess,
}

// Localizer provides translated text.
type Localizer interface {
	T(key string) string
	Percent(p float64) string
}

// View is the rendered result region.
type View struct {
	Label    types.Label `json:"label"`
	Headline string      `json:"headline"`
	Detail   string      `json:"detail"`
	Style    Style       `json:"style"`

	RainProbability float64 `json:"rain_probability"`
	DryProbability  float64 `json:"dry_probability"`
	RainPercent     string  `json:"rain_percent"`
	DryPercent      string  `json:"dry_percent"`

	// BarPercent is P(rain) in whole percent, for the confidence bar width.
	BarPercent int `json:"bar_percent"`

	Tier          Tier   `json:"tier"`
	Advisory      string `json:"advisory"`
	AdvisoryStyle Style  `json:"advisory_style"`
}

// Present maps a prediction to its view.
func Present(pred types.Prediction, loc Localizer) View {
	pRain := pred.RainProbability()
	tier := TierFor(pRain)

	v := View{
		Label:           pred.Label,
		RainProbability: pRain,
		DryProbability:  pred.DryProbability(),
		RainPercent:     loc.Percent(pRain),
		DryPercent:      loc.Percent(pred.DryProbability()),
		BarPercent:      barPercent(pRain),
		Tier:            tier,
		Advisory:        loc.T("advisory." + string(tier)),
		AdvisoryStyle:   advisoryStyle[tier],
	}

	if pred.Label == types.LabelRain {
		v.Headline = loc.T("result.yes")
		v.Detail = loc.T("result.yes_detail")
		v.Style = StyleAlert
	} else {
		v.Headline = loc.T("result.no")
		v.Detail = loc.T("result.no_detail")
		v.Style = StyleSuccess
	}
	return v
}

func barPercent(p float64) int {
	return int(math.Round(clamp01(p) * 100))
}

func clamp01(p float64) float64 {
	return math.Max(0, math.Min(1, p))
}

// TextBar draws the confidence bar as width cells, filled with '#' in
// proportion to P(rain).
func (v View) TextBar(width int) string {
	if width <= 0 {
		return ""
	}
	filled := int(math.Round(clamp01(v.RainProbability) * float64(width)))
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "]"
}
