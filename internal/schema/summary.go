package schema

import (
	"strconv"

	"raincast/internal/types"
)

// Labeler supplies display text for the summary table.
type Labeler interface {
	FieldLabel(name string) string
	YesNo(yes bool) string
}

// SummaryRow is one line of the input summary.
type SummaryRow struct {
	Field string `json:"field"`
	Label string `json:"label"`
	Value string `json:"value"`
}

// Summary renders the record as display rows in schema order. RainToday is
// shown as the localized Yes/No; the stored value is untouched.
func Summary(rec types.FeatureRecord, l Labeler) []SummaryRow {
	rows := make([]SummaryRow, 0, len(fields))
	for _, f := range fields {
		v, _ := Value(rec, f.Name)
		rows = append(rows, SummaryRow{
			Field: f.Name,
			Label: l.FieldLabel(f.Name),
			Value: displayValue(f, v, l),
		})
	}
	return rows
}

func displayValue(f Field, v any, l Labeler) string {
	switch x := v.(type) {
	case string:
		return x
	case int:
		if f.Kind == KindBinary {
			return l.YesNo(x == 1)
		}
		return strconv.Itoa(x)
	case float64:
		return FormatValue(x)
	}
	return ""
}

// FormatValue renders a float reading; whole numbers keep one decimal so the
// column reads as continuous (12.0, 1017.5).
func FormatValue(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatFloat(v, 'f', 1, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
