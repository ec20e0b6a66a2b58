// Package schema declares the fixed set of input fields the rain model
// consumes: their controls, kinds, ranges, defaults and choice lists.
//
// The schema is the single description of the input form. The HTML renderer,
// the JSON schema endpoint, the CLI flag builder and the form collector all
// read it instead of hard-coding controls, so a field is added or changed in
// exactly one place.
package schema

import (
	"slices"
	"sort"
)

// Kind is the storage type of a field value.
type Kind string

const (
	KindFloat  Kind = "float"
	KindInt    Kind = "int"
	KindChoice Kind = "choice"
	KindBinary Kind = "binary"
)

// Control is the widget used to collect a field.
type Control string

const (
	ControlSlider Control = "slider"
	ControlNumber Control = "number"
	ControlSelect Control = "select"
	ControlToggle Control = "yes_no"
)

// Section groups fields on the form.
type Section string

const (
	SectionNumerical   Section = "numerical"
	SectionCategorical Section = "categorical"
)

// Field describes one input column.
type Field struct {
	Name    string  `json:"name"`
	Section Section `json:"section"`
	Control Control `json:"control"`
	Kind    Kind    `json:"kind"`

	// Numeric bounds; unused for choice fields.
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Step    float64 `json:"step,omitempty"`
	Default float64 `json:"default"`

	// Choices in display order, and the default choice. Binary fields use
	// "0"/"1" as choices.
	Choices       []string `json:"choices,omitempty"`
	DefaultChoice string   `json:"default_choice,omitempty"`
}

// IsNumeric reports whether the field holds a float or int reading.
func (f Field) IsNumeric() bool {
	return f.Kind == KindFloat || f.Kind == KindInt
}

// stations is the canonical station list, in source order. Display order is
// alphabetical; see Locations.
var stations = []string{
	"Albury", "BadgerysCreek", "Cobar", "CoffsHarbour", "Moree",
	"Newcastle", "NorahHead", "NorfolkIsland", "Penrith", "Richmond",
	"Sydney", "SydneyAirport", "WaggaWagga", "Williamtown",
	"Wollongong", "Canberra", "Tuggeranong", "MountGinini", "Ballarat",
	"Bendigo", "Sale", "MelbourneAirport", "Melbourne", "Mildura",
	"Nhil", "Portland", "Watsonia", "Dartmoor", "Brisbane", "Cairns",
	"GoldCoast", "Townsville", "Adelaide", "MountGambier", "Nuriootpa",
	"Woomera", "Albany", "Witchcliffe", "PearceRAAF", "PerthAirport",
	"Perth", "SalmonGums", "Walpole", "Hobart", "Launceston",
	"AliceSprings", "Darwin", "Katherine", "Uluru",
}

// compassPoints is the 16-point compass in clockwise order from north. It is
// never sorted.
var compassPoints = []string{
	"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE",
	"S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW",
}

// Locations returns the 49 station names sorted alphabetically.
func Locations() []string {
	out := slices.Clone(stations)
	sort.Strings(out)
	return out
}

// CanonicalLocations returns the station names in their source order.
func CanonicalLocations() []string {
	return slices.Clone(stations)
}

// WindDirections returns the 16 compass points in fixed clockwise order.
func WindDirections() []string {
	return slices.Clone(compassPoints)
}

// IsLocation reports whether name is one of the known stations.
func IsLocation(name string) bool {
	return slices.Contains(stations, name)
}

// IsWindDirection reports whether dir is one of the 16 compass points.
func IsWindDirection(dir string) bool {
	return slices.Contains(compassPoints, dir)
}

// Binary choice values as submitted by the form.
const (
	BinaryNo  = "0"
	BinaryYes = "1"
)

func slider(name string, kind Kind, min, max, def float64) Field {
	step := 1.0
	if kind == KindFloat {
		step = 0.01
	}
	return Field{Name: name, Section: SectionNumerical, Control: ControlSlider, Kind: kind, Min: min, Max: max, Step: step, Default: def}
}

func number(name string, min, max, def float64) Field {
	return Field{Name: name, Section: SectionNumerical, Control: ControlNumber, Kind: KindFloat, Min: min, Max: max, Step: 0.01, Default: def}
}

func choice(name string, choices []string) Field {
	return Field{Name: name, Section: SectionCategorical, Control: ControlSelect, Kind: KindChoice, Choices: choices, DefaultChoice: choices[0]}
}

// fields is the complete form, in display order.
var fields = []Field{
	slider("MinTemp", KindFloat, -10, 40, 12),
	slider("MaxTemp", KindFloat, -5, 50, 25),
	number("Rainfall", 0, 300, 0),
	number("Evaporation", 0, 150, 5),
	slider("Sunshine", KindFloat, 0, 15, 7),
	slider("WindGustSpeed", KindInt, 0, 150, 40),
	slider("WindSpeed9am", KindInt, 0, 130, 15),
	slider("WindSpeed3pm", KindInt, 0, 130, 20),
	slider("Humidity9am", KindInt, 0, 100, 60),
	slider("Humidity3pm", KindInt, 0, 100, 50),
	number("Pressure9am", 900, 1100, 1017),
	number("Pressure3pm", 900, 1100, 1015),
	slider("Cloud9am", KindInt, 0, 9, 4),
	slider("Cloud3pm", KindInt, 0, 9, 4),
	slider("Temp9am", KindFloat, -10, 45, 18),
	slider("Temp3pm", KindFloat, -10, 45, 23),

	choice("Location", Locations()),
	choice("WindGustDir", WindDirections()),
	choice("WindDir9am", WindDirections()),
	choice("WindDir3pm", WindDirections()),
	{
		Name:          "RainToday",
		Section:       SectionCategorical,
		Control:       ControlToggle,
		Kind:          KindBinary,
		Min:           0,
		Max:           1,
		Choices:       []string{BinaryNo, BinaryYes},
		DefaultChoice: BinaryNo,
	},
}

// Fields returns a copy of the form schema in display order.
func Fields() []Field {
	out := make([]Field, len(fields))
	for i, f := range fields {
		f.Choices = slices.Clone(f.Choices)
		out[i] = f
	}
	return out
}

// Lookup returns the field with the given column name.
func Lookup(name string) (Field, bool) {
	for _, f := range fields {
		if f.Name == name {
			f.Choices = slices.Clone(f.Choices)
			return f, true
		}
	}
	return Field{}, false
}

// Columns returns the column names in display order.
func Columns() []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = f.Name
	}
	return out
}

// FieldsIn returns the fields of one section, in display order.
func FieldsIn(section Section) []Field {
	var out []Field
	for _, f := range Fields() {
		if f.Section == section {
			out = append(out, f)
		}
	}
	return out
}
