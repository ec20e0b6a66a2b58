package types

// FeatureRecord is the full set of meteorological readings submitted for one
// prediction. JSON names are the exact column names the pipeline expects.
//
// The validate tags mirror the control ranges declared in the schema package;
// schema tests assert the two agree.
type FeatureRecord struct {
	MinTemp       float64 `json:"MinTemp" validate:"gte=-10,lte=40"`
	MaxTemp       float64 `json:"MaxTemp" validate:"gte=-5,lte=50"`
	Rainfall      float64 `json:"Rainfall" validate:"gte=0,lte=300"`
	Evaporation   float64 `json:"Evaporation" validate:"gte=0,lte=150"`
	Sunshine      float64 `json:"Sunshine" validate:"gte=0,lte=15"`
	WindGustSpeed int     `json:"WindGustSpeed" validate:"gte=0,lte=150"`
	WindSpeed9am  int     `json:"WindSpeed9am" validate:"gte=0,lte=130"`
	WindSpeed3pm  int     `json:"WindSpeed3pm" validate:"gte=0,lte=130"`
	Humidity9am   int     `json:"Humidity9am" validate:"gte=0,lte=100"`
	Humidity3pm   int     `json:"Humidity3pm" validate:"gte=0,lte=100"`
	Pressure9am   float64 `json:"Pressure9am" validate:"gte=900,lte=1100"`
	Pressure3pm   float64 `json:"Pressure3pm" validate:"gte=900,lte=1100"`
	Cloud9am      int     `json:"Cloud9am" validate:"gte=0,lte=9"`
	Cloud3pm      int     `json:"Cloud3pm" validate:"gte=0,lte=9"`
	Temp9am       float64 `json:"Temp9am" validate:"gte=-10,lte=45"`
	Temp3pm       float64 `json:"Temp3pm" validate:"gte=-10,lte=45"`

	Location    string `json:"Location" validate:"required,station"`
	WindGustDir string `json:"WindGustDir" validate:"required,compass"`
	WindDir9am  string `json:"WindDir9am" validate:"required,compass"`
	WindDir3pm  string `json:"WindDir3pm" validate:"required,compass"`

	// RainToday is stored as 0/1 and only displayed as Yes/No.
	RainToday int `json:"RainToday" validate:"oneof=0 1"`
}

// Label is the binary class produced by the pipeline.
type Label int

const (
	LabelNoRain Label = 0
	LabelRain   Label = 1
)

// Prediction is the outcome of one inference call. Probabilities are ordered
// by class: Probabilities[0] is P(no rain), Probabilities[1] is P(rain).
type Prediction struct {
	Label         Label      `json:"label"`
	Probabilities [2]float64 `json:"probabilities"`
}

// RainProbability returns P(rain).
func (p Prediction) RainProbability() float64 {
	return p.Probabilities[1]
}

// DryProbability returns P(no rain).
func (p Prediction) DryProbability() float64 {
	return p.Probabilities[0]
}
