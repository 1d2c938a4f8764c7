package models

// FeederComputation is the numeric view of a feeder's readings
type FeederComputation struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Diff  float64 `json:"diff"` // Start - End, positive means export
}

// TurbineComputation is the numeric view of a turbine's readings
type TurbineComputation struct {
	Prev    float64 `json:"prev"`
	Pres    float64 `json:"pres"`
	Hours   float64 `json:"hours"`
	Diff    float64 `json:"diff"`    // MWh
	MWPerHr float64 `json:"mwPerHr"` // generation rate used for gas tiering
}

// DaySummary is the aggregate view of a saved day used for month listings
type DaySummary struct {
	ID          string  `json:"id,omitempty"`
	DateKey     string  `json:"dateKey"`
	Production  float64 `json:"production"`
	ExportVal   float64 `json:"exportVal"`
	Consumption float64 `json:"consumption"`
	GasM3       float64 `json:"gasM3,omitempty"`
}

// UserSettings holds per-user preferences
type UserSettings struct {
	DisplayName      string `json:"displayName" validate:"max=100"`
	DecimalPrecision int    `json:"decimalPrecision" validate:"min=0,max=6"`
}

// DefaultPrecision is used when no settings were ever saved
const DefaultPrecision = 2

// DefaultSettings returns the settings of a fresh install
func DefaultSettings() UserSettings {
	return UserSettings{DecimalPrecision: DefaultPrecision}
}
