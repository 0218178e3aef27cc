package events

import "time"

// ChargingApplied fires after a template build replaces a hole's
// charge column.
type ChargingApplied struct {
	EntityName      string
	HoleID          string
	TemplateName    string
	DeckCount       int
	PrimerCount     int
	ExplosiveMassKg float64
	At              time.Time
}

// ChargingRescaled fires after a geometry edit rescales a column in
// place.
type ChargingRescaled struct {
	EntityName      string
	HoleID          string
	LengthChanged   bool
	DiameterChanged bool
	At              time.Time
}

// ChargingCleared fires after a hole's column is removed.
type ChargingCleared struct {
	EntityName string
	HoleID     string
	At         time.Time
}
