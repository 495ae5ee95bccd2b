package models

// Observation is a single sensor detection read from the input batch.
type Observation struct {
	Row         int         // Zero-based position in the input batch.
	Coordinates Coordinates // Detection location.
	AcquiredAt  string      // Acquisition date as provided by the source.
	Intensity   float64     // Brightness temperature or fire radiative power.
	Err         error       // Set when ingestion flagged the row as an invalid coordinate.
}

// Valid reports whether the observation may be passed to a lookup.
func (o Observation) Valid() error {
	if o.Err != nil {
		return o.Err
	}

	return o.Coordinates.Validate()
}
