package models

// AdminLevel is a tier of place granularity.
type AdminLevel string

const (
	LevelCountry AdminLevel = "country"
	LevelState   AdminLevel = "state"
	LevelLGA     AdminLevel = "lga"
)

// NotFound is how an absent place name is rendered.
const NotFound = "not found"

// Levels returns the administrative levels in lookup order.
func Levels() []AdminLevel {
	return []AdminLevel{LevelCountry, LevelState, LevelLGA}
}

// ParseLevel maps a configuration value to an AdminLevel.
func ParseLevel(value string) (AdminLevel, bool) {
	switch value {
	case "country":
		return LevelCountry, true
	case "state", "province":
		return LevelState, true
	case "lga", "county":
		return LevelLGA, true
	default:
		return "", false
	}
}

// PlaceAnnotation maps administrative levels to place names.
// A missing level means no match was found at that level.
type PlaceAnnotation map[AdminLevel]string

// Get returns the place name for the level and whether one was found.
func (pa PlaceAnnotation) Get(level AdminLevel) (string, bool) {
	name, ok := pa[level]
	return name, ok && name != ""
}

// Display returns the place name for the level or NotFound.
func (pa PlaceAnnotation) Display(level AdminLevel) string {
	if name, ok := pa.Get(level); ok {
		return name
	}

	return NotFound
}

// Found reports whether at least one level has a place name.
func (pa PlaceAnnotation) Found() bool {
	for _, level := range Levels() {
		if _, ok := pa.Get(level); ok {
			return true
		}
	}

	return false
}

// Set stores a non-empty name for the level.
func (pa PlaceAnnotation) Set(level AdminLevel, name string) {
	if name != "" {
		pa[level] = name
	}
}
