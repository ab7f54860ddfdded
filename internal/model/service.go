package model

// Service is one bookable treatment from the shop's fixed catalog.
type Service struct {
	ID           string
	Name         string
	DurationMins int
	PriceNIS     int
}

// catalog is static configuration; the operator edits it in code, not at
// runtime.
var catalog = []Service{
	{ID: "haircut", Name: "Men's / boys' haircut", DurationMins: 45, PriceNIS: 50},
	{ID: "beard", Name: "Beard trim", DurationMins: 20, PriceNIS: 25},
	{ID: "sideBurn", Name: "Line-up", DurationMins: 20, PriceNIS: 20},
	{ID: "styling", Name: "Wax (nose/ears/cheeks/brows)", DurationMins: 30, PriceNIS: 15},
	{ID: "coloring", Name: "Highlights", DurationMins: 60, PriceNIS: 180},
	{ID: "fullPackage", Name: "Full color", DurationMins: 90, PriceNIS: 220},
}

// Catalog returns the bookable services in display order.
func Catalog() []Service {
	out := make([]Service, len(catalog))
	copy(out, catalog)
	return out
}

// ServiceByID looks up a catalog entry.
func ServiceByID(id string) (Service, bool) {
	for _, s := range catalog {
		if s.ID == id {
			return s, true
		}
	}
	return Service{}, false
}
