package location

import "github.com/roach88/whereabouts/internal/model"

// countryTimezones maps folded country names and ISO codes to a
// representative IANA zone. Multi-zone countries map to their most populous
// zone.
var countryTimezones = map[string]string{
	"germany":        "Europe/Berlin",
	"de":             "Europe/Berlin",
	"france":         "Europe/Paris",
	"fr":             "Europe/Paris",
	"united kingdom": "Europe/London",
	"uk":             "Europe/London",
	"gb":             "Europe/London",
	"spain":          "Europe/Madrid",
	"es":             "Europe/Madrid",
	"italy":          "Europe/Rome",
	"it":             "Europe/Rome",
	"netherlands":    "Europe/Amsterdam",
	"nl":             "Europe/Amsterdam",
	"austria":        "Europe/Vienna",
	"at":             "Europe/Vienna",
	"switzerland":    "Europe/Zurich",
	"ch":             "Europe/Zurich",
	"united states":  "America/New_York",
	"usa":            "America/New_York",
	"us":             "America/New_York",
	"canada":         "America/Toronto",
	"ca":             "America/Toronto",
	"japan":          "Asia/Tokyo",
	"jp":             "Asia/Tokyo",
	"australia":      "Australia/Sydney",
	"au":             "Australia/Sydney",
	"india":          "Asia/Kolkata",
	"in":             "Asia/Kolkata",
	"brazil":         "America/Sao_Paulo",
	"br":             "America/Sao_Paulo",
}

// urbanCities is the set of folded names of known major cities.
var urbanCities = map[string]struct{}{
	"berlin":        {},
	"hamburg":       {},
	"munich":        {},
	"münchen":       {},
	"paris":         {},
	"london":        {},
	"madrid":        {},
	"barcelona":     {},
	"rome":          {},
	"milan":         {},
	"amsterdam":     {},
	"vienna":        {},
	"zurich":        {},
	"new york":      {},
	"los angeles":   {},
	"chicago":       {},
	"san francisco": {},
	"toronto":       {},
	"tokyo":         {},
	"sydney":        {},
	"mumbai":        {},
	"são paulo":     {},
}

// TimezoneFor returns the zone for a country, or nil when unknown.
func TimezoneFor(country string) *string {
	if tz, ok := countryTimezones[model.FoldName(country)]; ok {
		return &tz
	}
	return nil
}

// UrbanDensityFor classifies a city. Unknown cities are never an error.
func UrbanDensityFor(city string) model.UrbanDensity {
	if _, ok := urbanCities[model.FoldName(city)]; ok {
		return model.UrbanDensityUrban
	}
	return model.UrbanDensityUnknown
}
