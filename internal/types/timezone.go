package types

import (
	"strings"
	"time"
)

// timezoneAbbreviationMap maps common three-letter abbreviations seen in
// operator config to IANA identifiers. time.LoadLocation rejects the
// abbreviations outright.
var timezoneAbbreviationMap = map[string]string{
	"KST": "Asia/Seoul",
	"JST": "Asia/Tokyo",
	"IST": "Asia/Kolkata",
	"GMT": "Europe/London",
	"CET": "Europe/Berlin",
	"EST": "America/New_York",
	"PST": "America/Los_Angeles",
}

// ResolveTimezone converts a timezone abbreviation to its IANA identifier,
// or returns the input unchanged when it is not a known abbreviation.
func ResolveTimezone(timezone string) string {
	if ianaName, exists := timezoneAbbreviationMap[strings.ToUpper(timezone)]; exists {
		return ianaName
	}
	return timezone
}

// ValidateTimezone reports whether the timezone resolves to a loadable
// location.
func ValidateTimezone(timezone string) error {
	_, err := time.LoadLocation(ResolveTimezone(timezone))
	return err
}
