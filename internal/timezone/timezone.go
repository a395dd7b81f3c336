// Package timezone resolves IATA airport codes to IANA time zones and
// converts between airport-local wall-clock times and UTC instants. All
// other components treat time as UTC; conversion to local time happens
// only at this boundary, per the timezone policy.
package timezone

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// airportZones is a static table of IATA -> IANA zone. It is not
// exhaustive; unknown codes fall back to UTC with a logged warning.
var airportZones = map[string]string{
	"JFK": "America/New_York",
	"LGA": "America/New_York",
	"EWR": "America/New_York",
	"LAX": "America/Los_Angeles",
	"SFO": "America/Los_Angeles",
	"ORD": "America/Chicago",
	"DFW": "America/Chicago",
	"MIA": "America/New_York",
	"ATL": "America/New_York",
	"SEA": "America/Los_Angeles",
	"DEN": "America/Denver",
	"BOS": "America/New_York",
	"IAH": "America/Chicago",
	"MCO": "America/New_York",
	"LHR": "Europe/London",
	"LGW": "Europe/London",
	"CDG": "Europe/Paris",
	"MAD": "Europe/Madrid",
	"BCN": "Europe/Madrid",
	"FCO": "Europe/Rome",
	"AMS": "Europe/Amsterdam",
	"FRA": "Europe/Berlin",
	"MUC": "Europe/Berlin",
	"ZRH": "Europe/Zurich",
	"LIS": "Europe/Lisbon",
	"EZE": "America/Argentina/Buenos_Aires",
	"AEP": "America/Argentina/Buenos_Aires",
	"GRU": "America/Sao_Paulo",
	"GIG": "America/Sao_Paulo",
	"SCL": "America/Santiago",
	"BOG": "America/Bogota",
	"MDE": "America/Bogota",
	"LIM": "America/Lima",
	"MEX": "America/Mexico_City",
	"CUN": "America/Cancun",
	"PTY": "America/Panama",
	"UIO": "America/Guayaquil",
	"MVD": "America/Montevideo",
	"ASU": "America/Asuncion",
	"DXB": "Asia/Dubai",
	"DOH": "Asia/Qatar",
	"SIN": "Asia/Singapore",
	"HND": "Asia/Tokyo",
	"NRT": "Asia/Tokyo",
	"ICN": "Asia/Seoul",
	"SYD": "Australia/Sydney",
	"MEL": "Australia/Melbourne",
	"JNB": "Africa/Johannesburg",
	"CAI": "Africa/Cairo",
}

// Resolver maps airport codes to time.Location and normalizes between
// local wall-clock time and UTC instants.
type Resolver struct {
	zones  map[string]string
	logger *zap.SugaredLogger
}

// NewResolver builds a Resolver over the embedded airport table.
func NewResolver(logger *zap.SugaredLogger) *Resolver {
	return &Resolver{zones: airportZones, logger: logger}
}

// locationFor returns the *time.Location for iata, defaulting to UTC and
// logging a warning for unknown codes.
func (r *Resolver) locationFor(iata string) *time.Location {
	name, ok := r.zones[iata]
	if !ok {
		if r.logger != nil {
			r.logger.Warnw("unknown airport code, defaulting to UTC", "iata", iata)
		}
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		if r.logger != nil {
			r.logger.Warnw("failed to load IANA zone, defaulting to UTC", "iata", iata, "zone", name, "error", err)
		}
		return time.UTC
	}
	return loc
}

// LocalToUTC attaches iata's zone to a naive local datetime and converts
// it to a UTC instant. A fall-back overlap resolves to the earlier
// instant (the offset before the transition), which is what time.Date
// already picks. A spring-forward gap resolves to the later instant: the
// wall-clock time is read with the offset in force before the
// transition, so 02:30 on a 02:00->03:00 night becomes 03:30 local.
func (r *Resolver) LocalToUTC(naiveLocal time.Time, iata string) (time.Time, error) {
	loc := r.locationFor(iata)
	local := time.Date(
		naiveLocal.Year(), naiveLocal.Month(), naiveLocal.Day(),
		naiveLocal.Hour(), naiveLocal.Minute(), naiveLocal.Second(), naiveLocal.Nanosecond(),
		loc,
	)
	if local.Hour() != naiveLocal.Hour() || local.Minute() != naiveLocal.Minute() {
		// Nonexistent wall-clock time: time.Date moved it back by the gap,
		// into the pre-transition offset; apply that offset to the
		// requested wall clock to land on the later instant.
		_, offset := local.Zone()
		wall := time.Date(
			naiveLocal.Year(), naiveLocal.Month(), naiveLocal.Day(),
			naiveLocal.Hour(), naiveLocal.Minute(), naiveLocal.Second(), naiveLocal.Nanosecond(),
			time.UTC,
		)
		return wall.Add(-time.Duration(offset) * time.Second), nil
	}
	return local.UTC(), nil
}

// UTCToLocal converts a UTC instant to iata's local zoned time.
func (r *Resolver) UTCToLocal(utcInstant time.Time, iata string) time.Time {
	return utcInstant.In(r.locationFor(iata))
}

const humanLayout = "15:04"

// FormatHumanLocal renders utcInstant in iata-local time using a
// locale-independent HH:MM pattern.
func (r *Resolver) FormatHumanLocal(utcInstant time.Time, iata string) string {
	return r.UTCToLocal(utcInstant, iata).Format(humanLayout)
}

// FormatDepartureOrPlaceholder renders a nullable UTC instant for
// notification templates, falling back to a neutral placeholder when the
// estimate is not yet known — mirrors the original system's "Por
// confirmar" fallback so a template never renders an empty field.
func (r *Resolver) FormatDepartureOrPlaceholder(utcInstant *time.Time, iata string) string {
	if utcInstant == nil {
		return "time to be confirmed"
	}
	return fmt.Sprintf("%s (%s local)", r.FormatHumanLocal(*utcInstant, iata), iata)
}
