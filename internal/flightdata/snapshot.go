// Package flightdata queries the external flight-data provider and
// returns canonical FlightSnapshot values, fronted by an in-process TTL
// cache and a circuit breaker.
package flightdata

import "time"

// FlightSnapshot is the canonical, normalized view of a flight's current
// state at one instant.
type FlightSnapshot struct {
	FlightIdent           string
	Status                string
	EstimatedOut          *time.Time
	ActualOut             *time.Time
	EstimatedIn           *time.Time
	ActualIn              *time.Time
	GateOrigin            string
	GateDestination       string
	DepartureDelayMinutes int
	ArrivalDelayMinutes   int
	Cancelled             bool
	Diverted              bool
	ProgressPercent       int
	OriginIATA            string
	DestinationIATA       string
	AircraftType          string
	RawPayload            string
}
