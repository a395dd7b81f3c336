package notify

import (
	"github.com/tripwatch/tripwatch/internal/store"
	"github.com/tripwatch/tripwatch/internal/timezone"
)

const unknownGatePlaceholder = "Ver pantallas del aeropuerto"

// RenderVariables builds the positional template variable map for a
// notification type from the trip, the detector's extra fields, and
// C1's local-time formatting.
func RenderVariables(t Type, trip *store.Trip, extra map[string]string, resolver *timezone.Resolver) map[string]string {
	clientName := extra["client_name"]
	if clientName == "" {
		clientName = trip.ContactHandle
	}

	switch t {
	case TypeReservationConfirmation:
		return map[string]string{
			"client_name":     clientName,
			"flight_number":   trip.FlightNumber,
			"origin":          trip.OriginIATA,
			"destination":     trip.DestinationIATA,
			"departure_local": resolver.FormatHumanLocal(trip.DepartureDate, trip.OriginIATA),
		}
	case TypeReminder24h:
		return map[string]string{
			"client_name":      clientName,
			"origin":           trip.OriginIATA,
			"departure_local":  resolver.FormatHumanLocal(trip.DepartureDate, trip.OriginIATA),
			"weather_info":     extra["weather_info"],
			"destination":      trip.DestinationIATA,
			"additional_info":  extra["additional_info"],
		}
	case TypeDelayed:
		return map[string]string{
			"client_name":        clientName,
			"flight_number":      trip.FlightNumber,
			"new_departure_local": extra["new_departure_local"],
		}
	case TypeGateChange:
		gate := extra["new_gate"]
		if gate == "" {
			gate = unknownGatePlaceholder
		}
		return map[string]string{
			"client_name":   clientName,
			"flight_number": trip.FlightNumber,
			"new_gate":      gate,
		}
	case TypeCancelled:
		return map[string]string{
			"client_name":   clientName,
			"flight_number": trip.FlightNumber,
		}
	case TypeBoarding:
		gate := trip.Gate
		if gate == "" {
			gate = unknownGatePlaceholder
		}
		return map[string]string{
			"flight_number": trip.FlightNumber,
			"gate":          gate,
		}
	case TypeLandingWelcome:
		return map[string]string{
			"client_name":      clientName,
			"destination_city": extra["destination_city"],
			"hotel_address":    extra["hotel_address"],
		}
	case TypeItineraryReady:
		return map[string]string{
			"client_name": clientName,
			"destination": trip.DestinationIATA,
		}
	default:
		return extra
	}
}
