package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tripwatch/tripwatch/internal/store"
	"github.com/tripwatch/tripwatch/internal/timezone"
)

func sampleTrip() *store.Trip {
	return &store.Trip{
		ContactHandle:   "+15551234567",
		FlightNumber:    "AA900",
		OriginIATA:      "JFK",
		DestinationIATA: "MIA",
		DepartureDate:   time.Date(2026, 8, 1, 14, 30, 0, 0, time.UTC),
		Gate:            "B12",
	}
}

func TestRenderVariables_ReservationConfirmation(t *testing.T) {
	resolver := timezone.NewResolver(nil)
	vars := RenderVariables(TypeReservationConfirmation, sampleTrip(), nil, resolver)

	require.Equal(t, "+15551234567", vars["client_name"])
	require.Equal(t, "AA900", vars["flight_number"])
	require.Equal(t, "JFK", vars["origin"])
	require.Equal(t, "MIA", vars["destination"])
	require.NotEmpty(t, vars["departure_local"])
}

func TestRenderVariables_GateChange_FallsBackToPlaceholderWhenUnknown(t *testing.T) {
	resolver := timezone.NewResolver(nil)
	vars := RenderVariables(TypeGateChange, sampleTrip(), map[string]string{}, resolver)
	require.Equal(t, unknownGatePlaceholder, vars["new_gate"])
}

func TestRenderVariables_GateChange_UsesSuppliedGate(t *testing.T) {
	resolver := timezone.NewResolver(nil)
	vars := RenderVariables(TypeGateChange, sampleTrip(), map[string]string{"new_gate": "C4"}, resolver)
	require.Equal(t, "C4", vars["new_gate"])
}

func TestRenderVariables_Boarding_UsesTripGate(t *testing.T) {
	resolver := timezone.NewResolver(nil)
	vars := RenderVariables(TypeBoarding, sampleTrip(), nil, resolver)
	require.Equal(t, "B12", vars["gate"])
}

func TestRenderVariables_ClientNameOverride(t *testing.T) {
	resolver := timezone.NewResolver(nil)
	vars := RenderVariables(TypeCancelled, sampleTrip(), map[string]string{"client_name": "Maria"}, resolver)
	require.Equal(t, "Maria", vars["client_name"])
}
