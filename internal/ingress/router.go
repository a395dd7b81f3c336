// Package ingress is the HTTP boundary: trip creation, the
// trip-confirmation webhook that feeds OnTripCreated, and the
// health/metrics endpoints.
package ingress

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/tripwatch/tripwatch/internal/apperr"
	"github.com/tripwatch/tripwatch/internal/orchestrator"
	"github.com/tripwatch/tripwatch/internal/scheduler"
)

// Controller exposes the HTTP surface over the orchestrator.
type Controller struct {
	orchestrator *orchestrator.Orchestrator
	scheduler    *scheduler.Scheduler
	logger       *zap.SugaredLogger
}

func NewController(o *orchestrator.Orchestrator, sched *scheduler.Scheduler, logger *zap.SugaredLogger) *Controller {
	return &Controller{orchestrator: o, scheduler: sched, logger: logger}
}

// NewRouter builds the gin engine with every route registered,
// mirroring the teacher's route-grouping style.
func NewRouter(ctrl *Controller, jwtSecret []byte) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", ctrl.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	secured := r.Group("/")
	secured.Use(BearerAuth(jwtSecret))
	secured.POST("/trips", ctrl.CreateTrip)
	secured.POST("/webhooks/trip-confirmation", ctrl.TripConfirmationWebhook)

	return r
}

type createTripBody struct {
	ClientName         string  `json:"client_name" binding:"required"`
	Whatsapp           string  `json:"whatsapp" binding:"required"`
	FlightNumber       string  `json:"flight_number" binding:"required"`
	OriginIATA         string  `json:"origin_iata" binding:"required,len=3"`
	DestinationIATA    string  `json:"destination_iata" binding:"required,len=3"`
	DepartureDate      string  `json:"departure_date" binding:"required"` // local airport time, ISO 8601
	ClientDescription  string  `json:"client_description"`
	AgencyID           *string `json:"agency_id"`
	Metadata           string  `json:"metadata"`
}

// CreateTrip handles POST /trips.
func (ctrl *Controller) CreateTrip(c *gin.Context) {
	var body createTripBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "validation_error", "details": err.Error()})
		return
	}

	departureLocal, err := time.Parse("2006-01-02T15:04:05", body.DepartureDate)
	if err != nil {
		departureLocal, err = time.Parse(time.RFC3339, body.DepartureDate)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "validation_error", "field": "departure_date"})
			return
		}
	}

	trip, err := ctrl.orchestrator.OnTripCreated(c.Request.Context(), orchestrator.NewTripRequest{
		ContactHandle:   body.Whatsapp,
		FlightNumber:    body.FlightNumber,
		OriginIATA:      body.OriginIATA,
		DestinationIATA: body.DestinationIATA,
		DepartureLocal:  departureLocal,
		Preferences:     body.ClientDescription,
		AgencyID:        body.AgencyID,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"trip_id":       trip.ID,
		"status":        trip.Status,
		"next_check_at": trip.NextCheckAt,
	})
}

type webhookBody struct {
	Type   string                 `json:"type"`
	Table  string                 `json:"table"`
	Record map[string]interface{} `json:"record"`
}

// TripConfirmationWebhook handles POST /webhooks/trip-confirmation,
// triggered by the database-change webhook.
func (ctrl *Controller) TripConfirmationWebhook(c *gin.Context) {
	var body webhookBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "validation_error", "details": err.Error()})
		return
	}

	req, err := tripRequestFromWebhookRecord(body.Record)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "validation_error", "details": err.Error()})
		return
	}

	trip, err := ctrl.orchestrator.OnTripCreated(c.Request.Context(), req)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"trip_id": trip.ID, "status": trip.Status})
}

func tripRequestFromWebhookRecord(record map[string]interface{}) (orchestrator.NewTripRequest, error) {
	str := func(key string) string {
		if v, ok := record[key].(string); ok {
			return v
		}
		return ""
	}
	departureLocal, err := time.Parse(time.RFC3339, str("departure_date"))
	if err != nil {
		departureLocal, err = time.Parse("2006-01-02T15:04:05", str("departure_date"))
		if err != nil {
			return orchestrator.NewTripRequest{}, err
		}
	}
	return orchestrator.NewTripRequest{
		ContactHandle:   str("whatsapp"),
		FlightNumber:    str("flight_number"),
		OriginIATA:      str("origin_iata"),
		DestinationIATA: str("destination_iata"),
		DepartureLocal:  departureLocal,
		Preferences:     str("client_description"),
	}, nil
}

// Health reports liveness plus scheduler job status for operational
// visibility.
func (ctrl *Controller) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"jobs":   ctrl.scheduler.Status(),
	})
}

func respondWithError(c *gin.Context, err error) {
	switch apperr.KindOf(err) {
	case apperr.Duplicate:
		c.JSON(http.StatusConflict, gin.H{"error": "duplicate_trip"})
	case apperr.Validation:
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "validation_error", "details": err.Error()})
	case apperr.NotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	}
}
