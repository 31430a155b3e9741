package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mkaraca/skyticket/internal/domain"
	"github.com/mkaraca/skyticket/internal/service/schedule"
)

type FlightHandler struct {
	service schedule.ScheduleUseCase
}

func NewFlightHandler(service schedule.ScheduleUseCase) *FlightHandler {
	return &FlightHandler{service: service}
}

func (h *FlightHandler) Register(router *gin.RouterGroup) {
	router.GET("/", h.list)
	router.GET("/:id", h.get)
}

// RegisterAdmin mounts the schedule mutations; the caller wraps the group
// with the admin guard.
func (h *FlightHandler) RegisterAdmin(router *gin.RouterGroup) {
	router.GET("/", h.list)
	router.POST("/", h.create)
	router.PUT("/:id", h.update)
	router.DELETE("/:id", h.delete)
}

type updateFlightRequest struct {
	FromCityID    *string    `json:"from_city"`
	ToCityID      *string    `json:"to_city"`
	DepartureTime *time.Time `json:"departure_time"`
	ArrivalTime   *time.Time `json:"arrival_time"`
	PriceCents    *int64     `json:"price_cents"`
	TotalSeats    *int       `json:"seats_total"`
}

func (h *FlightHandler) list(c *gin.Context) {
	var date time.Time
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date, expected YYYY-MM-DD"})
			return
		}
		date = parsed
	}

	flights, err := h.service.SearchFlights(c.Request.Context(), c.Query("from"), c.Query("to"), date)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"flights": flights})
}

func (h *FlightHandler) get(c *gin.Context) {
	flight, err := h.service.GetFlight(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"flight": flight})
}

func (h *FlightHandler) create(c *gin.Context) {
	var req schedule.CreateFlightInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	flight, err := h.service.CreateFlight(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"flight": flight})
}

func (h *FlightHandler) update(c *gin.Context) {
	var req updateFlightRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	patch := domain.FlightPatch{
		FromCityID:    req.FromCityID,
		ToCityID:      req.ToCityID,
		DepartureTime: req.DepartureTime,
		ArrivalTime:   req.ArrivalTime,
		PriceCents:    req.PriceCents,
		TotalSeats:    req.TotalSeats,
	}
	flight, err := h.service.UpdateFlight(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"flight": flight})
}

func (h *FlightHandler) delete(c *gin.Context) {
	cancelled, err := h.service.DeleteFlight(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cancelled_tickets": cancelled})
}
