package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mkaraca/skyticket/internal/domain"
	"github.com/mkaraca/skyticket/internal/service/booking"
)

type TicketHandler struct {
	service booking.BookingUseCase
}

func NewTicketHandler(service booking.BookingUseCase) *TicketHandler {
	return &TicketHandler{service: service}
}

func (h *TicketHandler) Register(router *gin.RouterGroup) {
	router.GET("/flight/:flightID", h.occupiedSeats)
	router.POST("/", RequireUser(), h.book)
	router.DELETE("/:id", RequireUser(), h.cancel)
	router.GET("/my", RequireUser(), h.myTickets)
}

func (h *TicketHandler) RegisterAdmin(router *gin.RouterGroup) {
	router.GET("/", h.listAll)
}

type bookSeatRequest struct {
	FlightID         string `json:"flight_id"`
	SeatNumber       int    `json:"seat_number"`
	PassengerName    string `json:"passenger_name"`
	PassengerSurname string `json:"passenger_surname"`
	PassengerEmail   string `json:"passenger_email"`
}

func (h *TicketHandler) book(c *gin.Context) {
	var req bookSeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ticket, err := h.service.BookSeat(c.Request.Context(), booking.BookSeatInput{
		FlightID:   req.FlightID,
		SeatNumber: req.SeatNumber,
		Passenger: domain.Passenger{
			Name:    req.PassengerName,
			Surname: req.PassengerSurname,
			Email:   req.PassengerEmail,
		},
		HolderID: c.GetString(ctxUserID),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ticket": ticket})
}

func (h *TicketHandler) cancel(c *gin.Context) {
	err := h.service.CancelSeat(c.Request.Context(), c.Param("id"), c.GetString(ctxUserID), c.GetBool(ctxIsAdmin))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "ticket cancelled"})
}

func (h *TicketHandler) occupiedSeats(c *gin.Context) {
	seats, err := h.service.OccupiedSeats(c.Request.Context(), c.Param("flightID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"occupied_seats": seats})
}

func (h *TicketHandler) myTickets(c *gin.Context) {
	tickets, err := h.service.TicketsByHolder(c.Request.Context(), c.GetString(ctxUserID))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tickets": tickets})
}

func (h *TicketHandler) listAll(c *gin.Context) {
	tickets, err := h.service.AllTickets(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tickets": tickets})
}
