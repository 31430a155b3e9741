package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mkaraca/skyticket/internal/repository"
)

type CityHandler struct {
	cities repository.CityRepository
}

func NewCityHandler(cities repository.CityRepository) *CityHandler {
	return &CityHandler{cities: cities}
}

func (h *CityHandler) Register(router *gin.RouterGroup) {
	router.GET("/", h.list)
}

func (h *CityHandler) list(c *gin.Context) {
	cities, err := h.cities.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cities": cities})
}
