package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mkaraca/skyticket/api"
	"github.com/mkaraca/skyticket/config"
	"github.com/mkaraca/skyticket/internal/repository"
	"github.com/mkaraca/skyticket/internal/service/booking"
	"github.com/mkaraca/skyticket/internal/service/schedule"
)

// Run starts the HTTP server and blocks until the context is canceled or the
// server fails.
func Run(ctx context.Context, cfg *config.Config, scheduleSvc schedule.ScheduleUseCase, bookingSvc booking.BookingUseCase, cities repository.CityRepository) error {
	router := NewRouter(scheduleSvc, bookingSvc, cities)

	srv := &http.Server{
		Addr:    cfg.HTTP.Address,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	}
}

func NewRouter(scheduleSvc schedule.ScheduleUseCase, bookingSvc booking.BookingUseCase, cities repository.CityRepository) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery(), api.Identity())

	flightHandler := api.NewFlightHandler(scheduleSvc)
	ticketHandler := api.NewTicketHandler(bookingSvc)
	cityHandler := api.NewCityHandler(cities)

	root := router.Group("/api")
	flightHandler.Register(root.Group("/flights"))
	ticketHandler.Register(root.Group("/tickets"))
	cityHandler.Register(root.Group("/cities"))

	admin := root.Group("/admin", api.RequireUser(), api.RequireAdmin())
	flightHandler.RegisterAdmin(admin.Group("/flights"))
	ticketHandler.RegisterAdmin(admin.Group("/tickets"))

	return router
}
