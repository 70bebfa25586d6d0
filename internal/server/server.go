package server

import (
	"context"
	"log"
	"net/http"

	"github.com/RektefeMaster/parts-backend/internal/config"
	"github.com/RektefeMaster/parts-backend/internal/handler"
	appmw "github.com/RektefeMaster/parts-backend/internal/middleware"
	"github.com/RektefeMaster/parts-backend/internal/repository"
	"github.com/RektefeMaster/parts-backend/internal/service"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type Server struct {
	e   *echo.Echo
	svc service.ReservationService
}

type echoValidator struct {
	v *validator.Validate
}

func (ev *echoValidator) Validate(i interface{}) error {
	return ev.v.Struct(i)
}

// New wires the HTTP surface: store, engine, handlers and middleware. idem
// may be nil when no redis is configured.
func New(store repository.Store, idem service.IdempotencyStore, cfg *config.Config) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.Logger())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}))
	e.Validator = &echoValidator{v: validator.New()}

	resSvc := service.NewReservationService(store, idem, cfg.ReservationWindow)
	resHandler := handler.NewReservationHandler(resSvc)

	partSvc := service.NewPartService(store)
	partHandler := handler.NewPartHandler(partSvc)

	auth := appmw.DebugAuth
	if authMw, err := appmw.NewAuthMiddleware(context.Background()); err != nil {
		log.Printf("firebase auth disabled: %v", err)
	} else {
		auth = authMw.RequireAuth
	}

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"ok": "true"})
	})

	api := e.Group("/api")
	api.GET("/parts", partHandler.List)
	api.GET("/parts/:id", partHandler.Get)
	api.POST("/parts", partHandler.Create, auth)
	api.POST("/parts/:id/reservations", resHandler.Reserve, auth)
	api.GET("/me/reservations", resHandler.ListMine, auth)
	api.GET("/reservations/:id", resHandler.Get, auth)
	api.POST("/reservations/:id/approve", resHandler.Approve, auth)
	api.POST("/reservations/:id/cancel", resHandler.Cancel, auth)
	api.POST("/reservations/:id/negotiation", resHandler.Propose, auth)
	api.POST("/reservations/:id/negotiation/response", resHandler.Respond, auth)
	api.POST("/reservations/:id/deliver", resHandler.MarkDelivered, auth)
	api.POST("/reservations/:id/complete", resHandler.Complete, auth)

	return &Server{e: e, svc: resSvc}
}

// ReservationService exposes the engine so the caller can hook the expiry
// sweeper up to the same instance the handlers use.
func (s *Server) ReservationService() service.ReservationService {
	return s.svc
}

// Echo is exported for httptest-driven handler tests.
func (s *Server) Echo() *echo.Echo {
	return s.e
}

func (s *Server) Start(addr string) error {
	return s.e.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}
