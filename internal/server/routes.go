package server

import (
	"net/http"
	"time"

	"sunledger2mqtt/internal/core/domain"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	if s.httpLog {
		e.Use(middleware.Logger())
	}
	e.Use(middleware.Recover())

	e.GET("/healthcheck", s.HealthCheckHandler)
	e.GET("/ledger", s.LedgerHandler)

	return e
}

func (s *Server) HealthCheckHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.ActorHealthRequest{}, 10*time.Second).Result()
	if err != nil {
		return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
	}
	if response, ok := res.(domain.ActorHealthResponse); ok && response.Healthy {
		return c.String(http.StatusOK, "health_check: OK")
	}
	return c.String(http.StatusServiceUnavailable, "health_check: FAIL")
}

type ledgerResponse struct {
	Snapshot    domain.LedgerSnapshot `json:"snapshot"`
	LastEntries []domain.LedgerEntry  `json:"last_entries"`
}

func (s *Server) LedgerHandler(c echo.Context) error {
	res, err := s.rootContext.RequestFuture(s.masterActor, domain.GetLedgerRequest{}, 10*time.Second).Result()
	if err != nil {
		return c.String(http.StatusServiceUnavailable, "ledger: unavailable")
	}
	response, ok := res.(domain.GetLedgerResponse)
	if !ok || response.HasResponseError() {
		return c.String(http.StatusServiceUnavailable, "ledger: unavailable")
	}
	return c.JSON(http.StatusOK, ledgerResponse{
		Snapshot:    response.Snapshot,
		LastEntries: response.LastEntries,
	})
}
