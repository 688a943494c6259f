package http

import (
	"context"
	"errors"
	"net/http"

	"trackinghub/internal/core/application/usecases/queries"
	"trackinghub/internal/core/domain/model/kernel"
	"trackinghub/internal/pkg/errs"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// AgentLocationQueryHandler reads the cached location of an agent.
type AgentLocationQueryHandler interface {
	Handle(ctx context.Context, query queries.GetAgentLocationQuery) (queries.GetAgentLocationQueryResponse, error)
}

// OrderTransitionsQueryHandler reads the transition journal of an order.
type OrderTransitionsQueryHandler interface {
	Handle(ctx context.Context, query queries.GetOrderTransitionsQuery) ([]queries.GetOrderTransitionsQueryResponse, error)
}

// Error is the body of every non-2xx response.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Server serves the operational HTTP API: health, metrics and read access
// to the location cache and the transition journal.
type Server struct {
	getAgentLocationHandler    AgentLocationQueryHandler
	getOrderTransitionsHandler OrderTransitionsQueryHandler
}

// NewServer creates the HTTP server with its query handlers.
func NewServer(
	getAgentLocationHandler AgentLocationQueryHandler,
	getOrderTransitionsHandler OrderTransitionsQueryHandler,
) *Server {
	return &Server{
		getAgentLocationHandler:    getAgentLocationHandler,
		getOrderTransitionsHandler: getOrderTransitionsHandler,
	}
}

// Register mounts all routes on e.
func (s *Server) Register(e *echo.Echo) {
	e.GET("/health", s.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api/v1")
	api.GET("/agents/:id/location", s.GetAgentLocation)
	api.GET("/orders/:id/transitions", s.GetOrderTransitions)
}

// Health handles GET /health.
func (s *Server) Health(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Healthy")
}

// GetAgentLocation handles GET /api/v1/agents/:id/location - the last cached
// position of an agent.
func (s *Server) GetAgentLocation(ctx echo.Context) error {
	agentID, err := kernel.ParseID(ctx.Param("id"))
	if err != nil {
		return badRequest(ctx, "Invalid agent id")
	}

	query, err := queries.NewGetAgentLocationQuery(agentID)
	if err != nil {
		return badRequest(ctx, "Invalid agent id")
	}

	location, err := s.getAgentLocationHandler.Handle(ctx.Request().Context(), query)
	if errors.Is(err, errs.ErrObjectNotFound) {
		return ctx.JSON(http.StatusNotFound, Error{
			Code:    http.StatusNotFound,
			Message: "No location recorded for agent " + agentID.String(),
		})
	}
	if err != nil {
		return ctx.JSON(http.StatusInternalServerError, Error{
			Code:    http.StatusInternalServerError,
			Message: "Failed to retrieve agent location",
		})
	}

	return ctx.JSON(http.StatusOK, location)
}

// GetOrderTransitions handles GET /api/v1/orders/:id/transitions - the
// status changes broadcast for an order, oldest first.
func (s *Server) GetOrderTransitions(ctx echo.Context) error {
	orderID, err := kernel.ParseID(ctx.Param("id"))
	if err != nil {
		return badRequest(ctx, "Invalid order id")
	}

	query, err := queries.NewGetOrderTransitionsQuery(orderID)
	if err != nil {
		return badRequest(ctx, "Invalid order id")
	}

	transitions, err := s.getOrderTransitionsHandler.Handle(ctx.Request().Context(), query)
	if err != nil {
		return ctx.JSON(http.StatusInternalServerError, Error{
			Code:    http.StatusInternalServerError,
			Message: "Failed to retrieve order transitions",
		})
	}

	return ctx.JSON(http.StatusOK, transitions)
}

func badRequest(ctx echo.Context, message string) error {
	return ctx.JSON(http.StatusBadRequest, Error{
		Code:    http.StatusBadRequest,
		Message: message,
	})
}
