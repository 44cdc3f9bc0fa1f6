// Package server exposes the question-answering pipeline over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/toondesk/toondesk/ai/metrics"
	"github.com/toondesk/toondesk/chat"
	"github.com/toondesk/toondesk/internal/profile"
	"github.com/toondesk/toondesk/internal/timeutil"
)

// Server hosts the HTTP API in front of the dispatcher.
type Server struct {
	echoServer *echo.Echo
	profile    *profile.Profile
	dispatcher *chat.Dispatcher
	exporter   *metrics.Exporter
}

// NewServer builds the echo instance and registers all routes.
func NewServer(profile *profile.Profile, dispatcher *chat.Dispatcher, exporter *metrics.Exporter) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOriginFunc: func(_ string) (bool, error) {
			return true, nil
		},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"*"},
	}))

	s := &Server{
		echoServer: e,
		profile:    profile,
		dispatcher: dispatcher,
		exporter:   exporter,
	}

	e.POST("/ask", s.handleAsk)
	e.GET("/health", s.handleHealth)
	e.GET("/metrics", echo.WrapHandler(exporter.Handler()))
	return s
}

// Start serves until the listener fails. It blocks.
func (s *Server) Start(ctx context.Context) error {
	slog.Info("server started", "addr", s.profile.Addr, "port", s.profile.Port)
	return s.echoServer.Start(s.profile.ListenAddress())
}

// Shutdown drains in-flight requests with a bounded grace period.
func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown server", "error", err)
	}
	slog.Info("server shutdown complete")
}

type askRequest struct {
	Question  string `json:"question"`
	SessionID string `json:"session_id"`
}

type errorResponse struct {
	Message string `json:"message"`
}

func (s *Server) handleAsk(c echo.Context) error {
	var req askRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Message: "invalid request body"})
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	reply, err := s.dispatcher.Handle(c.Request().Context(), req.Question, req.SessionID)
	if err == chat.ErrEmptyQuestion {
		return c.JSON(http.StatusBadRequest, errorResponse{Message: "question must not be empty"})
	}
	if err != nil {
		slog.Error("failed to handle question", "error", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Message: "internal error"})
	}
	return c.JSON(http.StatusOK, reply)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
		"time":   timeutil.NowString(),
	})
}
