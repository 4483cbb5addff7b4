package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/randomtoy/jokes-go/internal/app"
)

type Handler struct {
	ctrl     *app.FetchController
	gatherer prometheus.Gatherer
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

func NewHandler(ctrl *app.FetchController, gatherer prometheus.Gatherer, logger *slog.Logger) *Handler {
	return &Handler{
		ctrl:     ctrl,
		gatherer: gatherer,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

func (h *Handler) Register(e *echo.Echo) {
	e.GET("/healthz", h.Healthz)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{})))

	e.GET("/", h.Page)
	e.POST("/fetch", h.PageFetch)

	e.GET("/v1/joke", h.GetJoke)
	e.POST("/v1/joke/fetch", h.FetchJoke)
	e.GET("/v1/joke/ws", h.Stream)
}

func (h *Handler) Healthz(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

// GetJoke returns the current state snapshot.
func (h *Handler) GetJoke(c echo.Context) error {
	return c.JSON(http.StatusOK, toStateResponse(h.ctrl.Snapshot()))
}

// FetchJoke triggers a fetch. By default it answers 202 right after the
// Loading transition; with wait=true it answers 200 once the fetch resolves.
func (h *Handler) FetchJoke(c echo.Context) error {
	wait := false
	if raw := c.QueryParam("wait"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "wait must be a boolean"})
		}
		wait = parsed
	}

	if !wait {
		h.ctrl.Trigger()
		return c.JSON(http.StatusAccepted, toStateResponse(h.ctrl.Snapshot()))
	}

	h.ctrl.FetchResource(c.Request().Context())
	return c.JSON(http.StatusOK, toStateResponse(h.ctrl.Snapshot()))
}
