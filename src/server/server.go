package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"market-relay/src/broadcast"
	"market-relay/src/interfaces"
	"market-relay/src/logger"
	"market-relay/src/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// ChartAPI is the read side served under /api. chart.ChartService implements it.
type ChartAPI interface {
	GetChartData(ctx context.Context, req models.MChartRequest) (*models.MChartData, error)
	GetChartDataForRange(ctx context.Context, symbol, rangeLabel string) (*models.MChartData, error)
	GetForexChart(ctx context.Context, pair, interval string, limit int) (*models.MChartData, error)
	GetQuote(ctx context.Context, symbol string) (models.MQuote, error)
}

type CalendarAPI interface {
	GetCalendar(ctx context.Context, kind models.CalendarKind, from, to time.Time) []models.MCalendarEvent
}

// Services bundles what the HTTP layer talks to. Store and Providers may be nil.
type Services struct {
	Charts      ChartAPI
	Calendar    CalendarAPI
	Broadcaster *broadcast.Broadcaster
	Store       interfaces.ISnapshotStore
	Providers   func() map[string][]string
}

// -----------------------------------------------------------------------------
// Server
// -----------------------------------------------------------------------------

type Server struct {
	Config   *models.MConfig
	Logger   *logger.Logger
	Services Services

	engine   *gin.Engine
	http     *http.Server
	upgrader websocket.Upgrader
	started  time.Time
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewServer(cfg *models.MConfig, services Services, log *logger.Logger) *Server {
	// Set Gin mode
	if !strings.EqualFold(cfg.LogLevel, "DEBUG") {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		Config:   cfg,
		Logger:   log,
		Services: services,
		engine:   gin.New(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		started: time.Now(),
	}
	s.engine.Use(gin.Recovery())

	// Add CORS Middleware
	s.engine.Use(func(c *gin.Context) {
		if origin := c.Request.Header.Get("Origin"); origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	s.setupRoutes()
	s.http = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *Server) setupRoutes() {
	api := s.engine.Group("/api")
	api.GET("/health", s.getHealth)
	api.GET("/chart/:symbol", s.getChart)
	api.GET("/forex/:pair", s.getForex)
	api.GET("/quote/:symbol", s.getQuote)
	api.GET("/calendar/:kind", s.getCalendar)
	api.GET("/snapshot/:channel", s.getSnapshot)

	// WebSocket endpoint
	s.engine.GET("/ws", s.handleWebSocket)
}

// Handler exposes the router, for httptest.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

// Start blocks serving HTTP until Stop is called. It returns nil at once when
// Stop came first.
func (s *Server) Start() error {
	s.Logger.Info("Starting server on %s", s.http.Addr)

	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// -----------------------------------------------------------------------------
// WebSocket
// -----------------------------------------------------------------------------

func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}

	buffer := s.Config.Broadcast.SendBuffer
	if buffer <= 0 {
		buffer = 256
	}
	transport := newWSTransport(conn, buffer, s.Logger)
	b := s.Services.Broadcaster

	go transport.writePump()

	client := b.Connect(c.Request.Context(), transport)
	go func() {
		transport.readPump(func(msg []byte) {
			if err := b.HandleMessage(client.ID, msg); err != nil {
				s.Logger.Debug("Client %s: %v", client.ID, err)
			}
		})
		b.Disconnect(client.ID)
	}()
}
