// Package httpapi exposes the ltip.Engine over HTTP, the LTIP analogue of
// the teacher's api.DAOServer: echo/v4 routes per operation, a
// logrus-backed request logger (distinct from the engine's own go-kit
// audit trail), and a gorilla/websocket EventBus broadcasting grant
// lifecycle events to connected clients.
package httpapi

import (
	"math/big"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/sweat-foundation/ltip-engine/ltip"
)

func nowUnix() int64 { return time.Now().Unix() }

// Config configures the HTTP server.
type Config struct {
	ListenAddr string
	Logger     *logrus.Logger
}

// Server wraps an ltip.Engine with an echo router and a websocket event bus.
type Server struct {
	cfg      Config
	engine   *ltip.Engine
	eventBus *EventBus
	upgrader websocket.Upgrader
	log      *logrus.Logger
}

// NewServer constructs a Server around an already-configured engine.
func NewServer(cfg Config, engine *ltip.Engine) *Server {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &Server{
		cfg:      cfg,
		engine:   engine,
		eventBus: newEventBus(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log: cfg.Logger,
	}
}

// APIError is the standard JSON error envelope.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func errResponse(err *ltip.Error) APIError {
	return APIError{Code: int(err.Code), Message: err.Message}
}

// Echo builds the echo.Echo instance with every route registered, without
// starting the listener — split out so tests can exercise routes directly
// via httptest without binding a real socket.
func (s *Server) Echo() *echo.Echo {
	e := echo.New()
	e.Use(s.requestLogger)

	e.GET("/ltip/config", s.handleGetConfig)
	e.GET("/ltip/spare-balance", s.handleGetSpareBalance)
	e.GET("/ltip/account/:id", s.handleGetAccount)
	e.GET("/ltip/members/:role", s.handleGetMembers)

	e.POST("/ltip/roles/grant", s.handleGrantRole)
	e.POST("/ltip/roles/revoke", s.handleRevokeRole)

	e.POST("/ltip/issue", s.handleIssue)
	e.POST("/ltip/claim", s.handleClaim)
	e.POST("/ltip/buy", s.handleBuy)
	e.POST("/ltip/authorize", s.handleAuthorize)
	e.POST("/ltip/terminate", s.handleTerminate)
	e.POST("/ltip/terminate-grant", s.handleTerminateGrant)
	e.POST("/ltip/ft-on-transfer", s.handleFTOnTransfer)

	e.GET("/ltip/events", s.handleWebSocket)

	return e
}

// Start builds the router and blocks serving it.
func (s *Server) Start() error {
	go s.eventBus.run()
	return s.Echo().Start(s.cfg.ListenAddr)
}

// requestLogger is the logrus-backed counterpart to the engine's go-kit
// audit trail: one structured line per HTTP request, independent of
// whatever the engine itself chose to log about the operation.
func (s *Server) requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		err := next(c)
		s.log.WithFields(logrus.Fields{
			"method": c.Request().Method,
			"path":   c.Path(),
			"status": c.Response().Status,
		}).Info("request")
		return err
	}
}

func parseAmount(s string) (*big.Int, *ltip.Error) {
	return ltip.ParseAmount(s)
}
