package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"trapline/internal/broker"
	"trapline/internal/engine"
	"trapline/internal/logger"
	"trapline/internal/relay"
	"trapline/internal/store"
	"trapline/internal/store/oraclelog"
)

// Server exposes the operator surface: health, focus switching, history
// queries and the websocket event stream.
type Server struct {
	addr   string
	router *gin.Engine
}

type ServerConfig struct {
	Addr      string
	Store     *store.Store
	OracleLog *oraclelog.Store
	Hub       *relay.Hub
	Focus     *engine.Focus
	Gateway   broker.Gateway
}

func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Store == nil || cfg.Hub == nil || cfg.Focus == nil {
		return nil, errors.New("http server requires store, hub and focus")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	h := &handlers{cfg: cfg}
	api := router.Group("/api")
	api.GET("/health", h.handleHealth)
	api.POST("/focus", h.handleSetFocus)
	api.GET("/logs", h.handleLogs)
	api.GET("/trades", h.handleTrades)
	api.GET("/oracle", h.handleOracleLog)
	router.GET("/ws/logs", h.handleEventStream)

	return &Server{addr: cfg.Addr, router: router}, nil
}

// Start serves until ctx cancels or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	srv := &http.Server{Addr: s.addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) Addr() string {
	if s == nil {
		return ""
	}
	return s.addr
}

type handlers struct {
	cfg ServerConfig
}

func (h *handlers) handleHealth(c *gin.Context) {
	resp := gin.H{
		"status":       "ok",
		"focus":        h.cfg.Focus.Get(),
		"subscribers":  h.cfg.Hub.Subscribers(),
		"dropped":      h.cfg.Hub.Dropped(),
		"dropped_logs": h.cfg.Store.DroppedLogs(),
	}
	if h.cfg.Gateway != nil {
		if acct, err := h.cfg.Gateway.AccountSummary(c.Request.Context()); err == nil {
			resp["account"] = gin.H{
				"balance": acct.Balance,
				"equity":  acct.Equity,
				"margin":  acct.Margin,
			}
		} else {
			resp["account_error"] = err.Error()
		}
	}
	c.JSON(http.StatusOK, resp)
}

type focusRequest struct {
	Symbol string `json:"symbol" binding:"required"`
}

func (h *handlers) handleSetFocus(c *gin.Context) {
	var req focusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol cannot be empty"})
		return
	}
	h.cfg.Focus.Set(symbol)
	logger.Infof("HTTP: focus switched to %s", symbol)
	c.JSON(http.StatusOK, gin.H{"focus": symbol})
}

func (h *handlers) handleLogs(c *gin.Context) {
	rows, err := h.cfg.Store.RecentLogs(c.Request.Context(), queryLimit(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": rows})
}

func (h *handlers) handleTrades(c *gin.Context) {
	rows, err := h.cfg.Store.RecentTrades(c.Request.Context(), queryLimit(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"trades": rows})
}

func (h *handlers) handleOracleLog(c *gin.Context) {
	if h.cfg.OracleLog == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "oracle log disabled"})
		return
	}
	profileID := c.Query("profile")
	rows, err := h.cfg.OracleLog.Recent(c.Request.Context(), profileID, queryLimit(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": rows})
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleEventStream upgrades to a websocket and forwards relay events until
// the client goes away. Slow clients are dropped by the hub, not here.
func (h *handlers) handleEventStream(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warnf("HTTP: websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	events, cancel := h.cfg.Hub.Subscribe()
	defer cancel()

	// Reader goroutine: the client never sends data we care about, but the
	// read pump is what detects a closed connection.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case <-c.Request.Context().Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			if err := conn.WriteJSON(evt); err != nil {
				return
			}
		}
	}
}

func queryLimit(c *gin.Context) int {
	raw := c.Query("limit")
	if raw == "" {
		return 50
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 50
	}
	if n > 500 {
		n = 500
	}
	return n
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method
		path := c.Request.URL.Path
		client := c.ClientIP()
		c.Next()
		logger.Debugf("HTTP %s %s status=%d ip=%s dur=%s",
			method, path, c.Writer.Status(), client, time.Since(start))
	}
}
