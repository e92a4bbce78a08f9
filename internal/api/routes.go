package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"phishing-check/backend/internal/phishtank"
	"phishing-check/backend/internal/store"
	"phishing-check/backend/internal/verdict"
)

// maxCheckBody caps the check request body.
const maxCheckBody = 10 << 10

// Config defines server dependencies.
type Config struct {
	DBPath          string
	SilentDB        bool
	AllowedOrigins  []string
	TrustedProxies  []string
	PhishTankConfig phishtank.Config
	// RateLimitRequests per client IP per RateLimitWindow; 0 disables limiting.
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// Server wires HTTP handlers with the verdict resolver and lookup history.
type Server struct {
	db             *store.Database
	client         *phishtank.Client
	resolver       *verdict.Resolver
	notifier       *LookupNotifier
	limiter        *ipLimiter
	allowedOrigins []string
	trustedProxies []string
}

// NewServer constructs the API server. History is disabled when DBPath is empty.
func NewServer(cfg Config) (*Server, error) {
	client := phishtank.NewClient(cfg.PhishTankConfig)
	if !client.HasAPIKey() {
		logrus.Warn("PHISHTANK_API_KEY not set - lookups use the anonymous quota")
	}
	logrus.WithFields(logrus.Fields{
		"endpoint": client.BaseURL(),
		"timeout":  client.Timeout(),
	}).Info("PhishTank lookup configured")

	server := &Server{
		client:         client,
		resolver:       verdict.NewResolver(client),
		notifier:       NewLookupNotifier(),
		limiter:        newIPLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow),
		allowedOrigins: cfg.AllowedOrigins,
		trustedProxies: cfg.TrustedProxies,
	}
	if server.limiter == nil {
		logrus.Info("inbound rate limiting disabled")
	} else {
		logrus.WithFields(logrus.Fields{
			"requests": cfg.RateLimitRequests,
			"window":   cfg.RateLimitWindow,
		}).Info("inbound rate limiting enabled")
	}

	if path := strings.TrimSpace(cfg.DBPath); path == "" {
		logrus.Info("lookup history disabled")
	} else {
		db, err := store.Open(path, cfg.SilentDB)
		if err != nil {
			return nil, err
		}
		server.db = db
		logrus.WithField("path", path).Info("lookup history enabled")
	}

	return server, nil
}

// Close releases the history database.
func (s *Server) Close() error {
	return s.db.Close()
}

// Notifier exposes the lookup event feed.
func (s *Server) Notifier() *LookupNotifier {
	return s.notifier
}

// Router configures gin routes.
func (s *Server) Router() (*gin.Engine, error) {
	r := gin.Default()
	if err := r.SetTrustedProxies(s.trustedProxies); err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}
	r.Use(securityHeaders())

	corsCfg := cors.DefaultConfig()
	if len(s.allowedOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = s.allowedOrigins
		corsCfg.AllowCredentials = true
	}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	corsCfg.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	r.Use(cors.New(corsCfg))

	r.GET("/api/healthz", s.handleHealth)
	r.GET("/api/config", s.handleConfig)

	phishing := r.Group("/api/phishing", s.rateLimit())
	{
		phishing.POST("/check", limitBody(maxCheckBody), s.handleCheck)
		phishing.GET("/history", s.handleHistory)
		phishing.GET("/stream", s.handleStream)
	}

	return r, nil
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleConfig(c *gin.Context) {
	var records int64
	if s.db != nil {
		count, err := s.db.CountLookups()
		if err != nil {
			s.renderError(c, http.StatusInternalServerError, err)
			return
		}
		records = count
	}

	c.JSON(http.StatusOK, gin.H{
		"phishtank_url":      s.client.BaseURL(),
		"phishtank_timeout":  s.client.Timeout().String(),
		"api_key_configured": s.client.HasAPIKey(),
		"history_enabled":    s.db != nil,
		"history_records":    records,
		"rate_limited":       s.limiter != nil,
	})
}

func (s *Server) handleCheck(c *gin.Context) {
	var req CheckRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		s.renderError(c, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	domain := strings.TrimSpace(req.Domain)
	if domain == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Domain is required"})
		return
	}

	res := s.resolver.Inspect(c.Request.Context(), domain)
	s.recordLookup(res)
	c.JSON(http.StatusOK, res.Verdict)
}

// recordLookup logs, persists and broadcasts a resolution. None of these can
// affect the response.
func (s *Server) recordLookup(res verdict.Resolution) {
	entry := logrus.WithFields(logrus.Fields{
		"domain":          res.Domain,
		"outcome":         res.Outcome,
		"is_phishing":     res.Verdict.IsPhishing,
		"upstream_status": res.UpstreamStatus,
		"duration_ms":     res.DurationMs,
	})
	if res.Err != nil {
		entry.WithError(res.Err).Warn("phishing check degraded")
	} else {
		entry.Info("phishing check")
	}

	if s.db != nil {
		if err := s.db.SaveLookup(recordFromResolution(res)); err != nil {
			logrus.WithError(err).WithField("domain", res.Domain).Warn("save lookup history")
		}
	}
	s.notifier.Broadcast(eventFromResolution(res))
}

func (s *Server) handleHistory(c *gin.Context) {
	if s.db == nil {
		s.renderError(c, http.StatusNotFound, errors.New("lookup history disabled"))
		return
	}

	query := store.LookupQuery{Domain: strings.TrimSpace(c.Query("domain"))}
	if value := strings.TrimSpace(c.Query("limit")); value != "" {
		limit, err := strconv.Atoi(value)
		if err != nil || limit <= 0 {
			s.renderError(c, http.StatusBadRequest, fmt.Errorf("invalid limit: %s", value))
			return
		}
		query.Limit = limit
	}

	rows, total, err := s.db.RecentLookups(query)
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}

	items := make([]LookupDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, LookupFromModel(row))
	}
	c.JSON(http.StatusOK, HistoryResponse{Items: items, Total: total})
}

func (s *Server) handleStream(c *gin.Context) {
	upgrader := websocket.Upgrader{
		HandshakeTimeout: 5 * time.Second,
		CheckOrigin: func(r *http.Request) bool {
			if len(s.allowedOrigins) == 0 {
				return true
			}
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			for _, allowed := range s.allowedOrigins {
				if strings.EqualFold(origin, allowed) {
					return true
				}
			}
			return false
		},
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Warn("upgrade websocket")
		return
	}

	client := s.notifier.Register(conn)
	logrus.WithField("remote", conn.RemoteAddr().String()).Info("lookup stream connected")
	defer s.notifier.Unregister(client)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logrus.WithError(err).Warn("lookup stream unexpected close")
			} else {
				logrus.WithField("remote", conn.RemoteAddr().String()).Info("lookup stream closed")
			}
			break
		}
	}
}

func (s *Server) renderError(c *gin.Context, status int, err error) {
	c.JSON(status, gin.H{"error": err.Error()})
}

func (s *Server) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.limiter == nil {
			c.Next()
			return
		}
		ip := c.ClientIP()
		if !s.limiter.allow(ip) {
			c.Header("Retry-After", strconv.Itoa(s.limiter.retryAfterSeconds()))
			s.renderError(c, http.StatusTooManyRequests, errors.New("too many requests, please try again later"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// securityHeaders sets the response headers browsers use to sandbox JSON APIs.
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		h.Set("Cross-Origin-Resource-Policy", "same-origin")
		c.Next()
	}
}

func limitBody(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		c.Next()
	}
}
