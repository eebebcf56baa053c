package middleware

import (
	"database/sql"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"cardvault/internal/config"
	"cardvault/internal/database"
	"cardvault/internal/logger"
	"cardvault/internal/metrics"
	"cardvault/internal/models"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const sessionCookie = "session_id"

type rateLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipLimiter keeps one token bucket per client IP and forgets clients idle
// for longer than ttl.
type ipLimiter struct {
	mu      sync.Mutex
	clients map[string]*rateLimiter
	every   time.Duration
	burst   int
	ttl     time.Duration
}

func newIPLimiter(every time.Duration, burst int, ttl time.Duration) *ipLimiter {
	return &ipLimiter{
		clients: make(map[string]*rateLimiter),
		every:   every,
		burst:   burst,
		ttl:     ttl,
	}
}

func (l *ipLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	for key, client := range l.clients {
		if now.Sub(client.lastSeen) > l.ttl {
			delete(l.clients, key)
		}
	}

	client, exists := l.clients[ip]
	if !exists {
		client = &rateLimiter{limiter: rate.NewLimiter(rate.Every(l.every), l.burst)}
		l.clients[ip] = client
	}
	client.lastSeen = now
	return client.limiter.Allow()
}

func limitBy(cfg *config.Config, limiter *ipLimiter, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Skip rate limiting in development mode
		if cfg.IsDevelopment() {
			c.Next()
			return
		}

		if !limiter.allow(c.ClientIP()) {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": message})
			c.Abort()
			return
		}

		c.Next()
	}
}

func RateLimit(cfg *config.Config) gin.HandlerFunc {
	return limitBy(cfg, newIPLimiter(time.Second/20, 20, 10*time.Minute), "Rate limit exceeded")
}

func AuthRateLimit(cfg *config.Config) gin.HandlerFunc {
	return limitBy(cfg, newIPLimiter(time.Minute, 5, 30*time.Minute), "Authentication rate limit exceeded")
}

// SearchRateLimit guards the endpoints that call out to the public card
// databases.
func SearchRateLimit(cfg *config.Config) gin.HandlerFunc {
	return limitBy(cfg, newIPLimiter(time.Second, 5, 10*time.Minute), "Search rate limit exceeded")
}

type clientTracker struct {
	errors404    []time.Time
	blockedUntil time.Time
	lastSeen     time.Time
}

// NotFoundGuard blocks an IP for 15 minutes after 10 responses with status
// 404 inside 5 minutes.
func NotFoundGuard(cfg *config.Config) gin.HandlerFunc {
	trackers := make(map[string]*clientTracker)
	var mu sync.Mutex

	return func(c *gin.Context) {
		// Skip IP blocking in development mode
		if cfg.IsDevelopment() {
			c.Next()
			return
		}

		ip := c.ClientIP()

		mu.Lock()
		tracker, exists := trackers[ip]
		blocked := exists && time.Now().Before(tracker.blockedUntil)
		mu.Unlock()

		if blocked {
			c.JSON(http.StatusForbidden, gin.H{"error": "Too many invalid requests, try again later"})
			c.Abort()
			return
		}

		c.Next()

		if c.Writer.Status() != http.StatusNotFound {
			return
		}

		now := time.Now()

		mu.Lock()
		defer mu.Unlock()

		tracker, exists = trackers[ip]
		if !exists {
			tracker = &clientTracker{}
			trackers[ip] = tracker
		}
		tracker.lastSeen = now

		cutoff := now.Add(-5 * time.Minute)
		recent := tracker.errors404[:0]
		for _, at := range tracker.errors404 {
			if at.After(cutoff) {
				recent = append(recent, at)
			}
		}
		tracker.errors404 = append(recent, now)

		if len(tracker.errors404) >= 10 {
			tracker.blockedUntil = now.Add(15 * time.Minute)
			tracker.errors404 = nil
			logger.Warn("Blocked client after repeated 404s",
				"ip", ip,
				"blocked_until", tracker.blockedUntil.Format(time.RFC3339))
		}

		for trackerIP, t := range trackers {
			if now.Sub(t.lastSeen) > 30*time.Minute && now.After(t.blockedUntil) {
				delete(trackers, trackerIP)
			}
		}
	}
}

func CORS(allowedOrigins string) gin.HandlerFunc {
	origins := strings.Split(allowedOrigins, ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		for _, allowedOrigin := range origins {
			if origin != "" && origin == allowedOrigin {
				c.Header("Access-Control-Allow-Origin", origin)
				c.Header("Access-Control-Allow-Credentials", "true")
				c.Header("Vary", "Origin")
				break
			}
		}

		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-CSRF-Token")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func isSafeMethod(method string) bool {
	return method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions
}

// checkCSRF consumes the X-CSRF-Token header for the signed-in user.
// It writes the failure response itself and reports whether to go on.
func checkCSRF(c *gin.Context) bool {
	token := c.GetHeader("X-CSRF-Token")
	if token == "" {
		c.JSON(http.StatusForbidden, gin.H{"error": "CSRF token required"})
		c.Abort()
		return false
	}

	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		c.Abort()
		return false
	}

	db := c.MustGet("db").(*sql.DB)
	if err := database.ValidateCSRFToken(db, token, userID.(int)); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "Invalid CSRF token"})
		c.Abort()
		return false
	}

	return true
}

func CSRF(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Skip CSRF validation in development mode
		if cfg.IsDevelopment() || isSafeMethod(c.Request.Method) {
			c.Next()
			return
		}

		if !checkCSRF(c) {
			return
		}

		c.Next()
	}
}

// CSRFWithRenewal validates the token like CSRF and issues a fresh one under
// "new_csrf_token" for endpoints a client calls in quick succession, such as
// drag-and-drop reordering. Handlers echo it back as "csrf_token".
func CSRFWithRenewal(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.IsDevelopment() || isSafeMethod(c.Request.Method) {
			c.Next()
			return
		}

		if !checkCSRF(c) {
			return
		}

		userID := c.MustGet("user_id").(int)
		newToken, err := database.CreateCSRFToken(c.MustGet("db").(*sql.DB), userID)
		if err != nil {
			// The request itself is still valid.
			logger.Warn("Failed to renew CSRF token",
				"user_id", userID,
				"error", err)
			c.Next()
			return
		}

		c.Set("new_csrf_token", newToken.Token)
		c.Next()
	}
}

func clearSession(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(sessionCookie, "", -1, "/", "", true, true)
}

func currentUser(c *gin.Context, db *sql.DB, cfg *config.Config) (*models.User, bool) {
	sessionID, err := c.Cookie(sessionCookie)
	if err != nil || sessionID == "" {
		return nil, false
	}

	user, err := database.ValidateSession(db, sessionID, cfg.SessionDuration)
	if err != nil {
		clearSession(c)
		return nil, false
	}

	return user, true
}

func AuthRequired(db *sql.DB, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c, db, cfg)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			c.Abort()
			return
		}

		c.Set("user", user)
		c.Set("user_id", user.ID)
		c.Set("db", db)
		c.Next()
	}
}

func AuthOptional(db *sql.DB, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if user, ok := currentUser(c, db, cfg); ok {
			c.Set("user", user)
			c.Set("user_id", user.ID)
		}
		c.Set("db", db)
		c.Next()
	}
}

func AdminRequired(db *sql.DB, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c, db, cfg)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			c.Abort()
			return
		}

		if !user.IsAdmin() {
			logger.Warn("Non-admin tried to reach the back office",
				"user_id", user.ID,
				"path", c.Request.URL.Path)
			c.JSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			c.Abort()
			return
		}

		c.Set("user", user)
		c.Set("user_id", user.ID)
		c.Set("db", db)
		c.Next()
	}
}

func SecurityHeaders(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.IsDevelopment() {
			c.Next()
			return
		}

		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		c.Header("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		c.Next()
	}
}

func LogRequests() gin.HandlerFunc {
	return gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		return fmt.Sprintf("[%s] %s %s %d %s %s\n",
			param.TimeStamp.Format("2006/01/02 15:04:05"),
			param.Method,
			param.Path,
			param.StatusCode,
			param.Latency,
			param.ClientIP,
		)
	})
}

// Metrics records request latency labelled by the matched route pattern.
func Metrics(recorder metrics.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		recorder.RecordHTTPRequest(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}

func AddDBContext(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("db", db)
		c.Next()
	}
}
