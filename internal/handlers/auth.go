package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"regexp"
	"strings"

	"cardvault/internal/config"
	"cardvault/internal/database"
	emailService "cardvault/internal/email"
	"cardvault/internal/logger"
	"cardvault/internal/models"

	"github.com/gin-gonic/gin"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

type registerRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func handleRegister(c *gin.Context) {
	var req registerRequest
	if !bindJSON(c, &req) {
		return
	}

	email := strings.TrimSpace(req.Email)
	name := strings.TrimSpace(req.Name)

	errs := make(map[string]string)
	if !emailRegex.MatchString(email) {
		errs["email"] = "Please enter a valid email address"
	}
	if len(req.Password) < 8 {
		errs["password"] = "Password must be at least 8 characters"
	}
	if len(name) > 100 {
		errs["name"] = "Name must be at most 100 characters"
	}
	if len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid registration", "errors": errs})
		return
	}
	if name == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}

	db := c.MustGet("db").(*sql.DB)
	user, err := database.CreateUser(db, email, name, req.Password)
	if err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			c.JSON(http.StatusConflict, gin.H{"error": "An account with that email already exists"})
			return
		}
		respondError(c, err, "create account")
		return
	}

	logger.Info("User registered",
		"email", user.Email,
		"user_id", user.ID,
		"role", user.Role)

	if service, ok := c.MustGet("email_service").(*emailService.Service); ok && service.IsEnabled() {
		go func(u *models.User) {
			if err := service.SendWelcomeEmail(u); err != nil {
				logger.Warn("Failed to send welcome email",
					"email", u.Email,
					"user_id", u.ID,
					"error", err)
			}
		}(user)
	}

	if !startSession(c, db, user) {
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": user})
}

func handleLogin(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}

	db := c.MustGet("db").(*sql.DB)
	user, err := database.AuthenticateUser(db, req.Email, req.Password)
	if err != nil {
		logger.Debug("Login rejected", "email", req.Email, "error", err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	if !startSession(c, db, user) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func startSession(c *gin.Context, db *sql.DB, user *models.User) bool {
	cfg := c.MustGet("config").(*config.Config)
	session, err := database.CreateSession(db, user.ID, cfg.SessionDuration)
	if err != nil {
		respondError(c, err, "create session")
		return false
	}

	c.SetSameSite(http.SameSiteStrictMode)
	cookieMaxAge := int(cfg.SessionDuration.Seconds())
	c.SetCookie("session_id", session.ID, cookieMaxAge, "/", "", !cfg.IsDevelopment(), true)
	return true
}

func handleLogout(c *gin.Context) {
	if sessionCookie, err := c.Cookie("session_id"); err == nil {
		db := c.MustGet("db").(*sql.DB)
		if err := database.DeleteSession(db, sessionCookie); err != nil {
			logger.Warn("Failed to delete session", "session_id", sessionCookie, "error", err)
		}
	}

	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie("session_id", "", -1, "/", "", true, true)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

func handleMe(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"user": c.MustGet("user")})
}

func handleCSRFToken(c *gin.Context) {
	userID := c.MustGet("user_id").(int)
	db := c.MustGet("db").(*sql.DB)

	token, err := database.CreateCSRFToken(db, userID)
	if err != nil {
		respondError(c, err, "generate CSRF token")
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token.Token})
}
