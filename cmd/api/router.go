package main

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rollbook/internal/admin"
	"rollbook/internal/attendance"
	"rollbook/internal/auth"
	"rollbook/internal/config"
	"rollbook/internal/httpmiddleware"
	"rollbook/internal/metrics"
	"rollbook/internal/roster"
)

// newRouter assembles middleware and routes. Dependencies come in as
// arguments so tests can wire in-memory repositories.
func newRouter(
	cfg config.App,
	admins *admin.Service,
	students roster.Repository,
	att *attendance.Service,
	limiter httpmiddleware.Limiter,
	healthz gin.HandlerFunc,
) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(httpmiddleware.RequestID())
	r.Use(corsMiddleware(cfg.CORSOrigin))
	r.Use(securityHeaders())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", healthz)

	// Auth routes are the only rate-limited surface; every attempt counts
	// against the window regardless of outcome.
	adminGroup := r.Group("/admin", httpmiddleware.RateLimit(limiter))

	adminGroup.POST("/setup", func(c *gin.Context) {
		var req struct {
			Username string `json:"username" binding:"required"`
			Password string `json:"password" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
			return
		}
		if err := admins.Setup(c.Request.Context(), req.Username, req.Password); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "setup failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	})

	adminGroup.POST("/login/password", func(c *gin.Context) {
		var req struct {
			Username string `json:"username" binding:"required"`
			Password string `json:"password" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
			return
		}
		token, err := admins.Login(c.Request.Context(), req.Username, req.Password)
		if err != nil {
			if errors.Is(err, admin.ErrInvalidCredentials) {
				metrics.LoginAttempts.WithLabelValues("failure").Inc()
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
			return
		}
		metrics.LoginAttempts.WithLabelValues("success").Inc()
		c.JSON(http.StatusOK, gin.H{"success": true, "token": token})
	})

	protected := r.Group("/", auth.AdminAuth(cfg.JWTSigningKey, cfg.JWTIssuer))

	protected.GET("/students", func(c *gin.Context) {
		list, err := students.List(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "storage failure"})
			return
		}
		if list == nil {
			list = []roster.Student{}
		}
		c.JSON(http.StatusOK, list)
	})

	protected.POST("/students", func(c *gin.Context) {
		var req struct {
			Name string `json:"name" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Name is required"})
			return
		}
		s, err := students.Create(c.Request.Context(), req.Name)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "storage failure"})
			return
		}
		c.JSON(http.StatusOK, s)
	})

	protected.PUT("/students/:id", func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid student id"})
			return
		}
		var req struct {
			Name string `json:"name" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Name is required"})
			return
		}
		s, err := students.Update(c.Request.Context(), id, req.Name)
		if err != nil {
			if errors.Is(err, roster.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "student not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "storage failure"})
			return
		}
		c.JSON(http.StatusOK, s)
	})

	protected.DELETE("/students/:id", func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid student id"})
			return
		}
		if err := students.Delete(c.Request.Context(), id); err != nil {
			if errors.Is(err, roster.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "student not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "storage failure"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Student deleted"})
	})

	protected.GET("/attendance", func(c *gin.Context) {
		studentID, err := strconv.Atoi(c.Query("studentId"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "studentId and date are required"})
			return
		}
		status, err := att.Status(c.Request.Context(), studentID, c.Query("date"))
		if err != nil {
			if errors.Is(err, attendance.ErrInvalidDate) {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "storage failure"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": status})
	})

	protected.POST("/attendance", func(c *gin.Context) {
		var req struct {
			StudentID int    `json:"studentId" binding:"required"`
			Date      string `json:"date" binding:"required"`
			Status    string `json:"status" binding:"required,oneof=present absent late"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "studentId, date and a status of present, absent or late are required"})
			return
		}
		status, err := att.Mark(c.Request.Context(), req.StudentID, req.Date, req.Status)
		if err != nil {
			if errors.Is(err, attendance.ErrInvalidStatus) || errors.Is(err, attendance.ErrInvalidDate) {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "storage failure"})
			return
		}
		metrics.AttendanceMarks.WithLabelValues(string(status)).Inc()
		c.JSON(http.StatusOK, gin.H{"studentId": req.StudentID, "date": req.Date, "status": status})
	})

	protected.POST("/attendance/bulk", func(c *gin.Context) {
		var req struct {
			Date       string `json:"date" binding:"required"`
			Status     string `json:"status" binding:"required,oneof=present absent late"`
			StudentIDs []int  `json:"studentIds" binding:"required,min=1"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date, status and studentIds are required"})
			return
		}
		results, err := att.MarkAll(c.Request.Context(), req.Date, req.Status, req.StudentIDs)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		for _, res := range results {
			if res.OK {
				metrics.AttendanceMarks.WithLabelValues(req.Status).Inc()
			}
		}
		c.JSON(http.StatusOK, gin.H{"results": results})
	})

	return r
}

// CORS middleware for the browser client.
func corsMiddleware(origin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
