package status

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/etlkit/component"
	"github.com/kbukum/etlkit/logger"
	"github.com/kbukum/etlkit/version"
)

// progress returns the driver status. ?format=text returns the plain
// progress line.
func (s *Server) progress(c *gin.Context) {
	st := s.provider.Status()
	if c.Query("format") == "text" {
		c.String(http.StatusOK, "%s\n", st.Progress)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (s *Server) healthz(c *gin.Context) {
	status := component.StatusHealthy
	components := s.provider.Health(c.Request.Context())
	for _, h := range components {
		if h.Status == component.StatusUnhealthy {
			status = component.StatusUnhealthy
			break
		}
		if h.Status == component.StatusDegraded {
			status = component.StatusDegraded
		}
	}

	code := http.StatusOK
	if status == component.StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status":     status,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"components": components,
	})
}

func versionHandler(c *gin.Context) {
	c.JSON(http.StatusOK, version.Get())
}

func (s *Server) recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				s.log.Error("panic recovered", logger.Fields(
					logger.FieldError, fmt.Sprintf("%v", err),
					"stack", string(debug.Stack()),
					"path", c.Request.URL.Path,
				))
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			}
		}()
		c.Next()
	}
}

// requestLogger logs every request except /healthz at debug level.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/healthz" {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		s.log.Debug("status request", logger.Fields(
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			logger.FieldDuration, time.Since(start).Milliseconds(),
		))
	}
}
