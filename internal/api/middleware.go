package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	requestIDKey    = "request_id"
	userIDKey       = "user_id"
	RequestIDHeader = "X-Request-ID"
	// UserIDHeader is set by the upstream auth gateway once it has verified the caller.
	// The service must not be reachable except through that gateway when the
	// header is trusted, since any client can send it.
	UserIDHeader = "X-User-ID"
)

func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set(requestIDKey, requestID)
		c.Header(RequestIDHeader, requestID)
		c.Next()
	}
}

// Identity exposes the caller's id to handlers; anonymous callers get "".
// Unless trustHeader is set every caller is anonymous.
func Identity(trustHeader bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := ""
		if trustHeader {
			userID = strings.TrimSpace(c.GetHeader(UserIDHeader))
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			slog.String("method", c.Request.Method),
			slog.String("path", c.FullPath()),
			slog.Int("status", status),
			slog.Duration("elapsed", time.Since(start)),
			slog.String("request_id", c.GetString(requestIDKey)),
		}

		switch {
		case status >= http.StatusInternalServerError:
			slog.Error("[API] Request failed", attrs...)
		case status >= http.StatusBadRequest:
			slog.Warn("[API] Request rejected", attrs...)
		default:
			slog.Info("[API] Request served", attrs...)
		}
	}
}

func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("[API] Recovered from panic",
					slog.String("panic", fmt.Sprint(r)),
					slog.String("path", c.Request.URL.Path),
					slog.String("request_id", c.GetString(requestIDKey)))
				respondError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
				c.Abort()
			}
		}()
		c.Next()
	}
}

// CORS allows the configured frontend origin; an empty origin allows any.
func CORS(allowedOrigin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		switch {
		case allowedOrigin == "":
			c.Header("Access-Control-Allow-Origin", "*")
		case origin == allowedOrigin:
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Vary", "Origin")
		}
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, "+RequestIDHeader+", "+UserIDHeader)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
