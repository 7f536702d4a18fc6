package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/aaronpeter20/InventoryManagementSystem/internal/core/domain"
)

const (
	tokenCookie = "jwt"
	userKey     = "user"
)

// authenticate accepts the session cookie or a Bearer header and stores the
// caller under userKey.
func (h *HTTPHandler) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie(tokenCookie)
		if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
			token = strings.TrimPrefix(header, "Bearer ")
		}
		if token == "" {
			writeFailure(c, http.StatusUnauthorized, "not authorized, no token")
			return
		}

		user, err := h.svc.Auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			h.writeError(c, err)
			return
		}
		c.Set(userKey, *user)
		c.Next()
	}
}

func (h *HTTPHandler) require(capability Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		if !Allowed(user.Role, capability) {
			writeFailure(c, http.StatusForbidden, "not authorized for this action")
			return
		}
		c.Next()
	}
}

func currentUser(c *gin.Context) domain.User {
	v, _ := c.Get(userKey)
	user, _ := v.(domain.User)
	return user
}

// rateLimit fails open: a Redis outage must not lock everyone out.
func (h *HTTPHandler) rateLimit(action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.limiter == nil {
			c.Next()
			return
		}
		ok, err := h.limiter.Allow(c.Request.Context(), action+":"+c.ClientIP(), h.opts.LoginRateLimit, h.opts.LoginRateWindow)
		if err != nil {
			h.logger.Warn("rate limiter unavailable", zap.String("action", action), zap.Error(err))
			c.Next()
			return
		}
		if !ok {
			writeFailure(c, http.StatusTooManyRequests, "too many requests, try again later")
			return
		}
		c.Next()
	}
}

func (h *HTTPHandler) cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.opts.CORSOrigin != "" {
			c.Header("Access-Control-Allow-Origin", h.opts.CORSOrigin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
			c.Header("Vary", "Origin")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (h *HTTPHandler) observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		elapsed := time.Since(start)
		h.svc.Metrics.ObserveHTTP(c.Request.Method, route, c.Writer.Status(), elapsed)
		h.logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", elapsed),
		)
	}
}
