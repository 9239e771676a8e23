package httpapi

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Leganyst/table-booking/internal/auth"
)

const sessionKey = "session"

// JWTAuth проверяет Bearer-токен и кладёт auth.Session в контекст запроса.
func JWTAuth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if !strings.HasPrefix(h, "Bearer ") {
			fail(c, http.StatusUnauthorized, "UNAUTHORIZED", auth.ErrMissingToken.Error())
			return
		}

		s, err := auth.ParseToken(secret, strings.TrimPrefix(h, "Bearer "))
		if err != nil {
			msg := auth.ErrInvalidToken.Error()
			if errors.Is(err, auth.ErrNoSecret) {
				msg = "authentication is not configured"
			}
			fail(c, http.StatusUnauthorized, "UNAUTHORIZED", msg)
			return
		}

		c.Set(sessionKey, s)
		c.Next()
	}
}

func RequireRole(roles ...auth.Role) gin.HandlerFunc {
	allowed := make(map[auth.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		s, ok := sessionFrom(c)
		if _, permitted := allowed[s.Role]; !ok || !permitted {
			fail(c, http.StatusForbidden, "FORBIDDEN", "role is not allowed")
			return
		}
		c.Next()
	}
}

func sessionFrom(c *gin.Context) (auth.Session, bool) {
	v, exists := c.Get(sessionKey)
	if !exists {
		return auth.Session{}, false
	}
	s, ok := v.(auth.Session)
	return s, ok
}

// requestLogger пишет одну запись на запрос.
func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		attrs := []any{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		}
		if errs := c.Errors.ByType(gin.ErrorTypeAny); len(errs) > 0 {
			attrs = append(attrs, "err", errs.String())
			log.ErrorContext(c.Request.Context(), "http request", attrs...)
			return
		}
		log.InfoContext(c.Request.Context(), "http request", attrs...)
	}
}
