package api

import (
	"log/slog"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"souviens_toi/internal/auth"
	"souviens_toi/internal/notify"
)

// Notifications attaches a fresh notification recorder to every request.
func Notifications() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := notify.WithRecorder(c.Request.Context(), &notify.Recorder{})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireAuth verifies the bearer token and stores the user in the request
// context. The token may also come from the "token" query parameter so
// download links work from a plain anchor.
func RequireAuth(verifier *auth.Verifier, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			RespondError(c, auth.ErrInvalidToken)
			return
		}

		user, err := verifier.Verify(token)
		if err != nil {
			logger.Debug("rejected token", "error", err)
			RespondError(c, err)
			return
		}

		c.Request = c.Request.WithContext(auth.WithUser(c.Request.Context(), user))
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return c.Query("token")
}

func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		attrs := []any{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		}
		if uid := auth.CurrentUserID(c.Request.Context()); uid != "" {
			attrs = append(attrs, "user_id", uid)
		}
		if c.Writer.Status() >= 500 {
			logger.Error("request failed", attrs...)
			return
		}
		logger.Info("request", attrs...)
	}
}
