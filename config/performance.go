package config

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// SlowRequestThreshold marks a request as slow in the access log.
const SlowRequestThreshold = 200 * time.Millisecond

func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		latency := time.Since(start)
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		event := log.Info()
		if latency > SlowRequestThreshold {
			event = log.Warn().Bool("slow", true)
		}
		event.Str("method", c.Request.Method).
			Str("path", path).
			Int("status", c.Writer.Status()).
			Dur("latency", latency).
			Msg("request")
	}
}
