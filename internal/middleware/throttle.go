package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ThrottleByIP is the coarse transport-level guard in front of the OTP
// endpoints: a fixed one-minute window per client IP in redis. The
// per-email cooldown stays in the OTP engine; this only keeps one host
// from hammering the issuance path across many addresses.
//
// If redis is down the request proceeds: the per-email limiter still
// holds, and availability beats a marginal throttle.
func ThrottleByIP(redisClient *redis.Client, perMinute int, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if perMinute <= 0 {
			c.Next()
			return
		}

		key := fmt.Sprintf("throttle:otp:%s:%d", c.ClientIP(), time.Now().Unix()/60)

		count, err := redisClient.Incr(c.Request.Context(), key).Result()
		if err != nil {
			log.Warn().Err(err).Msg("otp throttle unavailable")
			c.Next()
			return
		}
		if count == 1 {
			redisClient.Expire(c.Request.Context(), key, time.Minute)
		}

		if count > int64(perMinute) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false, "error": "rate_limited", "message": "too many requests",
			})
			return
		}

		c.Next()
	}
}
