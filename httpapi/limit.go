package httpapi

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/bufferstream/errors"
	"github.com/kbukum/bufferstream/logger"
)

// limiter bounds the number of transforms in flight. A nil limiter admits
// everything.
type limiter struct {
	sem     chan struct{}
	maxWait time.Duration
}

func newLimiter(max int, maxWait time.Duration) *limiter {
	if max <= 0 {
		return nil
	}
	return &limiter{sem: make(chan struct{}, max), maxWait: maxWait}
}

func (l *limiter) inUse() int {
	if l == nil {
		return 0
	}
	return len(l.sem)
}

// middleware rejects a request with 503 BUSY when no slot frees up within
// maxWait.
func (l *limiter) middleware(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if l == nil {
			c.Next()
			return
		}
		if !l.acquire(c) {
			log.Warn("Transform rejected", logger.Fields("limit", cap(l.sem), logger.FieldRequestID, c.GetString(ctxRequestID)))
			RespondWithError(c, errors.Busy("transform", cap(l.sem)))
			c.Abort()
			return
		}
		defer func() { <-l.sem }()
		c.Next()
	}
}

func (l *limiter) acquire(c *gin.Context) bool {
	select {
	case l.sem <- struct{}{}:
		return true
	default:
	}
	if l.maxWait <= 0 {
		return false
	}

	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()
	select {
	case l.sem <- struct{}{}:
		return true
	case <-timer.C:
		return false
	case <-c.Request.Context().Done():
		return false
	}
}
