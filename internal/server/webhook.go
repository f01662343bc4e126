package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	webhookdomain "github.com/smallbiznis/storefront/internal/webhook/domain"
	"go.uber.org/zap"
)

// WebhookRateLimit throttles deliveries before the body is read. The
// limiter fails open so a redis outage never drops paid sessions.
func (s *Server) WebhookRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.webhookLimiter.Enabled() {
			c.Next()
			return
		}

		allowed, err := s.webhookLimiter.Allow(c.Request.Context())
		if err != nil {
			s.log.Warn("webhook rate limiter unavailable", zap.Error(err))
			c.Next()
			return
		}
		if !allowed {
			s.obsMetrics.RecordRateLimitDenied(c.Request.Context(), "/webhook", "bucket_empty")
			AbortWithError(c, ErrRateLimited)
			return
		}

		s.obsMetrics.RecordRateLimitAllowed(c.Request.Context(), "/webhook")
		c.Next()
	}
}

func (s *Server) HandleWebhook(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	err = s.webhookSvc.HandleDelivery(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	switch {
	case err == nil,
		errors.Is(err, webhookdomain.ErrEventIgnored),
		errors.Is(err, webhookdomain.ErrEventAlreadyProcessed),
		errors.Is(err, webhookdomain.ErrIntegrityFault):
		// Acknowledged: the sender must not redeliver.
		c.JSON(http.StatusOK, gin.H{"received": true})
	default:
		AbortWithError(c, err)
	}
}
