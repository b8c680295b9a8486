package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/talentflow/internal/identity"
	"github.com/smallbiznis/talentflow/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/talentflow/internal/observability/metrics"
	"go.uber.org/zap"
)

const rateLimitReasonCandidateRate = "candidate-rate"

type bookingRateLimitKey struct {
	CandidateID string `json:"candidate_id"`
}

// BookingRateLimit throttles booking attempts per candidate. Redis failures
// fail open so an outage of the limiter never blocks bookings.
func (s *Server) BookingRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.bookingLimiter.Enabled() {
			c.Next()
			return
		}

		actor, ok := mustActor(c)
		if !ok {
			return
		}

		endpoint := normalizeRateLimitEndpoint(c)
		ctx := c.Request.Context()

		candidateID, err := readBookingKey(c)
		if err != nil {
			logger.FromContext(ctx).Warn("booking rate limit read body failed", zap.Error(err))
			AbortWithError(c, invalidRequestError())
			return
		}
		if candidateID == "" && actor.Role == identity.RoleCandidate {
			candidateID = actor.ID
		}
		if candidateID == "" {
			c.Next()
			return
		}

		result, err := s.bookingLimiter.Allow(ctx, candidateID)
		if err != nil {
			logger.FromContext(ctx).Warn("booking rate limit check failed", zap.Error(err))
			c.Next()
			return
		}
		if !result.Allowed {
			retryAfter := result.RetryAfterSeconds()
			if retryAfter < 1 {
				retryAfter = 1
			}
			denyBookingRateLimit(c, endpoint, rateLimitReasonCandidateRate, retryAfter, s.obsMetrics)
			return
		}

		recordRateLimitAllowed(ctx, endpoint, s.obsMetrics)
		c.Next()
	}
}

func denyBookingRateLimit(c *gin.Context, endpoint, reason string, retryAfter int, metrics *obsmetrics.Metrics) {
	ctx := c.Request.Context()
	logger.FromContext(ctx).Warn("booking rate limit exceeded",
		zap.String("reason", reason),
		zap.String("endpoint", endpoint),
	)
	recordRateLimitDenied(ctx, endpoint, reason, metrics)

	c.Header("Retry-After", strconv.Itoa(retryAfter))
	c.Header("X-Rate-Limited-Reason", reason)
	AbortWithError(c, ErrRateLimited)
}

func recordRateLimitAllowed(ctx context.Context, endpoint string, metrics *obsmetrics.Metrics) {
	if metrics == nil {
		return
	}
	metrics.RecordRateLimitAllowed(ctx, endpoint)
}

func recordRateLimitDenied(ctx context.Context, endpoint, reason string, metrics *obsmetrics.Metrics) {
	if metrics == nil {
		return
	}
	metrics.RecordRateLimitDenied(ctx, endpoint, reason)
}

// readBookingKey peeks at the body and restores it for the handler.
func readBookingKey(c *gin.Context) (string, error) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return "", err
	}
	c.Request.Body = io.NopCloser(bytes.NewBuffer(body))
	if len(body) == 0 {
		return "", nil
	}

	var payload bookingRateLimitKey
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", nil
	}
	return strings.TrimSpace(payload.CandidateID), nil
}

func normalizeRateLimitEndpoint(c *gin.Context) string {
	if c == nil {
		return "unknown"
	}
	endpoint := strings.TrimSpace(c.FullPath())
	if endpoint == "" {
		endpoint = strings.TrimSpace(c.Request.URL.Path)
	}
	if endpoint == "" {
		endpoint = "unknown"
	}
	return endpoint
}
