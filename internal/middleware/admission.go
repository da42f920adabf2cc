package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"authgate/api/internal/admission"
	"authgate/api/internal/audit"
	"authgate/api/internal/metrics"
	"authgate/api/internal/models"
)

type Evaluator interface {
	Evaluate(ctx context.Context, req admission.Request) (admission.Decision, error)
}

var denialMessages = map[admission.Reason]string{
	admission.ReasonBot:       "Automated requests are not allowed.",
	admission.ReasonShield:    "Request blocked by security policy.",
	admission.ReasonRateLimit: "Too many requests. Please try again later.",
}

// Admission runs every request through the admission engine. Denials get a
// 403 carrying the reason; a failing check gets a 500 and never falls
// through to the handler.
func Admission(engine Evaluator, sink audit.Sink, m *metrics.Metrics, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := models.RoleGuest
		if claims, ok := IdentityFrom(c); ok && claims.Role != "" {
			role = models.Role(claims.Role)
		}

		decision, err := engine.Evaluate(c.Request.Context(), admission.Request{
			Role:      role,
			ClientID:  c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
			Method:    c.Request.Method,
			Path:      c.Request.URL.Path,
			RawQuery:  c.Request.URL.RawQuery,
		})
		if err != nil {
			m.AdmissionFailures.Inc()
			log.Error().
				Err(err).
				Str("ip", c.ClientIP()).
				Str("path", c.Request.URL.Path).
				Str("method", c.Request.Method).
				Str("request_id", c.GetString(requestIDHeader)).
				Msg("admission check failed")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":   "Forbidden",
				"message": "Security check failed.",
			})
			return
		}

		m.AdmissionDecisions.
			WithLabelValues(string(decision.Role), string(decision.Reason), strconv.FormatBool(decision.Denied())).
			Inc()

		if decision.Reason != admission.ReasonNone {
			recordDenial(c, decision, sink, log)
		}

		if decision.Denied() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":   "Forbidden",
				"message": denialMessages[decision.Reason],
				"reason":  string(decision.Reason),
			})
			return
		}

		if decision.Reason == admission.ReasonNone {
			c.Header("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
			c.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		}

		c.Next()
	}
}

func recordDenial(c *gin.Context, decision admission.Decision, sink audit.Sink, log zerolog.Logger) {
	event := audit.Event{
		Timestamp: time.Now().UTC(),
		Reason:    string(decision.Reason),
		Rule:      decision.Rule,
		Role:      string(decision.Role),
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Method:    c.Request.Method,
		Path:      c.Request.URL.Path,
		RequestID: c.GetString(requestIDHeader),
		DryRun:    decision.DryRun,
	}

	msg := "request denied"
	if decision.DryRun {
		msg = "request would be denied (dry run)"
	}
	log.Warn().
		Str("reason", event.Reason).
		Str("rule", event.Rule).
		Str("role", event.Role).
		Str("ip", event.IP).
		Str("user_agent", event.UserAgent).
		Str("method", event.Method).
		Str("path", event.Path).
		Str("request_id", event.RequestID).
		Msg(msg)

	if err := sink.Emit(c.Request.Context(), event); err != nil {
		log.Error().Err(err).Str("request_id", event.RequestID).Msg("audit emit failed")
	}
}
