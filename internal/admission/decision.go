package admission

import (
	"time"

	"authgate/api/internal/models"
)

type Reason string

const (
	ReasonNone      Reason = "none"
	ReasonBot       Reason = "bot"
	ReasonShield    Reason = "shield"
	ReasonRateLimit Reason = "rate_limit"
)

// Signals are the raw classifier verdicts for one request.
type Signals struct {
	Bot         bool
	Shield      bool
	RateLimited bool
}

// Reason picks exactly one denial reason: bot, then shield, then rate_limit.
func (s Signals) Reason() Reason {
	switch {
	case s.Bot:
		return ReasonBot
	case s.Shield:
		return ReasonShield
	case s.RateLimited:
		return ReasonRateLimit
	default:
		return ReasonNone
	}
}

type Decision struct {
	Allowed bool
	Reason  Reason
	// Rule names the bot or shield signature that matched.
	Rule      string
	Role      models.Role
	Limit     int
	Window    time.Duration
	Remaining int
	// DryRun is set when a denial was computed but not enforced.
	DryRun bool
}

func (d Decision) Denied() bool {
	return !d.Allowed
}
