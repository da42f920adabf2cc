package admission

import (
	"context"
	"fmt"

	"authgate/api/internal/models"
)

type Mode string

const (
	ModeLive   Mode = "live"
	ModeDryRun Mode = "dry_run"
)

type Request struct {
	Role      models.Role
	ClientID  string
	UserAgent string
	Method    string
	Path      string
	RawQuery  string
}

type Engine struct {
	bots    *BotDetector
	shield  *Shield
	counter Counter
	mode    Mode
	prefix  string
}

func NewEngine(bots *BotDetector, shield *Shield, counter Counter, mode Mode, keyPrefix string) *Engine {
	if mode == "" {
		mode = ModeLive
	}
	if keyPrefix == "" {
		keyPrefix = "admission"
	}
	return &Engine{
		bots:    bots,
		shield:  shield,
		counter: counter,
		mode:    mode,
		prefix:  keyPrefix,
	}
}

// Evaluate classifies the request. Bot and shield hits short-circuit and do
// not consume rate budget. A non-nil error means no decision could be made.
func (e *Engine) Evaluate(ctx context.Context, req Request) (Decision, error) {
	role := req.Role
	if role == "" {
		role = models.RoleGuest
	}
	policy := PolicyFor(role)

	decision := Decision{
		Allowed:   true,
		Reason:    ReasonNone,
		Role:      role,
		Limit:     policy.Limit,
		Window:    policy.Window,
		Remaining: policy.Limit,
	}

	var signals Signals
	if rule, ok := e.bots.Detect(req.UserAgent); ok {
		signals.Bot = true
		decision.Rule = rule
	} else if rule, ok := e.shield.Inspect(req.Path, req.RawQuery); ok {
		signals.Shield = true
		decision.Rule = rule
	} else {
		count, err := e.counter.Hit(ctx, e.key(role, req.ClientID), policy.Window)
		if err != nil {
			return Decision{}, err
		}
		signals.RateLimited = count > int64(policy.Limit)
		decision.Remaining = max(policy.Limit-int(count), 0)
	}

	decision.Reason = signals.Reason()
	if decision.Reason != ReasonNone {
		if e.mode == ModeDryRun {
			decision.DryRun = true
		} else {
			decision.Allowed = false
		}
	}
	return decision, nil
}

func (e *Engine) key(role models.Role, clientID string) string {
	return fmt.Sprintf("%s:%s:%s", e.prefix, role, clientID)
}
