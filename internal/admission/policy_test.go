package admission

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"authgate/api/internal/models"
)

func TestPolicyFor(t *testing.T) {
	assert.Equal(t, Policy{Limit: 100, Window: time.Minute}, PolicyFor(models.RoleAdmin))
	assert.Equal(t, Policy{Limit: 50, Window: time.Minute}, PolicyFor(models.RoleUser))
	assert.Equal(t, Policy{Limit: 10, Window: time.Minute}, PolicyFor(models.RoleGuest))
	assert.Equal(t, PolicyFor(models.RoleGuest), PolicyFor("superuser"))
	assert.Equal(t, PolicyFor(models.RoleGuest), PolicyFor(""))
}

func TestSignalsReasonPrecedence(t *testing.T) {
	tests := []struct {
		signals Signals
		want    Reason
	}{
		{Signals{}, ReasonNone},
		{Signals{RateLimited: true}, ReasonRateLimit},
		{Signals{Shield: true, RateLimited: true}, ReasonShield},
		{Signals{Bot: true, Shield: true, RateLimited: true}, ReasonBot},
		{Signals{Bot: true, RateLimited: true}, ReasonBot},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.signals.Reason(), "%+v", tt.signals)
	}
}
