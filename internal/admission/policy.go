package admission

import (
	"time"

	"authgate/api/internal/models"
)

type Policy struct {
	Limit  int
	Window time.Duration
}

var policies = map[models.Role]Policy{
	models.RoleAdmin: {Limit: 100, Window: time.Minute},
	models.RoleUser:  {Limit: 50, Window: time.Minute},
	models.RoleGuest: {Limit: 10, Window: time.Minute},
}

// PolicyFor returns the quota for a role. Unknown roles get the guest quota.
func PolicyFor(role models.Role) Policy {
	if p, ok := policies[role]; ok {
		return p
	}
	return policies[models.RoleGuest]
}
