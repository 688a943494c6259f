// Package ports defines the contracts between the tracking core and its
// collaborators: the auth service, the REST backend and the local store.
// These interfaces keep the core free of transport and storage details.
package ports

import (
	"context"

	"trackinghub/internal/core/domain/model/kernel"
)

// Role is the kind of account behind a credential.
type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
	RoleAgent  Role = "delivery_agent"
	RoleAdmin  Role = "admin"
)

// Credential is a verified bearer token and the identity behind it.
// AgentID is set only for delivery agent accounts.
type Credential struct {
	Token   string
	UserID  kernel.ID
	Role    Role
	AgentID *kernel.ID
}

// IsAgent reports whether the credential belongs to a delivery agent.
func (c Credential) IsAgent() bool {
	return c.Role == RoleAgent && c.AgentID != nil
}

// IsAgentID reports whether the credential belongs to the given agent.
func (c Credential) IsAgentID(id kernel.ID) bool {
	return c.IsAgent() && *c.AgentID == id
}

// Authenticator verifies opaque bearer tokens against the auth collaborator.
type Authenticator interface {
	// Authenticate resolves token into a credential.
	// Returns an error wrapping errs.ErrUnauthorized when the token is rejected.
	Authenticate(ctx context.Context, token string) (Credential, error)
}
