package hub

import (
	"context"
	"errors"

	"trackinghub/internal/core/domain/model/kernel"
	"trackinghub/internal/core/ports"
)

// Authorizer decides whether a credential may observe a topic. It is the
// access-control collaborator the Hub delegates to for every topic that is
// not the subscriber's own agent topic. A nil return admits the subscription.
type Authorizer interface {
	Authorize(ctx context.Context, cred ports.Credential, topic kernel.Topic) error
}

// AuthorizerFunc adapts a function to Authorizer.
type AuthorizerFunc func(ctx context.Context, cred ports.Credential, topic kernel.Topic) error

func (f AuthorizerFunc) Authorize(ctx context.Context, cred ports.Credential, topic kernel.Topic) error {
	return f(ctx, cred, topic)
}

var errNoAuthorizer = errors.New("no authorizer configured")

// DenyAll rejects every delegated topic. It is the default Authorizer.
var DenyAll = AuthorizerFunc(func(context.Context, ports.Credential, kernel.Topic) error {
	return errNoAuthorizer
})

// AllowAll admits every topic.
var AllowAll = AuthorizerFunc(func(context.Context, ports.Credential, kernel.Topic) error {
	return nil
})
