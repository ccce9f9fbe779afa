// Package access holds the capability gate consulted before destructive
// registry mutations. The registry composes a Gate rather than inheriting
// ownership behavior; who owns the registry and who may administer it is
// someone else's problem, expressed behind two predicates.
package access

import (
	"context"

	"onsd/pkg/domain"
)

// Gate answers capability questions about a caller. Implementations must be
// side-effect free; the service may consult them on every mutation.
type Gate interface {
	// IsOwner reports whether caller is the registry owner. Owner-gated
	// operations are the destructive ones (deletes).
	IsOwner(ctx context.Context, caller domain.CallerID) bool
	// IsAuthorized reports whether caller is on the authorizer roster.
	// The owner is always authorized.
	IsAuthorized(ctx context.Context, caller domain.CallerID) bool
}

// StaticGate is a fixed-roster Gate configured at startup: one owner plus a
// list of additional authorized principals.
type StaticGate struct {
	owner      domain.CallerID
	authorized map[domain.CallerID]struct{}
}

func NewStaticGate(owner domain.CallerID, authorized []domain.CallerID) *StaticGate {
	g := &StaticGate{
		owner:      owner,
		authorized: make(map[domain.CallerID]struct{}, len(authorized)),
	}
	for _, id := range authorized {
		if id != "" {
			g.authorized[id] = struct{}{}
		}
	}
	return g
}

func (g *StaticGate) IsOwner(_ context.Context, caller domain.CallerID) bool {
	return caller != "" && caller == g.owner
}

func (g *StaticGate) IsAuthorized(ctx context.Context, caller domain.CallerID) bool {
	if g.IsOwner(ctx, caller) {
		return true
	}
	_, ok := g.authorized[caller]
	return ok
}
