// Package social implements the social-graph actor supplemented from
// original_source/src/social in SPEC_FULL.md §4.8-FULL: three
// sub-handlers (cards, permissions, temporal requests) dispatched from
// a single Social-coded frame, gated by a pluggable Authorizer. This
// repo ships AlwaysAllow, the original's explicit placeholder policy;
// a real policy engine plugs in without changing the wire format.
package social

import "github.com/bullet-ledger/node/pkg/crypto"

// SubCode is body[0] of a Social-coded frame.
type SubCode uint8

const (
	SubCodeCard SubCode = iota + 1
	SubCodePerm
	SubCodeTemporalRequest
)

// CardRequest asks whether the subject has a social card on file.
type CardRequest struct {
	Subject crypto.Hash
}

// PermissionCheck asks whether actor may access resource.
type PermissionCheck struct {
	Actor    crypto.Hash
	Resource crypto.Hash
}

// TemporalRequest asks for time-bounded access, expiring at ValidUntil
// (Unix seconds).
type TemporalRequest struct {
	Actor      crypto.Hash
	ValidUntil int64
}

// Authorizer decides whether actor may access resource. The wire
// protocol and actor loop never change when the policy does; only the
// Authorizer implementation plugged into New does.
type Authorizer interface {
	Allow(actor, resource crypto.Hash) bool
}

// AlwaysAllow is the original's reserved stand-in: it imposes no
// policy at all.
type AlwaysAllow struct{}

func (AlwaysAllow) Allow(actor, resource crypto.Hash) bool { return true }

// Actor owns no KV or reputation state; it answers over the same
// correlation mechanism as peer messages, via the Handle* methods
// that actors.SocialBridge registers on the networker's peer.Router.
type Actor struct {
	authz Authorizer
}

// New constructs a social actor under the given authorization policy.
func New(authz Authorizer) *Actor {
	if authz == nil {
		authz = AlwaysAllow{}
	}
	return &Actor{authz: authz}
}

// HandleCard answers a card lookup. There is no card store yet (the
// original leaves its shape unspecified beyond "cards"); every subject
// is reported as having no card on file.
func (a *Actor) HandleCard(req CardRequest) (found bool) {
	return false
}

// HandlePerm answers a permission check via the configured Authorizer.
func (a *Actor) HandlePerm(req PermissionCheck) (allowed bool) {
	return a.authz.Allow(req.Actor, req.Resource)
}

// HandleTemporalRequest answers a time-bounded access request; it
// delegates to the same Authorizer, expiry enforcement is left to the
// caller re-checking ValidUntil on each use.
func (a *Actor) HandleTemporalRequest(req TemporalRequest, resource crypto.Hash) (allowed bool) {
	return a.authz.Allow(req.Actor, resource)
}
