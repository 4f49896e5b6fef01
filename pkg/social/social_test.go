package social

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bullet-ledger/node/pkg/crypto"
)

type denyAll struct{}

func (denyAll) Allow(actor, resource crypto.Hash) bool { return false }

func TestAlwaysAllowPermitsAnyPermissionCheck(t *testing.T) {
	a := New(AlwaysAllow{})
	assert.True(t, a.HandlePerm(PermissionCheck{Actor: crypto.Hash{1}, Resource: crypto.Hash{2}}))
}

func TestCustomAuthorizerIsConsulted(t *testing.T) {
	a := New(denyAll{})
	assert.False(t, a.HandlePerm(PermissionCheck{Actor: crypto.Hash{1}, Resource: crypto.Hash{2}}))
}

func TestNilAuthorizerDefaultsToAlwaysAllow(t *testing.T) {
	a := New(nil)
	assert.True(t, a.HandleTemporalRequest(TemporalRequest{Actor: crypto.Hash{3}, ValidUntil: 0}, crypto.Hash{4}))
}
