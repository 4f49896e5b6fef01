package actors

import (
	"encoding/binary"

	"github.com/bullet-ledger/node/pkg/crypto"
	"github.com/bullet-ledger/node/pkg/p2p/peer"
	"github.com/bullet-ledger/node/pkg/social"
)

// SocialBridge adapts pkg/social.Actor onto a peer.Router handler.
// Social replies must be written back over the same connection and
// msg_id a caller correlated its request against (§4.8-FULL), so the
// handler runs inline on the networker's poll loop rather than being
// marshalled through an SPSC inbox like the blockchain actor's events;
// the actor's logic itself stays a standalone, independently testable
// component.
type SocialBridge struct {
	actor *social.Actor
}

// NewSocialBridge wraps authz in a social.Actor and exposes it as a
// router handler.
func NewSocialBridge(authz social.Authorizer) *SocialBridge {
	return &SocialBridge{actor: social.New(authz)}
}

// Handle is registered on the networker's router under wire.CodeSocial.
func (s *SocialBridge) Handle(conn *peer.Connection, msg *peer.NetMsg) (*peer.NetMsg, error) {
	if len(msg.Body) < 1 {
		return nil, nil
	}
	sub := social.SubCode(msg.Body[0])
	body := msg.Body[1:]

	var allowed bool
	switch sub {
	case social.SubCodeCard:
		if len(body) < 32 {
			return nil, nil
		}
		var subject crypto.Hash
		copy(subject[:], body[:32])
		allowed = s.actor.HandleCard(social.CardRequest{Subject: subject})

	case social.SubCodePerm:
		if len(body) < 64 {
			return nil, nil
		}
		var actorHash, resource crypto.Hash
		copy(actorHash[:], body[:32])
		copy(resource[:], body[32:64])
		allowed = s.actor.HandlePerm(social.PermissionCheck{Actor: actorHash, Resource: resource})

	case social.SubCodeTemporalRequest:
		if len(body) < 72 {
			return nil, nil
		}
		var actorHash, resource crypto.Hash
		copy(actorHash[:], body[:32])
		validUntil := int64(binary.LittleEndian.Uint64(body[32:40]))
		copy(resource[:], body[40:72])
		allowed = s.actor.HandleTemporalRequest(social.TemporalRequest{Actor: actorHash, ValidUntil: validUntil}, resource)

	default:
		return nil, nil
	}

	reply := peer.NewNetMsg(1)
	if allowed {
		reply.Body = append(reply.Body, 1)
	} else {
		reply.Body = append(reply.Body, 0)
	}
	return reply, nil
}
