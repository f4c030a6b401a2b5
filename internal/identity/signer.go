package identity

import "github.com/nbd-wtf/go-nostr"

// Signer adapts an Identity to orchestrator.IdentitySigner: it exposes
// the pubkey and a narrow signing capability without handing callers
// the raw secret key directly (spec §9 "consume signing capability
// through a narrow interface").
type Signer struct {
	id *Identity
}

// NewSigner wraps id for use as an orchestrator.IdentitySigner.
func NewSigner(id *Identity) *Signer {
	return &Signer{id: id}
}

// PubkeyHex returns the identity's hex-encoded public key.
func (s *Signer) PubkeyHex() string {
	return s.id.PublicKeyHex
}

// Sign computes ev's id and signature using the identity's secret key.
func (s *Signer) Sign(ev *nostr.Event) error {
	return ev.Sign(s.id.PrivateKeyHex)
}
