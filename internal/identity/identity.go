// Package identity manages the daemon's single long-lived Nostr keypair,
// persisted as plaintext JSON in the state directory (spec §4.7). This is
// explicitly a development convenience; production deployments should
// source signing capability from an external signer or platform keystore.
package identity

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nbd-wtf/go-nostr"
	"github.com/nbd-wtf/go-nostr/nip19"
)

// FileName is the identity file's name within the state directory.
const FileName = "identity.json"

// Identity holds the daemon's keypair. PrivateKeyHex is the raw secret;
// PublicKeyHex is derived and cached alongside it.
type Identity struct {
	PrivateKeyHex string `json:"private_key_hex"`
	PublicKeyHex  string `json:"public_key_hex"`
}

// LoadOrCreate reads identity.json from stateDir, creating a fresh
// keypair and writing the file if it does not yet exist.
func LoadOrCreate(stateDir string) (*Identity, error) {
	path := filepath.Join(stateDir, FileName)

	data, err := os.ReadFile(path)
	if err == nil {
		var id Identity
		if err := json.Unmarshal(data, &id); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		if id.PrivateKeyHex == "" || id.PublicKeyHex == "" {
			return nil, fmt.Errorf("%s: missing key material", path)
		}
		return &id, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if err := os.MkdirAll(stateDir, 0o700); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}

	sk := nostr.GeneratePrivateKey()
	pk, err := nostr.GetPublicKey(sk)
	if err != nil {
		return nil, fmt.Errorf("derive public key: %w", err)
	}

	id := &Identity{PrivateKeyHex: sk, PublicKeyHex: pk}
	out, err := json.MarshalIndent(id, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal identity: %w", err)
	}
	if err := os.WriteFile(path, out, 0o600); err != nil {
		return nil, fmt.Errorf("write %s: %w", path, err)
	}
	return id, nil
}

// Npub returns the bech32-encoded public key, for display and the
// ready event.
func (id *Identity) Npub() (string, error) {
	return nip19.EncodePublicKey(id.PublicKeyHex)
}
