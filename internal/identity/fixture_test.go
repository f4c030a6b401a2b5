package identity

import (
	"encoding/json"
	"os"
)

const (
	fixturePriv = "4e22da43418dd934373cbb38a5ab000b2e89dd2e7c08c827344b75b1ac5e329"
	fixturePub  = "c788475c0bcee7ce06d70842d4957c3ed81c36e5e7a6d7c8f12ccc15d5ca2a5"
)

func writeFixtureIdentity(path string) error {
	id := Identity{PrivateKeyHex: fixturePriv, PublicKeyHex: fixturePub}
	data, err := json.Marshal(id)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
