package mlsstore

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// PlaceholderEngine is a deterministic, in-memory stand-in for the real
// MLS library that this core treats as an external collaborator (spec
// §1, §6: "the specifics of the underlying MLS library" are out of
// scope). It performs no cryptography beyond minting spec-shaped group
// identifiers — "encryption" prepends an "enc:<group>:<kind>:" text
// tag to the plaintext — so it lets cmd/pika boot a complete daemon and
// exercise every group/message code path without depending on an
// unavailable third-party MLS implementation. A production deployment
// swaps this for a real Engine behind the same interface; nothing
// above this package needs to change.
type PlaceholderEngine struct {
	nextGroupSeq uint64
}

// NewPlaceholderEngine returns a ready-to-use PlaceholderEngine.
func NewPlaceholderEngine() *PlaceholderEngine {
	return &PlaceholderEngine{}
}

// mintGroupID derives a 32-byte-hex identifier from a monotonic
// counter, matching spec §3's "nostr_group_id (external routing key,
// 32 bytes hex)" shape even though this engine has no real MLS key
// schedule to derive one from.
func (f *PlaceholderEngine) mintGroupID() string {
	f.nextGroupSeq++
	var seed [8]byte
	binary.BigEndian.PutUint64(seed[:], f.nextGroupSeq)
	sum := blake2b.Sum256(seed[:])
	return hex.EncodeToString(sum[:])
}

func (f *PlaceholderEngine) BuildKeyPackage() ([]byte, error) {
	return []byte("placeholder-keypackage"), nil
}

func (f *PlaceholderEngine) ParseKeyPackage(data []byte) (KeyPackageHandle, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("placeholder engine: empty key package")
	}
	return string(data), nil
}

func (f *PlaceholderEngine) CreateGroup(peers []KeyPackageHandle) (string, int64, [][]byte, error) {
	mlsGroupID := f.mintGroupID()
	welcomes := make([][]byte, len(peers))
	for i := range peers {
		welcomes[i] = []byte("placeholder-welcome-" + mlsGroupID)
	}
	return mlsGroupID, 1, welcomes, nil
}

func (f *PlaceholderEngine) ProcessWelcome(raw []byte) (string, string, int64, string, error) {
	if len(raw) == 0 {
		return "", "", 0, "", fmt.Errorf("placeholder engine: empty welcome")
	}
	id := f.mintGroupID()
	return id, id, 1, "DM", nil
}

func (f *PlaceholderEngine) Encrypt(mlsGroupID string, innerKind int, content []byte) ([]byte, error) {
	return append([]byte(fmt.Sprintf("enc:%s:%d:", mlsGroupID, innerKind)), content...), nil
}

func (f *PlaceholderEngine) Decrypt(mlsGroupID string, ciphertext []byte) (int, []byte, int64, error) {
	prefix := fmt.Sprintf("enc:%s:", mlsGroupID)
	if len(ciphertext) < len(prefix) || string(ciphertext[:len(prefix)]) != prefix {
		return 0, nil, 0, fmt.Errorf("placeholder engine: ciphertext not for group %s", mlsGroupID)
	}
	rest := ciphertext[len(prefix):]
	var n int
	for n = 0; n < len(rest) && rest[n] != ':'; n++ {
	}
	var kind int
	fmt.Sscanf(string(rest[:n]), "%d", &kind)
	return kind, rest[n+1:], 1, nil
}
