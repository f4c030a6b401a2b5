package mlsstore

// Engine abstracts the actual MLS cryptographic operations: key
// schedule, epoch ratcheting, and application-message encrypt/decrypt.
// The underlying MLS library is explicitly out of scope for this core
// (spec §1) — the core only needs these operations to route events
// and persist the resulting bookkeeping rows.
type Engine interface {
	// BuildKeyPackage returns the TLS-serialized key package bytes to
	// publish for this identity.
	BuildKeyPackage() ([]byte, error)

	// ParseKeyPackage validates a peer's published key package bytes
	// and returns an opaque handle usable by CreateGroup.
	ParseKeyPackage(data []byte) (KeyPackageHandle, error)

	// CreateGroup creates a new MLS group containing self and the
	// peers identified by the given key package handles, returning the
	// new group's identifiers, the epoch, and the giftwrap-ready
	// welcome bytes for each peer.
	CreateGroup(peers []KeyPackageHandle) (mlsGroupID string, epoch int64, welcomes [][]byte, err error)

	// ProcessWelcome applies a staged giftwrap's inner welcome message,
	// joining the group it describes.
	ProcessWelcome(raw []byte) (nostrGroupID, mlsGroupID string, epoch int64, groupName string, err error)

	// Encrypt wraps plaintext content into an MLS application message
	// for the given group.
	Encrypt(mlsGroupID string, innerKind int, content []byte) ([]byte, error)

	// Decrypt unwraps an MLS application message, returning the inner
	// event kind and plaintext content.
	Decrypt(mlsGroupID string, ciphertext []byte) (innerKind int, content []byte, epoch int64, err error)
}

// KeyPackageHandle is an opaque reference to a validated peer key
// package, produced by Engine.ParseKeyPackage and consumed by
// Engine.CreateGroup.
type KeyPackageHandle any
