// Package mlsstore is the daemon's per-identity persistence layer: a
// groups table (ids, epoch, name), a messages table and the
// staged-welcomes table (spec §3, §4.7). Group membership and MLS
// secrets are not stored here. The actual MLS cryptography — key schedule, epoch ratcheting,
// application-message encrypt/decrypt — is an external collaborator
// behind the Engine interface (see engine.go); this package only owns
// the SQLite-backed bookkeeping the core needs to route events.
//
// Grounded on the teacher's open-once/defer-Close/schema-on-open idiom
// for its SQLite-backed stores, using modernc.org/sqlite (pure Go, no
// cgo) exactly as the teacher already chose for portability.
package mlsstore

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// FileName is the MLS store's filename within the state directory —
// part of the operational contract, since peer host tooling reads it
// directly (spec §4.7).
const FileName = "mdk.sqlite"

// Group is a joined or created MLS group, keyed by its two correlated
// identifiers (spec §3).
type Group struct {
	NostrGroupID string
	MLSGroupID   string
	Epoch        int64
	Name         string
	Description  string
}

// PendingWelcome is a staged inbound invitation awaiting acceptance.
type PendingWelcome struct {
	WrapperEventID string
	WelcomeEventID string
	FromPubkey     string
	NostrGroupID   string
	MLSGroupID     string
	GroupName      string
	RawGiftwrap    []byte
}

// Store wraps the MLS store's SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if absent) the SQLite database at path and
// ensures its schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open mls store: %w", err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite: single-writer discipline

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate mls store: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	const schema = `
CREATE TABLE IF NOT EXISTS groups (
	nostr_group_id TEXT PRIMARY KEY,
	mls_group_id   TEXT NOT NULL,
	epoch          INTEGER NOT NULL DEFAULT 0,
	name           TEXT NOT NULL DEFAULT '',
	description    TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS messages (
	nostr_group_id TEXT NOT NULL,
	message_id     TEXT NOT NULL,
	from_pubkey    TEXT NOT NULL,
	content        TEXT NOT NULL,
	created_at     INTEGER NOT NULL,
	PRIMARY KEY (nostr_group_id, message_id)
);
CREATE INDEX IF NOT EXISTS idx_messages_group ON messages(nostr_group_id);

CREATE TABLE IF NOT EXISTS pending_welcomes (
	wrapper_event_id TEXT PRIMARY KEY,
	welcome_event_id TEXT NOT NULL,
	from_pubkey      TEXT NOT NULL,
	nostr_group_id   TEXT NOT NULL,
	mls_group_id     TEXT NOT NULL,
	group_name       TEXT NOT NULL DEFAULT '',
	raw_giftwrap     BLOB NOT NULL
);
`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// UpsertGroup inserts or replaces a group row.
func (s *Store) UpsertGroup(g Group) error {
	_, err := s.db.Exec(`
INSERT INTO groups (nostr_group_id, mls_group_id, epoch, name, description)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(nostr_group_id) DO UPDATE SET
	mls_group_id = excluded.mls_group_id,
	epoch = excluded.epoch,
	name = excluded.name,
	description = excluded.description
`, g.NostrGroupID, g.MLSGroupID, g.Epoch, g.Name, g.Description)
	return err
}

// GetGroup looks up a group by its nostr_group_id.
func (s *Store) GetGroup(nostrGroupID string) (*Group, bool, error) {
	var g Group
	err := s.db.QueryRow(`
SELECT nostr_group_id, mls_group_id, epoch, name, description
FROM groups WHERE nostr_group_id = ?`, nostrGroupID).
		Scan(&g.NostrGroupID, &g.MLSGroupID, &g.Epoch, &g.Name, &g.Description)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &g, true, nil
}

// ListGroups returns all groups known to the store.
func (s *Store) ListGroups() ([]Group, error) {
	rows, err := s.db.Query(`SELECT nostr_group_id, mls_group_id, epoch, name, description FROM groups`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Group
	for rows.Next() {
		var g Group
		if err := rows.Scan(&g.NostrGroupID, &g.MLSGroupID, &g.Epoch, &g.Name, &g.Description); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// InsertMessage records a decrypted inbound or outbound application
// message. Duplicate (nostr_group_id, message_id) pairs are ignored.
func (s *Store) InsertMessage(nostrGroupID, messageID, fromPubkey, content string, createdAt int64) error {
	_, err := s.db.Exec(`
INSERT OR IGNORE INTO messages (nostr_group_id, message_id, from_pubkey, content, created_at)
VALUES (?, ?, ?, ?, ?)`, nostrGroupID, messageID, fromPubkey, content, createdAt)
	return err
}

// StageWelcome records a pending welcome awaiting acceptance.
func (s *Store) StageWelcome(w PendingWelcome) error {
	_, err := s.db.Exec(`
INSERT OR REPLACE INTO pending_welcomes
(wrapper_event_id, welcome_event_id, from_pubkey, nostr_group_id, mls_group_id, group_name, raw_giftwrap)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		w.WrapperEventID, w.WelcomeEventID, w.FromPubkey, w.NostrGroupID, w.MLSGroupID, w.GroupName, w.RawGiftwrap)
	return err
}

// GetPendingWelcome looks up a staged welcome by its wrapper event id.
func (s *Store) GetPendingWelcome(wrapperEventID string) (*PendingWelcome, bool, error) {
	var w PendingWelcome
	err := s.db.QueryRow(`
SELECT wrapper_event_id, welcome_event_id, from_pubkey, nostr_group_id, mls_group_id, group_name, raw_giftwrap
FROM pending_welcomes WHERE wrapper_event_id = ?`, wrapperEventID).
		Scan(&w.WrapperEventID, &w.WelcomeEventID, &w.FromPubkey, &w.NostrGroupID, &w.MLSGroupID, &w.GroupName, &w.RawGiftwrap)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &w, true, nil
}

// ConsumeWelcome removes a staged welcome, making future accepts of the
// same wrapper_event_id report welcome_not_found (spec's idempotent
// acceptance invariant).
func (s *Store) ConsumeWelcome(wrapperEventID string) error {
	_, err := s.db.Exec(`DELETE FROM pending_welcomes WHERE wrapper_event_id = ?`, wrapperEventID)
	return err
}

// ListPendingWelcomes returns all staged welcomes.
func (s *Store) ListPendingWelcomes() ([]PendingWelcome, error) {
	rows, err := s.db.Query(`
SELECT wrapper_event_id, welcome_event_id, from_pubkey, nostr_group_id, mls_group_id, group_name, raw_giftwrap
FROM pending_welcomes`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PendingWelcome
	for rows.Next() {
		var w PendingWelcome
		if err := rows.Scan(&w.WrapperEventID, &w.WelcomeEventID, &w.FromPubkey, &w.NostrGroupID, &w.MLSGroupID, &w.GroupName, &w.RawGiftwrap); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}
