package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	bucketName = []byte("auth")
	sessionKey = []byte("session")
)

// BoltPersister keeps the AuthSession in a local bbolt file
type BoltPersister struct {
	db *bolt.DB
}

// OpenBolt opens (or creates) the state file at path
func OpenBolt(path string) (*BoltPersister, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open state file: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create auth bucket: %w", err)
	}
	return &BoltPersister{db: db}, nil
}

// Load returns the saved session, or an empty one when nothing was saved
func (p *BoltPersister) Load() (AuthSession, error) {
	var state AuthSession
	err := p.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		if b == nil {
			return nil
		}
		raw := b.Get(sessionKey)
		if raw == nil {
			return nil
		}
		return json.Unmarshal(raw, &state)
	})
	if err != nil {
		return AuthSession{}, fmt.Errorf("load auth session: %w", err)
	}
	return state, nil
}

// Save overwrites the saved session. An anonymous session deletes the record.
func (p *BoltPersister) Save(state AuthSession) error {
	return p.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketName)
		if err != nil {
			return err
		}
		if state == (AuthSession{}) {
			return b.Delete(sessionKey)
		}
		raw, err := json.Marshal(state)
		if err != nil {
			return fmt.Errorf("encode auth session: %w", err)
		}
		return b.Put(sessionKey, raw)
	})
}

// Close releases the file lock
func (p *BoltPersister) Close() error {
	return p.db.Close()
}
