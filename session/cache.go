// ABOUTME: Ephemeral session-hint cache backed by a local Badger store
// ABOUTME: Holds {userId, userEmail, onboardingComplete} as a rebuildable hint
package session

import (
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v3"
	"github.com/google/uuid"
)

const hintKey = "session-hint"

// Hint caches the active identity. It is a hint, not a source of truth:
// losing it is recoverable via Recover, and writes are whole-object
// replacements.
type Hint struct {
	UserID             uuid.UUID `json:"user_id"`
	UserEmail          string    `json:"user_email"`
	OnboardingComplete bool      `json:"onboarding_complete"`
}

// Cache wraps a Badger kv store at an XDG cache path.
type Cache struct {
	db *badger.DB
}

// OpenCache opens (or creates) the session cache at path.
func OpenCache(path string) (*Cache, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open session cache: %w", err)
	}
	return &Cache{db: db}, nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}

// Get returns the cached hint, or nil if none is stored.
func (c *Cache) Get() (*Hint, error) {
	var hint *Hint

	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(hintKey))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			hint = &Hint{}
			return json.Unmarshal(val, hint)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read session hint: %w", err)
	}

	return hint, nil
}

// Put replaces the cached hint.
func (c *Cache) Put(hint *Hint) error {
	data, err := json.Marshal(hint)
	if err != nil {
		return fmt.Errorf("failed to encode session hint: %w", err)
	}

	err = c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(hintKey), data)
	})
	if err != nil {
		return fmt.Errorf("failed to write session hint: %w", err)
	}

	return nil
}

// Clear removes the cached hint.
func (c *Cache) Clear() error {
	err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(hintKey))
	})
	if err != nil {
		return fmt.Errorf("failed to clear session hint: %w", err)
	}
	return nil
}
