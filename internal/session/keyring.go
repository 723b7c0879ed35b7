package session

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nhle/sprintsync/internal/credential"
	"github.com/nhle/sprintsync/internal/model"
)

const sessionKey = "session"

// KeyringPersister stores the session as JSON in the credential store.
type KeyringPersister struct {
	creds *credential.Store
}

// NewKeyringPersister returns a Persister backed by creds.
func NewKeyringPersister(creds *credential.Store) *KeyringPersister {
	return &KeyringPersister{creds: creds}
}

// Load reads the stored session.
func (p *KeyringPersister) Load() (model.Session, error) {
	raw, err := p.creds.Get(sessionKey)
	if errors.Is(err, credential.ErrNotFound) {
		return model.Session{}, ErrNoSession
	}
	if err != nil {
		return model.Session{}, err
	}

	var sess model.Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return model.Session{}, fmt.Errorf("decoding stored session: %w", err)
	}
	return sess, nil
}

// Save writes the session.
func (p *KeyringPersister) Save(sess model.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	return p.creds.Set(sessionKey, string(data))
}

// Delete removes the stored session.
func (p *KeyringPersister) Delete() error {
	return p.creds.Delete(sessionKey)
}
