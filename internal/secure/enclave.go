// Package secure wraps memguard to keep freshly fetched credential data
// encrypted in memory between agent capture and store write.
package secure

import (
	"errors"
	"sync"

	"github.com/awnumar/memguard"
)

// Enclave holds sensitive bytes encrypted at rest in memory, mlocked where
// the platform allows it. Used for raw agent output (a new bundle) so fresh
// credentials never sit in ordinary heap memory while awaiting validation.
type Enclave struct {
	enclave *memguard.Enclave
	mu      sync.RWMutex
	sealed  bool
}

// Seal copies data into a protected memory region. The caller should zero
// its own copy afterwards.
func Seal(data []byte) *Enclave {
	return &Enclave{enclave: memguard.NewEnclave(data)}
}

// Open decrypts the enclave into a locked buffer. The caller MUST call
// Destroy() on the returned buffer when done to wipe the plaintext.
// Opening a discarded or empty enclave returns an error; memguard
// represents an empty enclave as nil and would dereference it.
func (e *Enclave) Open() (*memguard.LockedBuffer, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.sealed {
		return nil, errors.New("enclave already discarded")
	}
	if e.enclave == nil {
		return nil, errors.New("enclave holds no data")
	}
	return e.enclave.Open()
}

// Discard marks the enclave as unusable. Idempotent; the encrypted payload
// needs no explicit wipe, this only guards against accidental reuse.
func (e *Enclave) Discard() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sealed = true
}

// Purge wipes all memguard state. Call via defer in main.
func Purge() {
	memguard.Purge()
}
