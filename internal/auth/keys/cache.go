package keys

import (
	"crypto"
	"crypto/rand"
	"math/big"
	"sync"

	"github.com/go-faster/errors"
)

const keyIDLength = 16

const keyIDAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Cache fronts a Store with lazily loaded, process-lifetime key caching.
// The server keeps one Cache and resolves every token through it.
type Cache struct {
	store *Store

	mu        sync.RWMutex
	defaultID string
	private   map[string]crypto.Signer
	public    map[string]crypto.PublicKey
}

// Open creates a Cache over dir. When the store has no default marker
// but contains keys, the last listed key is adopted as default.
func Open(dir string) (*Cache, error) {
	store, err := NewStore(dir)
	if err != nil {
		return nil, err
	}
	c := &Cache{
		store:   store,
		private: make(map[string]crypto.Signer),
		public:  make(map[string]crypto.PublicKey),
	}
	defaultID, err := store.DefaultKeyID()
	switch {
	case err == nil:
		c.defaultID = defaultID
	case errors.Is(err, ErrNoDefaultKey):
		ids, err := store.KeyIDs()
		if err != nil {
			return nil, err
		}
		if len(ids) > 0 {
			c.defaultID = ids[len(ids)-1]
		}
	default:
		return nil, err
	}
	return c, nil
}

// Store exposes the underlying key store.
func (c *Cache) Store() *Store {
	return c.store
}

// DefaultKeyID returns the identifier of the default signing key, or an
// empty string when the store is empty.
func (c *Cache) DefaultKeyID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.defaultID
}

// CreateKey generates a fresh pair, picking a random identifier when
// keyID is empty. The first key ever created becomes the default.
func (c *Cache) CreateKey(alg Algorithm, keyID string) (string, error) {
	if keyID == "" {
		var err error
		if keyID, err = randomKeyID(); err != nil {
			return "", err
		}
	}
	key, err := Generate(alg)
	if err != nil {
		return "", err
	}
	if err := c.store.CreateKeyPair(keyID, key); err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.defaultID == "" {
		if err := c.store.MakeDefault(keyID); err != nil {
			return "", err
		}
		c.defaultID = keyID
	}
	c.private[keyID] = key
	c.public[keyID] = key.Public()
	return keyID, nil
}

// PrivateKey resolves a signer by identifier. An empty keyID selects the
// default key. The resolved identifier is returned alongside the key.
func (c *Cache) PrivateKey(keyID string) (crypto.Signer, string, error) {
	keyID, err := c.resolve(keyID)
	if err != nil {
		return nil, "", err
	}

	c.mu.RLock()
	key, ok := c.private[keyID]
	c.mu.RUnlock()
	if ok {
		return key, keyID, nil
	}

	key, err = c.store.LoadPrivateKey(keyID)
	if err != nil {
		return nil, "", err
	}
	c.mu.Lock()
	c.private[keyID] = key
	c.mu.Unlock()
	return key, keyID, nil
}

// PublicKey resolves a verification key by identifier. An empty keyID
// selects the default key.
func (c *Cache) PublicKey(keyID string) (crypto.PublicKey, string, error) {
	keyID, err := c.resolve(keyID)
	if err != nil {
		return nil, "", err
	}

	c.mu.RLock()
	key, ok := c.public[keyID]
	c.mu.RUnlock()
	if ok {
		return key, keyID, nil
	}

	key, err = c.store.LoadPublicKey(keyID)
	if err != nil {
		return nil, "", err
	}
	c.mu.Lock()
	c.public[keyID] = key
	c.mu.Unlock()
	return key, keyID, nil
}

// PublicKeyPEM returns the PEM encoding of a public key, resolving an
// empty keyID to the default key.
func (c *Cache) PublicKeyPEM(keyID string) ([]byte, string, error) {
	keyID, err := c.resolve(keyID)
	if err != nil {
		return nil, "", err
	}
	pem, err := c.store.PublicKeyPEM(keyID)
	if err != nil {
		return nil, "", err
	}
	return pem, keyID, nil
}

func (c *Cache) resolve(keyID string) (string, error) {
	if keyID != "" {
		return keyID, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.defaultID == "" {
		return "", ErrNoDefaultKey
	}
	return c.defaultID, nil
}

func randomKeyID() (string, error) {
	buf := make([]byte, keyIDLength)
	max := big.NewInt(int64(len(keyIDAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", errors.Wrap(err, "generate key id")
		}
		buf[i] = keyIDAlphabet[n.Int64()]
	}
	return string(buf), nil
}
