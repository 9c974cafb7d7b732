package keys

import (
	"crypto"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-faster/errors"
)

const (
	keyDirPrefix    = "key_"
	privateKeyFile  = "private.pem"
	publicKeyFile   = "public.pem"
	defaultKeyFile  = "default.txt"
	privatePEMBlock = "PRIVATE KEY"
	publicPEMBlock  = "PUBLIC KEY"
)

// ErrNoDefaultKey is returned when the store holds no default marker.
var ErrNoDefaultKey = errors.New("no default key configured")

// Store reads and writes key pairs under a base directory. Each pair
// occupies key_<id>/ with private.pem and public.pem inside; default.txt
// at the base names the default signing key.
type Store struct {
	dir string
}

// NewStore opens a store rooted at dir, creating the directory if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, errors.Wrap(err, "create key directory")
	}
	return &Store{dir: dir}, nil
}

// Dir returns the store's base directory.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) keyDir(keyID string) string {
	return filepath.Join(s.dir, keyDirPrefix+keyID)
}

// CreateKeyPair writes a new pair under key_<keyID>. It refuses to
// overwrite an existing key.
func (s *Store) CreateKeyPair(keyID string, key crypto.Signer) error {
	dir := s.keyDir(keyID)
	if _, err := os.Stat(dir); err == nil {
		return errors.Errorf("key %q already exists", keyID)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return errors.Wrap(err, "create key pair directory")
	}

	privDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return errors.Wrap(err, "encode private key")
	}
	privPEM := pem.EncodeToMemory(&pem.Block{Type: privatePEMBlock, Bytes: privDER})
	if err := os.WriteFile(filepath.Join(dir, privateKeyFile), privPEM, 0o600); err != nil {
		return errors.Wrap(err, "write private key")
	}

	pubDER, err := x509.MarshalPKIXPublicKey(key.Public())
	if err != nil {
		return errors.Wrap(err, "encode public key")
	}
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: publicPEMBlock, Bytes: pubDER})
	if err := os.WriteFile(filepath.Join(dir, publicKeyFile), pubPEM, 0o644); err != nil {
		return errors.Wrap(err, "write public key")
	}
	return nil
}

// LoadPrivateKey parses the PKCS#8 private key stored for keyID.
func (s *Store) LoadPrivateKey(keyID string) (crypto.Signer, error) {
	raw, err := os.ReadFile(filepath.Join(s.keyDir(keyID), privateKeyFile))
	if err != nil {
		return nil, errors.Wrapf(err, "read private key %q", keyID)
	}
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, errors.Errorf("private key %q: no PEM block", keyID)
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, errors.Wrapf(err, "parse private key %q", keyID)
	}
	signer, ok := key.(crypto.Signer)
	if !ok {
		return nil, errors.Errorf("private key %q: unsupported key type", keyID)
	}
	return signer, nil
}

// LoadPublicKey parses the PKIX public key stored for keyID.
func (s *Store) LoadPublicKey(keyID string) (crypto.PublicKey, error) {
	raw, err := os.ReadFile(filepath.Join(s.keyDir(keyID), publicKeyFile))
	if err != nil {
		return nil, errors.Wrapf(err, "read public key %q", keyID)
	}
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, errors.Errorf("public key %q: no PEM block", keyID)
	}
	key, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, errors.Wrapf(err, "parse public key %q", keyID)
	}
	return key, nil
}

// PublicKeyPEM returns the raw PEM bytes of the public key for keyID.
func (s *Store) PublicKeyPEM(keyID string) ([]byte, error) {
	raw, err := os.ReadFile(filepath.Join(s.keyDir(keyID), publicKeyFile))
	if err != nil {
		return nil, errors.Wrapf(err, "read public key %q", keyID)
	}
	return raw, nil
}

// KeyIDs lists the identifiers of all stored key pairs, sorted by the
// directory order returned by the OS.
func (s *Store) KeyIDs() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, errors.Wrap(err, "list key directory")
	}
	var ids []string
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), keyDirPrefix) {
			continue
		}
		ids = append(ids, strings.TrimPrefix(e.Name(), keyDirPrefix))
	}
	return ids, nil
}

// MakeDefault marks keyID as the default signing key.
func (s *Store) MakeDefault(keyID string) error {
	if _, err := os.Stat(s.keyDir(keyID)); err != nil {
		return errors.Wrapf(err, "key %q", keyID)
	}
	if err := os.WriteFile(filepath.Join(s.dir, defaultKeyFile), []byte(keyID), 0o644); err != nil {
		return errors.Wrap(err, "write default key marker")
	}
	return nil
}

// DefaultKeyID reads the default key marker. ErrNoDefaultKey is returned
// when no marker exists.
func (s *Store) DefaultKeyID() (string, error) {
	raw, err := os.ReadFile(filepath.Join(s.dir, defaultKeyFile))
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNoDefaultKey
		}
		return "", errors.Wrap(err, "read default key marker")
	}
	id := strings.TrimSpace(string(raw))
	if id == "" {
		return "", ErrNoDefaultKey
	}
	return id, nil
}
