// Package keys manages the signing key material used for issuing and
// verifying API tokens. Keys live on disk as PEM files grouped in
// per-key directories, with one key marked as the default signer.
package keys

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"

	"github.com/go-faster/errors"
)

// Algorithm selects the key family for newly generated pairs.
type Algorithm string

const (
	AlgorithmRSA Algorithm = "rsa"
	AlgorithmEC  Algorithm = "ec"
)

const rsaKeyBits = 2048

// ParseAlgorithm maps a user-supplied name to an Algorithm.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch Algorithm(s) {
	case AlgorithmRSA:
		return AlgorithmRSA, nil
	case AlgorithmEC:
		return AlgorithmEC, nil
	}
	return "", errors.Errorf("unknown key algorithm %q", s)
}

// Generate creates a fresh private key of the given family.
// RSA keys are 2048 bit, EC keys use the P-256 curve.
func Generate(alg Algorithm) (crypto.Signer, error) {
	switch alg {
	case AlgorithmRSA:
		key, err := rsa.GenerateKey(rand.Reader, rsaKeyBits)
		if err != nil {
			return nil, errors.Wrap(err, "generate rsa key")
		}
		return key, nil
	case AlgorithmEC:
		key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		if err != nil {
			return nil, errors.Wrap(err, "generate ec key")
		}
		return key, nil
	}
	return nil, errors.Errorf("unknown key algorithm %q", alg)
}
