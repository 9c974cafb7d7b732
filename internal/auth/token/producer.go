// Package token issues and verifies the signed bearer tokens accepted by
// the API. Tokens are JWTs signed with a key from the local key store,
// with the key identifier carried in the kid header.
package token

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"math/big"
	"time"

	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v5"

	"github.com/ptetdev/ptet/internal/auth/keys"
)

// WriteClaim is the private claim that grants mutating access.
const WriteClaim = "ptet:write"

const tokenIDLength = 20

const tokenIDAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Producer builds and signs tokens. Configure it with the With* methods,
// then call Produce once per subject.
type Producer struct {
	cache *keys.Cache

	keyID      string
	issuer     string
	audience   string
	notBefore  *time.Time
	expiration *time.Time
	tokenID    string
	extra      map[string]any
}

// NewProducer creates a Producer signing with keys from cache.
func NewProducer(cache *keys.Cache) *Producer {
	return &Producer{cache: cache, extra: make(map[string]any)}
}

// WithKeyID selects the signing key. Empty means the default key.
func (p *Producer) WithKeyID(keyID string) *Producer {
	p.keyID = keyID
	return p
}

func (p *Producer) WithIssuer(issuer string) *Producer {
	p.issuer = issuer
	return p
}

func (p *Producer) WithAudience(audience string) *Producer {
	p.audience = audience
	return p
}

func (p *Producer) WithNotBefore(t time.Time) *Producer {
	p.notBefore = &t
	return p
}

func (p *Producer) WithExpiration(t time.Time) *Producer {
	p.expiration = &t
	return p
}

func (p *Producer) WithTokenID(id string) *Producer {
	p.tokenID = id
	return p
}

// WithRandomTokenID assigns a fresh random jti.
func (p *Producer) WithRandomTokenID() (*Producer, error) {
	id, err := randomTokenID()
	if err != nil {
		return nil, err
	}
	p.tokenID = id
	return p, nil
}

// AddClaim sets one private claim on the produced token.
func (p *Producer) AddClaim(name string, value any) *Producer {
	p.extra[name] = value
	return p
}

// AddClaimsJSON merges a JSON object of private claims.
func (p *Producer) AddClaimsJSON(raw []byte) error {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return errors.Wrap(err, "parse claims")
	}
	for k, v := range m {
		p.extra[k] = v
	}
	return nil
}

// Produce signs a token for subject. The issued-at claim is always set
// to the current time.
func (p *Producer) Produce(subject string) (string, error) {
	key, keyID, err := p.cache.PrivateKey(p.keyID)
	if err != nil {
		return "", err
	}
	method, err := signingMethod(key)
	if err != nil {
		return "", err
	}

	claims := jwt.MapClaims{
		"sub": subject,
		"iat": jwt.NewNumericDate(time.Now()),
	}
	if p.issuer != "" {
		claims["iss"] = p.issuer
	}
	if p.audience != "" {
		claims["aud"] = p.audience
	}
	if p.notBefore != nil {
		claims["nbf"] = jwt.NewNumericDate(*p.notBefore)
	}
	if p.expiration != nil {
		claims["exp"] = jwt.NewNumericDate(*p.expiration)
	}
	if p.tokenID != "" {
		claims["jti"] = p.tokenID
	}
	for k, v := range p.extra {
		claims[k] = v
	}

	tok := jwt.NewWithClaims(method, claims)
	tok.Header["kid"] = keyID
	signed, err := tok.SignedString(key)
	if err != nil {
		return "", errors.Wrap(err, "sign token")
	}
	return signed, nil
}

// signingMethod picks the JWT algorithm matching the key material.
// ECDSA methods are curve-bound in JWS, so the curve decides.
func signingMethod(key crypto.Signer) (jwt.SigningMethod, error) {
	switch k := key.(type) {
	case *rsa.PrivateKey:
		return jwt.SigningMethodRS512, nil
	case *ecdsa.PrivateKey:
		switch k.Curve {
		case elliptic.P256():
			return jwt.SigningMethodES256, nil
		case elliptic.P384():
			return jwt.SigningMethodES384, nil
		case elliptic.P521():
			return jwt.SigningMethodES512, nil
		}
		return nil, errors.Errorf("unsupported ec curve %s", k.Curve.Params().Name)
	default:
		return nil, errors.Errorf("unsupported key type %T", k)
	}
}

func randomTokenID() (string, error) {
	buf := make([]byte, tokenIDLength)
	max := big.NewInt(int64(len(tokenIDAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", errors.Wrap(err, "generate token id")
		}
		buf[i] = tokenIDAlphabet[n.Int64()]
	}
	return string(buf), nil
}
