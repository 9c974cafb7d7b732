package token

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"time"

	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v5"

	"github.com/ptetdev/ptet/internal/auth/keys"
)

// Verification errors. All of them mean the token must be rejected.
var (
	ErrUnknownKey       = errors.New("token signed with unknown key")
	ErrKeyMismatch      = errors.New("token key does not match expected key")
	ErrWrongAlgorithm   = errors.New("token algorithm does not match the signing key")
	ErrIssuerMismatch   = errors.New("token issuer mismatch")
	ErrAudienceMismatch = errors.New("token audience mismatch")
	ErrMissingIssuedAt  = errors.New("token has no issued-at claim")
	ErrIssuedTooEarly   = errors.New("token issued before the accepted cutoff")
	ErrMissingExpiry    = errors.New("token has no expiration claim")
	ErrLivesTooLong     = errors.New("token expiration exceeds the allowed window")
	ErrExpired          = errors.New("token is expired")
	ErrNotYetValid      = errors.New("token is not valid yet")
)

// Claims is the decoded claim set of an accepted token.
type Claims struct {
	jwt.RegisteredClaims
	// Write grants access to mutating operations.
	Write bool `json:"ptet:write"`
}

// Verifier checks token signatures and claims against local policy.
// Signature and algorithm checks are delegated to the JWT library while
// claim validation is done manually so each rule can be toggled.
type Verifier struct {
	cache *keys.Cache

	expectKeyID   string
	issuer        string
	audience      string
	checkTime     bool
	maxExpiration time.Duration
	issuedAfter   *time.Time
}

// NewVerifier creates a Verifier resolving keys from cache. Time checks
// are on until DisableTimeCheck.
func NewVerifier(cache *keys.Cache) *Verifier {
	return &Verifier{cache: cache, checkTime: true}
}

// ExpectKeyID pins verification to a single key identifier.
func (v *Verifier) ExpectKeyID(keyID string) *Verifier {
	v.expectKeyID = keyID
	return v
}

// ExpectIssuer requires an exact iss claim.
func (v *Verifier) ExpectIssuer(issuer string) *Verifier {
	v.issuer = issuer
	return v
}

// ExpectAudience requires audience to appear in the aud claim.
func (v *Verifier) ExpectAudience(audience string) *Verifier {
	v.audience = audience
	return v
}

// DisableTimeCheck skips the clock comparisons and lifts the iat/exp
// claim requirement. The max-expiration and issued-after rules still
// apply when configured.
func (v *Verifier) DisableTimeCheck() *Verifier {
	v.checkTime = false
	return v
}

// WithMaxExpiration rejects tokens whose exp lies more than d after iat.
// Both claims become mandatory.
func (v *Verifier) WithMaxExpiration(d time.Duration) *Verifier {
	v.maxExpiration = d
	return v
}

// MustBeIssuedAfter rejects tokens issued at or before t.
func (v *Verifier) MustBeIssuedAfter(t time.Time) *Verifier {
	v.issuedAfter = &t
	return v
}

// Verify checks raw and returns its claims and the signing key ID.
func (v *Verifier) Verify(raw string) (*Claims, string, error) {
	var keyID string
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if v.expectKeyID != "" && kid != v.expectKeyID {
			return nil, ErrKeyMismatch
		}
		key, resolved, err := v.cache.PublicKey(kid)
		if err != nil {
			return nil, errors.Wrap(ErrUnknownKey, err.Error())
		}
		// The key decides the algorithm, same as on the signing side.
		// Anything else, including a weaker digest for the same key
		// family, is rejected.
		expected, err := verifyMethod(key)
		if err != nil {
			return nil, err
		}
		if t.Method.Alg() != expected.Alg() {
			return nil, ErrWrongAlgorithm
		}
		keyID = resolved
		return key, nil
	},
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return nil, "", errors.Wrap(err, "parse token")
	}
	if err := v.validate(claims); err != nil {
		return nil, "", err
	}
	return claims, keyID, nil
}

// verifyMethod is the public-key counterpart of signingMethod.
func verifyMethod(key crypto.PublicKey) (jwt.SigningMethod, error) {
	switch k := key.(type) {
	case *rsa.PublicKey:
		return jwt.SigningMethodRS512, nil
	case *ecdsa.PublicKey:
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

func (v *Verifier) validate(claims *Claims) error {
	now := time.Now()

	if v.issuer != "" && claims.Issuer != v.issuer {
		return ErrIssuerMismatch
	}
	if v.audience != "" {
		found := false
		for _, aud := range claims.Audience {
			if aud == v.audience {
				found = true
				break
			}
		}
		if !found {
			return ErrAudienceMismatch
		}
	}

	if v.issuedAfter != nil {
		if claims.IssuedAt == nil {
			return ErrMissingIssuedAt
		}
		if !claims.IssuedAt.After(*v.issuedAfter) {
			return ErrIssuedTooEarly
		}
	}
	if v.maxExpiration > 0 {
		if claims.IssuedAt == nil {
			return ErrMissingIssuedAt
		}
		if claims.ExpiresAt == nil {
			return ErrMissingExpiry
		}
		if claims.ExpiresAt.Sub(claims.IssuedAt.Time) > v.maxExpiration {
			return ErrLivesTooLong
		}
	}

	if v.checkTime {
		if claims.IssuedAt == nil {
			return ErrMissingIssuedAt
		}
		if claims.ExpiresAt == nil {
			return ErrMissingExpiry
		}
		if now.After(claims.ExpiresAt.Time) {
			return ErrExpired
		}
		if claims.NotBefore != nil && now.Before(claims.NotBefore.Time) {
			return ErrNotYetValid
		}
	}
	return nil
}
