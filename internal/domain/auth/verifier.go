package auth

import (
	"github.com/lestrrat-go/jwx/v3/jws"
	"github.com/lestrrat-go/jwx/v3/jwt"
)

// TokenVerifier parses and checks access tokens
type TokenVerifier interface {
	Verify(tokenString string) (*AccessTokenClaims, error)
}

// Verify checks the signature against the public key set and validates exp/iat/nbf.
// The kid header selects the key.
func (ks *KeyStore) Verify(tokenString string) (*AccessTokenClaims, error) {
	verifiedToken, err := jwt.Parse(
		[]byte(tokenString),
		jwt.WithKeySet(ks.publicSet, jws.WithInferAlgorithmFromKey(true)),
		jwt.WithValidate(true),
	)
	if err != nil {
		return nil, err
	}

	return &AccessTokenClaims{Token: verifiedToken}, nil
}
