package sec

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AdminClaims are carried by operator tokens accepted on admin routes
type AdminClaims struct {
	Scope string `json:"scope,omitempty"`
	jwt.RegisteredClaims
}

const ScopeCertificates = "certificates:admin"

// IssueAdminToken generates a jwt signed by RS256
// sub: operator identity, kid: key id of privateKey published in the key directory
func IssueAdminToken(iss string, sub string, privateKey *rsa.PrivateKey, kid string, now time.Time, expDuration time.Duration) (string, error) {
	claims := AdminClaims{
		Scope: ScopeCertificates,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    iss,
			Subject:   sub,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expDuration)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = kid
	return token.SignedString(privateKey)
}

// ParseRSASignedToken verifies signedToken against the key named by its "kid" header
func ParseRSASignedToken(signedToken string, keys *JWKS, iss string, now func() time.Time) (*AdminClaims, error) {
	claims := &AdminClaims{}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if iss != "" {
		opts = append(opts, jwt.WithIssuer(iss))
	}
	if now != nil {
		opts = append(opts, jwt.WithTimeFunc(now))
	}
	token, err := jwt.ParseWithClaims(signedToken, claims, func(token *jwt.Token) (any, error) {
		kid, _ := token.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("missing kid header")
		}
		return keys.PublicKey(kid)
	}, opts...)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Scope != ScopeCertificates {
		return nil, fmt.Errorf("scope %q not allowed", claims.Scope)
	}
	return claims, nil
}
