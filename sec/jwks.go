package sec

import (
	"crypto/rsa"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-json-experiment/json"
	"github.com/zeptools/certgw/rw"
)

var ErrKeyNotFound = errors.New("key not found")

// JWK is an RSA signing key in JSON Web Key form
type JWK struct {
	Kty string `json:"kty"`
	Use string `json:"use"`
	Kid string `json:"kid"`
	Alg string `json:"alg"`
	N   string `json:"n"` // modulus, base64url
	E   string `json:"e"` // exponent, base64url
}

func NewJWK(kid string, pub *rsa.PublicKey) JWK {
	return JWK{
		Kty: "RSA",
		Use: "sig",
		Kid: kid,
		Alg: "RS256",
		N:   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
		E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
	}
}

func (j JWK) PublicKey() (*rsa.PublicKey, error) {
	if j.Kty != "RSA" {
		return nil, fmt.Errorf("kid %q: %w", j.Kid, ErrNotRSAKey)
	}
	n, err := base64.RawURLEncoding.DecodeString(j.N)
	if err != nil {
		return nil, fmt.Errorf("kid %q modulus: %w", j.Kid, err)
	}
	e, err := base64.RawURLEncoding.DecodeString(j.E)
	if err != nil {
		return nil, fmt.Errorf("kid %q exponent: %w", j.Kid, err)
	}
	exp := new(big.Int).SetBytes(e)
	if !exp.IsInt64() || exp.Int64() < 3 {
		return nil, fmt.Errorf("kid %q: bad exponent", j.Kid)
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(n), E: int(exp.Int64())}, nil
}

// JWKS is the set of keys accepted for operator tokens
type JWKS struct {
	Keys []JWK `json:"keys"`
}

// PublicKey returns the key named kid
func (s *JWKS) PublicKey(kid string) (*rsa.PublicKey, error) {
	for _, k := range s.Keys {
		if k.Kid == kid {
			return k.PublicKey()
		}
	}
	return nil, fmt.Errorf("kid %q: %w", kid, ErrKeyNotFound)
}

func (s *JWKS) WriteFile(path string) error {
	_, err := rw.WriteFileAtomic(path, 0o644, func(w io.Writer) error {
		return json.MarshalWrite(w, s)
	})
	return err
}

func ReadJWKSFile(path string) (*JWKS, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s JWKS
	if err = json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &s, nil
}

// LoadKeyDir collects every <kid>_public.pem of dir. Without any, it reads dir/jwks.json
func LoadKeyDir(dir string) (*JWKS, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("key directory: %w", err)
	}
	set := &JWKS{}
	for _, entry := range entries {
		kid, ok := strings.CutSuffix(entry.Name(), publicSuffix)
		if entry.IsDir() || !ok || kid == "" {
			continue
		}
		pub, err := ReadPublicKeyPEM(filepath.Join(dir, entry.Name()))
		if errors.Is(err, ErrNotRSAKey) {
			continue
		}
		if err != nil {
			return nil, err
		}
		set.Keys = append(set.Keys, NewJWK(kid, pub))
	}
	if len(set.Keys) > 0 {
		return set, nil
	}
	return ReadJWKSFile(filepath.Join(dir, "jwks.json"))
}
