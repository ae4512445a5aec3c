// Package keystores locates the RSA keys that sign and verify operator tokens
package keystores

import (
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"fmt"
	"os"

	"github.com/zeptools/certgw/sec"
)

const TypeLocal = "local"

type Conf struct {
	Type          string `json:"type"`            // local
	PrivateKeyDir string `json:"private_key_dir"` // <kid>_private.pem. only needed to mint tokens
	PublicKeyDir  string `json:"public_key_dir"`  // <kid>_public.pem or jwks.json
}

var ErrUnsupportedType = errors.New("unsupported key store type")

func (c Conf) check() error {
	if c.Type != "" && c.Type != TypeLocal {
		return fmt.Errorf("%w: %q", ErrUnsupportedType, c.Type)
	}
	return nil
}

// PublicKeys loads the verification key set
func (c Conf) PublicKeys() (*sec.JWKS, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	keys, err := sec.LoadKeyDir(c.PublicKeyDir)
	if err != nil {
		return nil, err
	}
	if len(keys.Keys) == 0 {
		return nil, fmt.Errorf("no public keys in %s", c.PublicKeyDir)
	}
	return keys, nil
}

// PrivateKey loads the signing key of kid
func (c Conf) PrivateKey(kid string) (*rsa.PrivateKey, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	return sec.ReadPrivateKeyPEM(sec.PrivateKeyPath(c.PrivateKeyDir, kid))
}

// NewKeyPair generates an RSA key pair, stores both halves and returns its key id
func (c Conf) NewKeyPair(bits int) (string, error) {
	if err := c.check(); err != nil {
		return "", err
	}
	if bits < 2048 {
		bits = 2048
	}
	priv, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return "", err
	}
	kid := sec.KeyID(&priv.PublicKey)
	for _, dir := range []string{c.PrivateKeyDir, c.PublicKeyDir} {
		if err = os.MkdirAll(dir, 0o700); err != nil {
			return "", err
		}
	}
	if err = sec.WritePrivateKeyPEM(sec.PrivateKeyPath(c.PrivateKeyDir, kid), priv); err != nil {
		return "", err
	}
	if err = sec.WritePublicKeyPEM(sec.PublicKeyPath(c.PublicKeyDir, kid), &priv.PublicKey); err != nil {
		return "", err
	}
	return kid, nil
}
