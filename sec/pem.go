package sec

import (
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"path/filepath"

	"github.com/zeptools/certgw/rw"
)

var (
	ErrNoPEMBlock = errors.New("no PEM block")
	ErrNotRSAKey  = errors.New("not an RSA key")
)

const (
	privateSuffix = "_private.pem"
	publicSuffix  = "_public.pem"
)

// PrivateKeyPath is where the signing key of kid lives in dir
func PrivateKeyPath(dir string, kid string) string {
	return filepath.Join(dir, kid+privateSuffix)
}

// PublicKeyPath is where the verification key of kid lives in dir
func PublicKeyPath(dir string, kid string) string {
	return filepath.Join(dir, kid+publicSuffix)
}

// KeyID derives a stable 16 hex char id from the public key
func KeyID(pub *rsa.PublicKey) string {
	h := sha256.New()
	h.Write(pub.N.Bytes())
	h.Write(big.NewInt(int64(pub.E)).Bytes())
	return hex.EncodeToString(h.Sum(nil)[:8])
}

func writePEM(path string, perm os.FileMode, block *pem.Block) error {
	_, err := rw.WriteFileAtomic(path, perm, func(w io.Writer) error {
		return pem.Encode(w, block)
	})
	return err
}

func WritePrivateKeyPEM(path string, key *rsa.PrivateKey) error {
	return writePEM(path, 0o600, &pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
}

func WritePublicKeyPEM(path string, key *rsa.PublicKey) error {
	der, err := x509.MarshalPKIXPublicKey(key)
	if err != nil {
		return err
	}
	return writePEM(path, 0o644, &pem.Block{Type: "PUBLIC KEY", Bytes: der})
}

func readPEM(path string) (*pem.Block, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("%s: %w", path, ErrNoPEMBlock)
	}
	return block, nil
}

// ReadPrivateKeyPEM accepts PKCS#1 and PKCS#8 encodings
func ReadPrivateKeyPEM(path string) (*rsa.PrivateKey, error) {
	block, err := readPEM(path)
	if err != nil {
		return nil, err
	}
	if block.Type == "RSA PRIVATE KEY" {
		return x509.ParsePKCS1PrivateKey(block.Bytes)
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrNotRSAKey)
	}
	return rsaKey, nil
}

func ReadPublicKeyPEM(path string) (*rsa.PublicKey, error) {
	block, err := readPEM(path)
	if err != nil {
		return nil, err
	}
	key, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	rsaKey, ok := key.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrNotRSAKey)
	}
	return rsaKey, nil
}
