package issuer

import (
	"context"
	"errors"
	"io/fs"
	"path"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
	"github.com/zeptools/certgw/store"
)

// DownloadToken seals a certificate path into an opaque URL-safe token
func (i *Issuer) DownloadToken(certPath string) (string, error) {
	return i.tokens.Seal([]byte(certPath))
}

func (i *Issuer) DownloadURL(token string) string {
	return strings.TrimSuffix(i.conf.BaseURL, "/") + "/certificates/download/" + token
}

func (i *Issuer) certPath(token string) (string, error) {
	plain, err := i.tokens.Open(token)
	if err != nil {
		return "", ErrInvalidDownloadToken
	}
	p := string(plain)
	if !strings.HasPrefix(p, CertificatesDir+"/") || path.Clean(p) != p {
		return "", ErrInvalidDownloadToken
	}
	return p, nil
}

// OpenDownload returns the file name and content of an issued certificate
func (i *Issuer) OpenDownload(ctx context.Context, token string) (string, []byte, error) {
	p, err := i.certPath(token)
	if err != nil {
		return "", nil, err
	}
	if _, err = i.store.CertificateByPath(ctx, p); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", nil, ErrCertificateNotFound
		}
		return "", nil, err
	}
	data, err := i.public.read(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil, ErrCertificateNotFound
		}
		return "", nil, err
	}
	return path.Base(p), data, nil
}

// DownloadQR encodes the download URL of token as a PNG QR code
func (i *Issuer) DownloadQR(token string, size int) ([]byte, error) {
	if _, err := i.certPath(token); err != nil {
		return nil, err
	}
	if size <= 0 {
		size = 256
	}
	return qrcode.Encode(i.DownloadURL(token), qrcode.Medium, size)
}
