package keystores

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeptools/certgw/sec"
)

func TestKeyPairRoundTrip(t *testing.T) {
	root := t.TempDir()
	c := Conf{Type: TypeLocal, PrivateKeyDir: root + "/private", PublicKeyDir: root + "/public"}

	_, err := c.PublicKeys()
	assert.Error(t, err)

	kid, err := c.NewKeyPair(0)
	require.NoError(t, err)
	priv, err := c.PrivateKey(kid)
	require.NoError(t, err)
	keys, err := c.PublicKeys()
	require.NoError(t, err)

	now := time.Date(2024, 8, 20, 10, 0, 0, 0, time.UTC)
	token, err := sec.IssueAdminToken("certgw", "ops", priv, kid, now, time.Hour)
	require.NoError(t, err)
	claims, err := sec.ParseRSASignedToken(token, keys, "certgw", func() time.Time { return now })
	require.NoError(t, err)
	assert.Equal(t, "ops", claims.Subject)
}

func TestUnsupportedType(t *testing.T) {
	_, err := Conf{Type: "vault"}.PublicKeys()
	assert.ErrorIs(t, err, ErrUnsupportedType)
}
