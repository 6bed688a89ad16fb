package credential

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodec_SealOpen(t *testing.T) {
	c, err := NewCodec("passphrase")
	require.NoError(t, err)

	in := Secret{Username: "bot", Token: "ghp_123"}
	blob, err := c.Seal(in)
	require.NoError(t, err)
	assert.NotContains(t, blob, "ghp_123")

	out, err := c.Open(blob)
	require.NoError(t, err)
	assert.Equal(t, in, *out)

	again, err := c.Seal(in)
	require.NoError(t, err)
	assert.NotEqual(t, blob, again, "salt and nonce are random")
}

func TestCodec_WrongKey(t *testing.T) {
	c1, _ := NewCodec("one")
	c2, _ := NewCodec("two")

	blob, err := c1.Seal(Secret{Token: "t"})
	require.NoError(t, err)

	_, err = c2.Open(blob)
	assert.ErrorIs(t, err, ErrDecryptFailed)

	_, err = c1.Open("not-base64!")
	assert.ErrorIs(t, err, ErrInvalidBlob)
}

func TestCodec_Empty(t *testing.T) {
	_, err := NewCodec("")
	assert.ErrorIs(t, err, ErrEmptyKey)

	c, _ := NewCodec("k")
	blob, err := c.Seal(Secret{})
	require.NoError(t, err)
	assert.Empty(t, blob)

	s, err := c.Open("")
	require.NoError(t, err)
	assert.Equal(t, Secret{}, *s)
}

func TestSecret_Wipe(t *testing.T) {
	s := &Secret{Token: "x", SSHKey: "y"}
	s.Wipe()
	assert.Equal(t, Secret{}, *s)
}
