// Package credential seals repository credentials into an opaque blob and opens them again.
// The blob layout is base64(salt[16] | nonce[24] | secretbox(json)).
package credential

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/scrypt"
)

const (
	saltSize  = 16
	nonceSize = 24
	keySize   = 32
)

var (
	ErrEmptyKey      = errors.New("credential key is empty")
	ErrInvalidBlob   = errors.New("credential blob is malformed")
	ErrDecryptFailed = errors.New("credential blob could not be decrypted")
)

// Secret is the decoded form of a repository's credentials.
type Secret struct {
	// Username is used for token auth, defaults to "token" when empty.
	Username string `json:"username,omitempty"`
	Token    string `json:"token,omitempty"`
	// SSHKey holds a PEM private key, SSHKeyPath points at one on disk.
	SSHKey        string `json:"sshKey,omitempty"`
	SSHKeyPath    string `json:"sshKeyPath,omitempty"`
	SSHPassphrase string `json:"sshPassphrase,omitempty"`
	SSHUser       string `json:"sshUser,omitempty"`
}

// Wipe clears the secret material held in memory.
func (s *Secret) Wipe() {
	if s == nil {
		return
	}
	*s = Secret{}
}

// Codec seals and opens credential blobs with a key derived from a passphrase.
type Codec struct {
	passphrase []byte
}

func NewCodec(passphrase string) (*Codec, error) {
	if passphrase == "" {
		return nil, ErrEmptyKey
	}
	return &Codec{passphrase: []byte(passphrase)}, nil
}

func (c *Codec) deriveKey(salt []byte) (*[keySize]byte, error) {
	k, err := scrypt.Key(c.passphrase, salt, 1<<15, 8, 1, keySize)
	if err != nil {
		return nil, err
	}
	var key [keySize]byte
	copy(key[:], k)
	return &key, nil
}

// Seal encodes s into an opaque blob. An empty secret seals to "".
func (c *Codec) Seal(s Secret) (string, error) {
	if s == (Secret{}) {
		return "", nil
	}

	plain, err := sonic.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("marshal credential: %w", err)
	}

	buf := make([]byte, saltSize+nonceSize)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	salt := buf[:saltSize]
	var nonce [nonceSize]byte
	copy(nonce[:], buf[saltSize:])

	key, err := c.deriveKey(salt)
	if err != nil {
		return "", fmt.Errorf("derive key: %w", err)
	}

	out := secretbox.Seal(buf, plain, &nonce, key)
	return base64.StdEncoding.EncodeToString(out), nil
}

// Open decodes a blob produced by Seal. An empty blob opens to an empty secret.
func (c *Codec) Open(blob string) (*Secret, error) {
	if blob == "" {
		return &Secret{}, nil
	}

	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil || len(raw) < saltSize+nonceSize+secretbox.Overhead {
		return nil, ErrInvalidBlob
	}

	salt := raw[:saltSize]
	var nonce [nonceSize]byte
	copy(nonce[:], raw[saltSize:saltSize+nonceSize])

	key, err := c.deriveKey(salt)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}

	plain, ok := secretbox.Open(nil, raw[saltSize+nonceSize:], &nonce, key)
	if !ok {
		return nil, ErrDecryptFailed
	}

	var s Secret
	if err := sonic.Unmarshal(plain, &s); err != nil {
		return nil, ErrInvalidBlob
	}
	return &s, nil
}
