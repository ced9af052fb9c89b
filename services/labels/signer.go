package labels

import (
	"bytes"
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"

	"filippo.io/age"
	"github.com/btcsuite/btcutil/bech32"
)

const (
	EnvSecretKey = "ASSETD_LABELS_SECRET_KEY"
	EnvPublicKey = "ASSETD_LABELS_PUBLIC_KEY"

	ageSecretHRP = "age-secret-key-"
)

// Signer signs export manifests with an Ed25519 key whose seed is an age
// X25519 secret key. A signer built from a public key alone can only verify.
type Signer struct {
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey
	recipient  string
}

// SignerFromEnv reads the label signing keys from the environment. It returns
// nil, nil when neither is set.
func SignerFromEnv() (*Signer, error) {
	secret := strings.TrimSpace(os.Getenv(EnvSecretKey))
	public := strings.TrimSpace(os.Getenv(EnvPublicKey))
	if secret == "" && public == "" {
		return nil, nil
	}
	return NewSigner(secret, public)
}

// NewSigner builds a signer from an age secret key, a base64 Ed25519 public
// key, or both. When both are given they must belong together.
func NewSigner(secret, public string) (*Signer, error) {
	var s Signer

	if secret != "" {
		seed, err := seedFromAgeKey(secret)
		if err != nil {
			return nil, fmt.Errorf("parse secret key: %w", err)
		}
		s.privateKey = ed25519.NewKeyFromSeed(seed)
		s.publicKey = s.privateKey.Public().(ed25519.PublicKey)

		identity, err := age.ParseX25519Identity(secret)
		if err != nil {
			return nil, fmt.Errorf("parse age identity: %w", err)
		}
		s.recipient = identity.Recipient().String()
	}

	if public != "" {
		decoded, err := decodePublicKey(public)
		if err != nil {
			return nil, err
		}
		if s.publicKey != nil && !bytes.Equal(s.publicKey, decoded) {
			return nil, errors.New("public key does not match secret key")
		}
		s.publicKey = decoded
	}

	if s.publicKey == nil {
		return nil, errors.New("a secret or public key is required")
	}
	return &s, nil
}

// Sign returns the base64 signature of payload.
func (s *Signer) Sign(payload []byte) (string, error) {
	if s == nil || len(s.privateKey) == 0 {
		return "", errors.New("signer has no secret key")
	}
	return base64.StdEncoding.EncodeToString(ed25519.Sign(s.privateKey, payload)), nil
}

// Verify checks signature over payload. A nil signer trusts the key embedded
// in the manifest; otherwise the embedded key must match the signer's.
func (s *Signer) Verify(payload []byte, signature, embeddedKey string) error {
	sig, err := base64.StdEncoding.DecodeString(strings.TrimSpace(signature))
	if err != nil {
		return fmt.Errorf("decode signature: %w", err)
	}
	if len(sig) != ed25519.SignatureSize {
		return fmt.Errorf("invalid signature length %d", len(sig))
	}

	var key ed25519.PublicKey
	if s != nil {
		key = s.publicKey
	}
	if embeddedKey != "" {
		embedded, err := decodePublicKey(embeddedKey)
		if err != nil {
			return err
		}
		if key != nil && !bytes.Equal(key, embedded) {
			return errors.New("manifest signed by unexpected key")
		}
		key = embedded
	}
	if key == nil {
		return errors.New("no public key available for verification")
	}
	if !ed25519.Verify(key, payload, sig) {
		return errors.New("signature verification failed")
	}
	return nil
}

func (s *Signer) PublicKeyBase64() string {
	if s == nil || len(s.publicKey) == 0 {
		return ""
	}
	return base64.StdEncoding.EncodeToString(s.publicKey)
}

// Recipient is the age recipient matching the secret key, if any.
func (s *Signer) Recipient() string {
	if s == nil {
		return ""
	}
	return s.recipient
}

func (s *Signer) canSign() bool {
	return s != nil && len(s.privateKey) > 0
}

func decodePublicKey(raw string) (ed25519.PublicKey, error) {
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("decode public key: %w", err)
	}
	if len(decoded) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("public key must be %d bytes, got %d", ed25519.PublicKeySize, len(decoded))
	}
	return ed25519.PublicKey(decoded), nil
}

func seedFromAgeKey(raw string) ([]byte, error) {
	hrp, data, err := bech32.Decode(raw)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(hrp, ageSecretHRP) {
		return nil, fmt.Errorf("unexpected hrp %q", hrp)
	}
	seed, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return nil, err
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("unexpected seed length %d", len(seed))
	}
	return seed, nil
}
