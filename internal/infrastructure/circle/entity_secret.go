package circle

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// ErrNoEntitySecret is returned when neither a raw entity secret nor a registered ciphertext is configured.
var ErrNoEntitySecret = errors.New("no entity secret or entity secret ciphertext configured")

// PublicKeyFetcher returns the PEM-encoded entity public key.
type PublicKeyFetcher func(ctx context.Context) (string, error)

// EntitySecretSealer produces the entitySecretCiphertext required on every mutating custody request.
// With a raw secret it encrypts a fresh ciphertext per call (RSA-OAEP, SHA-256) under the entity public key,
// which is fetched once. Without one it falls back to the pre-registered static ciphertext.
type EntitySecretSealer struct {
	secret           []byte
	staticCiphertext string
	fetchKey         PublicKeyFetcher
	logger           *zap.Logger

	mu        sync.Mutex
	publicKey *rsa.PublicKey
}

// NewEntitySecretSealer validates the configured secret. hexSecret may be empty.
func NewEntitySecretSealer(hexSecret, staticCiphertext string, fetchKey PublicKeyFetcher, logger *zap.Logger) (*EntitySecretSealer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &EntitySecretSealer{
		staticCiphertext: strings.TrimSpace(staticCiphertext),
		fetchKey:         fetchKey,
		logger:           logger,
	}

	hexSecret = strings.TrimPrefix(strings.TrimSpace(hexSecret), "0x")
	if hexSecret != "" {
		raw, err := hex.DecodeString(hexSecret)
		if err != nil {
			return nil, fmt.Errorf("entity secret must be hex encoded: %w", err)
		}
		if len(raw) != 32 {
			return nil, fmt.Errorf("entity secret must be 32 bytes, got %d", len(raw))
		}
		s.secret = raw
	}

	switch {
	case s.secret != nil:
		logger.Info("Entity secret configured, ciphertexts are generated per request")
	case s.staticCiphertext != "":
		logger.Warn("Using pre-registered entity secret ciphertext, requests that reject ciphertext reuse will fail")
	default:
		logger.Warn("No entity secret configured, mutating custody requests will fail")
	}

	return s, nil
}

// Ciphertext returns a base64 ciphertext for one request.
func (s *EntitySecretSealer) Ciphertext(ctx context.Context) (string, error) {
	if s.secret == nil {
		if s.staticCiphertext != "" {
			return s.staticCiphertext, nil
		}
		return "", ErrNoEntitySecret
	}

	pub, err := s.loadPublicKey(ctx)
	if err != nil {
		return "", err
	}

	sealed, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, s.secret, nil)
	if err != nil {
		return "", fmt.Errorf("encrypt entity secret: %w", err)
	}
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (s *EntitySecretSealer) loadPublicKey(ctx context.Context) (*rsa.PublicKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.publicKey != nil {
		return s.publicKey, nil
	}
	if s.fetchKey == nil {
		return nil, errors.New("entity public key fetcher not configured")
	}

	pemKey, err := s.fetchKey(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch entity public key: %w", err)
	}
	pub, err := ParseRSAPublicKey(pemKey)
	if err != nil {
		return nil, err
	}

	s.publicKey = pub
	return pub, nil
}

// ParseRSAPublicKey accepts PKIX ("PUBLIC KEY") and PKCS#1 ("RSA PUBLIC KEY") PEM blocks.
func ParseRSAPublicKey(pemKey string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(strings.TrimSpace(pemKey)))
	if block == nil {
		return nil, errors.New("entity public key is not PEM encoded")
	}

	if key, err := x509.ParsePKIXPublicKey(block.Bytes); err == nil {
		rsaKey, ok := key.(*rsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("entity public key is %T, want RSA", key)
		}
		return rsaKey, nil
	}

	key, err := x509.ParsePKCS1PublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse entity public key: %w", err)
	}
	return key, nil
}
