// Package pemstore keeps ed25519 key pairs in PEM files.
package pemstore

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/ozontech/seq-registry/logger"
	"github.com/ozontech/seq-registry/pathfinder"
)

const (
	privateBlockType = "PRIVATE KEY"
	publicBlockType  = "PUBLIC KEY"
)

var (
	ErrNoPEMBlock  = errors.New("no pem block found")
	ErrKeyType     = errors.New("not an ed25519 key")
	ErrKeyMismatch = errors.New("public key does not match private key")
	ErrKeysExist   = errors.New("key files already exist")
)

type KeyPair struct {
	Private ed25519.PrivateKey
	Public  ed25519.PublicKey
}

func Generate() (KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return KeyPair{}, err
	}
	return KeyPair{Private: priv, Public: pub}, nil
}

// PublicString is the form the key takes in bonds.
func (kp KeyPair) PublicString() string {
	return base64.RawURLEncoding.EncodeToString(kp.Public)
}

// Write stores the pair, creating the config dir. Existing files are never
// overwritten.
func Write(pf pathfinder.PathFinder, kp KeyPair) error {
	if err := os.MkdirAll(pf.ConfigDir, 0o700); err != nil {
		return err
	}

	privDER, err := x509.MarshalPKCS8PrivateKey(kp.Private)
	if err != nil {
		return err
	}
	pubDER, err := x509.MarshalPKIXPublicKey(kp.Public)
	if err != nil {
		return err
	}

	if err := writePEM(pf.PrivateIdentityKey(), privateBlockType, privDER, 0o600); err != nil {
		return err
	}
	if err := writePEM(pf.PublicIdentityKey(), publicBlockType, pubDER, 0o644); err != nil {
		return err
	}

	logger.Info("keys written",
		zap.String("dir", pf.ConfigDir),
		zap.String("public_key", kp.PublicString()),
	)
	return nil
}

func writePEM(path, blockType string, der []byte, perm os.FileMode) (err error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if errors.Is(err, os.ErrExist) {
		return fmt.Errorf("%w: %s", ErrKeysExist, filepath.Base(path))
	}
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, f.Close())
	}()

	return pem.Encode(f, &pem.Block{Type: blockType, Bytes: der})
}

// Read loads the pair and checks both halves belong together.
func Read(pf pathfinder.PathFinder) (KeyPair, error) {
	privDER, err := readPEM(pf.PrivateIdentityKey(), privateBlockType)
	if err != nil {
		return KeyPair{}, err
	}
	pubDER, err := readPEM(pf.PublicIdentityKey(), publicBlockType)
	if err != nil {
		return KeyPair{}, err
	}

	privKey, err := x509.ParsePKCS8PrivateKey(privDER)
	if err != nil {
		return KeyPair{}, fmt.Errorf("parsing private key: %w", err)
	}
	priv, ok := privKey.(ed25519.PrivateKey)
	if !ok {
		return KeyPair{}, ErrKeyType
	}

	pubKey, err := x509.ParsePKIXPublicKey(pubDER)
	if err != nil {
		return KeyPair{}, fmt.Errorf("parsing public key: %w", err)
	}
	pub, ok := pubKey.(ed25519.PublicKey)
	if !ok {
		return KeyPair{}, ErrKeyType
	}

	if !pub.Equal(priv.Public()) {
		return KeyPair{}, ErrKeyMismatch
	}
	return KeyPair{Private: priv, Public: pub}, nil
}

func readPEM(path, blockType string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(data)
	if block == nil || block.Type != blockType {
		return nil, fmt.Errorf("%w: %s wants %q", ErrNoPEMBlock, filepath.Base(path), blockType)
	}
	return block.Bytes, nil
}
