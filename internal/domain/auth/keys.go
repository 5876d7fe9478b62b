package auth

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
)

const keyIDPrefix = "key-"

// KeyStore holds the RSA signing keys loaded from the keys directory
type KeyStore struct {
	ActiveKid string
	KeySet    jwk.Set
	publicSet jwk.Set
}

// NormalizeKeyID turns "main" into "key-main"; already prefixed IDs are kept
func NormalizeKeyID(kid string) string {
	if strings.HasPrefix(kid, keyIDPrefix) {
		return kid
	}
	return keyIDPrefix + kid
}

// LoadKeys reads every private-<kid>.pem / public-<kid>.pem pair under path
func LoadKeys(path, activeKid string) (*KeyStore, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &ErrKeysDirectoryNotAccessible{Path: path, Err: err}
	}
	if !info.IsDir() {
		return nil, &ErrKeysPathNotDirectory{Path: path}
	}

	files, err := os.ReadDir(path)
	if err != nil {
		return nil, &ErrKeysDirectoryNotAccessible{Path: path, Err: err}
	}

	keySet := jwk.NewSet()
	for _, file := range files {
		name := file.Name()
		if file.IsDir() || !strings.HasPrefix(name, "private-") || filepath.Ext(name) != ".pem" {
			continue
		}

		kid := strings.TrimSuffix(strings.TrimPrefix(name, "private-"), ".pem")
		if kid == "" {
			continue
		}

		key, err := loadKeyPair(path, kid)
		if err != nil {
			return nil, err
		}
		if err := keySet.AddKey(key); err != nil {
			return nil, fmt.Errorf("failed to add key to set: %w", err)
		}
	}

	publicSet, err := jwk.PublicSetOf(keySet)
	if err != nil {
		return nil, fmt.Errorf("failed to derive public key set: %w", err)
	}

	return &KeyStore{
		ActiveKid: activeKid,
		KeySet:    keySet,
		publicSet: publicSet,
	}, nil
}

func loadKeyPair(dir, kid string) (jwk.Key, error) {
	privName := fmt.Sprintf("private-%s.pem", kid)
	priv, err := readPrivateKey(filepath.Join(dir, privName))
	if err != nil {
		return nil, &ErrInvalidKeyFile{FileName: privName, Reason: "invalid private key", Err: err}
	}

	pubName := fmt.Sprintf("public-%s.pem", kid)
	pub, err := readPublicKey(filepath.Join(dir, pubName))
	if err != nil {
		return nil, &ErrInvalidKeyFile{FileName: pubName, Reason: "invalid public key", Err: err}
	}
	if !priv.PublicKey.Equal(pub) {
		return nil, &ErrInvalidKeyFile{FileName: pubName, Reason: "public key does not match private key"}
	}

	key, err := jwk.Import(priv)
	if err != nil {
		return nil, fmt.Errorf("failed to convert private key to JWK: %w", err)
	}
	if err := key.Set(jwk.KeyIDKey, NormalizeKeyID(kid)); err != nil {
		return nil, fmt.Errorf("failed to set key ID: %w", err)
	}
	if err := key.Set(jwk.AlgorithmKey, jwa.RS256()); err != nil {
		return nil, fmt.Errorf("failed to set algorithm: %w", err)
	}
	return key, nil
}

func readPrivateKey(path string) (*rsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("no PEM block")
	}

	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("not an RSA key")
	}
	return key, nil
}

func readPublicKey(path string) (*rsa.PublicKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("no PEM block")
	}
	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	key, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("not an RSA key")
	}
	return key, nil
}

// GetActiveKey returns the private key used for signing
func (ks *KeyStore) GetActiveKey() (jwk.Key, error) {
	if ks.KeySet.Len() == 0 {
		return nil, ErrNoKeys
	}
	key, ok := ks.KeySet.LookupKeyID(NormalizeKeyID(ks.ActiveKid))
	if !ok {
		return nil, ErrUnknownKey
	}
	return key, nil
}

// JWKS returns the public half of every loaded key
func (ks *KeyStore) JWKS() jwk.Set {
	return ks.publicSet
}
