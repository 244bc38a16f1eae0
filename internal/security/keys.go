package security

import (
	"crypto/rsa"
	"fmt"
	"os"

	"github.com/golang-jwt/jwt/v5"
	"gopkg.in/yaml.v3"
)

// SystemKeys is the provisioner's signing identity: an RSA key pair plus the
// key epoch timestamp the identity manager knows it by.
type SystemKeys struct {
	Timestamp  string
	PrivateKey *rsa.PrivateKey
}

type systemKeysFile struct {
	Timestamp  string `yaml:"timestamp"`
	PrivateKey string `yaml:"privateKey"`
}

// LoadSystemKeys reads the system key file (YAML: timestamp + PEM-encoded
// RSA private key).
func LoadSystemKeys(path string) (*SystemKeys, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read system keys file: %w", err)
	}

	var file systemKeysFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("failed to parse system keys file: %w", err)
	}

	if file.Timestamp == "" {
		return nil, fmt.Errorf("system keys file %s is missing the key timestamp", path)
	}

	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(file.PrivateKey))
	if err != nil {
		return nil, fmt.Errorf("failed to parse system private key: %w", err)
	}

	return &SystemKeys{Timestamp: file.Timestamp, PrivateKey: privateKey}, nil
}
