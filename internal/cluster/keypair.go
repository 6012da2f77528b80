package cluster

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"

	"golang.org/x/crypto/ssh"
)

// GenerateKeyPair produces a fresh RSA keypair for a new cluster, PEM-
// encoded for the private half and authorized-keys-encoded for the public
// half, the pair exchanged with every host that joins so remote-exec never
// needs per-host credentials.
func GenerateKeyPair(bits int) (privatePEM, publicAuthorizedKey string, err error) {
	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return "", "", fmt.Errorf("generating cluster keypair: %w", err)
	}

	block := &pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	}
	privatePEM = string(pem.EncodeToMemory(block))

	pub, err := ssh.NewPublicKey(&key.PublicKey)
	if err != nil {
		return "", "", fmt.Errorf("deriving public key: %w", err)
	}
	publicAuthorizedKey = string(ssh.MarshalAuthorizedKey(pub))

	return privatePEM, publicAuthorizedKey, nil
}
