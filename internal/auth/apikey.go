// Package auth authenticates inbound requests against the single static
// SERVER_API_KEY the gateway is configured with. It is not a multi-tenant
// key store. GenerateKey backs the standalone keygen CLI.
package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const alphanumeric = "abcdefghijklmnopqrstuvwxyz0123456789"

// GenerateKey creates a new bearer token suitable for SERVER_API_KEY, in
// the form "gw-{32 random alphanumeric chars}".
func GenerateKey() (string, error) {
	random, err := randomString(32)
	if err != nil {
		return "", fmt.Errorf("generate random: %w", err)
	}
	return "gw-" + random, nil
}

func randomString(n int) (string, error) {
	b := make([]byte, n)
	max := big.NewInt(int64(len(alphanumeric)))
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = alphanumeric[idx.Int64()]
	}
	return string(b), nil
}
