package utils

import (
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/mr-tron/base58"
)

// SolanaPublicKeyLength is the decoded size of a Solana account address
const SolanaPublicKeyLength = 32

// GenerateID generates a random v4 UUID
func GenerateID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// IsValidSolanaAddress checks if a string is a base58 encoded 32 byte public key
func IsValidSolanaAddress(address string) bool {
	if address == "" {
		return false
	}
	decoded, err := base58.Decode(address)
	if err != nil {
		return false
	}
	return len(decoded) == SolanaPublicKeyLength
}

// CreateDetectionID creates a stable ID for a detected mint
func CreateDetectionID(source, mint, signature string) string {
	data := fmt.Sprintf("%s-%s-%s", source, mint, signature)
	hash := crypto.Keccak256Hash([]byte(data))
	return hash.Hex()
}

// ShortAddress trims an address for display
func ShortAddress(address string) string {
	if len(address) <= 12 {
		return address
	}
	return address[:6] + "..." + address[len(address)-4:]
}
