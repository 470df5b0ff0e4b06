// Package address validates Solana account addresses.
package address

import (
	"fmt"
	"strings"

	"github.com/mr-tron/base58"

	apperrors "github.com/wallet-performance/internal/errors"
)

const (
	// PublicKeyLength is the byte length of an ed25519 public key
	PublicKeyLength = 32

	minEncodedLength = 32
	maxEncodedLength = 44
)

// Validate checks that s is a base58 encoded 32 byte Solana public key.
// It returns an invalid address error describing the first problem found.
func Validate(s string) error {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return apperrors.NewInvalidAddressError(s, "address is empty")
	}
	if len(trimmed) < minEncodedLength || len(trimmed) > maxEncodedLength {
		return apperrors.NewInvalidAddressError(s, fmt.Sprintf("length %d out of range [%d, %d]", len(trimmed), minEncodedLength, maxEncodedLength))
	}

	decoded, err := base58.Decode(trimmed)
	if err != nil {
		return apperrors.NewInvalidAddressError(s, fmt.Sprintf("not base58: %v", err))
	}
	if len(decoded) != PublicKeyLength {
		return apperrors.NewInvalidAddressError(s, fmt.Sprintf("decodes to %d bytes, want %d", len(decoded), PublicKeyLength))
	}
	return nil
}

// Normalize trims surrounding whitespace. Base58 is case sensitive so nothing else changes.
func Normalize(s string) string {
	return strings.TrimSpace(s)
}
