// Copyright (c) 2026 Zaffran Foods. All rights reserved.
// Author: platform@zaffran.shop

package sec

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
)

// # Opaque Tokens & OTPs

// GenerateSecureToken returns a cryptographically random hex string of the
// given byte length. Used for email verification and password reset tokens.
func GenerateSecureToken(byteLength int) (string, error) {
	buffer := make([]byte, byteLength)
	if _, err := rand.Read(buffer); err != nil {
		return "", fmt.Errorf("sec: failed to generate secure token: %w", err)
	}
	return hex.EncodeToString(buffer), nil
}

// GenerateOTP returns a random numeric one-time password of the given digit
// count, zero-padded on the left.
func GenerateOTP(digits int) (string, error) {
	ceiling := big.NewInt(1)
	for i := 0; i < digits; i++ {
		ceiling.Mul(ceiling, big.NewInt(10))
	}

	value, err := rand.Int(rand.Reader, ceiling)
	if err != nil {
		return "", fmt.Errorf("sec: failed to generate OTP: %w", err)
	}

	code := value.String()
	if len(code) < digits {
		code = strings.Repeat("0", digits-len(code)) + code
	}
	return code, nil
}

// HashToken returns the hex-encoded SHA-256 digest of a token.
//
// Refresh tokens and password reset tokens are never persisted raw; only
// their digest is stored, so a database leak cannot be replayed.
func HashToken(token string) string {
	digest := sha256.Sum256([]byte(token))
	return hex.EncodeToString(digest[:])
}
