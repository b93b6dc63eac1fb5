package oauthlink

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
)

// GeneratePKCE returns a fresh code verifier and its S256 challenge. The
// verifier lives in the caller's pending linking context and is presented
// again at exchange time.
func GeneratePKCE() (codeVerifier, codeChallenge string, err error) {
	b := make([]byte, 32)
	if _, err = rand.Read(b); err != nil {
		return "", "", err
	}
	codeVerifier = base64.RawURLEncoding.EncodeToString(b)
	return codeVerifier, CodeChallengeS256(codeVerifier), nil
}

// CodeChallengeS256 derives the S256 PKCE challenge for a verifier.
func CodeChallengeS256(codeVerifier string) string {
	sum := sha256.Sum256([]byte(codeVerifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// GenerateState returns a random state token for CSRF protection.
func GenerateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// GenerateNonce returns a random nonce for id-token validation.
func GenerateNonce() (string, error) {
	return GenerateState()
}
