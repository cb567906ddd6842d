package shopify

import (
	"fmt"

	"shopify-integration-layer/internal/ports"
)

// TokenManager encrypts access tokens before storage and derives the digest
// the access guard looks stores up by
type TokenManager struct {
	encryptionSvc ports.EncryptionService
}

// NewTokenManager creates a new token manager
func NewTokenManager(encryptionSvc ports.EncryptionService) *TokenManager {
	return &TokenManager{encryptionSvc: encryptionSvc}
}

// Seal returns the encrypted token and its lookup digest
func (tm *TokenManager) Seal(token string) (string, string, error) {
	if token == "" {
		return "", "", nil
	}
	encrypted, err := tm.encryptionSvc.Encrypt(token)
	if err != nil {
		return "", "", fmt.Errorf("failed to encrypt token: %w", err)
	}
	return encrypted, tm.encryptionSvc.Digest(token), nil
}

// Open decrypts a stored token
func (tm *TokenManager) Open(encryptedToken string) (string, error) {
	if encryptedToken == "" {
		return "", nil
	}
	token, err := tm.encryptionSvc.Decrypt(encryptedToken)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt token: %w", err)
	}
	return token, nil
}

func (tm *TokenManager) Digest(token string) string {
	return tm.encryptionSvc.Digest(token)
}
