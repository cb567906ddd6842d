package ports

// EncryptionService encrypts secrets at rest
type EncryptionService interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)

	// Digest returns a deterministic keyed hash usable as a lookup key
	Digest(value string) string
}

// TokenSealer prepares access tokens for storage
type TokenSealer interface {
	Seal(token string) (ciphertext string, digest string, err error)
	Open(ciphertext string) (string, error)
	Digest(token string) string
}
