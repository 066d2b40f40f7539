package auth

import "golang.org/x/crypto/bcrypt"

// Connector tokens are stored as bcrypt digests; the plaintext only ever
// travels in the inbound webhook request.

// HashConnectorToken hashes a connector token with the configured cost.
func HashConnectorToken(token string, cost int) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(token), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// VerifyConnectorToken reports whether the presented token matches a digest.
func VerifyConnectorToken(digest, token string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(token)) == nil
}
