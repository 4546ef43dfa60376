package auth

import "golang.org/x/crypto/bcrypt"

// HashPassword returns a salted bcrypt digest of the plaintext. The salt is
// random per call, so hashing the same password twice yields different digests.
func HashPassword(pwd string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether plaintext matches the stored digest.
// A malformed digest counts as a mismatch.
func CheckPassword(pwd, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(pwd)) == nil
}
