package utils

import "golang.org/x/crypto/bcrypt"

// Members' passwords are stored only as bcrypt hashes. Production runs
// at cost 12 (BCRYPT_COST); tests pass the library minimum to stay
// fast.

// HashPassword hashes a plaintext password at the given bcrypt cost.
func HashPassword(plain string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword reports whether plain matches the stored hash. The
// comparison is constant-time inside bcrypt.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
