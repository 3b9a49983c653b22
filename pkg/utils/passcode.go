package utils

import (
	"golang.org/x/crypto/bcrypt"
)

// HashPasscode hashes a conference passcode with bcrypt.
func HashPasscode(passcode string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(passcode), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CheckPasscode reports whether plain matches the stored hash. An empty plain never matches.
func CheckPasscode(plain, hashed string) bool {
	if plain == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain)) == nil
}
