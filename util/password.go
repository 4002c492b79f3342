package util

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.org/x/crypto/argon2"
)

var (
	jwtSecretValue = getEnv("JWTSECRET", "")
	jwtSecret      = jwtSecretValue
	jwtSecretByte  = []byte(jwtSecretValue)
	jwtMutex       sync.RWMutex
)

func getEnv(key, fallback string) string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	return value
}

// SetJWTSecret allows tests or runtime code to update the JWT secret used
// for token signing. This function is thread-safe.
func SetJWTSecret(secret string) {
	jwtMutex.Lock()
	defer jwtMutex.Unlock()
	jwtSecret = secret
	jwtSecretByte = []byte(secret)
}

// GetJWTSecretByte returns a copy of the current JWT secret bytes in a thread-safe manner.
func GetJWTSecretByte() []byte {
	jwtMutex.RLock()
	defer jwtMutex.RUnlock()
	return append([]byte(nil), jwtSecretByte...)
}

const argon2Prefix = "argon2id$"

// GenerateSalt returns a random 16-byte salt, hex encoded.
func GenerateSalt() (string, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	return hex.EncodeToString(salt), nil
}

// HashPasswordArgon2 derives an argon2id hash of the password with the given salt.
func HashPasswordArgon2(password, salt string) (string, error) {
	if salt == "" {
		return "", fmt.Errorf("salt must not be empty")
	}
	key := argon2.IDKey([]byte(password), []byte(salt), 1, 64*1024, 4, 32)
	return argon2Prefix + hex.EncodeToString(key), nil
}

// HashPassword is the legacy HMAC-SHA256 hashing scheme. Kept so accounts
// created before the argon2 migration can still log in; their hashes are
// upgraded on first successful login.
func HashPassword(password string) (hashedPassword string) {
	h := hmac.New(sha256.New, GetJWTSecretByte())
	h.Write([]byte(password))
	hashedPassword = hex.EncodeToString(h.Sum(nil))
	return
}

// VerifyPassword checks the plain password against the stored hash using a
// constant-time comparison. Both argon2id and legacy HMAC hashes are accepted.
func VerifyPassword(plain, hashed, salt string) (bool, error) {
	if strings.HasPrefix(hashed, argon2Prefix) {
		expected, err := HashPasswordArgon2(plain, salt)
		if err != nil {
			return false, err
		}
		return subtle.ConstantTimeCompare([]byte(hashed), []byte(expected)) == 1, nil
	}
	return subtle.ConstantTimeCompare([]byte(hashed), []byte(HashPassword(plain))) == 1, nil
}
