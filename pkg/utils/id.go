package utils

import (
	"crypto/rand"
	"math/big"

	"github.com/google/uuid"
)

// UUIDGenerator issues random v4 ids, optionally prefixed.
type UUIDGenerator struct{}

func NewUUIDGenerator() UUIDGenerator {
	return UUIDGenerator{}
}

func (UUIDGenerator) NewID(prefix string) string {
	id := uuid.NewString()
	if prefix == "" {
		return id
	}
	return prefix + "_" + id
}

// CryptoRandom draws uniform integers from crypto/rand.
type CryptoRandom struct{}

func NewCryptoRandom() CryptoRandom {
	return CryptoRandom{}
}

// Intn returns a value in [0, n). It panics if n <= 0, like math/rand.
func (CryptoRandom) Intn(n int) int {
	if n <= 0 {
		panic("utils: Intn called with non-positive n")
	}
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		panic(err)
	}
	return int(v.Int64())
}

// GenerateRequestID generates a unique request ID
func GenerateRequestID() string {
	return "req_" + uuid.NewString()
}
