package randomness

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math/big"
)

// wordSize is the byte width of a random word
const wordSize = 32

func cryptoWords(n uint32) ([]*big.Int, error) {
	words := make([]*big.Int, n)
	buf := make([]byte, wordSize)
	for i := range words {
		if _, err := rand.Read(buf); err != nil {
			return nil, fmt.Errorf("failed to read random bytes: %w", err)
		}
		words[i] = new(big.Int).SetBytes(buf)
	}
	return words, nil
}

// ExpandSeed derives n words from a single seed as sha256(seed || i)
func ExpandSeed(seed []byte, n uint32) []*big.Int {
	words := make([]*big.Int, n)
	var idx [4]byte
	for i := range words {
		binary.BigEndian.PutUint32(idx[:], uint32(i))
		h := sha256.New()
		h.Write(seed)
		h.Write(idx[:])
		words[i] = new(big.Int).SetBytes(h.Sum(nil))
	}
	return words
}

// FixedSource always returns the same words, cycling when more are requested
type FixedSource []*big.Int

// RandomWords implements Source
func (s FixedSource) RandomWords(_ context.Context, n uint32) ([]*big.Int, error) {
	if len(s) == 0 {
		return nil, fmt.Errorf("fixed source has no words")
	}
	words := make([]*big.Int, n)
	for i := range words {
		words[i] = new(big.Int).Set(s[i%len(s)])
	}
	return words, nil
}

var (
	_ Source = CryptoSource{}
	_ Source = FixedSource(nil)
)
