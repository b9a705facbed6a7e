// Package random wraps crypto/rand for the draws that decide game
// outcomes: dice rolls, seat shuffles, starter picks and the pre-roll
// tie-break all come from here.
package random

import (
	"crypto/rand"
	"fmt"
)

// MaxRequest bounds a single request. A room needs at most one byte per
// die plus one for the face-bound draw, so this caps rooms at 199
// players with 5 dice each before a command is rejected outright.
const MaxRequest = 1000

var ErrTooLarge = fmt.Errorf("random request exceeds buffer capacity")

// Bytes returns n uniformly random bytes from the system CSPRNG.
func Bytes(n int) ([]byte, error) {
	if n <= 0 || n > MaxRequest {
		return nil, ErrTooLarge
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("rand read: %w", err)
	}
	return b, nil
}

// Intn returns a value in [0, n) reduced from a single random byte,
// matching the modulo reduction the game has always used for dice.
func Intn(n int) (int, error) {
	if n <= 0 || n > 256 {
		return 0, ErrTooLarge
	}
	b, err := Bytes(1)
	if err != nil {
		return 0, err
	}
	return int(b[0]) % n, nil
}

// Perm returns a random permutation of [0, n): each step picks the next
// element from the shrinking pool of remaining indexes.
func Perm(n int) ([]int, error) {
	bytes, err := Bytes(n)
	if err != nil {
		return nil, err
	}

	pool := make([]int, n)
	for i := range pool {
		pool[i] = i
	}

	perm := make([]int, 0, n)
	for i := 0; i < n; i++ {
		j := int(bytes[i]) % len(pool)
		perm = append(perm, pool[j])
		pool = append(pool[:j], pool[j+1:]...)
	}
	return perm, nil
}
