// Package rng implements a splittable deterministic random source.
//
// A stream is never consumed: drawing from it always yields the same
// values, and fresh randomness is obtained by splitting it into
// children. This makes every kernel call a pure function of its
// stream and lets independent chains use independent children of one
// root key.
package rng

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"math"
	"math/rand/v2"
)

// golden is the 64-bit golden ratio increment used by splitmix64.
const golden = 0x9e3779b97f4a7c15

// Stream is a splittable deterministic source of randomness.
type Stream interface {
	// Split derives n independent child streams. The result is a
	// pure function of the receiver.
	Split(n int) []Stream
	// Rand returns a new generator whose sequence depends only on
	// the stream.
	Rand() *rand.Rand
}

// Key is a stream value. It is comparable and safe to copy.
type Key [2]uint64

// splitmix64 scrambles x into a well mixed 64-bit value.
func splitmix64(x uint64) uint64 {
	x += golden
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

// New creates a root key from a seed.
func New(seed uint64) Key {
	return Key{splitmix64(seed), splitmix64(seed ^ 0xDA942042E4DD58B5)}
}

// fold derives the i-th child of k.
func (k Key) fold(i uint64) Key {
	a := splitmix64(k[0] ^ splitmix64(i+1))
	b := splitmix64((k[1] + golden*(i+1)) ^ a)
	return Key{a, b}
}

// Keys splits k into n child keys.
func (k Key) Keys(n int) []Key {
	if n < 0 {
		panic("number of keys should be >= 0")
	}
	keys := make([]Key, n)
	for i := range keys {
		keys[i] = k.fold(uint64(i))
	}
	return keys
}

// Split splits k into n child streams.
func (k Key) Split(n int) []Stream {
	keys := k.Keys(n)
	s := make([]Stream, n)
	for i, key := range keys {
		s[i] = key
	}
	return s
}

// Rand returns a PCG generator seeded by the key.
func (k Key) Rand() *rand.Rand {
	return rand.New(rand.NewPCG(k[0], k[1]))
}

// String returns the key in hexadecimal.
func (k Key) String() string {
	b, _ := k.MarshalText()
	return string(b)
}

// MarshalText encodes the key as 32 hexadecimal digits.
func (k Key) MarshalText() ([]byte, error) {
	var raw [16]byte
	binary.BigEndian.PutUint64(raw[:8], k[0])
	binary.BigEndian.PutUint64(raw[8:], k[1])
	dst := make([]byte, hex.EncodedLen(len(raw)))
	hex.Encode(dst, raw[:])
	return dst, nil
}

// UnmarshalText decodes a key produced by MarshalText.
func (k *Key) UnmarshalText(text []byte) error {
	var raw [16]byte
	if hex.DecodedLen(len(text)) != len(raw) {
		return errors.New("rng: key should be 32 hexadecimal digits")
	}
	if _, err := hex.Decode(raw[:], text); err != nil {
		return err
	}
	k[0] = binary.BigEndian.Uint64(raw[:8])
	k[1] = binary.BigEndian.Uint64(raw[8:])
	return nil
}

// Uniform returns a uniform value in [0, 1) determined by s.
func Uniform(s Stream) float64 {
	return s.Rand().Float64()
}

// Bernoulli returns true with probability p.
func Bernoulli(s Stream, p float64) bool {
	return Uniform(s) < p
}

// Normals returns n independent standard normal values determined by s.
func Normals(s Stream, n int) []float64 {
	r := s.Rand()
	x := make([]float64, n)
	for i := range x {
		x[i] = r.NormFloat64()
	}
	return x
}

// LogUniform returns the logarithm of Uniform(s), -Inf for zero.
func LogUniform(s Stream) float64 {
	u := Uniform(s)
	if u == 0 {
		return math.Inf(-1)
	}
	return math.Log(u)
}
