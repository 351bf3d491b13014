// Copyright © 2020 AMIS Technologies
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package field implements modular arithmetic over the order of
// secp256k1, the scalar field every MtA and Batch-COT value lives in.
package field

import (
	"crypto/rand"
	"errors"
	"io"
	"math/big"

	"github.com/btcsuite/btcd/btcec/v2"
)

const (
	// EncodedLen is the length in bytes of a canonical scalar encoding.
	EncodedLen = 32

	maxSampleRetry = 256
)

var (
	// ErrZeroScalar is returned by Inverse when its input is zero mod n.
	ErrZeroScalar = errors.New("field: zero scalar")
	// ErrExceedMaxRetry is returned if uniform sampling could not avoid
	// zero within a bounded number of attempts.
	ErrExceedMaxRetry = errors.New("field: exceeded max sampling retries")

	n    = btcec.S256().N
	big0 = big.NewInt(0)
)

// Order returns the order n of secp256k1, the modulus of this field.
func Order() *big.Int {
	return new(big.Int).Set(n)
}

// Random draws a uniform element of [1, n-1] from rnd, rejecting zero.
// rnd must produce uniform bytes; crypto/rand.Reader is the default
// choice, with a deterministic source substituted only for tests
// (spec.md §5, §8 scenario 5).
func Random(rnd io.Reader) (*big.Int, error) {
	for i := 0; i < maxSampleRetry; i++ {
		k, err := rand.Int(rnd, n)
		if err != nil {
			return nil, err
		}
		if k.Cmp(big0) != 0 {
			return k, nil
		}
	}
	return nil, ErrExceedMaxRetry
}

// Add returns a+b mod n.
func Add(a, b *big.Int) *big.Int {
	return new(big.Int).Mod(new(big.Int).Add(a, b), n)
}

// Sub returns a-b mod n.
func Sub(a, b *big.Int) *big.Int {
	return new(big.Int).Mod(new(big.Int).Sub(a, b), n)
}

// Mul returns a*b mod n.
func Mul(a, b *big.Int) *big.Int {
	return new(big.Int).Mod(new(big.Int).Mul(a, b), n)
}

// Neg returns -a mod n.
func Neg(a *big.Int) *big.Int {
	return new(big.Int).Mod(new(big.Int).Neg(a), n)
}

// Inverse returns a^-1 mod n via the extended Euclidean algorithm. Used
// by the DKLS composition mta.ExecuteSigningPair and by test helpers
// (spec.md §9), never inside the live MtA/Batch-COT rounds.
func Inverse(a *big.Int) (*big.Int, error) {
	if new(big.Int).Mod(a, n).Cmp(big0) == 0 {
		return nil, ErrZeroScalar
	}
	return new(big.Int).ModInverse(a, n), nil
}

// Reduce reduces a into [0, n).
func Reduce(a *big.Int) *big.Int {
	return new(big.Int).Mod(a, n)
}

// Encode returns the canonical big-endian 32-byte encoding of a mod n.
func Encode(a *big.Int) []byte {
	out := make([]byte, EncodedLen)
	Reduce(a).FillBytes(out)
	return out
}

// Decode parses a 32-byte big-endian buffer, reducing mod n. Spec.md
// §4.1 tolerates out-of-range scalars by reduction rather than
// rejection, since they are already bounded by a 256-bit encoding.
func Decode(buf []byte) (*big.Int, error) {
	if len(buf) != EncodedLen {
		return nil, errors.New("field: encoded scalar must be 32 bytes")
	}
	return Reduce(new(big.Int).SetBytes(buf)), nil
}

// Xor returns the byte-wise XOR of two equal-length buffers. It panics
// if the lengths differ, which never happens on the fixed-size scalar
// encodings this package produces.
func Xor(a, b []byte) []byte {
	if len(a) != len(b) {
		panic("field: mismatched xor operand lengths")
	}
	out := make([]byte, len(a))
	for i := range a {
		out[i] = a[i] ^ b[i]
	}
	return out
}
