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

// Package curve wraps secp256k1 affine point arithmetic and the SEC1
// compressed wire encoding used throughout the MtA and Batch-COT wire
// messages (spec.md §4.3).
package curve

import (
	"errors"
	"math/big"

	"github.com/btcsuite/btcd/btcec/v2"

	"github.com/getamis/alice-mta/crypto/field"
)

const (
	// CompressedLen is the length in bytes of a SEC1 compressed point.
	CompressedLen = 33
)

var (
	// ErrInvalidPoint is returned if a point is not on the curve, or a
	// compressed encoding fails to parse.
	ErrInvalidPoint = errors.New("curve: invalid point")

	curve = btcec.S256()
)

// Point is an affine secp256k1 point. The zero value (nil coordinates)
// is the group identity, the same value Identity() returns.
type Point struct {
	x *big.Int // nil for the identity element
	y *big.Int
}

// Identity returns the identity element (point at infinity).
func Identity() *Point {
	return &Point{}
}

// Generator returns the secp256k1 base point G.
func Generator() *Point {
	p := curve.Params()
	return &Point{x: p.Gx, y: p.Gy}
}

// IsIdentity reports whether p is the group identity.
func (p *Point) IsIdentity() bool {
	return p.x == nil || p.y == nil
}

// IsOnCurve reports whether p lies on secp256k1 (the identity always does).
func (p *Point) IsOnCurve() bool {
	if p.IsIdentity() {
		return true
	}
	return curve.IsOnCurve(p.x, p.y)
}

// ScalarBaseMult returns k*G.
func ScalarBaseMult(k *big.Int) *Point {
	return Generator().ScalarMult(k)
}

// ScalarMult returns k*p, reducing k mod the curve order first.
func (p *Point) ScalarMult(k *big.Int) *Point {
	kMod := field.Reduce(k)
	if p.IsIdentity() || kMod.Sign() == 0 {
		return Identity()
	}
	x, y := curve.ScalarMult(p.x, p.y, kMod.Bytes())
	return &Point{x: x, y: y}
}

// Add returns p+q.
func (p *Point) Add(q *Point) *Point {
	if p.IsIdentity() {
		return q.Copy()
	}
	if q.IsIdentity() {
		return p.Copy()
	}
	x, y := curve.Add(p.x, p.y, q.x, q.y)
	return &Point{x: x, y: y}
}

// Neg returns -p.
func (p *Point) Neg() *Point {
	if p.IsIdentity() {
		return Identity()
	}
	negY := new(big.Int).Neg(p.y)
	negY.Mod(negY, curve.Params().P)
	return &Point{x: new(big.Int).Set(p.x), y: negY}
}

// Sub returns p-q.
func (p *Point) Sub(q *Point) *Point {
	return p.Add(q.Neg())
}

// Equal reports whether p and q are the same point.
func (p *Point) Equal(q *Point) bool {
	if p.IsIdentity() || q.IsIdentity() {
		return p.IsIdentity() == q.IsIdentity()
	}
	return p.x.Cmp(q.x) == 0 && p.y.Cmp(q.y) == 0
}

// Copy returns a deep copy of p.
func (p *Point) Copy() *Point {
	if p.IsIdentity() {
		return Identity()
	}
	return &Point{x: new(big.Int).Set(p.x), y: new(big.Int).Set(p.y)}
}

// SerializeCompressed encodes p in SEC1 compressed form (33 bytes).
// The identity element has no compressed encoding and is rejected.
func (p *Point) SerializeCompressed() ([]byte, error) {
	if p.IsIdentity() {
		return nil, ErrInvalidPoint
	}
	pub, err := toBtcecPubKey(p)
	if err != nil {
		return nil, err
	}
	return pub.SerializeCompressed(), nil
}

// ParseCompressed decodes a 33-byte SEC1 compressed point, rejecting
// non-canonical encodings (bad prefix byte, off-curve x-coordinate, or
// wrong length) with ErrInvalidPoint.
func ParseCompressed(buf []byte) (*Point, error) {
	if len(buf) != CompressedLen {
		return nil, ErrInvalidPoint
	}
	pub, err := btcec.ParsePubKey(buf)
	if err != nil {
		return nil, ErrInvalidPoint
	}
	x, y := pub.X(), pub.Y()
	if !curve.IsOnCurve(x, y) {
		return nil, ErrInvalidPoint
	}
	return &Point{x: x, y: y}, nil
}

func toBtcecPubKey(p *Point) (*btcec.PublicKey, error) {
	var fx, fy btcec.FieldVal
	if overflows := fx.SetByteSlice(p.x.Bytes()); overflows {
		return nil, ErrInvalidPoint
	}
	if overflows := fy.SetByteSlice(p.y.Bytes()); overflows {
		return nil, ErrInvalidPoint
	}
	return btcec.NewPublicKey(&fx, &fy), nil
}
