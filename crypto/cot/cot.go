// Copyright © 2022 AMIS Technologies
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

// Package cot implements Batch Correlated Oblivious Transfer: λ=256
// parallel Simplest-OT instances over secp256k1 whose correlations
// Hadamard-combine to an additive sharing of a scalar product. It is
// the bottom layer consumed by package mta.
//
// This package never logs and never retries on a protocol-level
// failure, mirroring the posture of the teacher's crypto/ot package,
// which stays pure apart from its RNG draws.
package cot

import (
	"encoding/binary"
	"errors"
	"io"
	"math/big"

	"golang.org/x/crypto/sha3"

	"github.com/getamis/alice-mta/crypto/curve"
	"github.com/getamis/alice-mta/crypto/field"
)

// Lambda is the security parameter and the Batch-COT width: one
// correlated OT per bit of the receiver's scalar.
const Lambda = 256

var (
	// ErrWireFormat is returned when a setup, response, or encrypted
	// batch has the wrong number of slots, or contains a point that
	// fails to parse or does not lie on the curve.
	ErrWireFormat = errors.New("cot: invalid wire data")
	// ErrRandomness is returned when the configured randomness source
	// fails, including exceeding the bounded zero-scalar resample
	// budget in field.Random.
	ErrRandomness = errors.New("cot: randomness failure")
)

// SenderSetup is the λ-slot message the sender publishes in round 1:
// one Simplest-OT first message per bit slot.
type SenderSetup struct {
	A []*curve.Point // A[i] = y[i]*G
}

// SenderState is the sender's private continuation between init and
// completion. It is dropped (and should be zeroized) once
// SenderComplete returns.
type SenderState struct {
	a     *big.Int   // the sender's scalar correlation input
	y     []*big.Int // per-slot nonces backing A[i] = y[i]*G
	setup *SenderSetup
}

// Response is the λ-slot message the receiver publishes in round 2.
type Response struct {
	B []*curve.Point
}

// ReceiverState is the receiver's private continuation between
// response and completion.
type ReceiverState struct {
	b    *big.Int       // the receiver's scalar choice input
	bits []uint8        // bit decomposition of b, bits[i] = bit i of b
	x    []*big.Int     // per-slot nonces backing B[i]
	a    []*curve.Point // the sender's setup points, echoed for key derivation
}

// Encrypted is the λ-slot ciphertext batch the sender publishes in
// round 3, carrying the masked correlation values.
type Encrypted struct {
	E0 [][]byte // 32 bytes each
	E1 [][]byte // 32 bytes each
}

// Zeroize overwrites the sender's secret scalar material. Call it
// once SenderComplete has returned and the state is no longer needed.
func (s *SenderState) Zeroize() {
	zero(s.a)
	for _, y := range s.y {
		zero(y)
	}
}

// Zeroize overwrites the receiver's secret scalar material.
func (r *ReceiverState) Zeroize() {
	zero(r.b)
	for i := range r.bits {
		r.bits[i] = 0
	}
	for _, x := range r.x {
		zero(x)
	}
}

func zero(v *big.Int) {
	if v == nil {
		return
	}
	bs := v.Bits()
	for i := range bs {
		bs[i] = 0
	}
	v.SetInt64(0)
}

// SenderInit runs the λ Simplest-OT sender initializations for
// correlation a. a must be non-zero (spec.md §8 scenario S3); sample
// it with field.Random to satisfy that, or expect ErrRandomness if a
// reduces to zero.
func SenderInit(a *big.Int, rnd io.Reader) (*SenderState, *SenderSetup, error) {
	if field.Reduce(a).Sign() == 0 {
		return nil, nil, ErrRandomness
	}
	ys := make([]*big.Int, Lambda)
	as := make([]*curve.Point, Lambda)
	for i := 0; i < Lambda; i++ {
		y, err := field.Random(rnd)
		if err != nil {
			return nil, nil, ErrRandomness
		}
		ys[i] = y
		as[i] = curve.ScalarBaseMult(y)
	}
	setup := &SenderSetup{A: as}
	state := &SenderState{
		a:     field.Reduce(a),
		y:     ys,
		setup: setup,
	}
	return state, setup, nil
}

// ReceiverRespond decomposes b into its λ bits and returns the
// batched Bi = xi*G + ci*Ai response. setup must carry exactly Lambda
// slots, each a valid curve point. b must be non-zero (spec.md §8
// scenario S3), else ErrRandomness.
func ReceiverRespond(setup *SenderSetup, b *big.Int, rnd io.Reader) (*ReceiverState, *Response, error) {
	if field.Reduce(b).Sign() == 0 {
		return nil, nil, ErrRandomness
	}
	if setup == nil || len(setup.A) != Lambda {
		return nil, nil, ErrWireFormat
	}
	for _, a := range setup.A {
		if a == nil || !a.IsOnCurve() || a.IsIdentity() {
			return nil, nil, ErrWireFormat
		}
	}
	bReduced := field.Reduce(b)
	bits := bitDecompose(bReduced)

	xs := make([]*big.Int, Lambda)
	bs := make([]*curve.Point, Lambda)
	echoedA := make([]*curve.Point, Lambda)
	for i := 0; i < Lambda; i++ {
		x, err := field.Random(rnd)
		if err != nil {
			return nil, nil, ErrRandomness
		}
		xs[i] = x
		Bi := curve.ScalarBaseMult(x)
		if bits[i] == 1 {
			Bi = Bi.Add(setup.A[i])
		}
		bs[i] = Bi
		echoedA[i] = setup.A[i]
	}
	state := &ReceiverState{
		b:    bReduced,
		bits: bits,
		x:    xs,
		a:    echoedA,
	}
	resp := &Response{B: bs}
	return state, resp, nil
}

// SenderComplete verifies resp's shape, derives the λ OT keys, and
// returns the sender's additive share together with the masked
// ciphertext batch to send to the receiver.
//
// The sender's per-slot correlation is the bit-sliced a*2^i (spec.md
// §4.1): slot i corresponds to bit i of the receiver's scalar, so the
// recombined sum telescopes to a*b.
func SenderComplete(state *SenderState, resp *Response, rnd io.Reader) (*big.Int, *Encrypted, error) {
	if resp == nil || len(resp.B) != Lambda {
		return nil, nil, ErrWireFormat
	}
	for _, b := range resp.B {
		if b == nil || !b.IsOnCurve() {
			return nil, nil, ErrWireFormat
		}
	}

	senderShare := new(big.Int)
	e0 := make([][]byte, Lambda)
	e1 := make([][]byte, Lambda)
	two := big.NewInt(2)
	for i := 0; i < Lambda; i++ {
		slotCorrelation := field.Mul(state.a, new(big.Int).Exp(two, big.NewInt(int64(i)), nil))

		Bi := resp.B[i]
		yi := state.y[i]
		k0, err := deriveKey(i, Bi.ScalarMult(yi))
		if err != nil {
			return nil, nil, err
		}
		BiMinusAi := Bi.Sub(state.setup.A[i])
		k1, err := deriveKey(i, BiMinusAi.ScalarMult(yi))
		if err != nil {
			return nil, nil, err
		}

		si, err := field.Random(rnd)
		if err != nil {
			return nil, nil, ErrRandomness
		}
		si = field.Reduce(si)

		e0[i] = field.Xor(k0, field.Encode(field.Neg(si)))
		e1[i] = field.Xor(k1, field.Encode(field.Sub(slotCorrelation, si)))

		senderShare = field.Add(senderShare, si)
	}
	return senderShare, &Encrypted{E0: e0, E1: e1}, nil
}

// ReceiverComplete recovers the receiver's additive share from the
// ciphertext batch, selecting e1 or e0 per slot according to the bit
// of b that slot encodes. A tampered ciphertext byte silently yields
// a wrong share rather than an error (spec.md §8 scenario S5):
// detecting that is delegated to the enclosing protocol.
func ReceiverComplete(state *ReceiverState, enc *Encrypted) (*big.Int, error) {
	if enc == nil || len(enc.E0) != Lambda || len(enc.E1) != Lambda {
		return nil, ErrWireFormat
	}

	receiverShare := new(big.Int)
	for i := 0; i < Lambda; i++ {
		k, err := deriveKey(i, state.a[i].ScalarMult(state.x[i]))
		if err != nil {
			return nil, err
		}
		ct := enc.E0[i]
		if state.bits[i] == 1 {
			ct = enc.E1[i]
		}
		if len(ct) != field.EncodedLen {
			return nil, ErrWireFormat
		}
		ri, err := field.Decode(field.Xor(k, ct))
		if err != nil {
			return nil, ErrWireFormat
		}
		receiverShare = field.Add(receiverShare, ri)
	}
	return receiverShare, nil
}

// bitDecompose returns the little-endian bits of v: bits[i] is bit i
// of v as a plain 0/1 value.
func bitDecompose(v *big.Int) []uint8 {
	bits := make([]uint8, Lambda)
	for i := 0; i < Lambda; i++ {
		bits[i] = uint8(v.Bit(i))
	}
	return bits
}

// deriveKey computes H(i || point) as a 32-byte Keccak-256 digest,
// domain-separated by the big-endian slot index (spec.md §4.1).
func deriveKey(slot int, p *curve.Point) ([]byte, error) {
	enc, err := p.SerializeCompressed()
	if err != nil {
		return nil, ErrWireFormat
	}
	h := sha3.NewLegacyKeccak256()
	var idx [4]byte
	binary.BigEndian.PutUint32(idx[:], uint32(slot))
	h.Write(idx[:])
	h.Write(enc)
	return h.Sum(nil), nil
}

// VerifyProduct is a test-only helper (spec.md §4.1 "public
// verification helper") confirming senderShare+receiverShare == a*b
// mod n. It is never called from the live protocol.
func VerifyProduct(a, b, senderShare, receiverShare *big.Int) bool {
	lhs := field.Add(senderShare, receiverShare)
	rhs := field.Mul(a, b)
	return lhs.Cmp(rhs) == 0
}
