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

// Package wire implements the exact binary layouts of the three MtA
// messages (spec.md §4.3): concatenated, unpadded, with the λ=256
// vector length fixed rather than carried on the wire. It knows
// nothing about session state machines; it only converts between
// package cot's types and bytes.
package wire

import (
	"errors"

	"github.com/getamis/alice-mta/crypto/cot"
	"github.com/getamis/alice-mta/crypto/curve"
	"github.com/getamis/alice-mta/crypto/field"
)

const (
	// SessionIDLen is the length in bytes of a session identifier.
	SessionIDLen = 32

	// Round1Len is sessionId(32) || A_i (33 bytes) * 256.
	Round1Len = SessionIDLen + cot.Lambda*curve.CompressedLen
	// Round2Len is sessionId(32) || B_i (33 bytes) * 256.
	Round2Len = SessionIDLen + cot.Lambda*curve.CompressedLen
	// Round3Len is sessionId(32) || (e0_i || e1_i) (64 bytes) * 256.
	Round3Len = SessionIDLen + cot.Lambda*2*field.EncodedLen
)

// ErrWireFormat is returned for any length mismatch or malformed
// point encoding encountered while marshaling or unmarshaling.
var ErrWireFormat = errors.New("wire: invalid wire data")

// MarshalRound1 encodes a round-1 message: the session id followed by
// the λ setup points in SEC1 compressed form.
func MarshalRound1(sessionID []byte, setup *cot.SenderSetup) ([]byte, error) {
	if len(sessionID) != SessionIDLen {
		return nil, ErrWireFormat
	}
	if len(setup.A) != cot.Lambda {
		return nil, ErrWireFormat
	}
	out := make([]byte, 0, Round1Len)
	out = append(out, sessionID...)
	for _, p := range setup.A {
		enc, err := p.SerializeCompressed()
		if err != nil {
			return nil, ErrWireFormat
		}
		out = append(out, enc...)
	}
	return out, nil
}

// UnmarshalRound1 is the inverse of MarshalRound1. Non-canonical point
// encodings are rejected by curve.ParseCompressed.
func UnmarshalRound1(data []byte) ([]byte, *cot.SenderSetup, error) {
	if len(data) != Round1Len {
		return nil, nil, ErrWireFormat
	}
	sessionID := append([]byte(nil), data[:SessionIDLen]...)
	points, err := readPoints(data[SessionIDLen:], cot.Lambda)
	if err != nil {
		return nil, nil, err
	}
	return sessionID, &cot.SenderSetup{A: points}, nil
}

// MarshalRound2 encodes a round-2 message: the session id followed by
// the λ response points in SEC1 compressed form.
func MarshalRound2(sessionID []byte, resp *cot.Response) ([]byte, error) {
	if len(sessionID) != SessionIDLen {
		return nil, ErrWireFormat
	}
	if len(resp.B) != cot.Lambda {
		return nil, ErrWireFormat
	}
	out := make([]byte, 0, Round2Len)
	out = append(out, sessionID...)
	for _, p := range resp.B {
		enc, err := p.SerializeCompressed()
		if err != nil {
			return nil, ErrWireFormat
		}
		out = append(out, enc...)
	}
	return out, nil
}

// UnmarshalRound2 is the inverse of MarshalRound2.
func UnmarshalRound2(data []byte) ([]byte, *cot.Response, error) {
	if len(data) != Round2Len {
		return nil, nil, ErrWireFormat
	}
	sessionID := append([]byte(nil), data[:SessionIDLen]...)
	points, err := readPoints(data[SessionIDLen:], cot.Lambda)
	if err != nil {
		return nil, nil, err
	}
	return sessionID, &cot.Response{B: points}, nil
}

// MarshalRound3 encodes a round-3 message: the session id followed by
// λ (e0 || e1) ciphertext pairs, 32 bytes each.
func MarshalRound3(sessionID []byte, enc *cot.Encrypted) ([]byte, error) {
	if len(sessionID) != SessionIDLen {
		return nil, ErrWireFormat
	}
	if len(enc.E0) != cot.Lambda || len(enc.E1) != cot.Lambda {
		return nil, ErrWireFormat
	}
	out := make([]byte, 0, Round3Len)
	out = append(out, sessionID...)
	for i := 0; i < cot.Lambda; i++ {
		if len(enc.E0[i]) != field.EncodedLen || len(enc.E1[i]) != field.EncodedLen {
			return nil, ErrWireFormat
		}
		out = append(out, enc.E0[i]...)
		out = append(out, enc.E1[i]...)
	}
	return out, nil
}

// UnmarshalRound3 is the inverse of MarshalRound3.
func UnmarshalRound3(data []byte) ([]byte, *cot.Encrypted, error) {
	if len(data) != Round3Len {
		return nil, nil, ErrWireFormat
	}
	sessionID := append([]byte(nil), data[:SessionIDLen]...)
	body := data[SessionIDLen:]
	e0 := make([][]byte, cot.Lambda)
	e1 := make([][]byte, cot.Lambda)
	pairLen := 2 * field.EncodedLen
	for i := 0; i < cot.Lambda; i++ {
		off := i * pairLen
		e0[i] = append([]byte(nil), body[off:off+field.EncodedLen]...)
		e1[i] = append([]byte(nil), body[off+field.EncodedLen:off+pairLen]...)
	}
	return sessionID, &cot.Encrypted{E0: e0, E1: e1}, nil
}

func readPoints(body []byte, n int) ([]*curve.Point, error) {
	points := make([]*curve.Point, n)
	for i := 0; i < n; i++ {
		off := i * curve.CompressedLen
		p, err := curve.ParseCompressed(body[off : off+curve.CompressedLen])
		if err != nil {
			return nil, ErrWireFormat
		}
		points[i] = p
	}
	return points, nil
}
