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

// Package mta implements the two-party Multiplicative-to-Additive
// conversion protocol (spec.md §4.2): four messages over package
// cot's Batch-COT, with an explicit session id and Alice/Bob role
// state machines.
//
//	Alice: Idle --Round1--> AwaitingBob --Round3--> Done
//	Bob:   Idle --Round2--> AwaitingAlice --Round4--> Done
//
// A session id not matching what round 1 established fails with
// ErrSessionMismatch; calling a round out of sequence, or again after
// Done, fails with ErrProtocolState. Every operation is synchronous
// and pure apart from randomness; there is no retry inside the core,
// and a failing call leaves its state terminal (spec.md §7).
package mta

import (
	"crypto/rand"
	"errors"
	"io"
	"math/big"

	"github.com/getamis/alice-mta/crypto/cot"
	"github.com/getamis/alice-mta/crypto/field"
	"github.com/getamis/alice-mta/crypto/mta/wire"
	"github.com/getamis/alice-mta/logger"
)

var (
	// ErrWireFormat classifies a malformed message: wrong length, a
	// bad point encoding, or a COT vector of the wrong size.
	ErrWireFormat = errors.New("mta: invalid wire data")
	// ErrSessionMismatch classifies a session id that does not match
	// the one recorded at round 1.
	ErrSessionMismatch = errors.New("mta: session id mismatch")
	// ErrProtocolState classifies a round invoked on a state not in
	// its required precondition, including replay on a Done state.
	ErrProtocolState = errors.New("mta: invalid protocol state")
	// ErrRandomness classifies an RNG failure, including exhausting
	// the bounded zero-scalar resample budget.
	ErrRandomness = errors.New("mta: randomness failure")
)

// SessionIDLen is the length in bytes of a session identifier.
const SessionIDLen = wire.SessionIDLen

type alicePhase int

const (
	aliceIdle alicePhase = iota
	aliceAwaitingBob
	aliceDone
	aliceFailed
)

type bobPhase int

const (
	bobIdle bobPhase = iota
	bobAwaitingAlice
	bobDone
	bobFailed
)

// AliceState is Alice's private continuation between round 1 and
// round 3. Treat it as opaque; it is dropped after AliceRound3.
type AliceState struct {
	sessionID [SessionIDLen]byte
	phase     alicePhase
	cotState  *cot.SenderState
}

// Zeroize overwrites Alice's secret scalar material.
func (s *AliceState) Zeroize() {
	if s.cotState != nil {
		s.cotState.Zeroize()
	}
}

// BobState is Bob's private continuation between round 2 and round
// 4. Treat it as opaque; it is dropped after BobRound4.
type BobState struct {
	sessionID [SessionIDLen]byte
	phase     bobPhase
	cotState  *cot.ReceiverState
}

// Zeroize overwrites Bob's secret scalar material.
func (s *BobState) Zeroize() {
	if s.cotState != nil {
		s.cotState.Zeroize()
	}
}

// AliceRound1Msg is the message Alice sends in round 1.
type AliceRound1Msg struct {
	SessionID [SessionIDLen]byte
	Setup     *cot.SenderSetup
}

// Marshal encodes the message per spec.md §4.3 (8480 bytes).
func (m *AliceRound1Msg) Marshal() ([]byte, error) {
	data, err := wire.MarshalRound1(m.SessionID[:], m.Setup)
	if err != nil {
		return nil, ErrWireFormat
	}
	return data, nil
}

// UnmarshalAliceRound1Msg decodes a round-1 message.
func UnmarshalAliceRound1Msg(data []byte) (*AliceRound1Msg, error) {
	sessionID, setup, err := wire.UnmarshalRound1(data)
	if err != nil {
		return nil, ErrWireFormat
	}
	msg := &AliceRound1Msg{Setup: setup}
	copy(msg.SessionID[:], sessionID)
	return msg, nil
}

// BobRound2Msg is the message Bob sends in round 2.
type BobRound2Msg struct {
	SessionID [SessionIDLen]byte
	Response  *cot.Response
}

// Marshal encodes the message per spec.md §4.3 (8480 bytes).
func (m *BobRound2Msg) Marshal() ([]byte, error) {
	data, err := wire.MarshalRound2(m.SessionID[:], m.Response)
	if err != nil {
		return nil, ErrWireFormat
	}
	return data, nil
}

// UnmarshalBobRound2Msg decodes a round-2 message.
func UnmarshalBobRound2Msg(data []byte) (*BobRound2Msg, error) {
	sessionID, resp, err := wire.UnmarshalRound2(data)
	if err != nil {
		return nil, ErrWireFormat
	}
	msg := &BobRound2Msg{Response: resp}
	copy(msg.SessionID[:], sessionID)
	return msg, nil
}

// AliceRound3Msg is the message Alice sends in round 3.
type AliceRound3Msg struct {
	SessionID [SessionIDLen]byte
	Encrypted *cot.Encrypted
}

// Marshal encodes the message per spec.md §4.3 (16416 bytes).
func (m *AliceRound3Msg) Marshal() ([]byte, error) {
	data, err := wire.MarshalRound3(m.SessionID[:], m.Encrypted)
	if err != nil {
		return nil, ErrWireFormat
	}
	return data, nil
}

// UnmarshalAliceRound3Msg decodes a round-3 message.
func UnmarshalAliceRound3Msg(data []byte) (*AliceRound3Msg, error) {
	sessionID, enc, err := wire.UnmarshalRound3(data)
	if err != nil {
		return nil, ErrWireFormat
	}
	msg := &AliceRound3Msg{Encrypted: enc}
	copy(msg.SessionID[:], sessionID)
	return msg, nil
}

// AliceRound1 samples a fresh session id, runs the Batch-COT sender
// initialization for correlation a, and returns Alice's continuation
// and the round-1 message to send to Bob. a must be non-zero (spec.md
// §8 scenario S3), else ErrRandomness.
func AliceRound1(a *big.Int, rnd io.Reader) (*AliceState, *AliceRound1Msg, error) {
	var sessionID [SessionIDLen]byte
	if _, err := io.ReadFull(rnd, sessionID[:]); err != nil {
		return nil, nil, ErrRandomness
	}
	cotState, setup, err := cot.SenderInit(a, rnd)
	if err != nil {
		return nil, nil, classifyCOTErr(err)
	}
	state := &AliceState{
		sessionID: sessionID,
		phase:     aliceAwaitingBob,
		cotState:  cotState,
	}
	msg := &AliceRound1Msg{SessionID: sessionID, Setup: setup}
	logger.Logger().Debug("mta: alice round 1 complete", "sessionId", sessionID)
	return state, msg, nil
}

// BobRound2 receives Alice's round-1 message, runs the Batch-COT
// receiver response for correlation b, and returns Bob's
// continuation and the round-2 message to send back to Alice. b must
// be non-zero (spec.md §8 scenario S3), else ErrRandomness.
func BobRound2(b *big.Int, msg1 *AliceRound1Msg, rnd io.Reader) (*BobState, *BobRound2Msg, error) {
	cotState, resp, err := cot.ReceiverRespond(msg1.Setup, b, rnd)
	if err != nil {
		return nil, nil, classifyCOTErr(err)
	}
	state := &BobState{
		sessionID: msg1.SessionID,
		phase:     bobAwaitingAlice,
		cotState:  cotState,
	}
	msg := &BobRound2Msg{SessionID: msg1.SessionID, Response: resp}
	logger.Logger().Debug("mta: bob round 2 complete", "sessionId", msg1.SessionID)
	return state, msg, nil
}

// AliceRound3 consumes Bob's round-2 message, completes the
// Batch-COT sender side, and returns Alice's final additive share
// together with the round-3 message to send to Bob.
func AliceRound3(state *AliceState, msg2 *BobRound2Msg, rnd io.Reader) (*big.Int, *AliceRound3Msg, error) {
	if state.phase != aliceAwaitingBob {
		logger.Logger().Warn("mta: alice round 3 called out of sequence", "sessionId", state.sessionID)
		return nil, nil, ErrProtocolState
	}
	if state.sessionID != msg2.SessionID {
		logger.Logger().Warn("mta: alice round 3 session mismatch", "expected", state.sessionID, "got", msg2.SessionID)
		state.phase = aliceFailed
		return nil, nil, ErrSessionMismatch
	}
	aliceShare, encrypted, err := cot.SenderComplete(state.cotState, msg2.Response, rnd)
	if err != nil {
		state.phase = aliceFailed
		return nil, nil, classifyCOTErr(err)
	}
	state.cotState.Zeroize()
	state.phase = aliceDone
	msg := &AliceRound3Msg{SessionID: state.sessionID, Encrypted: encrypted}
	logger.Logger().Debug("mta: alice round 3 complete", "sessionId", state.sessionID)
	return aliceShare, msg, nil
}

// BobRound4 consumes Alice's round-3 message and completes the
// Batch-COT receiver side, returning Bob's final additive share.
func BobRound4(state *BobState, msg3 *AliceRound3Msg) (*big.Int, error) {
	if state.phase != bobAwaitingAlice {
		logger.Logger().Warn("mta: bob round 4 called out of sequence", "sessionId", state.sessionID)
		return nil, ErrProtocolState
	}
	if state.sessionID != msg3.SessionID {
		logger.Logger().Warn("mta: bob round 4 session mismatch", "expected", state.sessionID, "got", msg3.SessionID)
		state.phase = bobFailed
		return nil, ErrSessionMismatch
	}
	bobShare, err := cot.ReceiverComplete(state.cotState, msg3.Encrypted)
	if err != nil {
		state.phase = bobFailed
		return nil, classifyCOTErr(err)
	}
	state.cotState.Zeroize()
	state.phase = bobDone
	logger.Logger().Debug("mta: bob round 4 complete", "sessionId", state.sessionID)
	return bobShare, nil
}

// ExecuteMtA runs all four rounds in-process using crypto/rand as the
// randomness source: the convenience composition from spec.md §6
// (the source's executeMtA). a and b must each be non-zero; sample
// them with field.Random to guarantee that.
func ExecuteMtA(a, b *big.Int) (aliceShare, bobShare *big.Int, err error) {
	return executeMtA(a, b, rand.Reader)
}

func executeMtA(a, b *big.Int, rnd io.Reader) (aliceShare, bobShare *big.Int, err error) {
	aliceState, msg1, err := AliceRound1(a, rnd)
	if err != nil {
		return nil, nil, err
	}
	bobState, msg2, err := BobRound2(b, msg1, rnd)
	if err != nil {
		aliceState.Zeroize()
		return nil, nil, err
	}
	aliceShare, msg3, err := AliceRound3(aliceState, msg2, rnd)
	if err != nil {
		bobState.Zeroize()
		return nil, nil, err
	}
	bobShare, err = BobRound4(bobState, msg3)
	if err != nil {
		return nil, nil, err
	}
	return aliceShare, bobShare, nil
}

// VerifyMtAResult is a test helper (spec.md §6) confirming
// aliceShare+bobShare == a*b mod n.
func VerifyMtAResult(a, b, aliceShare, bobShare *big.Int) bool {
	return cot.VerifyProduct(a, b, aliceShare, bobShare)
}

// SigningPair is the result of the two MtA invocations DKLS makes per
// ECDSA signature (spec.md §1, §8 scenario S4).
type SigningPair struct {
	Alpha1, Beta1 *big.Int // additive shares of kA⁻¹·kB⁻¹
	Alpha2, Beta2 *big.Int // additive shares of (skA/kA)·(skB/kB)
}

// ExecuteSigningPair runs the two independent MtA sessions an
// enclosing DKLS signing round needs: one converting multiplicative
// shares of k⁻¹ to additive, one for sk/k (spec.md §4.4, §1). Each
// session uses its own fresh session id and Batch-COT state; this is
// a composition over the in-scope two-party core, not a new
// primitive, and does not perform the ZK consistency binding an
// enclosing signing protocol would add.
func ExecuteSigningPair(kA, skA, kB, skB *big.Int) (*SigningPair, error) {
	kAInv, err := field.Inverse(kA)
	if err != nil {
		return nil, err
	}
	kBInv, err := field.Inverse(kB)
	if err != nil {
		return nil, err
	}
	alpha1, beta1, err := ExecuteMtA(kAInv, kBInv)
	if err != nil {
		return nil, err
	}

	skOverKA := field.Mul(skA, kAInv)
	skOverKB := field.Mul(skB, kBInv)
	alpha2, beta2, err := ExecuteMtA(skOverKA, skOverKB)
	if err != nil {
		return nil, err
	}
	return &SigningPair{Alpha1: alpha1, Beta1: beta1, Alpha2: alpha2, Beta2: beta2}, nil
}

func classifyCOTErr(err error) error {
	switch {
	case errors.Is(err, cot.ErrWireFormat):
		return ErrWireFormat
	case errors.Is(err, cot.ErrRandomness):
		return ErrRandomness
	default:
		return err
	}
}
