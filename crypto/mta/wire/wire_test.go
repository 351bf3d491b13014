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
package wire

import (
	"crypto/rand"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getamis/alice-mta/crypto/cot"
)

func sampleSessionID(t *testing.T) []byte {
	id := make([]byte, SessionIDLen)
	_, err := rand.Read(id)
	require.NoError(t, err)
	return id
}

func TestMarshalRound1Roundtrip(t *testing.T) {
	sessionID := sampleSessionID(t)
	_, setup, err := cot.SenderInit(big.NewInt(7), rand.Reader)
	require.NoError(t, err)

	data, err := MarshalRound1(sessionID, setup)
	require.NoError(t, err)
	assert.Len(t, data, Round1Len)

	gotSessionID, gotSetup, err := UnmarshalRound1(data)
	require.NoError(t, err)
	assert.Equal(t, sessionID, gotSessionID)
	require.Len(t, gotSetup.A, cot.Lambda)
	for i := range setup.A {
		assert.True(t, setup.A[i].Equal(gotSetup.A[i]))
	}
}

func TestMarshalRound2Roundtrip(t *testing.T) {
	sessionID := sampleSessionID(t)
	_, setup, err := cot.SenderInit(big.NewInt(7), rand.Reader)
	require.NoError(t, err)
	_, resp, err := cot.ReceiverRespond(setup, big.NewInt(11), rand.Reader)
	require.NoError(t, err)

	data, err := MarshalRound2(sessionID, resp)
	require.NoError(t, err)
	assert.Len(t, data, Round2Len)

	gotSessionID, gotResp, err := UnmarshalRound2(data)
	require.NoError(t, err)
	assert.Equal(t, sessionID, gotSessionID)
	require.Len(t, gotResp.B, cot.Lambda)
	for i := range resp.B {
		assert.True(t, resp.B[i].Equal(gotResp.B[i]))
	}
}

func TestMarshalRound3Roundtrip(t *testing.T) {
	sessionID := sampleSessionID(t)
	senderState, setup, err := cot.SenderInit(big.NewInt(7), rand.Reader)
	require.NoError(t, err)
	_, resp, err := cot.ReceiverRespond(setup, big.NewInt(11), rand.Reader)
	require.NoError(t, err)
	_, enc, err := cot.SenderComplete(senderState, resp, rand.Reader)
	require.NoError(t, err)

	data, err := MarshalRound3(sessionID, enc)
	require.NoError(t, err)
	assert.Len(t, data, Round3Len)

	gotSessionID, gotEnc, err := UnmarshalRound3(data)
	require.NoError(t, err)
	assert.Equal(t, sessionID, gotSessionID)
	assert.Equal(t, enc.E0, gotEnc.E0)
	assert.Equal(t, enc.E1, gotEnc.E1)
}

func TestUnmarshalRejectsWrongLength(t *testing.T) {
	_, _, err := UnmarshalRound1(make([]byte, Round1Len-1))
	assert.Equal(t, ErrWireFormat, err)

	_, _, err = UnmarshalRound2(make([]byte, Round2Len+1))
	assert.Equal(t, ErrWireFormat, err)

	_, _, err = UnmarshalRound3(make([]byte, Round3Len-33))
	assert.Equal(t, ErrWireFormat, err)
}

func TestUnmarshalRound1RejectsBadPoint(t *testing.T) {
	data := make([]byte, Round1Len)
	_, err := rand.Read(data)
	require.NoError(t, err)
	// First byte after the session id is the SEC1 prefix; 0x04 (an
	// uncompressed-form prefix) is invalid at this offset and length.
	data[SessionIDLen] = 0x04
	_, _, err = UnmarshalRound1(data)
	assert.Equal(t, ErrWireFormat, err)
}

func TestMarshalRound1RejectsShortSessionID(t *testing.T) {
	_, setup, err := cot.SenderInit(big.NewInt(7), rand.Reader)
	require.NoError(t, err)
	_, err = MarshalRound1(make([]byte, SessionIDLen-1), setup)
	assert.Equal(t, ErrWireFormat, err)
}

func TestMarshalRound3RejectsMismatchedSlotCount(t *testing.T) {
	sessionID := sampleSessionID(t)
	_, err := MarshalRound3(sessionID, &cot.Encrypted{E0: nil, E1: nil})
	assert.Equal(t, ErrWireFormat, err)
}
