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
package cot

import (
	"crypto/rand"
	"math/big"
	"testing"

	"github.com/getamis/alice-mta/crypto/field"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/ginkgo/extensions/table"
	. "github.com/onsi/gomega"
)

func TestCOT(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Batch-COT Suite")
}

func runCOT(a, b *big.Int) (senderShare, receiverShare *big.Int, err error) {
	senderState, setup, err := SenderInit(a, rand.Reader)
	if err != nil {
		return nil, nil, err
	}
	receiverState, resp, err := ReceiverRespond(setup, b, rand.Reader)
	if err != nil {
		return nil, nil, err
	}
	senderShare, enc, err := SenderComplete(senderState, resp, rand.Reader)
	if err != nil {
		return nil, nil, err
	}
	receiverShare, err = ReceiverComplete(receiverState, enc)
	if err != nil {
		return nil, nil, err
	}
	return senderShare, receiverShare, nil
}

var _ = Describe("Batch-COT", func() {
	DescribeTable("senderShare + receiverShare == a*b mod n", func(a, b *big.Int) {
		senderShare, receiverShare, err := runCOT(a, b)
		Expect(err).Should(BeNil())
		Expect(VerifyProduct(a, b, senderShare, receiverShare)).Should(BeTrue())
	},
		// spec.md §8 scenario S1
		Entry("a=2, b=3", big.NewInt(2), big.NewInt(3)),
		// spec.md §8 scenario S2
		Entry("a=n-1, b=n-1", new(big.Int).Sub(field.Order(), big.NewInt(1)), new(big.Int).Sub(field.Order(), big.NewInt(1))),
		Entry("a=1, b=n-1", big.NewInt(1), new(big.Int).Sub(field.Order(), big.NewInt(1))),
	)

	It("rejects a zero sender correlation (spec.md §8 scenario S3)", func() {
		_, _, err := SenderInit(big.NewInt(0), rand.Reader)
		Expect(err).Should(Equal(ErrRandomness))
	})

	It("rejects a zero receiver correlation (spec.md §8 scenario S3)", func() {
		_, setup, err := SenderInit(big.NewInt(7), rand.Reader)
		Expect(err).Should(BeNil())
		_, _, err = ReceiverRespond(setup, big.NewInt(0), rand.Reader)
		Expect(err).Should(Equal(ErrRandomness))
	})

	It("ReceiverRespond rejects a short setup vector", func() {
		senderState, setup, err := SenderInit(big.NewInt(3), rand.Reader)
		Expect(err).Should(BeNil())
		_ = senderState
		truncated := &SenderSetup{A: setup.A[:Lambda-1]}
		_, _, err = ReceiverRespond(truncated, big.NewInt(5), rand.Reader)
		Expect(err).Should(Equal(ErrWireFormat))
	})

	It("SenderComplete rejects a response with the wrong number of slots", func() {
		senderState, _, err := SenderInit(big.NewInt(3), rand.Reader)
		Expect(err).Should(BeNil())
		_, _, err = SenderComplete(senderState, &Response{B: nil}, rand.Reader)
		Expect(err).Should(Equal(ErrWireFormat))
	})

	It("flipping a byte of e0 breaks the receiver's recombined share (spec.md §8 scenario S5)", func() {
		a := big.NewInt(19)
		b := big.NewInt(22) // even: bit 0 of b is 0, so slot 0 reads e0
		senderState, setup, err := SenderInit(a, rand.Reader)
		Expect(err).Should(BeNil())
		receiverState, resp, err := ReceiverRespond(setup, b, rand.Reader)
		Expect(err).Should(BeNil())
		senderShare, enc, err := SenderComplete(senderState, resp, rand.Reader)
		Expect(err).Should(BeNil())

		tampered := &Encrypted{
			E0: append([][]byte(nil), enc.E0...),
			E1: append([][]byte(nil), enc.E1...),
		}
		e0Copy := append([]byte(nil), tampered.E0[0]...)
		e0Copy[0] ^= 0x01
		tampered.E0[0] = e0Copy

		receiverShare, err := ReceiverComplete(receiverState, tampered)
		Expect(err).Should(BeNil())
		Expect(VerifyProduct(a, b, senderShare, receiverShare)).Should(BeFalse())
	})

	It("Zeroize clears sender and receiver secret state", func() {
		senderState, setup, err := SenderInit(big.NewInt(9), rand.Reader)
		Expect(err).Should(BeNil())
		receiverState, _, err := ReceiverRespond(setup, big.NewInt(4), rand.Reader)
		Expect(err).Should(BeNil())

		senderState.Zeroize()
		Expect(senderState.a.Sign()).Should(Equal(0))

		receiverState.Zeroize()
		Expect(receiverState.b.Sign()).Should(Equal(0))
		for _, bit := range receiverState.bits {
			Expect(bit).Should(Equal(uint8(0)))
		}
	})
})
