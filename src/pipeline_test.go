package l1ca

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setDataBits writes value into the 1-indexed, MSB-first bit range
// [bitPos, bitPos+length) of a 24-bit NAV word data field.
func setDataBits(data uint32, bitPos, length int, value uint32) uint32 {
	shift := 24 - bitPos - length + 1
	mask := uint32((1<<length)-1) << shift
	return (data &^ mask) | ((value << shift) & mask)
}

func wordToBits(w uint32) []int {
	bits := make([]int, wordLengthBits)
	for i := 0; i < wordLengthBits; i++ {
		bits[i] = int((w >> (wordLengthBits - 1 - i)) & 1)
	}
	return bits
}

func bitsToSymbols(bits []int) []float64 {
	out := make([]float64, 0, len(bits)*SamplesPerBit)
	for _, b := range bits {
		v := -1.0
		if b == 1 {
			v = 1.0
		}
		for i := 0; i < SamplesPerBit; i++ {
			out = append(out, v)
		}
	}
	return out
}

// TestEndToEndFramerToSubframeFSMPublishesRecord drives a synthetic IQ-rate
// symbol stream encoding one full, parity-valid GPS subframe (an
// ionospheric/UTC page) through the real Framer.PushSymbol -> Word ->
// SubframeFSM.PushWord chain — not hand-built Word{Preamble: true} literals
// — and asserts Iono/UtcModel actually get published. This is the
// regression test for the framer's word-boundary misalignment bug: with
// the bug, the decoded word's first 8 bits never equal the TLM preamble
// pattern and the subframe assembler can never leave S0.
func TestEndToEndFramerToSubframeFSMPublishesRecord(t *testing.T) {
	word1Data := setDataBits(0, 1, 8, 0x8B)  // TLM preamble in bits 1-8
	word2Data := setDataBits(0, 20, 3, 4)    // HOW: subframe ID 4
	word3Data := setDataBits(0, 3, 6, 56)    // page SV ID 56 (iono/UTC page)
	datas := []uint32{word1Data, word2Data, word3Data, 0, 0, 0, 0, 0, 0, 0}

	var words [10]uint32
	prevD29, prevD30 := 0, 0
	for i, data := range datas {
		w := encodeWordForTest(data, prevD29, prevD30)
		words[i] = w
		prevD29 = int((w >> 1) & 1)
		prevD30 = int(w & 1)
	}

	var ionoGot *Iono
	var utcGot *UtcModel
	subfsm := NewSubframeFSM(0, 7, nil, func(i Iono) { ionoGot = &i }, func(u UtcModel) { utcGot = &u }, nil)
	framer := NewFramer(0, func(w Word) { subfsm.PushWord(w) })

	// Two preamble hits one subframe apart bring the framer from Idle to
	// Locked; the second hit IS word 1's own preamble.
	window := preambleSymbolWindow()
	for _, v := range window {
		framer.PushSymbol(v, 0)
	}
	filler := subframeSpacingSymbols - preambleWindowSymbols
	for i := 0; i < filler; i++ {
		sym := -1.0
		if i%2 == 0 {
			sym = 1.0
		}
		framer.PushSymbol(sym, 0)
	}
	for _, v := range window {
		framer.PushSymbol(v, 1000)
	}
	require.Equal(t, FrameLocked, framer.state)

	// Bits 9-30 of word 1 (the first 8 were the preamble just confirmed),
	// then words 2-10 in full.
	word1Bits := wordToBits(words[0])
	for _, v := range bitsToSymbols(word1Bits[8:]) {
		framer.PushSymbol(v, 2000)
	}
	for w := 1; w < 10; w++ {
		for _, v := range bitsToSymbols(wordToBits(words[w])) {
			framer.PushSymbol(v, 2000)
		}
	}

	require.NotNil(t, ionoGot)
	require.NotNil(t, utcGot)
	assert.Equal(t, 7, ionoGot.SatellitePRN)
	assert.Equal(t, 7, utcGot.SatellitePRN)
}
