package l1ca

// caG2Taps gives the two G2 shift-register tap positions (1-indexed, per
// ICD-GPS-200 Table 3-Ia) used to form the C/A code for each GPS PRN 1..32,
// per the G1/G2 feedback shift-register construction described in the Kay
// Borre MATLAB-based GPS receiver book that the original telemetry
// decoder's file header cites as its reference.
var caG2Taps = [33][2]int{
	0:  {0, 0}, // unused index 0
	1:  {2, 6}, 2: {3, 7}, 3: {4, 8}, 4: {5, 9}, 5: {1, 9},
	6:  {2, 10}, 7: {1, 8}, 8: {2, 9}, 9: {3, 10}, 10: {2, 3},
	11: {3, 4}, 12: {5, 6}, 13: {6, 7}, 14: {7, 8}, 15: {8, 9},
	16: {9, 10}, 17: {1, 4}, 18: {2, 5}, 19: {3, 6}, 20: {4, 7},
	21: {5, 8}, 22: {6, 9}, 23: {1, 3}, 24: {4, 6}, 25: {5, 7},
	26: {6, 8}, 27: {7, 9}, 28: {8, 10}, 29: {1, 6}, 30: {2, 7},
	31: {3, 8}, 32: {4, 9},
}

// GenerateCACode produces the 1023-chip C/A code for the given PRN (1..32)
// as +1/-1 values, one chip per sample, via the standard G1/G2 feedback
// shift-register construction. PRN outside [1,32] returns all +1 chips.
func GenerateCACode(prn int) [GPSL1CACodeLengthChips]int8 {
	var code [GPSL1CACodeLengthChips]int8
	for i := range code {
		code[i] = 1
	}
	if prn < 1 || prn > 32 {
		return code
	}

	var g1, g2 [10]int8
	for i := range g1 {
		g1[i] = 1
		g2[i] = 1
	}

	tap1, tap2 := caG2Taps[prn][0]-1, caG2Taps[prn][1]-1

	for i := 0; i < GPSL1CACodeLengthChips; i++ {
		g1Out := g1[9]
		g2Out := g2[tap1] ^ g2[tap2]

		chip := g1Out ^ g2Out
		if chip == 0 {
			code[i] = 1
		} else {
			code[i] = -1
		}

		g1Feedback := g1[2] ^ g1[9]
		copy(g1[1:], g1[:9])
		g1[0] = g1Feedback

		g2Feedback := g2[1] ^ g2[2] ^ g2[5] ^ g2[7] ^ g2[8] ^ g2[9]
		copy(g2[1:], g2[:9])
		g2[0] = g2Feedback
	}

	return code
}

// BuildRingPaddedCACode generates the PRN C/A code into a
// length-code_length_chips+2 ring-padded buffer, as complex samples (real
// chip value, zero imaginary), so a [1, code_length] chip index can be
// looked up with wraparound at either edge without a modulo on every access
// — per spec.md §4.1's start_tracking description.
func BuildRingPaddedCACode(prn int) [GPSL1CACodeLengthChips + 2]complex128 {
	chips := GenerateCACode(prn)
	var padded [GPSL1CACodeLengthChips + 2]complex128
	for i, c := range chips {
		padded[i+1] = complex(float64(c), 0)
	}
	padded[0] = padded[GPSL1CACodeLengthChips]
	padded[GPSL1CACodeLengthChips+1] = padded[1]
	return padded
}
