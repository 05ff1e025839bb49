package l1ca

import "math"

// GPS L1 C/A system constants (ICD-GPS-200). Named the way the original
// GNSS-SDR GPS_L1_CA.h constants are named, so the tracking/framer math
// below reads the same as the block it is grounded on.
const (
	GPSL1FreqHz          = 1575.42e6
	GPSL1CACodeRateHz    = 1.023e6
	GPSL1CACodeLengthChips = 1023
	GPSCATelemetryRateBitsSecond = 50
	GPSCAPreambleLengthBits      = 8

	TwoPi = 2 * math.Pi

	CN0EstimationSamples   = 20
	MinimumValidCN0        = 25.0
	MaximumLockFailCounter = 50
	CarrierLockThreshold   = 0.85

	SamplesPerBit = 20 // 1000 Hz PRN rate / 50 Hz bit rate

	// NumTxVariablesGPSL1CA is the length of the length-prefixed float32
	// record exchanged with a remote DiscriminatorController
	// (control_id, E.re, E.im, L.re, L.im, P.re, P.im, acq_doppler, enable_flag).
	NumTxVariablesGPSL1CA = 9
)

// GPSPreambleBits is the 8-bit TLM preamble pattern {1,0,0,0,1,0,1,1}.
var GPSPreambleBits = [GPSCAPreambleLengthBits]int{1, 0, 0, 0, 1, 0, 1, 1}
