// Package l1ca implements the per-satellite GPS L1 C/A tracking loop and the
// downstream telemetry decoder: code/carrier tracking, preamble
// synchronization and word-level parity, and the subframe finite state
// machine that decodes ephemeris, ionospheric, UTC and almanac data.
package l1ca

import "math"

// Sample is one complex baseband IQ sample.
type Sample complex64

// AcqResult is the one-shot handoff from acquisition to tracking.
type AcqResult struct {
	PRN               int
	DopplerHz         float64
	CodePhaseSamples  float64
	SampleStamp       uint64
	System            byte // 'G', 'R', 'S', 'E', 'C' — see SystemName
}

// Synchro is the per-PRN-period tracking output handed to the framer and,
// downstream, to PVT. Fields mirror spec.md's Synchro entity exactly.
type Synchro struct {
	PromptI               float64
	PromptQ               float64
	CarrierPhaseRad       float64
	CarrierDopplerHz      float64
	CodePhaseSecs         float64
	TrackingTimestampSecs float64
	CN0DbHz               float64
	ValidTracking         bool
	PreambleFlag          bool
	ChannelID             int
	PRN                   int
}

// SystemName is the constant GNSS-system lookup table referenced in
// spec.md §9 ("Global maps like systemName["G"]="GPS" become a constant
// lookup table").
var SystemName = map[byte]string{
	'G': "GPS",
	'R': "GLONASS",
	'S': "SBAS",
	'E': "Galileo",
	'C': "Compass",
}

// Word30 is a validated 30-bit NAV word with the two previous-word LSBs
// carried in its high bits (bits 30..31), plus the source-preamble
// timestamp in milliseconds.
type Word30 struct {
	Bits            uint32
	PreambleTimeMs  float64
}

// SubframeLengthBits is 10 words of 30 bits each.
const SubframeLengthBits = 300

// Subframe is the 300-bit buffer of 10 Word30s, built incrementally.
type Subframe struct {
	Bits           [SubframeLengthBits]byte // one bit per byte, MSB-first order per word
	SubframeID     int
	SatellitePRN   int
	ChannelID      int
	PreambleTimeMs float64
}

// Ephemeris is a decoded GPS NAV ephemeris record (ICD-GPS-200 fields).
type Ephemeris struct {
	SatellitePRN   int
	ChannelID      int
	PreambleTimeMs float64

	IODE, IODC int
	SVHealth   int
	TGD        float64
	TOC        float64
	AF0, AF1, AF2 float64

	Crs, DeltaN, M0             float64
	Cuc, Ecc, Cus, SqrtA        float64
	TOE, Cic, OMEGA0, Cis       float64
	I0, Crc, Omega, OMEGADOT    float64
	IDOT                        float64
	CodeOnL2, WeekNumber, L2PFlag int
	SVAccuracy                  int
	FitInterval                 float64

	HaveSubframe1, HaveSubframe2, HaveSubframe3 bool
}

// Iono holds ionospheric correction parameters decoded from subframe 4 page 18.
type Iono struct {
	SatellitePRN   int
	PreambleTimeMs float64
	Alpha0, Alpha1, Alpha2, Alpha3 float64
	Beta0, Beta1, Beta2, Beta3     float64
}

// UtcModel holds UTC parameters decoded from subframe 4 page 18.
type UtcModel struct {
	SatellitePRN   int
	PreambleTimeMs float64
	A0, A1     float64
	TOT        float64
	WNT        int
	DeltaTLS   int
	WNLSF      int
	DN         int
	DeltaTLSF  int
}

// Almanac holds almanac parameters decoded from subframe 4/5 pages.
type Almanac struct {
	SatellitePRN   int
	PreambleTimeMs float64
	DataID, SVID         int
	Ecc                  float64
	TOA                  float64
	DeltaI               float64
	OmegaDot             float64
	SVHealth             int
	SqrtA                float64
	OMEGA0, Omega, M0    float64
	AF0, AF1             float64
	Week                 int
}

// anyNaN reports whether a float64 pair (e.g. Prompt I/Q) contains a NaN,
// matching the tracking loop's NaN guard (spec.md §4.1 step 4).
func anyNaN(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}
