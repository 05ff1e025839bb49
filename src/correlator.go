package l1ca

import "math"

// replicaBuffer holds the Early/Prompt/Late code replica in one owning
// allocation, with Prompt and Late as views at fixed offsets into the same
// backing array — per spec.md §9's design note (the source's
// posix_memalign'd E/P/L triplet, reimplemented as one owning slice with
// offset views instead of three raw-aligned allocations).
type replicaBuffer struct {
	backing            []complex128
	earlyLateSpcSamples int
}

func newReplicaBuffer(prnLenSamples, earlyLateSpcSamples int) *replicaBuffer {
	return &replicaBuffer{
		backing:             make([]complex128, prnLenSamples+2*earlyLateSpcSamples),
		earlyLateSpcSamples: earlyLateSpcSamples,
	}
}

func (r *replicaBuffer) early(prnLenSamples int) []complex128 {
	return r.backing[:prnLenSamples]
}

func (r *replicaBuffer) prompt(prnLenSamples int) []complex128 {
	o := r.earlyLateSpcSamples
	return r.backing[o : o+prnLenSamples]
}

func (r *replicaBuffer) late(prnLenSamples int) []complex128 {
	o := 2 * r.earlyLateSpcSamples
	return r.backing[o : o+prnLenSamples]
}

// generateEPLCode fills the replica buffer's Early view (and, via aliasing,
// Prompt/Late) with the PRN code sampled at codePhaseStepChips chips/sample,
// starting earlyLateSpcChips chips before the current code phase, per
// update_local_code in the grounded tracking block.
func generateEPLCode(caCode [GPSL1CACodeLengthChips + 2]complex128, buf *replicaBuffer, prnLenSamples int, codePhaseStepChips, remCodePhaseChips, earlyLateSpcChips float64) {
	tcodeChips := -remCodePhaseChips
	loopLen := prnLenSamples + 2*buf.earlyLateSpcSamples
	early := buf.backing[:loopLen]
	for i := 0; i < loopLen; i++ {
		idx := 1 + int(math.Round(math.Mod(tcodeChips-earlyLateSpcChips, GPSL1CACodeLengthChips)))
		if idx < 0 {
			idx += GPSL1CACodeLengthChips
		}
		early[i] = caCode[idx]
		tcodeChips += codePhaseStepChips
	}
}

// generateCarrierReplica fills carr with the local carrier replica
// exp(-j*(2*pi*dopplerHz/fsIn)*n + remCarrPhaseRad), returning the updated
// residual carrier phase wrapped by 2*pi, per
// update_local_carrier in the grounded tracking block.
func generateCarrierReplica(carr []complex128, dopplerHz, fsIn, remCarrPhaseRad float64) (newRemCarrPhaseRad float64) {
	phaseStepRad := TwoPi * dopplerHz / fsIn
	phaseRad := remCarrPhaseRad
	for i := range carr {
		s, c := math.Sincos(phaseRad)
		carr[i] = complex(c, -s)
		phaseRad += phaseStepRad
	}
	return math.Mod(phaseRad, TwoPi)
}

// carrierWipeoffAndEPL is the fused kernel: one pass multiplying input
// samples by the carrier replica, then dot-producting against each of the
// Early/Prompt/Late code replicas to produce three scalar complex
// accumulators. Grounded on Carrier_wipeoff_and_EPL_volk (spec.md §9).
func carrierWipeoffAndEPL(in []complex128, carrier []complex128, codeE, codeP, codeL []complex128) (e, p, lt complex128) {
	n := len(in)
	for i := 0; i < n; i++ {
		s := in[i] * carrier[i]
		e += s * cmplxConj(codeE[i])
		p += s * cmplxConj(codeP[i])
		lt += s * cmplxConj(codeL[i])
	}
	return e, p, lt
}

func cmplxConj(c complex128) complex128 {
	return complex(real(c), -imag(c))
}
