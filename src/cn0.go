package l1ca

import "math"

// cn0Estimator accumulates prompt correlator outputs over
// CN0EstimationSamples PRN periods and produces a single-normalized-variance
// (SNV) CN0 estimate plus a carrier-lock test statistic, matching the
// cadence and thresholds in the grounded tracking block's CN0/lock-fail
// section (CN0_ESTIMATION_SAMPLES, MINIMUM_VALID_CN0,
// MAXIMUM_LOCK_FAIL_COUNTER, CARRIER_LOCK_THRESHOLD).
type cn0Estimator struct {
	prnPeriodSecs float64

	sumPromptPower  float64
	sumPromptAbsI   float64
	sumPromptAbsQAbs float64
	n               int

	lockFailCounter int
	lastCN0DbHz     float64
}

func newCN0Estimator(prnPeriodSecs float64) *cn0Estimator {
	return &cn0Estimator{prnPeriodSecs: prnPeriodSecs}
}

// accumulate feeds one PRN period's prompt correlator output into the
// running SNV sums. Call evaluate() every CN0EstimationSamples calls.
func (c *cn0Estimator) accumulate(promptI, promptQ float64) {
	c.sumPromptPower += promptI*promptI + promptQ*promptQ
	c.sumPromptAbsI += math.Abs(promptI)
	c.n++
}

// ready reports whether enough samples have accumulated for evaluate.
func (c *cn0Estimator) ready() bool {
	return c.n >= CN0EstimationSamples
}

// evaluate computes the SNV CN0 estimate and carrier-lock test statistic
// from the accumulated window, resets the accumulators, and reports whether
// tracking should be considered lost this period (lock-fail counter logic).
func (c *cn0Estimator) evaluate() (cn0DbHz, carrierLockTest float64, lossOfLock bool) {
	n := float64(c.n)
	meanPower := c.sumPromptPower / n
	meanAbsI := c.sumPromptAbsI / n

	// SNV estimator: normalized second moment of |P| maps to a CN0 ratio.
	nsr := 0.0
	if meanPower > 0 {
		m2 := meanPower
		m1 := meanAbsI * meanAbsI
		variance := m2 - m1
		if m1 > 0 {
			nsr = variance / m1
		}
	}
	snr := 0.0
	if nsr > 0 {
		snr = 1 / nsr
	} else if meanAbsI > 0 {
		// No measurable noise around a non-zero prompt: unbounded SNR.
		snr = math.Inf(1)
	}
	cn0DbHz = 10*math.Log10(snr) + 10*math.Log10(1/c.prnPeriodSecs/float64(SamplesPerBit))

	carrierLockTest = meanAbsI / math.Sqrt(meanPower+1e-12)

	c.sumPromptPower, c.sumPromptAbsI, c.n = 0, 0, 0
	c.lastCN0DbHz = cn0DbHz

	if cn0DbHz < MinimumValidCN0 || carrierLockTest < CarrierLockThreshold {
		c.lockFailCounter++
	} else if c.lockFailCounter > 0 {
		c.lockFailCounter--
	}

	lossOfLock = c.lockFailCounter > MaximumLockFailCounter
	return cn0DbHz, carrierLockTest, lossOfLock
}
