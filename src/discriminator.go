package l1ca

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"math"
	"net"
)

// DiscriminatorStep is one controller invocation's output: the raw DLL/PLL
// discriminator errors, their loop-filtered NCO corrections, and the
// resulting carrier Doppler / code frequency the tracking loop's NCO
// bookkeeping (spec.md §4.1 step 6) advances from.
type DiscriminatorStep struct {
	CarrError     float64
	CodeError     float64
	CarrNCO       float64
	CodeNCO       float64
	NewDopplerHz  float64
	NewCodeFreqHz float64
}

// DiscriminatorController abstracts the DLL/PLL discriminator + loop-filter
// step so the tracking loop is agnostic to whether it runs in-process or
// ships E/P/L over a socket to an external controller (spec.md §9's
// TCP-connector variant, absorbed into the same contract per spec.md §1).
//
// intervalSecs is the current PRN period's length in seconds; the caller
// (Tracker.Step) must pass it every call since the PRN period drifts with
// the code NCO and the loop filters integrate error over real elapsed time,
// not a fixed constant.
type DiscriminatorController interface {
	// Step applies one PRN period's correlator outputs and returns the
	// code/carrier discriminator errors, their NCO corrections, and the
	// updated carrier Doppler and code frequency.
	Step(early, prompt, late complex128, acqDopplerHz, codeFreqHz, intervalSecs float64) (DiscriminatorStep, error)
	Close() error
}

// loopFilter is a first-order loop filter: out += bandwidth-scaled error.
// Grounded on the DLL/PLL filter objects referenced (not bodied) in the
// grounded tracking block; spec.md names only "first-order loop filters
// with the configured bandwidths".
type loopFilter struct {
	bwHz  float64
	gain  float64
	accum float64
}

// dampingFactor follows the classic second-order-equivalent
// first-order loop filter gain used throughout GNSS-SDR-style trackers.
const dampingFactor = 1 / math.Sqrt2

func newLoopFilter(bwHz float64) *loopFilter {
	wn := bwHz / (dampingFactor + 1/(4*dampingFactor))
	return &loopFilter{bwHz: bwHz, gain: 4 * dampingFactor * wn}
}

func (f *loopFilter) initialize() { f.accum = 0 }

func (f *loopFilter) update(err float64, intervalSecs float64) float64 {
	f.accum += f.gain * err * intervalSecs
	return f.accum
}

// localController is the default in-process DLL/PLL implementation.
type localController struct {
	code *loopFilter
	carr *loopFilter
}

func newLocalController(dllBwHz, pllBwHz float64) *localController {
	return &localController{code: newLoopFilter(dllBwHz), carr: newLoopFilter(pllBwHz)}
}

func (c *localController) Step(e, p, l complex128, acqDopplerHz, codeFreqHz, intervalSecs float64) (DiscriminatorStep, error) {
	// Non-coherent DLL discriminator.
	absE, absL := cmplx_abs(e), cmplx_abs(l)
	var codeErr float64
	if absE+absL != 0 {
		codeErr = (absE - absL) / (absE + absL)
	}
	// Costas PLL discriminator.
	var carrErr float64
	if real(p) != 0 {
		carrErr = math.Atan(imag(p) / real(p))
	} else if imag(p) != 0 {
		carrErr = math.Pi / 2
	}

	carrNco := c.carr.update(carrErr, intervalSecs)
	codeNco := c.code.update(codeErr, intervalSecs)

	return DiscriminatorStep{
		CarrError:     carrErr,
		CodeError:     codeErr,
		CarrNCO:       carrNco,
		CodeNCO:       codeNco,
		NewDopplerHz:  acqDopplerHz + carrNco,
		NewCodeFreqHz: codeFreqHz + codeNco,
	}, nil
}

func (c *localController) Close() error { return nil }

func cmplx_abs(c complex128) float64 {
	return math.Hypot(real(c), imag(c))
}

// remoteController implements the length-prefixed float32 TCP exchange
// described in spec.md §9: a fixed NumTxVariablesGPSL1CA=9 record out
// (control_id, E.re, E.im, L.re, L.im, P.re, P.im, acq_doppler, enable_flag)
// and a fixed-size reply in (carr_error, code_error, new_doppler).
//
// This is the concrete "external controller" collaborator for the
// network-offloaded variant; its wire format is specified exactly enough
// (9 fixed float32s) that a generic framing library would add overhead the
// protocol doesn't call for, so it is built directly on net+encoding/binary
// (see DESIGN.md). The wire protocol carries no code-NCO correction, so the
// remote variant returns code_freq_hz unchanged (CodeNCO reports 0) — see
// DESIGN.md.
type remoteController struct {
	conn      net.Conn
	r         *bufio.Reader
	controlID float32
	portCh0   int
	channelID int
}

// NewRemoteDiscriminatorController dials the external controller for the
// given channel. portCh0 + channelID is the assumed port-mapping contract
// from spec.md §9's first Open Question.
func NewRemoteDiscriminatorController(addr string, portCh0, channelID int) (*remoteController, error) {
	conn, err := net.Dial("tcp", fmt.Sprintf("%s:%d", addr, portCh0+channelID))
	if err != nil {
		return nil, fmt.Errorf("dial discriminator controller: %w", err)
	}
	return &remoteController{conn: conn, r: bufio.NewReader(conn), portCh0: portCh0, channelID: channelID}, nil
}

func (c *remoteController) Step(e, p, l complex128, acqDopplerHz, codeFreqHz, intervalSecs float64) (DiscriminatorStep, error) {
	c.controlID++
	tx := [NumTxVariablesGPSL1CA]float32{
		c.controlID,
		float32(real(e)), float32(imag(e)),
		float32(real(l)), float32(imag(l)),
		float32(real(p)), float32(imag(p)),
		float32(acqDopplerHz),
		1,
	}
	if err := binary.Write(c.conn, binary.LittleEndian, tx); err != nil {
		return DiscriminatorStep{}, fmt.Errorf("send discriminator record: %w", err)
	}

	var rx [3]float32
	if err := binary.Read(c.r, binary.LittleEndian, &rx); err != nil {
		return DiscriminatorStep{}, fmt.Errorf("recv discriminator record: %w", err)
	}
	carrErr, codeErr, newDopplerHz := float64(rx[0]), float64(rx[1]), float64(rx[2])
	return DiscriminatorStep{
		CarrError:     carrErr,
		CodeError:     codeErr,
		CarrNCO:       newDopplerHz - acqDopplerHz,
		CodeNCO:       0,
		NewDopplerHz:  newDopplerHz,
		NewCodeFreqHz: codeFreqHz,
	}, nil
}

// Close genuinely disconnects (spec.md §9's second Open Question: the
// original's disconnect() re-running connect() is not carried forward).
func (c *remoteController) Close() error {
	return c.conn.Close()
}
