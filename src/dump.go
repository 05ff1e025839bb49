package l1ca

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
)

// DumpRecord is one PRN step's tracking telemetry, written byte-for-byte per
// spec.md §6's dump file format.
type DumpRecord struct {
	AbsEarly            float32
	AbsPrompt           float32
	AbsLate             float32
	PromptI             float32
	PromptQ             float32
	SampleCounter       uint64
	AccCarrierPhaseRad  float32
	CarrierDopplerHz    float32
	CodeFreqHz          float32
	CarrError           float32
	CarrNCO             float32
	CodeError           float32
	CodeNCO             float32
	CN0DbHz             float32
	CarrierLockTest     float32
	Reserved            float32
	SampleCounterSecs   float64
}

// DumpWriter appends DumpRecords to <dumpFilename><channelID>.dat in the
// exact little-endian layout spec.md §6 specifies. A write failure is
// logged once and then swallowed, per SPEC_FULL.md §7, so a failing disk
// doesn't spam the log or abort tracking.
type DumpWriter struct {
	f         *os.File
	logger    *log.Logger
	warnedOnce bool
}

// NewDumpWriter opens "<dumpFilename><channelID>.dat" for append, creating
// it if necessary.
func NewDumpWriter(dumpFilename string, channelID int, logger *log.Logger) (*DumpWriter, error) {
	path := fmt.Sprintf("%s%d.dat", dumpFilename, channelID)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open dump file %s: %w", path, err)
	}
	return &DumpWriter{f: f, logger: logger}, nil
}

// Write appends one record. Errors are logged once per writer and then
// suppressed.
func (d *DumpWriter) Write(r DumpRecord) {
	if d == nil || d.f == nil {
		return
	}
	if err := d.writeFields(r); err != nil && !d.warnedOnce {
		d.warnedOnce = true
		if d.logger != nil {
			d.logger.Warn("dump write failed, suppressing further warnings", "err", err)
		}
	}
}

func (d *DumpWriter) writeFields(r DumpRecord) error {
	fields := []any{
		r.AbsEarly, r.AbsPrompt, r.AbsLate,
		r.PromptI, r.PromptQ,
		r.SampleCounter,
		r.AccCarrierPhaseRad, r.CarrierDopplerHz, r.CodeFreqHz,
		r.CarrError, r.CarrNCO, r.CodeError, r.CodeNCO,
		r.CN0DbHz, r.CarrierLockTest, r.Reserved,
		r.SampleCounterSecs,
	}
	for _, v := range fields {
		if err := binary.Write(d.f, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	return nil
}

// Close flushes and closes the underlying file.
func (d *DumpWriter) Close() error {
	if d == nil || d.f == nil {
		return nil
	}
	return d.f.Close()
}
