package l1ca

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *log.Logger {
	return log.New(io.Discard)
}

type zeroSampleSource struct{}

func (zeroSampleSource) Read(ctx context.Context, buf []Sample) (int, error) {
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	default:
	}
	for i := range buf {
		buf[i] = 0
	}
	return len(buf), nil
}

func testChannelConfig() ChannelConfig {
	return ChannelConfig{
		ChannelID:           1,
		SamplingFrequencyHz: 4e6,
		PLLBandwidthHz:      25,
		DLLBandwidthHz:      2,
		EarlyLateSpaceChips: 0.5,
	}
}

func TestNewChannelRejectsZeroSamplingFrequency(t *testing.T) {
	cfg := testChannelConfig()
	cfg.SamplingFrequencyHz = 0
	_, err := NewChannel(cfg, zeroSampleSource{}, nil, 8, testLogger())
	assert.Error(t, err)
}

func TestChannelAcquireStartsTracking(t *testing.T) {
	ch, err := NewChannel(testChannelConfig(), zeroSampleSource{}, nil, 8, testLogger())
	require.NoError(t, err)
	err = ch.Acquire(AcqResult{PRN: 9, System: 'G'})
	assert.NoError(t, err)
	assert.Equal(t, StatePullIn, ch.tracker.state)
}

func TestChannelRunStopsOnContextCancel(t *testing.T) {
	ch, err := NewChannel(testChannelConfig(), zeroSampleSource{}, NewControlBus(4), 8, testLogger())
	require.NoError(t, err)
	require.NoError(t, ch.Acquire(AcqResult{PRN: 3, System: 'G'}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err = ch.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NoError(t, ch.Stop())
}
