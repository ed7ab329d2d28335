package playback

import (
	"errors"
	"fmt"
	"time"
)

// ErrMalformedChunk indicates a PCM payload that cannot be decoded.
var ErrMalformedChunk = errors.New("playback: malformed audio chunk")

// DecodePCM16 converts little-endian 16-bit PCM bytes into normalized
// float32 samples in [-1, 1]. No resampling is performed; the input is
// assumed to already be at the output rate.
func DecodePCM16(data []byte) ([]float32, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrMalformedChunk)
	}
	if len(data)%2 != 0 {
		return nil, fmt.Errorf("%w: odd byte count %d", ErrMalformedChunk, len(data))
	}

	samples := make([]float32, len(data)/2)
	for i := range samples {
		s := int16(data[i*2]) | int16(data[i*2+1])<<8
		samples[i] = float32(s) / 32768.0
	}
	return samples, nil
}

// EncodePCM16 converts normalized float32 samples back into
// little-endian 16-bit PCM bytes, clamping out-of-range values.
func EncodePCM16(samples []float32) []byte {
	buf := make([]byte, len(samples)*2)
	for i, f := range samples {
		if f > 1 {
			f = 1
		} else if f < -1 {
			f = -1
		}
		s := int16(f * 32767)
		buf[i*2] = byte(s)
		buf[i*2+1] = byte(s >> 8)
	}
	return buf
}

// SampleDuration returns the play time of n mono samples at rate Hz.
func SampleDuration(n, rate int) time.Duration {
	if rate <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second / time.Duration(rate)
}
