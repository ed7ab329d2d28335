package audioio

import "time"

// Frame is one fixed-duration slice of captured audio.
// Samples are PCM16 little-endian. A frame is created by a Source,
// consumed exactly once, and never retained after send.
type Frame struct {
	// Samples contains PCM16 audio samples (little-endian).
	Samples []int16

	// SampleRate is the sample rate of this frame.
	SampleRate int

	// Channels is the number of channels in this frame.
	Channels int
}

// Bytes returns the raw little-endian bytes of the frame.
func (f *Frame) Bytes() []byte {
	buf := make([]byte, len(f.Samples)*2)
	for i, s := range f.Samples {
		buf[i*2] = byte(s)
		buf[i*2+1] = byte(s >> 8)
	}
	return buf
}

// FromBytes populates the frame from raw PCM16 bytes.
func (f *Frame) FromBytes(data []byte, sampleRate, channels int) {
	f.SampleRate = sampleRate
	f.Channels = channels
	f.Samples = make([]int16, len(data)/2)
	for i := range f.Samples {
		f.Samples[i] = int16(data[i*2]) | int16(data[i*2+1])<<8
	}
}

// Duration returns the play time of this frame.
func (f *Frame) Duration() time.Duration {
	if f.SampleRate == 0 || f.Channels == 0 {
		return 0
	}
	frames := len(f.Samples) / f.Channels
	return time.Duration(frames) * time.Second / time.Duration(f.SampleRate)
}
