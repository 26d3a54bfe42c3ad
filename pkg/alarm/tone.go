package alarm

import (
	"encoding/binary"
	"math"
)

const (
	toneSampleRate = 8000
	toneFrequency  = 880.0 // A5, cuts through kitchen noise
	toneSeconds    = 1
)

// ToneWAV synthesizes the fallback alarm tone as a complete WAV file:
// one second of 880 Hz sine at 8 kHz, 16-bit mono, with a short linear
// fade at both ends to avoid clicks on loop boundaries.
func ToneWAV() []byte {
	samples := toneSampleRate * toneSeconds
	dataLen := samples * 2
	fade := toneSampleRate / 50 // 20ms ramp

	buf := make([]byte, 44+dataLen)

	// RIFF header
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataLen))
	copy(buf[8:12], "WAVE")

	// fmt chunk: PCM, mono, 16-bit
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1)
	binary.LittleEndian.PutUint16(buf[22:24], 1)
	binary.LittleEndian.PutUint32(buf[24:28], toneSampleRate)
	binary.LittleEndian.PutUint32(buf[28:32], toneSampleRate*2)
	binary.LittleEndian.PutUint16(buf[32:34], 2)
	binary.LittleEndian.PutUint16(buf[34:36], 16)

	// data chunk
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataLen))

	for i := 0; i < samples; i++ {
		v := math.Sin(2 * math.Pi * toneFrequency * float64(i) / toneSampleRate)

		gain := 1.0
		if i < fade {
			gain = float64(i) / float64(fade)
		} else if samples-i < fade {
			gain = float64(samples-i) / float64(fade)
		}

		sample := int16(v * gain * math.MaxInt16 * 0.8)
		binary.LittleEndian.PutUint16(buf[44+i*2:], uint16(sample))
	}

	return buf
}
