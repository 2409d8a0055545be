package audio

import (
	"encoding/binary"
	"fmt"
)

const headerSize = 44

// Format describes the PCM layout of a WAV clip
type Format struct {
	Channels      int
	SampleRate    int
	BitsPerSample int
}

// ByteRate returns bytes of audio data per second
func (f Format) ByteRate() int {
	return f.SampleRate * f.Channels * f.BitsPerSample / 8
}

// BlockAlign returns the byte size of one sample frame
func (f Format) BlockAlign() int {
	return f.Channels * f.BitsPerSample / 8
}

// Info parses the standard 44-byte WAV header
func Info(data []byte) (Format, error) {
	if len(data) < headerSize {
		return Format{}, fmt.Errorf("wav data too short: %d bytes", len(data))
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return Format{}, fmt.Errorf("not a wav file")
	}

	f := Format{
		Channels:      int(binary.LittleEndian.Uint16(data[22:24])),
		SampleRate:    int(binary.LittleEndian.Uint32(data[24:28])),
		BitsPerSample: int(binary.LittleEndian.Uint16(data[34:36])),
	}
	if f.Channels == 0 || f.SampleRate == 0 || f.BitsPerSample == 0 {
		return Format{}, fmt.Errorf("invalid wav format: %+v", f)
	}

	return f, nil
}

// Samples returns the raw PCM payload after the header
func Samples(data []byte) []byte {
	if len(data) <= headerSize {
		return nil
	}
	return data[headerSize:]
}

// Duration returns the clip length in seconds
func Duration(data []byte) (float64, error) {
	f, err := Info(data)
	if err != nil {
		return 0, err
	}
	return float64(len(Samples(data))) / float64(f.ByteRate()), nil
}

// Silence builds a zero-filled clip of the given length. The payload size
// is aligned to the frame boundary so concatenation stays sample-accurate.
func Silence(seconds float64, f Format) []byte {
	dataSize := int(seconds * float64(f.ByteRate()))
	if align := f.BlockAlign(); dataSize%align != 0 {
		dataSize += align - dataSize%align
	}
	return writeHeader(make([]byte, headerSize+dataSize), f, dataSize)
}

// Concat joins clips back to back. All clips must share one format.
func Concat(clips [][]byte) ([]byte, error) {
	if len(clips) == 0 {
		return nil, fmt.Errorf("no clips to concatenate")
	}

	format, err := Info(clips[0])
	if err != nil {
		return nil, err
	}

	dataSize := 0
	for i, clip := range clips {
		clipFormat, err := Info(clip)
		if err != nil {
			return nil, fmt.Errorf("clip %d: %w", i, err)
		}
		if clipFormat != format {
			return nil, fmt.Errorf("clip %d format %+v does not match %+v", i, clipFormat, format)
		}
		dataSize += len(Samples(clip))
	}

	out := make([]byte, headerSize, headerSize+dataSize)
	for _, clip := range clips {
		out = append(out, Samples(clip)...)
	}

	return writeHeader(out, format, dataSize), nil
}

// Mix overlays clips starting at time zero, simulating several voices
// speaking at once. The result lasts as long as the longest clip; each
// clip gets a short linear fade at its own tail so voices drop out without
// clicks. Output gain is 0.7 per voice, capped at maxGain.
func Mix(clips [][]byte, maxGain float64) ([]byte, error) {
	if len(clips) == 0 {
		return nil, fmt.Errorf("no clips to mix")
	}
	if len(clips) == 1 {
		return clips[0], nil
	}

	format, err := Info(clips[0])
	if err != nil {
		return nil, err
	}
	if format.BitsPerSample != 16 {
		return nil, fmt.Errorf("mix supports 16-bit PCM only, got %d-bit", format.BitsPerSample)
	}

	longest := 0
	payloads := make([][]byte, len(clips))
	for i, clip := range clips {
		clipFormat, err := Info(clip)
		if err != nil {
			return nil, fmt.Errorf("clip %d: %w", i, err)
		}
		if clipFormat != format {
			return nil, fmt.Errorf("clip %d format %+v does not match %+v", i, clipFormat, format)
		}
		payloads[i] = Samples(clip)
		if len(payloads[i]) > longest {
			longest = len(payloads[i])
		}
	}

	gain := 0.7 * float64(len(clips))
	if gain > maxGain {
		gain = maxGain
	}
	scale := gain / float64(len(clips))

	fadeSamples := format.SampleRate / 2 // 0.5s dropout transition
	totalSamples := longest / 2
	out := make([]byte, headerSize+longest)

	for s := 0; s < totalSamples; s++ {
		var acc float64
		for _, payload := range payloads {
			n := len(payload) / 2
			if s >= n {
				continue
			}
			v := float64(int16(binary.LittleEndian.Uint16(payload[s*2 : s*2+2])))
			if remaining := n - s; remaining < fadeSamples {
				v *= float64(remaining) / float64(fadeSamples)
			}
			acc += v
		}

		mixed := acc * scale
		if mixed > 32767 {
			mixed = 32767
		} else if mixed < -32768 {
			mixed = -32768
		}
		binary.LittleEndian.PutUint16(out[headerSize+s*2:headerSize+s*2+2], uint16(int16(mixed)))
	}

	return writeHeader(out, format, longest), nil
}

// writeHeader fills the standard 44-byte PCM header in place
func writeHeader(buf []byte, f Format, dataSize int) []byte {
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataSize))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(buf[22:24], uint16(f.Channels))
	binary.LittleEndian.PutUint32(buf[24:28], uint32(f.SampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(f.ByteRate()))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(f.BlockAlign()))
	binary.LittleEndian.PutUint16(buf[34:36], uint16(f.BitsPerSample))
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))
	return buf
}
