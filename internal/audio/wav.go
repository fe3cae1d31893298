// Package audio provides the sample-level building blocks shared by all
// synthesis providers: WAV encoding and post-processing of raw float buffers.
// Samples are mono float64 values nominally in [-1.0, 1.0]; the encoder clips
// anything outside that range.
package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

const (
	wavHeaderSize = 44
	pcmMax        = 32767
)

// EncodeWAV packs a mono float sample buffer into a 16-bit little-endian PCM
// WAV container at the given sample rate. Each sample is clipped to [-1, 1],
// scaled by 32767 and truncated toward zero.
func EncodeWAV(samples []float64, sampleRate int) []byte {
	pcm := make([]int16, len(samples))
	for i, s := range samples {
		if s > 1.0 {
			s = 1.0
		} else if s < -1.0 {
			s = -1.0
		}
		pcm[i] = int16(s * pcmMax)
	}

	dataSize := uint32(len(pcm) * 2)
	buf := bytes.NewBuffer(make([]byte, 0, wavHeaderSize+int(dataSize)))

	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16))
	binary.Write(buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(buf, binary.LittleEndian, uint16(1)) // mono
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate*2)) // byte rate
	binary.Write(buf, binary.LittleEndian, uint16(2))            // block align
	binary.Write(buf, binary.LittleEndian, uint16(16))           // bits per sample

	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, dataSize)
	binary.Write(buf, binary.LittleEndian, pcm)

	return buf.Bytes()
}

// DecodeWAV parses a mono 16-bit PCM WAV produced by EncodeWAV and returns
// the PCM samples and sample rate. It rejects anything that is not the
// plain 44-byte-header layout this package writes.
func DecodeWAV(data []byte) ([]int16, int, error) {
	if len(data) < wavHeaderSize {
		return nil, 0, fmt.Errorf("wav too short: %d bytes", len(data))
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, 0, fmt.Errorf("not a RIFF/WAVE stream")
	}

	channels := binary.LittleEndian.Uint16(data[22:24])
	if channels != 1 {
		return nil, 0, fmt.Errorf("expected mono audio, got %d channels", channels)
	}
	bits := binary.LittleEndian.Uint16(data[34:36])
	if bits != 16 {
		return nil, 0, fmt.Errorf("expected 16-bit samples, got %d", bits)
	}

	sampleRate := int(binary.LittleEndian.Uint32(data[24:28]))
	dataSize := binary.LittleEndian.Uint32(data[40:44])
	if int(dataSize) > len(data)-wavHeaderSize {
		return nil, 0, fmt.Errorf("data chunk size %d exceeds payload", dataSize)
	}

	pcm := make([]int16, dataSize/2)
	if err := binary.Read(bytes.NewReader(data[wavHeaderSize:wavHeaderSize+int(dataSize)]), binary.LittleEndian, pcm); err != nil {
		return nil, 0, fmt.Errorf("read PCM data: %w", err)
	}

	return pcm, sampleRate, nil
}
