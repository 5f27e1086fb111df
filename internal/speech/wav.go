package speech

import (
	"bytes"
	"encoding/binary"
	"regexp"
	"strconv"
)

// defaultSampleRate and defaultChannels apply when the upstream mime type
// doesn't specify a rate, matching Gemini's default raw-PCM TTS output.
const (
	defaultSampleRate = 24000
	defaultChannels   = 1
	bitsPerSample     = 16
)

var rateParam = regexp.MustCompile(`rate=(\d+)`)

// sampleRateFromMime extracts "rate=NNNN" from an "audio/pcm;rate=24000"
// style mime type, defaulting to defaultSampleRate when absent.
func sampleRateFromMime(mime string) int {
	m := rateParam.FindStringSubmatch(mime)
	if m == nil {
		return defaultSampleRate
	}
	rate, err := strconv.Atoi(m[1])
	if err != nil || rate <= 0 {
		return defaultSampleRate
	}
	return rate
}

// isWAV reports whether data already carries a RIFF/WAVE header.
func isWAV(data []byte) bool {
	return len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE"
}

// wrapPCM wraps raw little-endian PCM16 mono samples in a minimal 44-byte
// RIFF/WAVE header so any standard audio player can decode them.
func wrapPCM(pcm []byte, sampleRate int) []byte {
	byteRate := sampleRate * defaultChannels * bitsPerSample / 8
	blockAlign := defaultChannels * bitsPerSample / 8
	dataLen := len(pcm)

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataLen))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))      // PCM fmt chunk size
	binary.Write(&buf, binary.LittleEndian, uint16(1))       // PCM format
	binary.Write(&buf, binary.LittleEndian, uint16(defaultChannels))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(byteRate))
	binary.Write(&buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(&buf, binary.LittleEndian, uint16(bitsPerSample))

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataLen))
	buf.Write(pcm)

	return buf.Bytes()
}

// toWAV returns data unchanged if it's already a WAV file, otherwise wraps
// it as PCM16 using the sample rate encoded in mime.
func toWAV(data []byte, mime string) []byte {
	if isWAV(data) {
		return data
	}
	return wrapPCM(data, sampleRateFromMime(mime))
}
