package audio

import (
	"testing"
)

func TestWAVRoundTrip(t *testing.T) {
	samples := []int16{0, 100, -100, 32767, -32768, 12345}

	encoded, err := EncodeWAV(samples, 16000)
	if err != nil {
		t.Fatalf("Failed to encode WAV: %v", err)
	}

	if !IsWAV(encoded) {
		t.Error("Encoded buffer not recognized as WAV")
	}

	decoded, rate, channels, err := DecodeWAV(encoded)
	if err != nil {
		t.Fatalf("Failed to decode WAV: %v", err)
	}

	if rate != 16000 {
		t.Errorf("Expected sample rate 16000, got %d", rate)
	}

	if channels != 1 {
		t.Errorf("Expected 1 channel, got %d", channels)
	}

	if len(decoded) != len(samples) {
		t.Fatalf("Expected %d samples, got %d", len(samples), len(decoded))
	}

	for i, s := range samples {
		if decoded[i] != s {
			t.Errorf("Sample %d: expected %d, got %d", i, s, decoded[i])
		}
	}
}

func TestDecodeWAVTruncatedData(t *testing.T) {
	samples := make([]int16, 100)
	for i := range samples {
		samples[i] = int16(i)
	}

	encoded, err := EncodeWAV(samples, 16000)
	if err != nil {
		t.Fatalf("Failed to encode WAV: %v", err)
	}

	// Cut off the last 20 bytes; the decoder clamps to what is present
	decoded, _, _, err := DecodeWAV(encoded[:len(encoded)-20])
	if err != nil {
		t.Fatalf("Expected truncated WAV to decode, got: %v", err)
	}

	if len(decoded) != 90 {
		t.Errorf("Expected 90 samples from truncated file, got %d", len(decoded))
	}
}

func TestDecodeWAVInvalid(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"too short", []byte("RIFF")},
		{"wrong magic", make([]byte, 64)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, _, err := DecodeWAV(tt.data); err == nil {
				t.Error("Expected decode error but got none")
			}
		})
	}
}

func TestDecodeWAVRejectsUnsupportedFormat(t *testing.T) {
	samples := []int16{1, 2, 3, 4}
	encoded, err := EncodeWAV(samples, 16000)
	if err != nil {
		t.Fatalf("Failed to encode WAV: %v", err)
	}

	// Flip the audio format field to IEEE float (3)
	encoded[20] = 3

	if _, _, _, err := DecodeWAV(encoded); err == nil {
		t.Error("Expected error for non-PCM format")
	}
}

func TestEncodeWAVRejectsEmptyInput(t *testing.T) {
	if _, err := EncodeWAV(nil, 16000); err == nil {
		t.Error("Expected error for empty samples")
	}

	if _, err := EncodeWAV([]int16{1}, 0); err == nil {
		t.Error("Expected error for invalid sample rate")
	}
}

func TestIsWAV(t *testing.T) {
	if IsWAV([]byte("RIFF")) {
		t.Error("Short buffer must not be detected as WAV")
	}

	if IsWAV(make([]byte, 64)) {
		t.Error("Zeroed buffer must not be detected as WAV")
	}
}
