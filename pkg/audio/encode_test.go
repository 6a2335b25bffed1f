package audio_test

import (
	"bytes"
	"testing"

	"github.com/vocaprep/vocaprep/pkg/audio"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := [][]byte{
		{},
		{0x00},
		{0xff, 0x7f, 0x00, 0x80}, // int16 max, int16 min
		bytes.Repeat([]byte{0xde, 0xad, 0xbe, 0xef}, 123),
	}
	for _, pcm := range cases {
		decoded, err := audio.DecodePCM(audio.EncodePCM(pcm))
		if err != nil {
			t.Fatalf("round trip failed for %d bytes: %v", len(pcm), err)
		}
		if !bytes.Equal(decoded, pcm) {
			t.Errorf("round trip not byte-identical for %d-byte input", len(pcm))
		}
	}
}

func TestDecodePCM_Invalid(t *testing.T) {
	if _, err := audio.DecodePCM("not@base64!!"); err == nil {
		t.Error("expected error for invalid base64")
	}
}

func TestNewEncodedChunk(t *testing.T) {
	chunk := audio.NewEncodedChunk([]byte{1, 0, 2, 0}, 16000)
	if chunk.MIMEType != "audio/pcm;rate=16000" {
		t.Errorf("mime: got %q", chunk.MIMEType)
	}
	if chunk.SampleRate != 16000 {
		t.Errorf("rate: got %d", chunk.SampleRate)
	}
	decoded, err := audio.DecodePCM(chunk.Data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !bytes.Equal(decoded, []byte{1, 0, 2, 0}) {
		t.Error("chunk data did not round-trip")
	}
}

func TestFadeTail(t *testing.T) {
	pcm := samplesToBytes([]int16{10000, 10000, 10000, 10000})

	out := audio.FadeTail(pcm, 4)
	got := bytesToSamples(out)
	if len(got) != 4 {
		t.Fatalf("expected 4 samples, got %d", len(got))
	}
	if got[0] != 10000 {
		t.Errorf("ramp should start at full volume: got %d", got[0])
	}
	for i := 1; i < len(got); i++ {
		if got[i] > got[i-1] {
			t.Errorf("gain must decrease monotonically: sample %d is %d > %d", i, got[i], got[i-1])
		}
	}

	// Ramp longer than the buffer is truncated to what is available.
	out = audio.FadeTail(pcm, 100)
	if len(out) != len(pcm) {
		t.Errorf("oversized ramp: got %d bytes, want %d", len(out), len(pcm))
	}

	if audio.FadeTail(pcm, 0) != nil {
		t.Error("zero ramp should be a hard cut (nil)")
	}
}
