package audio

import (
	"encoding/base64"
	"fmt"
)

// EncodePCM encodes raw PCM bytes as standard base64 text. The encoding is
// lossless: DecodePCM(EncodePCM(x)) yields byte-identical output.
func EncodePCM(pcm []byte) string {
	return base64.StdEncoding.EncodeToString(pcm)
}

// DecodePCM decodes base64 text back into raw PCM bytes.
func DecodePCM(data string) ([]byte, error) {
	pcm, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("audio: decode base64: %w", err)
	}
	return pcm, nil
}

// NewEncodedChunk wraps a PCM frame into its wire representation.
func NewEncodedChunk(pcm []byte, sampleRate int) EncodedChunk {
	return EncodedChunk{
		Data:       EncodePCM(pcm),
		MIMEType:   MIMEForRate(sampleRate),
		SampleRate: sampleRate,
	}
}
