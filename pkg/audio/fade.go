package audio

// FadeTail returns the click-free tail played when a sounding buffer is
// stopped: the first rampSamples of pcm with a linear gain ramp from full
// volume to zero applied. Anything beyond the ramp is discarded. A
// non-positive ramp returns nil (hard cut).
//
// The input must be little-endian mono int16 PCM; it is not modified.
func FadeTail(pcm []byte, rampSamples int) []byte {
	if rampSamples <= 0 || len(pcm) < 2 {
		return nil
	}
	n := rampSamples
	if avail := len(pcm) / 2; n > avail {
		n = avail
	}

	out := make([]byte, n*2)
	for i := range n {
		s := int16(pcm[i*2]) | int16(pcm[i*2+1])<<8
		gain := 1 - float64(i)/float64(n)
		v := int16(float64(s) * gain)
		out[i*2] = byte(v)
		out[i*2+1] = byte(v >> 8)
	}
	return out
}
