package audio

// PCM16FromFloat converts a frame of floating-point samples at srcRate into
// little-endian 16-bit PCM at dstRate.
//
// Samples outside [-1, 1] are clamped before integer conversion to prevent
// wraparound artifacts. Resampling uses linear interpolation between nearest
// source samples — deliberately cheap rather than bandlimited, because the
// speech-recognition endpoints downstream tolerate minor aliasing. When
// srcRate == dstRate the conversion skips interpolation entirely.
//
// Malformed input (empty frame, non-positive rate) returns nil; callers drop
// such frames silently rather than emitting partial data.
func PCM16FromFloat(samples []float32, srcRate, dstRate int) []byte {
	if len(samples) == 0 || srcRate <= 0 || dstRate <= 0 {
		return nil
	}

	// Fast path: no rate conversion, just clamp and quantise.
	if srcRate == dstRate {
		out := make([]byte, len(samples)*2)
		for i, s := range samples {
			v := floatToInt16(s)
			out[i*2] = byte(v)
			out[i*2+1] = byte(v >> 8)
		}
		return out
	}

	dstSamples := int(int64(len(samples)) * int64(dstRate) / int64(srcRate))
	if dstSamples == 0 {
		return nil
	}

	out := make([]byte, dstSamples*2)
	ratio := float64(srcRate) / float64(dstRate)

	for i := range dstSamples {
		srcPos := float64(i) * ratio
		srcIdx := int(srcPos)
		frac := srcPos - float64(srcIdx)

		s0 := samples[srcIdx]
		s1 := s0
		if srcIdx+1 < len(samples) {
			s1 = samples[srcIdx+1]
		}

		v := floatToInt16(float32(float64(s0)*(1-frac) + float64(s1)*frac))
		out[i*2] = byte(v)
		out[i*2+1] = byte(v >> 8)
	}
	return out
}

// floatToInt16 clamps s to [-1, 1] and scales to the signed 16-bit range.
func floatToInt16(s float32) int16 {
	if s > 1 {
		s = 1
	} else if s < -1 {
		s = -1
	}
	return int16(s * 32767)
}

// ResampleMono16 resamples 16-bit mono PCM from srcRate to dstRate using
// linear interpolation. The input must be little-endian int16 samples. If
// srcRate == dstRate, the input is returned unchanged.
func ResampleMono16(pcm []byte, srcRate, dstRate int) []byte {
	if srcRate <= 0 || dstRate <= 0 {
		return pcm
	}
	if srcRate == dstRate || len(pcm) < 2 {
		return pcm
	}
	srcSamples := len(pcm) / 2
	dstSamples := int(int64(srcSamples) * int64(dstRate) / int64(srcRate))
	if dstSamples == 0 {
		return nil
	}

	out := make([]byte, dstSamples*2)
	ratio := float64(srcRate) / float64(dstRate)

	for i := range dstSamples {
		srcPos := float64(i) * ratio
		srcIdx := int(srcPos)
		frac := srcPos - float64(srcIdx)

		s0 := int16(pcm[srcIdx*2]) | int16(pcm[srcIdx*2+1])<<8
		var s1 int16
		if srcIdx+1 < srcSamples {
			s1 = int16(pcm[(srcIdx+1)*2]) | int16(pcm[(srcIdx+1)*2+1])<<8
		} else {
			s1 = s0
		}

		interpolated := int16(float64(s0)*(1-frac) + float64(s1)*frac)
		out[i*2] = byte(interpolated)
		out[i*2+1] = byte(interpolated >> 8)
	}
	return out
}
