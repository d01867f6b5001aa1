package audio

// BytesToSamples converts little-endian PCM16 bytes to samples.
// A trailing odd byte is ignored.
func BytesToSamples(data []byte) []int16 {
	out := make([]int16, len(data)/2)
	for i := range out {
		out[i] = int16(uint16(data[2*i]) | uint16(data[2*i+1])<<8)
	}
	return out
}

// SamplesToBytes converts samples to little-endian PCM16 bytes.
func SamplesToBytes(samples []int16) []byte {
	out := make([]byte, 2*len(samples))
	for i, s := range samples {
		out[2*i] = byte(s)
		out[2*i+1] = byte(uint16(s) >> 8)
	}
	return out
}

// Resample changes the sample rate of mono PCM16 using linear
// interpolation. Good enough for speech.
func Resample(samples []int16, fromRate, toRate int) []int16 {
	if fromRate == toRate || fromRate <= 0 || toRate <= 0 || len(samples) == 0 {
		return samples
	}

	step := float64(fromRate) / float64(toRate)
	n := int(float64(len(samples)) / step)
	out := make([]int16, n)
	last := len(samples) - 1

	for i := range out {
		pos := float64(i) * step
		idx := int(pos)
		if idx >= last {
			out[i] = samples[last]
			continue
		}
		frac := pos - float64(idx)
		a, b := float64(samples[idx]), float64(samples[idx+1])
		out[i] = int16(a + frac*(b-a))
	}
	return out
}

// ToMono averages interleaved channels down to one.
func ToMono(samples []float64, channels int) []float64 {
	if channels <= 1 {
		return samples
	}
	out := make([]float64, len(samples)/channels)
	for i := range out {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += samples[i*channels+c]
		}
		out[i] = sum / float64(channels)
	}
	return out
}

// FloatToInt16 converts normalised samples back to PCM16, clipping at full scale.
func FloatToInt16(samples []float64) []int16 {
	out := make([]int16, len(samples))
	for i, s := range samples {
		switch {
		case s >= 1:
			out[i] = 32767
		case s <= -1:
			out[i] = -32768
		default:
			out[i] = int16(s * 32767)
		}
	}
	return out
}

// SpeechRate is the sample rate uploads are converted to for recognition.
const SpeechRate = 16000

// IsWAV reports whether data starts with a RIFF/WAVE header.
func IsWAV(data []byte) bool {
	return len(data) >= 12 && string(data[:4]) == "RIFF" && string(data[8:12]) == "WAVE"
}

// SpeechWAV converts a WAV clip, or headerless mono PCM16 recorded at
// rawRate, into a 16 kHz mono WAV.
func SpeechWAV(data []byte, rawRate int) ([]byte, error) {
	var samples []int16
	rate := rawRate
	if IsWAV(data) {
		p, err := DecodeWAVBytes(data)
		if err != nil {
			return nil, err
		}
		samples = FloatToInt16(ToMono(p.Samples, p.Channels))
		rate = p.SampleRate
	} else {
		samples = BytesToSamples(data)
	}
	if rate <= 0 {
		rate = SpeechRate
	}
	return WAVBytes(Resample(samples, rate, SpeechRate), SpeechRate, 1)
}
