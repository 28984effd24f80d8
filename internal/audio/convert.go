package audio

import (
	"fmt"
)

// BytesToSamples converts little-endian 16-bit PCM bytes to samples.
func BytesToSamples(data []byte) ([]int16, error) {
	if len(data)%2 != 0 {
		return nil, fmt.Errorf("PCM data length must be even (16-bit samples)")
	}
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(data[i*2]) | int16(data[i*2+1])<<8
	}
	return samples, nil
}

// SamplesToBytes converts 16-bit samples to little-endian PCM bytes.
func SamplesToBytes(samples []int16) []byte {
	data := make([]byte, len(samples)*2)
	for i, s := range samples {
		data[i*2] = byte(s)
		data[i*2+1] = byte(s >> 8)
	}
	return data
}

// Resample16 resamples 16-bit PCM bytes from inputRate to outputRate using
// linear interpolation. Good enough for speech; a sinc resampler would be
// needed for music-grade output.
func Resample16(pcm []byte, inputRate, outputRate int) ([]byte, error) {
	if inputRate <= 0 || outputRate <= 0 {
		return nil, fmt.Errorf("invalid sample rates %d -> %d", inputRate, outputRate)
	}
	if inputRate == outputRate {
		return pcm, nil
	}
	samples, err := BytesToSamples(pcm)
	if err != nil {
		return nil, err
	}
	return SamplesToBytes(resample(samples, inputRate, outputRate)), nil
}

// ResampleInterleaved16 resamples interleaved multi-channel 16-bit PCM.
// Channels are split, resampled independently, and reinterleaved so the
// interpolation never blends neighbouring channels.
func ResampleInterleaved16(pcm []byte, channels, inputRate, outputRate int) ([]byte, error) {
	if channels <= 0 {
		return nil, fmt.Errorf("invalid channel count %d", channels)
	}
	if channels == 1 {
		return Resample16(pcm, inputRate, outputRate)
	}
	if inputRate <= 0 || outputRate <= 0 {
		return nil, fmt.Errorf("invalid sample rates %d -> %d", inputRate, outputRate)
	}
	if inputRate == outputRate {
		return pcm, nil
	}

	samples, err := BytesToSamples(pcm)
	if err != nil {
		return nil, err
	}
	frames := len(samples) / channels

	resampled := make([][]int16, channels)
	for ch := 0; ch < channels; ch++ {
		plane := make([]int16, frames)
		for f := 0; f < frames; f++ {
			plane[f] = samples[f*channels+ch]
		}
		resampled[ch] = resample(plane, inputRate, outputRate)
	}

	outFrames := len(resampled[0])
	out := make([]int16, outFrames*channels)
	for f := 0; f < outFrames; f++ {
		for ch := 0; ch < channels; ch++ {
			out[f*channels+ch] = resampled[ch][f]
		}
	}
	return SamplesToBytes(out), nil
}

// MonoToStereo16 duplicates each mono 16-bit sample into both channels.
func MonoToStereo16(pcm []byte) ([]byte, error) {
	samples, err := BytesToSamples(pcm)
	if err != nil {
		return nil, err
	}
	out := make([]int16, len(samples)*2)
	for i, s := range samples {
		out[i*2] = s
		out[i*2+1] = s
	}
	return SamplesToBytes(out), nil
}

func resample(samples []int16, inputRate, outputRate int) []int16 {
	if inputRate == outputRate || len(samples) == 0 {
		return samples
	}

	ratio := float64(outputRate) / float64(inputRate)
	outputLength := int(float64(len(samples)) * ratio)
	output := make([]int16, outputLength)

	for i := 0; i < outputLength; i++ {
		srcPos := float64(i) / ratio

		idx0 := int(srcPos)
		idx1 := idx0 + 1
		if idx1 >= len(samples) {
			idx1 = len(samples) - 1
		}

		fraction := srcPos - float64(idx0)
		output[i] = int16(float64(samples[idx0])*(1.0-fraction) + float64(samples[idx1])*fraction)
	}

	return output
}
