package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/hajimehoshi/go-mp3"
)

// DefaultPeakCount matches the resolution the browser waveform exports.
const DefaultPeakCount = 8000

// PeaksFromMP3 decodes an MP3 stream and returns at most maxLength peak amplitudes along
// with the audio duration in seconds.
func PeaksFromMP3(r io.Reader, maxLength int) ([]float64, float64, error) {
	decoder, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, 0, fmt.Errorf("create MP3 decoder: %w", err)
	}

	// go-mp3 always decodes to signed 16-bit stereo
	pcm, err := io.ReadAll(decoder)
	if err != nil {
		return nil, 0, fmt.Errorf("read PCM data: %w", err)
	}

	peaks, duration := peaksFromPCM(pcm, decoder.SampleRate(), maxLength)
	return peaks, duration, nil
}

// PeaksFromFile is PeaksFromMP3 for a file on disk.
func PeaksFromFile(path string, maxLength int) ([]float64, float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open MP3 file: %w", err)
	}
	defer f.Close()
	return PeaksFromMP3(f, maxLength)
}

// peaksFromPCM reduces interleaved 16-bit stereo PCM to per-bucket absolute maxima of the
// mono mix, rounded to four decimals.
func peaksFromPCM(pcm []byte, sampleRate, maxLength int) ([]float64, float64) {
	frames := len(pcm) / 4
	if frames == 0 || sampleRate <= 0 {
		return nil, 0
	}
	duration := float64(frames) / float64(sampleRate)

	if maxLength <= 0 || maxLength > frames {
		maxLength = frames
	}
	bucket := int(math.Ceil(float64(frames) / float64(maxLength)))
	peaks := make([]float64, 0, maxLength)

	for start := 0; start < frames; start += bucket {
		end := start + bucket
		if end > frames {
			end = frames
		}
		var peak float64
		for i := start; i < end; i++ {
			left := int16(binary.LittleEndian.Uint16(pcm[i*4:]))
			right := int16(binary.LittleEndian.Uint16(pcm[i*4+2:]))
			v := math.Abs((float64(left) + float64(right)) / 2 / 32768.0)
			if v > peak {
				peak = v
			}
		}
		peaks = append(peaks, math.Round(peak*10000)/10000)
	}
	return peaks, duration
}
