// Package fingerprint implements the resolution-normalized grayscale
// representation used to compare frames and slates, and the
// cosine-similarity score used to decide a match.
package fingerprint

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math"

	"golang.org/x/image/draw"

	"hawkeye/pkg/models"
)

// N is the fixed normalized extent.
const N = models.FingerprintSize

// FromBytes decodes an arbitrary still image (PNG/JPEG) and computes its
// fingerprint: convert to luminance, bilinear-resize to N×N, normalize to
// [0,1].
func FromBytes(data []byte) (models.Fingerprint, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return FromImage(img), nil
}

// FromImage computes the fingerprint of an already-decoded image. Used by
// both the Slate Library (still images) and the ingest sampler (decoded
// video frames), so both sides of a comparison go through the same
// luminance transform.
func FromImage(img image.Image) models.Fingerprint {
	dst := image.NewGray(image.Rect(0, 0, N, N))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)

	fp := make(models.Fingerprint, N*N)
	for i, v := range dst.Pix {
		fp[i] = float64(v) / 255.0
	}
	return fp
}

// CosineSimilarity computes the zero-mean cosine similarity between two
// fingerprints, clamped to [-1,1]. Identical fingerprints score exactly 1.
// Otherwise returns 0 if either fingerprint has zero variance (undefined
// cosine angle) to avoid a NaN comparator result.
func CosineSimilarity(a, b models.Fingerprint) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	if equal(a, b) {
		// A fingerprint compared to itself must score exactly 1.0, even for
		// a constant (zero-variance) image where the general formula below
		// is a 0/0 indeterminate.
		return 1
	}

	var meanA, meanB float64
	for i := range a {
		meanA += a[i]
		meanB += b[i]
	}
	meanA /= float64(len(a))
	meanB /= float64(len(b))

	var dot, normA, normB float64
	for i := range a {
		da := a[i] - meanA
		db := b[i] - meanB
		dot += da * db
		normA += da * da
		normB += db * db
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	score := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if score > 1 {
		return 1
	}
	if score < -1 {
		return -1
	}
	return score
}

func equal(a, b models.Fingerprint) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
