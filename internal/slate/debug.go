package slate

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"hawkeye/pkg/models"
)

// debugDumpDir is where trace-level fingerprint dumps are written. Kept as
// a var (not a const) so tests can redirect it.
var debugDumpDir = filepath.Join(os.TempDir(), "hawkeye-debug")

// writeDebugPNG renders a slate's fingerprint back out as a grayscale PNG
// so an operator staring at trace logs can sanity-check what the library
// actually saw, without needing to re-run the resize by hand.
func writeDebugPNG(s models.Slate) (string, error) {
	if err := os.MkdirAll(debugDumpDir, 0o755); err != nil {
		return "", err
	}

	n := models.FingerprintSize
	img := image.NewGray(image.Rect(0, 0, n, n))
	for i, v := range s.Fingerprint {
		img.Pix[i] = uint8(v * 255.0)
	}

	path := filepath.Join(debugDumpDir, fmt.Sprintf("%s.png", s.ID))
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return "", err
	}
	return path, nil
}
