package slate

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hawkeye/internal/fingerprint"
)

func writePNG(t *testing.T, dir, name string, fill uint8) string {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 64, 64))
	for i := range img.Pix {
		img.Pix[i] = fill
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return "file://" + path
}

func testLog() *logrus.Entry {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(l)
}

func TestLoad_ComputesStableContentHashID(t *testing.T) {
	dir := t.TempDir()
	url := writePNG(t, dir, "bars.png", 128)

	lib, err := Load([]string{url}, testLog())
	require.NoError(t, err)
	require.Equal(t, 1, lib.Len())

	id, ok := lib.IDForURL(url)
	require.True(t, ok)
	assert.Len(t, id, 64) // hex-encoded sha256
}

func TestLoad_UnsupportedScheme(t *testing.T) {
	_, err := Load([]string{"https://example.com/slate.png"}, testLog())
	require.Error(t, err)
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, "https://example.com/slate.png", loadErr.URL)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load([]string{"file:///no/such/file.png"}, testLog())
	require.Error(t, err)
}

func TestFindBestMatch_DuplicateContentSharesOneSlate(t *testing.T) {
	dir := t.TempDir()
	urlA := writePNG(t, dir, "a.png", 0)
	urlB := writePNG(t, dir, "b.png", 0) // identical bytes: different files, same content => same id

	lib, err := Load([]string{urlA, urlB}, testLog())
	require.NoError(t, err)
	require.Equal(t, 1, lib.Len(), "identical content should collapse to a single slate id")

	fp := fingerprint.FromImage(image.NewGray(image.Rect(0, 0, 32, 32)))
	m, ok := lib.FindBestMatch(fp, 0.95)
	require.True(t, ok)
	assert.Equal(t, 1.0, m.Score)
}

func TestFindBestMatch_BelowThresholdNoMatch(t *testing.T) {
	dir := t.TempDir()
	url := writePNG(t, dir, "solid.png", 255)
	lib, err := Load([]string{url}, testLog())
	require.NoError(t, err)

	img := image.NewGray(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			if (x+y)%2 == 0 {
				img.SetGray(x, y, color.Gray{Y: 0})
			} else {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	fp := fingerprint.FromImage(img)

	_, ok := lib.FindBestMatch(fp, 0.999)
	assert.False(t, ok)
}
