package Gotrends

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testPixel struct {
	X            float64          `json:"x"`
	Y            float64          `json:"y"`
	ChangeModels []map[string]any `json:"change_models"`
}

func writeChipJSON(t *testing.T, dir string, name string, pixels any) {
	t.Helper()
	data, err := json.Marshal(pixels)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0644))
}

// chipPixels 逆序生成切片全部像素，检验按坐标对齐而非按文件顺序
func chipPixels(c Chip) []testPixel {
	pixels := make([]testPixel, 0, c.PixelCount())
	for i := c.PixelCount() - 1; i >= 0; i-- {
		ul := c.PixelUpperLeft(i)
		pixels = append(pixels, testPixel{X: ul[0], Y: ul[1], ChangeModels: []map[string]any{}})
	}
	return pixels
}

func TestJSONResultStoreAlignsRowMajor(t *testing.T) {
	g := smallGrid(t)
	chip, _ := g.Chip(4)
	dir := t.TempDir()

	pixels := chipPixels(chip)
	// 像素下标 5 位于倒序数组的 len-1-5
	pixels[len(pixels)-1-5].ChangeModels = []map[string]any{
		{
			"start_day":          ToOrdinal(day("1990-01-01")),
			"end_day":            ToOrdinal(day("1996-01-01")),
			"break_day":          ToOrdinal(day("1996-01-01")),
			"curve_qa":           8,
			"change_probability": 1.0,
			"observation_count":  120,
		},
		{"start_day": ToOrdinal(day("1996-02-01"))},
	}
	writeChipJSON(t, dir, ChipFileName(5, 2, chip), pixels)

	store := NewJSONResultStore(dir)
	records, err := store.QueryChip(5, 2, chip)
	require.NoError(t, err)
	require.Len(t, records, 16)

	rec := records[5]
	require.Len(t, rec.Segments, 2)
	assert.Equal(t, day("1990-01-01"), rec.Segments[0].Start)
	assert.Equal(t, day("1996-01-01"), rec.Segments[0].End)
	assert.Equal(t, 8, rec.Segments[0].CurveQA)
	assert.Equal(t, 120, rec.Segments[0].ObservationCount)
	assert.True(t, rec.Segments[0].Valid())
	assert.False(t, rec.Segments[1].Valid(), "missing end day")

	for i, r := range records {
		if i != 5 {
			assert.True(t, r.Empty())
		}
	}
}

func TestJSONResultStoreFileName(t *testing.T) {
	g := smallGrid(t)
	chip, _ := g.Chip(1)
	assert.Equal(t, "H05V02_-1815585_3014805.json", ChipFileName(5, 2, chip))
}

func TestJSONResultStoreErrors(t *testing.T) {
	g := smallGrid(t)
	chip, _ := g.Chip(1)

	cases := map[string]func(t *testing.T, dir string){
		"missing file": func(t *testing.T, dir string) {},
		"invalid json": func(t *testing.T, dir string) {
			require.NoError(t, os.WriteFile(filepath.Join(dir, ChipFileName(5, 2, chip)), []byte("{"), 0644))
		},
		"missing pixels": func(t *testing.T, dir string) {
			writeChipJSON(t, dir, ChipFileName(5, 2, chip), chipPixels(chip)[:10])
		},
		"duplicate pixel": func(t *testing.T, dir string) {
			pixels := chipPixels(chip)
			pixels[1] = pixels[0]
			writeChipJSON(t, dir, ChipFileName(5, 2, chip), pixels)
		},
		"pixel outside chip": func(t *testing.T, dir string) {
			pixels := chipPixels(chip)
			pixels[0].X += 1000
			writeChipJSON(t, dir, ChipFileName(5, 2, chip), pixels)
		},
	}

	for name, setup := range cases {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			setup(t, dir)

			_, err := NewJSONResultStore(dir).QueryChip(5, 2, chip)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrResultStore))

			var rse *ResultStoreError
			require.True(t, errors.As(err, &rse))
			assert.Equal(t, ChipID(1), rse.Chip)
		})
	}
}
