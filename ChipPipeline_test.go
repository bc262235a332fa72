package Gotrends

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memReader struct {
	regions map[orb.Bound][]float64
	fail    map[orb.Bound]error
	size    int // 区域边长，默认 4
	reads   int
}

func (r *memReader) ReadRegion(path string, bounds orb.Bound) (*RegionBuffer, error) {
	r.reads++
	if err, ok := r.fail[bounds]; ok {
		return nil, err
	}
	size := r.size
	if size == 0 {
		size = 4
	}
	data, ok := r.regions[bounds]
	if !ok {
		data = make([]float64, size*size)
	}
	return &RegionBuffer{Width: size, Height: size, Data: data}, nil
}

type memStore struct {
	records map[ChipID][]ChangeRecord
	queries []ChipID
}

func (s *memStore) QueryChip(h, v int, chip Chip) ([]ChangeRecord, error) {
	s.queries = append(s.queries, chip.ID)
	recs, ok := s.records[chip.ID]
	if !ok {
		return make([]ChangeRecord, chip.PixelCount()), nil
	}
	return recs, nil
}

type writtenMask struct {
	width, height int
	data          []byte
	gt            GeoTransform
	wkt           string
}

type memWriter struct {
	masks map[string]writtenMask
	err   error
}

func (w *memWriter) WriteMask(path string, width, height int, data []byte, gt GeoTransform, wkt string) error {
	if w.err != nil {
		return &RasterWriteError{Path: path, Err: w.err}
	}
	if w.masks == nil {
		w.masks = make(map[string]writtenMask)
	}
	w.masks[path] = writtenMask{width: width, height: height, data: append([]byte(nil), data...), gt: gt, wkt: wkt}
	return nil
}

type countingProgress struct{ calls [][2]int }

func (p *countingProgress) Report(done, total int) { p.calls = append(p.calls, [2]int{done, total}) }

// smallGrid 3x3 个 4x4 像素的切片
func smallGrid(t *testing.T) *TileGrid {
	t.Helper()
	cfg := DefaultConfig().Grid
	cfg.ChipPixels = 4
	cfg.ChipsPerSide = 3
	g, err := NewTileGrid(5, 2, cfg)
	require.NoError(t, err)
	return g
}

func defaultExpectation() Expectation {
	return Expectation{Interval: iv("1992-01-01", "2001-01-01")}
}

func newTestPipeline(t *testing.T, g *TileGrid, r *memReader, s *memStore, w *memWriter, opts PipelineOptions) *ChipPipeline {
	t.Helper()
	opts.ReferencePath = "trends.tif"
	opts.OutputDir = "/out"
	if opts.Expectations == nil {
		opts.Expectations = FixedExpectation(defaultExpectation())
	}
	p, err := NewChipPipeline(g, r, s, w, opts)
	require.NoError(t, err)
	return p
}

func TestRunTrendsAllZeroReferenceWritesNothing(t *testing.T) {
	g := smallGrid(t)
	r := &memReader{}
	s := &memStore{}
	w := &memWriter{}
	progress := &countingProgress{}

	p := newTestPipeline(t, g, r, s, w, PipelineOptions{Progress: progress})
	summary, err := p.RunTrends(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 9, summary.Total)
	assert.Equal(t, 9, summary.Processed)
	assert.Equal(t, 9, summary.Skipped)
	assert.Equal(t, 0, summary.Written)
	assert.Empty(t, w.masks)
	assert.Empty(t, s.queries, "result store is not queried for chips without reference data")
	assert.Equal(t, 9, r.reads)
	require.Len(t, progress.calls, 9)
	assert.Equal(t, [2]int{9, 9}, progress.calls[8])
	assert.NotEmpty(t, summary.RunID)
}

func TestRunTrendsSingleMatchingPixel(t *testing.T) {
	g := smallGrid(t)
	chip, _ := g.Chip(5)

	ref := make([]float64, 16)
	ref[6] = 3
	records := make([]ChangeRecord, 16)
	records[6] = ChangeRecord{Segments: []ChangeSegment{seg("1990-01-01", "1995-06-01", "")}}
	// 掩膜以外的位置即使有匹配也不能出现在输出中
	records[7] = ChangeRecord{Segments: []ChangeSegment{seg("1990-01-01", "1995-06-01", "")}}

	r := &memReader{regions: map[orb.Bound][]float64{chip.Bounds: ref}}
	s := &memStore{records: map[ChipID][]ChangeRecord{5: records}}
	w := &memWriter{}

	p := newTestPipeline(t, g, r, s, w, PipelineOptions{})
	summary, err := p.RunTrends(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Written)
	assert.Equal(t, 1, summary.WithReference)
	assert.Equal(t, 1, summary.ValidatedPixels)
	assert.Equal(t, []ChipID{5}, s.queries)

	path := p.MaskPath(ModeTrends, 5)
	assert.Equal(t, "/out/chips/mask_5.tif", path)
	m, ok := w.masks[path]
	require.True(t, ok)
	assert.Equal(t, 4, m.width)
	assert.Equal(t, 1, OutputMask(m.data).Sum())
	assert.Equal(t, byte(1), m.data[6])
	assert.Equal(t, chip.GeoTransform(), m.gt)
	assert.Equal(t, AlbersWKT, m.wkt)
}

func TestRunTrendsFullSizeCell(t *testing.T) {
	g, err := NewTileGrid(5, 2, DefaultConfig().Grid)
	require.NoError(t, err)
	chip, _ := g.Chip(1)
	require.Equal(t, 100, chip.Width)

	ref := make([]float64, chip.PixelCount())
	ref[0] = 1
	records := make([]ChangeRecord, chip.PixelCount())
	records[0] = ChangeRecord{Segments: []ChangeSegment{seg("1990-01-01", "1995-06-01", "")}}

	r := &memReader{regions: map[orb.Bound][]float64{chip.Bounds: ref}, size: 100}
	s := &memStore{records: map[ChipID][]ChangeRecord{1: records}}
	w := &memWriter{}

	p := newTestPipeline(t, g, r, s, w, PipelineOptions{})
	summary, err := p.RunTrends(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2500, summary.Processed)
	assert.Equal(t, 1, summary.Written)
	assert.Equal(t, 2499, summary.Skipped)
	require.Len(t, w.masks, 1)

	m := w.masks[p.MaskPath(ModeTrends, 1)]
	assert.Equal(t, 100, m.width)
	assert.Equal(t, 100, m.height)
	assert.Len(t, m.data, 10000)
	assert.Equal(t, 1, OutputMask(m.data).Sum())
	assert.Equal(t, GeoTransform{-1815585, 30, 0, 3014805, 0, -30}, m.gt)
}

func TestTrendsChipNoCoverageCountsAsValid(t *testing.T) {
	g := smallGrid(t)
	chip, _ := g.Chip(1)

	ref := make([]float64, 16)
	ref[0], ref[1] = 1, 1
	records := make([]ChangeRecord, 16)
	records[1] = ChangeRecord{Segments: []ChangeSegment{seg("2005-01-01", "2010-01-01", "")}}

	r := &memReader{regions: map[orb.Bound][]float64{chip.Bounds: ref}}
	s := &memStore{records: map[ChipID][]ChangeRecord{1: records}}
	w := &memWriter{}

	p := newTestPipeline(t, g, r, s, w, PipelineOptions{})
	outcome, err := p.TrendsChip(chip)
	require.NoError(t, err)

	assert.Equal(t, ChipWritten, outcome.Status)
	assert.Equal(t, 2, outcome.ReferencePixels)
	assert.Equal(t, 1, outcome.NoCoverage)
	assert.Equal(t, 1, outcome.ValidatedPixels)
	assert.Equal(t, []byte{1, 0}, w.masks[outcome.OutputPath].data[:2])
}

func TestTrendsChipAllFailingIsNotWritten(t *testing.T) {
	g := smallGrid(t)
	chip, _ := g.Chip(2)

	ref := make([]float64, 16)
	ref[3] = 1
	records := make([]ChangeRecord, 16)
	records[3] = ChangeRecord{Segments: []ChangeSegment{seg("2005-01-01", "2010-01-01", "")}}

	r := &memReader{regions: map[orb.Bound][]float64{chip.Bounds: ref}}
	s := &memStore{records: map[ChipID][]ChangeRecord{2: records}}
	w := &memWriter{}

	p := newTestPipeline(t, g, r, s, w, PipelineOptions{})
	outcome, err := p.TrendsChip(chip)
	require.NoError(t, err)
	assert.Equal(t, ChipEmptyOutput, outcome.Status)
	assert.Empty(t, w.masks)
}

func TestTrendsChipUsesClassTable(t *testing.T) {
	g := smallGrid(t)
	chip, _ := g.Chip(3)

	ref := make([]float64, 16)
	ref[0], ref[1], ref[2] = 2, 5, 9
	records := make([]ChangeRecord, 16)
	for _, i := range []int{0, 1, 2} {
		records[i] = ChangeRecord{Segments: []ChangeSegment{seg("1994-01-01", "1996-01-01", "forest")}}
	}

	table := NewClassTable()
	table.Set(2, Expectation{Interval: iv("1992-01-01", "2001-01-01"), Class: "forest"})
	table.Set(5, Expectation{Interval: iv("1992-01-01", "2001-01-01"), Class: "urban"})

	r := &memReader{regions: map[orb.Bound][]float64{chip.Bounds: ref}}
	s := &memStore{records: map[ChipID][]ChangeRecord{3: records}}
	w := &memWriter{}

	p := newTestPipeline(t, g, r, s, w, PipelineOptions{Expectations: table})
	outcome, err := p.TrendsChip(chip)
	require.NoError(t, err)

	assert.Equal(t, 1, outcome.Unmatched, "value 9 has no expectation")
	assert.Equal(t, []byte{1, 0, 0}, w.masks[outcome.OutputPath].data[:3])
}

func TestTrendsChipKeepsReferenceSubset(t *testing.T) {
	g := smallGrid(t)
	chip, _ := g.Chip(4)

	ref := make([]float64, 16)
	ref[0] = 300
	ref[1] = 7
	r := &memReader{regions: map[orb.Bound][]float64{chip.Bounds: ref}}
	w := &memWriter{}

	p := newTestPipeline(t, g, r, &memStore{}, w, PipelineOptions{KeepReferenceChips: true})
	_, err := p.TrendsChip(chip)
	require.NoError(t, err)

	m, ok := w.masks["/out/trends_chips/trends_4.tif"]
	require.True(t, ok)
	assert.Equal(t, []byte{255, 7, 0}, m.data[:3])
}

func TestRunTrendsAbortsOnReadErrorByDefault(t *testing.T) {
	g := smallGrid(t)
	chip, _ := g.Chip(2)
	readErr := &RasterReadError{Path: "trends.tif", Err: errors.New("boom")}

	r := &memReader{fail: map[orb.Bound]error{chip.Bounds: readErr}}
	p := newTestPipeline(t, g, r, &memStore{}, &memWriter{}, PipelineOptions{})

	summary, err := p.RunTrends(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRasterRead))
	assert.Equal(t, 2, summary.Processed)
	assert.Equal(t, 1, summary.Failed)
}

func TestRunTrendsContinueOnError(t *testing.T) {
	g := smallGrid(t)
	c2, _ := g.Chip(2)
	c7, _ := g.Chip(7)

	r := &memReader{fail: map[orb.Bound]error{
		c2.Bounds: &RasterReadError{Path: "trends.tif", Err: errors.New("boom")},
		c7.Bounds: &RasterReadError{Path: "trends.tif", Err: errors.New("bang")},
	}}
	recorder := &memRecorder{}
	p := newTestPipeline(t, g, r, &memStore{}, &memWriter{}, PipelineOptions{ContinueOnError: true, Recorder: recorder})

	summary, err := p.RunTrends(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRasterRead))
	assert.Equal(t, 9, summary.Processed)
	assert.Equal(t, 2, summary.Failed)
	assert.Len(t, summary.Errors, 2)

	assert.True(t, recorder.begun)
	assert.True(t, recorder.finished)
	require.Len(t, recorder.chips, 9)
	assert.Equal(t, ChipFailed, recorder.chips[1].Status)
}

func TestRunTrendsLengthMismatchAlwaysAborts(t *testing.T) {
	g := smallGrid(t)
	chip, _ := g.Chip(1)

	ref := make([]float64, 16)
	ref[0] = 1
	r := &memReader{regions: map[orb.Bound][]float64{chip.Bounds: ref}}
	s := &memStore{records: map[ChipID][]ChangeRecord{1: make([]ChangeRecord, 3)}}

	p := newTestPipeline(t, g, r, s, &memWriter{}, PipelineOptions{ContinueOnError: true})
	summary, err := p.RunTrends(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLengthMismatch))
	assert.Equal(t, 1, summary.Processed)
}

func TestRunTrendsWriteErrorIsFatal(t *testing.T) {
	g := smallGrid(t)
	chip, _ := g.Chip(1)

	ref := make([]float64, 16)
	ref[0] = 1
	r := &memReader{regions: map[orb.Bound][]float64{chip.Bounds: ref}}
	w := &memWriter{err: errors.New("read-only file system")}

	p := newTestPipeline(t, g, r, &memStore{}, w, PipelineOptions{})
	_, err := p.RunTrends(context.Background())
	assert.True(t, errors.Is(err, ErrRasterWrite))
}

func TestRunTrendsFailedWriteCountsNoValidatedPixels(t *testing.T) {
	g := smallGrid(t)
	chip, _ := g.Chip(1)

	ref := make([]float64, 16)
	ref[0] = 1
	r := &memReader{regions: map[orb.Bound][]float64{chip.Bounds: ref}}
	w := &memWriter{err: errors.New("disk full")}
	rec := &memRecorder{}

	p := newTestPipeline(t, g, r, &memStore{}, w, PipelineOptions{ContinueOnError: true, Recorder: rec})
	summary, err := p.RunTrends(context.Background())
	require.Error(t, err)

	assert.Equal(t, 0, summary.Written)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 0, summary.ValidatedPixels)
	require.NotEmpty(t, rec.chips)
	assert.Equal(t, ChipFailed, rec.chips[0].Status)
	assert.Equal(t, 0, rec.chips[0].ValidatedPixels)
}

func TestRunTrendsHonoursCancelledContext(t *testing.T) {
	g := smallGrid(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := newTestPipeline(t, g, &memReader{}, &memStore{}, &memWriter{}, PipelineOptions{})
	summary, err := p.RunTrends(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, summary.Processed)
}

func TestRunTimeSegments(t *testing.T) {
	g := smallGrid(t)

	records := make([]ChangeRecord, 16)
	records[0] = ChangeRecord{Segments: []ChangeSegment{seg("1984-01-01", "1990-01-01", "")}}
	records[15] = ChangeRecord{Segments: []ChangeSegment{seg("2019-01-01", "2020-01-01", "")}}

	s := &memStore{records: map[ChipID][]ChangeRecord{9: records}}
	w := &memWriter{}
	r := &memReader{}

	p, err := NewChipPipeline(g, nil, s, w, PipelineOptions{
		OutputDir: "/out",
		Validity:  ValidityCriterion{Window: iv("1982-01-01", "2018-01-01")},
	})
	require.NoError(t, err)

	summary, err := p.RunTimeSegments(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, r.reads)
	assert.Len(t, s.queries, 9)
	assert.Equal(t, 1, summary.Written)

	m, ok := w.masks["/out/time_seg_masks/chips/mask_9.tif"]
	require.True(t, ok)
	assert.Equal(t, byte(1), m.data[0])
	assert.Equal(t, byte(0), m.data[15])
	assert.Equal(t, 1, OutputMask(m.data).Sum())
}

func TestRunTrendsRequiresReader(t *testing.T) {
	p, err := NewChipPipeline(smallGrid(t), nil, &memStore{}, &memWriter{}, PipelineOptions{ReferencePath: "x.tif"})
	require.NoError(t, err)
	_, err = p.RunTrends(context.Background())
	assert.Error(t, err)
}

type memRecorder struct {
	begun, finished bool
	chips           []ChipOutcome
}

func (m *memRecorder) BeginRun(*RunSummary) error { m.begun = true; return nil }
func (m *memRecorder) RecordChip(runID string, o ChipOutcome) error {
	if runID == "" {
		return fmt.Errorf("missing run id")
	}
	m.chips = append(m.chips, o)
	return nil
}
func (m *memRecorder) FinishRun(*RunSummary) error { m.finished = true; return nil }
