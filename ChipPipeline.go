package Gotrends

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RunMode 验证方式
type RunMode string

const (
	ModeTrends       RunMode = "trends"   // 与参考变化数据对照
	ModeTimeSegments RunMode = "time_seg" // 只检查时间段
)

// ChipStatus 切片处理结果
type ChipStatus string

const (
	ChipNoReference ChipStatus = "no_reference" // 参考数据为空，跳过
	ChipEmptyOutput ChipStatus = "empty_output" // 输出全为0，不写出
	ChipWritten     ChipStatus = "written"
	ChipFailed      ChipStatus = "failed"
)

// ChipOutcome 单个切片的处理结果
type ChipOutcome struct {
	Chip            ChipID
	Status          ChipStatus
	ReferencePixels int // 参与判定的像素数
	ValidatedPixels int // 输出为1的像素数
	NoCoverage      int // 检测结果为空的像素数
	Unmatched       int // 参考值没有对应期望的像素数
	OutputPath      string
	Err             error
}

// RunSummary 一次运行的汇总
type RunSummary struct {
	RunID           string
	Mode            RunMode
	H, V            int
	Total           int
	Processed       int
	WithReference   int
	Written         int
	Skipped         int
	Failed          int
	ValidatedPixels int
	StartedAt       time.Time
	FinishedAt      time.Time
	Errors          []error
}

// PipelineOptions 流水线选项
type PipelineOptions struct {
	ReferencePath      string // 参考变化栅格，仅 trends 方式需要
	OutputDir          string
	ProjectionWKT      string
	KeepReferenceChips bool
	ContinueOnError    bool // 切片级I/O错误时记录并继续，否则中止
	Expectations       ExpectationSource
	Validity           ValidityCriterion
	Progress           ProgressReporter
	Recorder           ChipRecorder
	Logger             *zap.Logger
}

// ChipPipeline 按切片驱动参考数据读取、判定、掩膜合成与写出，切片之间互不依赖
type ChipPipeline struct {
	grid   *TileGrid
	reader RasterRegionReader
	store  ResultStore
	writer MaskWriter
	opts   PipelineOptions
	log    *zap.Logger
}

// NewChipPipeline 创建流水线
func NewChipPipeline(grid *TileGrid, reader RasterRegionReader, store ResultStore, writer MaskWriter, opts PipelineOptions) (*ChipPipeline, error) {
	if grid == nil {
		return nil, errors.New("tile grid is nil")
	}
	if store == nil || writer == nil {
		return nil, errors.New("result store and mask writer are required")
	}

	if opts.OutputDir == "" {
		opts.OutputDir = "./output"
	}
	if opts.ProjectionWKT == "" {
		opts.ProjectionWKT = AlbersWKT
	}
	if opts.Progress == nil {
		opts.Progress = NopProgress{}
	}
	if opts.Recorder == nil {
		opts.Recorder = NopRecorder{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return &ChipPipeline{
		grid:   grid,
		reader: reader,
		store:  store,
		writer: writer,
		opts:   opts,
		log:    opts.Logger.With(zap.String("cell", grid.Name())),
	}, nil
}

// MaskPath 输出掩膜路径
func (p *ChipPipeline) MaskPath(mode RunMode, id ChipID) string {
	name := fmt.Sprintf("mask_%s.tif", id)
	if mode == ModeTimeSegments {
		return filepath.Join(p.opts.OutputDir, "time_seg_masks", "chips", name)
	}
	return filepath.Join(p.opts.OutputDir, "chips", name)
}

// ReferenceChipPath 按切片裁剪的参考数据路径
func (p *ChipPipeline) ReferenceChipPath(id ChipID) string {
	return filepath.Join(p.opts.OutputDir, "trends_chips", fmt.Sprintf("trends_%s.tif", id))
}

// RunTrends 逐切片对照参考变化数据
func (p *ChipPipeline) RunTrends(ctx context.Context) (*RunSummary, error) {
	if p.reader == nil {
		return nil, errors.New("trends validation needs a raster reader")
	}
	if p.opts.ReferencePath == "" {
		return nil, errors.New("trends validation needs a reference raster path")
	}
	if p.opts.Expectations == nil {
		return nil, errors.New("trends validation needs an expectation source")
	}
	return p.run(ctx, ModeTrends, p.TrendsChip)
}

// RunTimeSegments 逐切片检查全部像素的时间段
func (p *ChipPipeline) RunTimeSegments(ctx context.Context) (*RunSummary, error) {
	if !p.opts.Validity.Window.Valid() {
		return nil, errors.New("time segment validation needs a valid window")
	}
	return p.run(ctx, ModeTimeSegments, p.TimeSegmentChip)
}

func (p *ChipPipeline) run(ctx context.Context, mode RunMode, process func(Chip) (ChipOutcome, error)) (*RunSummary, error) {
	ids := p.grid.IDs()
	summary := &RunSummary{
		RunID:     uuid.New().String(),
		Mode:      mode,
		H:         p.grid.H(),
		V:         p.grid.V(),
		Total:     len(ids),
		StartedAt: time.Now(),
	}

	if err := p.opts.Recorder.BeginRun(summary); err != nil {
		p.log.Warn("failed to record run start", zap.Error(err))
	}
	defer func() {
		summary.FinishedAt = time.Now()
		if err := p.opts.Recorder.FinishRun(summary); err != nil {
			p.log.Warn("failed to record run end", zap.Error(err))
		}
	}()

	p.log.Info("starting run",
		zap.String("run", summary.RunID),
		zap.String("mode", string(mode)),
		zap.Int("chips", summary.Total))

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		chip, _ := p.grid.Chip(id)
		outcome, err := process(chip)
		if err != nil {
			outcome.Chip = id
			outcome.Status = ChipFailed
			outcome.Err = err
			outcome.ValidatedPixels = 0
		}
		p.tally(summary, outcome)

		if rerr := p.opts.Recorder.RecordChip(summary.RunID, outcome); rerr != nil {
			p.log.Warn("failed to record chip", zap.Stringer("chip", id), zap.Error(rerr))
		}

		summary.Processed++
		p.opts.Progress.Report(summary.Processed, summary.Total)

		if err != nil {
			if errors.Is(err, ErrLengthMismatch) || !p.opts.ContinueOnError {
				return summary, fmt.Errorf("chip %s: %w", id, err)
			}
			p.log.Error("chip failed, continuing", zap.Stringer("chip", id), zap.Error(err))
			summary.Errors = append(summary.Errors, fmt.Errorf("chip %s: %w", id, err))
		}
	}

	p.log.Info("run finished",
		zap.String("run", summary.RunID),
		zap.Int("written", summary.Written),
		zap.Int("failed", summary.Failed),
		zap.Int("validated_pixels", summary.ValidatedPixels))

	return summary, errors.Join(summary.Errors...)
}

func (p *ChipPipeline) tally(s *RunSummary, o ChipOutcome) {
	switch o.Status {
	case ChipNoReference:
		s.Skipped++
	case ChipEmptyOutput:
		s.WithReference++
		s.ValidatedPixels += o.ValidatedPixels
	case ChipWritten:
		s.WithReference++
		s.Written++
		s.ValidatedPixels += o.ValidatedPixels
	case ChipFailed:
		s.Failed++
	}
}

// TrendsChip 处理单个切片：参考数据 > 0 的像素与检测结果对照
func (p *ChipPipeline) TrendsChip(chip Chip) (ChipOutcome, error) {
	outcome := ChipOutcome{Chip: chip.ID}

	ref, err := p.reader.ReadRegion(p.opts.ReferencePath, chip.Bounds)
	if err != nil {
		return outcome, err
	}
	if ref.Width != chip.Width || ref.Height != chip.Height || len(ref.Data) != chip.PixelCount() {
		return outcome, &RasterReadError{
			Path: p.opts.ReferencePath,
			Err:  fmt.Errorf("expected %dx%d region, got %dx%d", chip.Width, chip.Height, ref.Width, ref.Height),
		}
	}

	mask := NewReferenceMask(ref.Data)
	if !mask.Any() {
		p.log.Debug("no reference data", zap.Stringer("chip", chip.ID))
		outcome.Status = ChipNoReference
		return outcome, nil
	}
	outcome.ReferencePixels = mask.Count()
	p.log.Info("found reference data for chip",
		zap.Stringer("chip", chip.ID),
		zap.Int("reference_pixels", outcome.ReferencePixels))

	if p.opts.KeepReferenceChips {
		path := p.ReferenceChipPath(chip.ID)
		if err := p.writer.WriteMask(path, chip.Width, chip.Height, toBytes(ref.Data), chip.GeoTransform(), p.opts.ProjectionWKT); err != nil {
			return outcome, err
		}
	}

	records, err := p.store.QueryChip(p.grid.H(), p.grid.V(), chip)
	if err != nil {
		return outcome, err
	}
	selected, err := Select(mask, records)
	if err != nil {
		return outcome, err
	}
	values, err := Select(mask, ref.Data)
	if err != nil {
		return outcome, err
	}

	verdicts := make([]bool, len(selected))
	for i, rec := range selected {
		exp, ok := p.opts.Expectations.Expect(values[i])
		if !ok {
			outcome.Unmatched++
			continue
		}
		if rec.Empty() {
			outcome.NoCoverage++
		}
		verdicts[i] = Validate(rec, exp)
	}

	return p.finishChip(ModeTrends, chip, mask, verdicts, outcome)
}

// TimeSegmentChip 处理单个切片：不使用参考数据，检查每个像素的时间段
func (p *ChipPipeline) TimeSegmentChip(chip Chip) (ChipOutcome, error) {
	outcome := ChipOutcome{Chip: chip.ID}

	records, err := p.store.QueryChip(p.grid.H(), p.grid.V(), chip)
	if err != nil {
		return outcome, err
	}

	mask := FullMask(chip.PixelCount())
	selected, err := Select(mask, records)
	if err != nil {
		return outcome, err
	}
	outcome.ReferencePixels = len(selected)

	verdicts := make([]bool, len(selected))
	for i, rec := range selected {
		if rec.Empty() {
			outcome.NoCoverage++
		}
		verdicts[i] = ValidateUnconditional(rec, p.opts.Validity)
	}

	return p.finishChip(ModeTimeSegments, chip, mask, verdicts, outcome)
}

func (p *ChipPipeline) finishChip(mode RunMode, chip Chip, mask ReferenceMask, verdicts []bool, outcome ChipOutcome) (ChipOutcome, error) {
	out, err := Compose(mask, verdicts)
	if err != nil {
		return outcome, err
	}

	outcome.ValidatedPixels = out.Sum()
	if !out.Any() {
		outcome.Status = ChipEmptyOutput
		return outcome, nil
	}

	path := p.MaskPath(mode, chip.ID)
	if err := p.writer.WriteMask(path, chip.Width, chip.Height, out, chip.GeoTransform(), p.opts.ProjectionWKT); err != nil {
		return outcome, err
	}
	outcome.Status = ChipWritten
	outcome.OutputPath = path

	p.log.Debug("mask written",
		zap.Stringer("chip", chip.ID),
		zap.Int("validated_pixels", outcome.ValidatedPixels),
		zap.String("output", path))
	return outcome, nil
}

// toBytes 参考值转为Byte，超出范围的截断
func toBytes(values []float64) []byte {
	out := make([]byte, len(values))
	for i, v := range values {
		switch {
		case math.IsNaN(v) || v <= 0:
			out[i] = 0
		case v >= 255:
			out[i] = 255
		default:
			out[i] = byte(v)
		}
	}
	return out
}
