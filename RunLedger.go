package Gotrends

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ChipRecorder 记录运行及切片处理结果
type ChipRecorder interface {
	BeginRun(summary *RunSummary) error
	RecordChip(runID string, outcome ChipOutcome) error
	FinishRun(summary *RunSummary) error
}

// NopRecorder 不记录
type NopRecorder struct{}

func (NopRecorder) BeginRun(*RunSummary) error           { return nil }
func (NopRecorder) RecordChip(string, ChipOutcome) error { return nil }
func (NopRecorder) FinishRun(*RunSummary) error          { return nil }

// RunRecord 一次运行
type RunRecord struct {
	ID              string `gorm:"primaryKey;size:36"`
	Mode            string `gorm:"size:16"`
	H               int
	V               int
	Total           int
	WithReference   int
	Written         int
	Skipped         int
	Failed          int
	ValidatedPixels int
	StartedAt       time.Time
	FinishedAt      *time.Time
}

// ChipRecord 一个切片的处理结果
type ChipRecord struct {
	ID              uint   `gorm:"primaryKey"`
	RunID           string `gorm:"size:36;index:idx_run_chip"`
	ChipID          int    `gorm:"index:idx_run_chip"`
	Status          string `gorm:"size:16"`
	ReferencePixels int
	ValidatedPixels int
	NoCoverage      int
	OutputPath      string
	Error           string
	CreatedAt       time.Time
}

// Ledger 基于SQLite的运行记录库
type Ledger struct {
	db    *gorm.DB
	sqlDB *sql.DB
	log   *zap.Logger
}

// OpenLedger 打开（或创建）记录库并迁移表结构
func OpenLedger(path string, log *zap.Logger) (*Ledger, error) {
	if log == nil {
		log = zap.NewNop()
	}

	sqlDB, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger database: %w", err)
	}

	db, err := gorm.Open(sqlite.New(sqlite.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to initialise ledger: %w", err)
	}

	if err := db.AutoMigrate(&RunRecord{}, &ChipRecord{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate ledger tables: %w", err)
	}

	return &Ledger{db: db, sqlDB: sqlDB, log: log}, nil
}

// Close 关闭数据库
func (l *Ledger) Close() error {
	return l.sqlDB.Close()
}

func (l *Ledger) BeginRun(summary *RunSummary) error {
	rec := RunRecord{
		ID:        summary.RunID,
		Mode:      string(summary.Mode),
		H:         summary.H,
		V:         summary.V,
		Total:     summary.Total,
		StartedAt: summary.StartedAt,
	}
	if err := l.db.Create(&rec).Error; err != nil {
		return fmt.Errorf("failed to record run %s: %w", summary.RunID, err)
	}
	l.log.Debug("run recorded", zap.String("run", summary.RunID))
	return nil
}

func (l *Ledger) RecordChip(runID string, outcome ChipOutcome) error {
	rec := ChipRecord{
		RunID:           runID,
		ChipID:          int(outcome.Chip),
		Status:          string(outcome.Status),
		ReferencePixels: outcome.ReferencePixels,
		ValidatedPixels: outcome.ValidatedPixels,
		NoCoverage:      outcome.NoCoverage,
		OutputPath:      outcome.OutputPath,
	}
	if outcome.Err != nil {
		rec.Error = outcome.Err.Error()
	}
	if err := l.db.Create(&rec).Error; err != nil {
		return fmt.Errorf("failed to record chip %s: %w", outcome.Chip, err)
	}
	return nil
}

func (l *Ledger) FinishRun(summary *RunSummary) error {
	finished := summary.FinishedAt
	err := l.db.Model(&RunRecord{}).Where("id = ?", summary.RunID).Updates(map[string]interface{}{
		"with_reference":   summary.WithReference,
		"written":          summary.Written,
		"skipped":          summary.Skipped,
		"failed":           summary.Failed,
		"validated_pixels": summary.ValidatedPixels,
		"finished_at":      &finished,
	}).Error
	if err != nil {
		return fmt.Errorf("failed to finish run %s: %w", summary.RunID, err)
	}
	return nil
}

// Run 查询一次运行
func (l *Ledger) Run(runID string) (*RunRecord, error) {
	var rec RunRecord
	if err := l.db.First(&rec, "id = ?", runID).Error; err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", runID, err)
	}
	return &rec, nil
}

// Chips 按切片编号列出一次运行的切片记录
func (l *Ledger) Chips(runID string) ([]ChipRecord, error) {
	var recs []ChipRecord
	if err := l.db.Where("run_id = ?", runID).Order("chip_id").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to load chips for run %s: %w", runID, err)
	}
	return recs, nil
}
