/*
Copyright (C) 2025 [GrainArc]

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU Affero General Public License as published
by the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU Affero General Public License for more details.

You should have received a copy of the GNU Affero General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/
package Gotrends

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const dateLayout = "2006-01-02"

// AlbersWKT CONUS ARD 使用的 Albers 等积圆锥投影
const AlbersWKT = `PROJCS["Albers",GEOGCS["WGS 84",DATUM["WGS_1984",SPHEROID["WGS 84",6378140,298.2569999999957,AUTHORITY["EPSG","7030"]],AUTHORITY["EPSG","6326"]],PRIMEM["Greenwich",0],UNIT["degree",0.0174532925199433],AUTHORITY["EPSG","4326"]],PROJECTION["Albers_Conic_Equal_Area"],PARAMETER["standard_parallel_1",29.5],PARAMETER["standard_parallel_2",45.5],PARAMETER["latitude_of_center",23],PARAMETER["longitude_of_center",-96],PARAMETER["false_easting",0],PARAMETER["false_northing",0],UNIT["metre",1,AUTHORITY["EPSG","9001"]]]`

// Config 运行配置
type Config struct {
	Grid        GridConfig        `yaml:"grid"`
	Output      OutputConfig      `yaml:"output"`
	Expectation ExpectationConfig `yaml:"expectation"`
	Validity    ValidityConfig    `yaml:"validity"`
	Ledger      LedgerConfig      `yaml:"ledger"`
	Pipeline    PipelineConfig    `yaml:"pipeline"`
}

// GridConfig 网格切分方案
type GridConfig struct {
	OriginX      float64 `yaml:"origin_x"`       // h=0 网格单元左上角X
	OriginY      float64 `yaml:"origin_y"`       // v=0 网格单元左上角Y
	PixelSize    float64 `yaml:"pixel_size"`     // 像素分辨率（米）
	ChipPixels   int     `yaml:"chip_pixels"`    // 切片边长（像素）
	ChipsPerSide int     `yaml:"chips_per_side"` // 每个网格单元每边的切片数
	MaxH         int     `yaml:"max_h"`
	MaxV         int     `yaml:"max_v"`
}

// ChipSize 切片边长（地图单位）
func (g GridConfig) ChipSize() float64 {
	return float64(g.ChipPixels) * g.PixelSize
}

// CellSize 网格单元边长（地图单位）
func (g GridConfig) CellSize() float64 {
	return float64(g.ChipsPerSide) * g.ChipSize()
}

// ChipCount 每个网格单元的切片数量
func (g GridConfig) ChipCount() int {
	return g.ChipsPerSide * g.ChipsPerSide
}

func (g GridConfig) Validate() error {
	if g.PixelSize <= 0 {
		return fmt.Errorf("grid: pixel_size must be positive, got %v", g.PixelSize)
	}
	if g.ChipPixels <= 0 || g.ChipsPerSide <= 0 {
		return fmt.Errorf("grid: chip_pixels and chips_per_side must be positive")
	}
	if g.MaxH < 0 || g.MaxV < 0 {
		return fmt.Errorf("grid: max_h and max_v must not be negative")
	}
	return nil
}

// OutputConfig 输出选项
type OutputConfig struct {
	Dir                string `yaml:"dir"`
	ProjectionWKT      string `yaml:"projection_wkt"`
	KeepReferenceChips bool   `yaml:"keep_reference_chips"` // 保留按切片裁剪的参考数据
	Overwrite          bool   `yaml:"overwrite"`            // 替换已存在的输出文件
}

// ExpectationConfig 期望变化区间
type ExpectationConfig struct {
	Start   string             `yaml:"start"`
	End     string             `yaml:"end"`
	Class   string             `yaml:"class"`
	Classes []ClassExpectation `yaml:"classes"`
}

// ClassExpectation 参考栅格值对应的期望
type ClassExpectation struct {
	Value float64 `yaml:"value"`
	Class string  `yaml:"class"`
	Start string  `yaml:"start"` // 为空时使用默认区间
	End   string  `yaml:"end"`
}

// ValidityConfig 时间段检查使用的有效窗口
type ValidityConfig struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// LedgerConfig 运行记录库
type LedgerConfig struct {
	Path string `yaml:"path"` // 为空表示不记录
}

type PipelineConfig struct {
	ContinueOnError bool `yaml:"continue_on_error"`
}

// DefaultConfig CONUS ARD 网格的默认配置
func DefaultConfig() Config {
	return Config{
		Grid: GridConfig{
			OriginX:      -2565585,
			OriginY:      3314805,
			PixelSize:    30,
			ChipPixels:   100,
			ChipsPerSide: 50,
			MaxH:         32,
			MaxV:         21,
		},
		Output: OutputConfig{
			Dir:           "./output",
			ProjectionWKT: AlbersWKT,
			Overwrite:     true,
		},
		Expectation: ExpectationConfig{
			Start: "1992-01-01",
			End:   "2001-01-01",
		},
		Validity: ValidityConfig{
			Start: "1982-01-01",
			End:   "2018-01-01",
		},
	}
}

// LoadConfig 读取YAML配置，未设置的字段保留默认值
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to decode config %s: %w", path, err)
	}
	if cfg.Output.ProjectionWKT == "" {
		cfg.Output.ProjectionWKT = AlbersWKT
	}

	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	var errs []error
	if err := c.Grid.Validate(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.ExpectationSource(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.ValidityCriterion(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ExpectationSource 根据配置构建期望来源
func (c Config) ExpectationSource() (ExpectationSource, error) {
	def, err := parseInterval(c.Expectation.Start, c.Expectation.End)
	if err != nil {
		return nil, fmt.Errorf("expectation: %w", err)
	}
	fallback := Expectation{Interval: def, Class: c.Expectation.Class}

	if len(c.Expectation.Classes) == 0 {
		return FixedExpectation(fallback), nil
	}

	table := NewClassTable()
	table.SetFallback(fallback)
	for _, ce := range c.Expectation.Classes {
		iv := def
		if ce.Start != "" || ce.End != "" {
			iv, err = parseInterval(ce.Start, ce.End)
			if err != nil {
				return nil, fmt.Errorf("expectation class %v: %w", ce.Value, err)
			}
		}
		table.Set(ce.Value, Expectation{Interval: iv, Class: ce.Class})
	}
	return table, nil
}

// ValidityCriterion 根据配置构建时间段有效性判据
func (c Config) ValidityCriterion() (ValidityCriterion, error) {
	iv, err := parseInterval(c.Validity.Start, c.Validity.End)
	if err != nil {
		return ValidityCriterion{}, fmt.Errorf("validity: %w", err)
	}
	return ValidityCriterion{Window: iv}, nil
}

func parseInterval(start, end string) (Interval, error) {
	s, err := time.Parse(dateLayout, start)
	if err != nil {
		return Interval{}, fmt.Errorf("invalid start date %q: %w", start, err)
	}
	e, err := time.Parse(dateLayout, end)
	if err != nil {
		return Interval{}, fmt.Errorf("invalid end date %q: %w", end, err)
	}
	if !s.Before(e) {
		return Interval{}, fmt.Errorf("end %s must be after start %s", end, start)
	}
	return Interval{Start: s, End: e}, nil
}
