package Gotrends

import (
	"fmt"
	"math"
	"strconv"

	"github.com/paulmach/orb"
)

// ChipID 切片编号，从左上角开始按行优先从1编号
type ChipID int

func (id ChipID) String() string {
	return strconv.Itoa(int(id))
}

// GeoTransform GDAL仿射变换参数 (originX, pixelW, rotX, originY, rotY, pixelH)
type GeoTransform [6]float64

// NorthUpGeoTransform 北向上的仿射变换
func NorthUpGeoTransform(ulx, uly, pixelSize float64) GeoTransform {
	return GeoTransform{ulx, pixelSize, 0, uly, 0, -pixelSize}
}

// Chip 网格单元内的一个切片
type Chip struct {
	ID        ChipID
	Row       int       // 切片在网格单元内的行号
	Col       int       // 切片在网格单元内的列号
	Bounds    orb.Bound // Min = (minX, minY), Max = (maxX, maxY)
	Width     int       // 像素宽
	Height    int       // 像素高
	PixelSize float64
}

// UpperLeft 左上角坐标
func (c Chip) UpperLeft() orb.Point {
	return orb.Point{c.Bounds.Min[0], c.Bounds.Max[1]}
}

// GeoTransform 由切片边界推导的仿射变换
func (c Chip) GeoTransform() GeoTransform {
	ul := c.UpperLeft()
	return NorthUpGeoTransform(ul[0], ul[1], c.PixelSize)
}

// PixelCount 切片像素总数
func (c Chip) PixelCount() int {
	return c.Width * c.Height
}

// PixelUpperLeft 展平索引(行优先)对应像素的左上角坐标
func (c Chip) PixelUpperLeft(index int) orb.Point {
	row, col := index/c.Width, index%c.Width
	ul := c.UpperLeft()
	return orb.Point{ul[0] + float64(col)*c.PixelSize, ul[1] - float64(row)*c.PixelSize}
}

// PixelIndex 像素左上角坐标对应的展平索引
func (c Chip) PixelIndex(x, y float64) (int, bool) {
	ul := c.UpperLeft()
	colF := (x - ul[0]) / c.PixelSize
	rowF := (ul[1] - y) / c.PixelSize
	col, row := int(math.Round(colF)), int(math.Round(rowF))

	if math.Abs(colF-float64(col)) > 1e-6 || math.Abs(rowF-float64(row)) > 1e-6 {
		return 0, false
	}
	if col < 0 || row < 0 || col >= c.Width || row >= c.Height {
		return 0, false
	}
	return row*c.Width + col, true
}

// TileGrid 一个网格单元(h, v)按固定方案分解得到的全部切片
type TileGrid struct {
	h, v   int
	cfg    GridConfig
	bounds orb.Bound
	chips  map[ChipID]Chip
	ids    []ChipID
}

// NewTileGrid 计算网格单元的切片分解，纯函数，无I/O
func NewTileGrid(h, v int, cfg GridConfig) (*TileGrid, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if h < 0 || v < 0 || h > cfg.MaxH || v > cfg.MaxV {
		return nil, &GridCoordinateError{H: h, V: v, MaxH: cfg.MaxH, MaxV: cfg.MaxV}
	}

	cellSize := cfg.CellSize()
	chipSize := cfg.ChipSize()

	ulx := cfg.OriginX + float64(h)*cellSize
	uly := cfg.OriginY - float64(v)*cellSize

	g := &TileGrid{
		h:   h,
		v:   v,
		cfg: cfg,
		bounds: orb.Bound{
			Min: orb.Point{ulx, uly - cellSize},
			Max: orb.Point{ulx + cellSize, uly},
		},
		chips: make(map[ChipID]Chip, cfg.ChipCount()),
		ids:   make([]ChipID, 0, cfg.ChipCount()),
	}

	id := ChipID(1)
	for row := 0; row < cfg.ChipsPerSide; row++ {
		for col := 0; col < cfg.ChipsPerSide; col++ {
			minX := ulx + float64(col)*chipSize
			maxY := uly - float64(row)*chipSize

			g.chips[id] = Chip{
				ID:  id,
				Row: row,
				Col: col,
				Bounds: orb.Bound{
					Min: orb.Point{minX, maxY - chipSize},
					Max: orb.Point{minX + chipSize, maxY},
				},
				Width:     cfg.ChipPixels,
				Height:    cfg.ChipPixels,
				PixelSize: cfg.PixelSize,
			}
			g.ids = append(g.ids, id)
			id++
		}
	}

	return g, nil
}

// H 水平网格号
func (g *TileGrid) H() int { return g.h }

// V 垂直网格号
func (g *TileGrid) V() int { return g.v }

// Name 网格单元名称，如 H05V02
func (g *TileGrid) Name() string {
	return fmt.Sprintf("H%02dV%02d", g.h, g.v)
}

// CellBounds 网格单元边界
func (g *TileGrid) CellBounds() orb.Bound {
	return g.bounds
}

// Len 切片数量
func (g *TileGrid) Len() int {
	return len(g.chips)
}

// Chips 切片编号到切片的映射，迭代顺序不代表空间相邻关系
func (g *TileGrid) Chips() map[ChipID]Chip {
	out := make(map[ChipID]Chip, len(g.chips))
	for id, c := range g.chips {
		out[id] = c
	}
	return out
}

// IDs 排序后的切片编号
func (g *TileGrid) IDs() []ChipID {
	out := make([]ChipID, len(g.ids))
	copy(out, g.ids)
	return out
}

// Chip 按编号获取切片
func (g *TileGrid) Chip(id ChipID) (Chip, bool) {
	c, ok := g.chips[id]
	return c, ok
}

// ChipAt 获取包含坐标点的切片，每个切片包含左边界和上边界
func (g *TileGrid) ChipAt(x, y float64) (Chip, bool) {
	b := g.bounds
	if x < b.Min[0] || x >= b.Max[0] || y <= b.Min[1] || y > b.Max[1] {
		return Chip{}, false
	}

	chipSize := g.cfg.ChipSize()
	col := int((x - b.Min[0]) / chipSize)
	row := int((b.Max[1] - y) / chipSize)
	if col >= g.cfg.ChipsPerSide {
		col = g.cfg.ChipsPerSide - 1
	}
	if row >= g.cfg.ChipsPerSide {
		row = g.cfg.ChipsPerSide - 1
	}

	return g.chips[ChipID(row*g.cfg.ChipsPerSide+col+1)], true
}
