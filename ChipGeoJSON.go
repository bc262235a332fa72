package Gotrends

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/paulmach/orb/geojson"
)

// FeatureCollection 切片范围要素集合，属性为切片编号、行列号和像素尺寸
func (g *TileGrid) FeatureCollection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, id := range g.ids {
		c := g.chips[id]

		feature := geojson.NewFeature(c.Bounds.ToPolygon())
		feature.ID = int(id)
		feature.Properties["chip"] = int(id)
		feature.Properties["row"] = c.Row
		feature.Properties["col"] = c.Col
		feature.Properties["width"] = c.Width
		feature.Properties["height"] = c.Height
		feature.Properties["cell"] = g.Name()

		fc.Append(feature)
	}
	return fc
}

// WriteGeoJSON 把切片范围写入GeoJSON文件
func (g *TileGrid) WriteGeoJSON(path string) error {
	data, err := g.FeatureCollection().MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to encode chip footprints: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
