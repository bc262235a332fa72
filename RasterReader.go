// RasterReader.go
package Gotrends

/*
#include "osgeo_utils.h"
*/
import "C"

import (
	"errors"
	"fmt"
	"math"
	"os"
	"unsafe"

	"github.com/paulmach/orb"
)

// RegionBuffer 按边界读取的栅格数据，行优先
type RegionBuffer struct {
	Width  int
	Height int
	Data   []float64
}

// At 第 row 行 col 列的值
func (b *RegionBuffer) At(row, col int) float64 {
	return b.Data[row*b.Width+col]
}

// RasterRegionReader 按地图坐标边界读取栅格子集
type RasterRegionReader interface {
	ReadRegion(path string, bounds orb.Bound) (*RegionBuffer, error)
}

// GDALRegionReader 使用GDAL读取第一波段。每次调用独立打开并关闭数据集
type GDALRegionReader struct{}

// NewGDALRegionReader 创建读取器
func NewGDALRegionReader() *GDALRegionReader {
	InitGDAL()
	return &GDALRegionReader{}
}

// ReadRegion 读取与 bounds 对应的像素窗口。超出栅格范围的部分填 0，视为无参考数据
func (r *GDALRegionReader) ReadRegion(path string, bounds orb.Bound) (*RegionBuffer, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &RasterReadError{Path: path, Err: err}
	}

	cPath := C.CString(path)
	defer C.free(unsafe.Pointer(cPath))

	dataset := C.GDALOpen(cPath, C.GA_ReadOnly)
	if dataset == nil {
		return nil, &RasterReadError{Path: path, Err: errors.New(lastGDALError())}
	}
	defer C.GDALClose(dataset)

	var cTransform [6]C.double
	if C.GDALGetGeoTransform(dataset, &cTransform[0]) != C.CE_None {
		return nil, &RasterReadError{Path: path, Err: errors.New("dataset has no geotransform")}
	}
	var gt GeoTransform
	for i := range gt {
		gt[i] = float64(cTransform[i])
	}

	rasterW := int(C.GDALGetRasterXSize(dataset))
	rasterH := int(C.GDALGetRasterYSize(dataset))

	win, err := regionWindow(gt, bounds)
	if err != nil {
		return nil, &RasterReadError{Path: path, Err: err}
	}

	buf := &RegionBuffer{
		Width:  win.Width,
		Height: win.Height,
		Data:   make([]float64, win.Width*win.Height),
	}

	clip, ok := win.clip(rasterW, rasterH)
	if !ok {
		return buf, nil
	}

	dst := buf.Data
	if clip != win {
		dst = make([]float64, clip.Width*clip.Height)
	}
	ret := C.readFloat64Window(dataset, C.int(clip.XOff), C.int(clip.YOff), C.int(clip.Width), C.int(clip.Height),
		(*C.double)(unsafe.Pointer(&dst[0])))
	if ret != 0 {
		return nil, &RasterReadError{Path: path, Err: fmt.Errorf("raster io failed (code %d): %s", int(ret), lastGDALError())}
	}

	if clip != win {
		colOff := clip.XOff - win.XOff
		rowOff := clip.YOff - win.YOff
		for row := 0; row < clip.Height; row++ {
			copy(buf.Data[(row+rowOff)*win.Width+colOff:], dst[row*clip.Width:(row+1)*clip.Width])
		}
	}

	return buf, nil
}

// pixelWindow 栅格像素窗口，偏移可以为负或超出栅格
type pixelWindow struct {
	XOff, YOff    int
	Width, Height int
}

// clip 与栅格范围求交
func (w pixelWindow) clip(rasterW, rasterH int) (pixelWindow, bool) {
	x0, y0 := max(w.XOff, 0), max(w.YOff, 0)
	x1, y1 := min(w.XOff+w.Width, rasterW), min(w.YOff+w.Height, rasterH)
	if x0 >= x1 || y0 >= y1 {
		return pixelWindow{}, false
	}
	return pixelWindow{XOff: x0, YOff: y0, Width: x1 - x0, Height: y1 - y0}, true
}

// regionWindow 地图坐标边界换算为像素窗口，只支持北向上的栅格
func regionWindow(gt GeoTransform, bounds orb.Bound) (pixelWindow, error) {
	if gt[2] != 0 || gt[4] != 0 {
		return pixelWindow{}, errors.New("rotated rasters are not supported")
	}
	if gt[1] <= 0 || gt[5] >= 0 {
		return pixelWindow{}, errors.New("raster is not north-up")
	}

	win := pixelWindow{
		XOff:   int(math.Round((bounds.Min[0] - gt[0]) / gt[1])),
		YOff:   int(math.Round((bounds.Max[1] - gt[3]) / gt[5])),
		Width:  int(math.Round((bounds.Max[0] - bounds.Min[0]) / gt[1])),
		Height: int(math.Round((bounds.Min[1] - bounds.Max[1]) / gt[5])),
	}
	if win.Width <= 0 || win.Height <= 0 {
		return pixelWindow{}, fmt.Errorf("empty window for bounds %v", bounds)
	}
	return win, nil
}
