// Gotrends/tiff_writer.go
package Gotrends

/*
#include "osgeo_utils.h"
*/
import "C"

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"unsafe"
)

// MaskWriter 写出单波段Byte栅格
type MaskWriter interface {
	WriteMask(path string, width, height int, data []byte, gt GeoTransform, wkt string) error
}

// GDALMaskWriter 使用GTiff驱动写出
type GDALMaskWriter struct {
	Overwrite bool // 为 false 时已存在的文件返回错误
}

// NewGDALMaskWriter 创建写入器，默认替换已存在的文件
func NewGDALMaskWriter() *GDALMaskWriter {
	InitGDAL()
	return &GDALMaskWriter{Overwrite: true}
}

func (w *GDALMaskWriter) WriteMask(path string, width, height int, data []byte, gt GeoTransform, wkt string) error {
	if width <= 0 || height <= 0 {
		return &RasterWriteError{Path: path, Err: errors.New("invalid dimensions")}
	}
	if len(data) != width*height {
		return &RasterWriteError{Path: path, Err: fmt.Errorf("data size mismatch: expected %d, got %d", width*height, len(data))}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return &RasterWriteError{Path: path, Err: err}
	}
	if _, err := os.Stat(path); err == nil {
		if !w.Overwrite {
			return &RasterWriteError{Path: path, Err: fs.ErrExist}
		}
		if err := os.Remove(path); err != nil {
			return &RasterWriteError{Path: path, Err: err}
		}
	}

	cPath := C.CString(path)
	defer C.free(unsafe.Pointer(cPath))
	cWKT := C.CString(wkt)
	defer C.free(unsafe.Pointer(cWKT))

	var cTransform [6]C.double
	for i := range gt {
		cTransform[i] = C.double(gt[i])
	}

	dataset := C.createByteGeoTiff(cPath, C.int(width), C.int(height), &cTransform[0], cWKT)
	if dataset == nil {
		return &RasterWriteError{Path: path, Err: errors.New(lastGDALError())}
	}

	ret := C.writeByteBand(dataset, C.int(width), C.int(height), (*C.uchar)(unsafe.Pointer(&data[0])))
	C.GDALClose(dataset)
	if ret != 0 {
		return &RasterWriteError{Path: path, Err: fmt.Errorf("raster io failed (code %d): %s", int(ret), lastGDALError())}
	}

	return nil
}
