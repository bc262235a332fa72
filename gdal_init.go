// gdal_init.go
package Gotrends

/*
#cgo LDFLAGS: -lgdal
#include "osgeo_utils.h"
*/
import "C"

import (
	"sync"
)

var gdalInitOnce sync.Once

// InitGDAL 注册全部GDAL驱动，重复调用无副作用
func InitGDAL() {
	gdalInitOnce.Do(func() {
		C.GDALAllRegister()
	})
}

// lastGDALError 最近一次GDAL错误信息
func lastGDALError() string {
	msg := C.GoString(C.CPLGetLastErrorMsg())
	if msg == "" {
		return "unknown GDAL error"
	}
	return msg
}
