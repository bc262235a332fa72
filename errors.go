package Gotrends

import (
	"errors"
	"fmt"
)

// 错误分类
var (
	ErrInvalidGridCoordinate = errors.New("invalid grid coordinate")
	ErrRasterRead            = errors.New("raster read error")
	ErrRasterWrite           = errors.New("raster write error")
	ErrResultStore           = errors.New("result store error")
	ErrLengthMismatch        = errors.New("length mismatch")
)

// GridCoordinateError 网格坐标超出范围
type GridCoordinateError struct {
	H, V       int
	MaxH, MaxV int
}

func (e *GridCoordinateError) Error() string {
	return fmt.Sprintf("grid cell h%02dv%02d outside supported range h[0,%d] v[0,%d]", e.H, e.V, e.MaxH, e.MaxV)
}

func (e *GridCoordinateError) Is(target error) bool { return target == ErrInvalidGridCoordinate }

// RasterReadError 栅格读取失败
type RasterReadError struct {
	Path string
	Err  error
}

func (e *RasterReadError) Error() string {
	return fmt.Sprintf("failed to read raster %s: %v", e.Path, e.Err)
}

func (e *RasterReadError) Unwrap() error { return e.Err }

func (e *RasterReadError) Is(target error) bool { return target == ErrRasterRead }

// RasterWriteError 栅格写入失败
type RasterWriteError struct {
	Path string
	Err  error
}

func (e *RasterWriteError) Error() string {
	return fmt.Sprintf("failed to write raster %s: %v", e.Path, e.Err)
}

func (e *RasterWriteError) Unwrap() error { return e.Err }

func (e *RasterWriteError) Is(target error) bool { return target == ErrRasterWrite }

// ResultStoreError 结果存储读取失败
type ResultStoreError struct {
	Path string
	Chip ChipID
	Err  error
}

func (e *ResultStoreError) Error() string {
	return fmt.Sprintf("failed to load results for chip %s from %s: %v", e.Chip, e.Path, e.Err)
}

func (e *ResultStoreError) Unwrap() error { return e.Err }

func (e *ResultStoreError) Is(target error) bool { return target == ErrResultStore }

// LengthMismatchError 稀疏判定序列与掩膜不对齐，属于程序错误
type LengthMismatchError struct {
	What string
	Want int
	Got  int
}

func (e *LengthMismatchError) Error() string {
	return fmt.Sprintf("%s length mismatch: want %d, got %d", e.What, e.Want, e.Got)
}

func (e *LengthMismatchError) Is(target error) bool { return target == ErrLengthMismatch }
