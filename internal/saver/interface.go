package saver

import (
	"fmt"
	"strings"

	"orderflow-engine/internal/model"
)

// BarSaver 是 Bar 序列落盘的抽象
// 上层注入实现，聚合核心不感知任何持久化细节
type BarSaver interface {
	Save(bars []model.Bar, path string) error
	Extension() string
}

// NewBarSaver 按 format 创建实现 (csv, parquet)，不支持的 format 返回 nil
func NewBarSaver(format string) BarSaver {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "csv":
		return CSVSaver{}
	case "parquet":
		return ParquetSaver{}
	default:
		return nil
	}
}

// MustBarSaver 同 NewBarSaver，但 format 非法时 panic
func MustBarSaver(format string) BarSaver {
	s := NewBarSaver(format)
	if s == nil {
		panic(fmt.Sprintf("saver: unsupported format %q (use: csv, parquet)", format))
	}
	return s
}
