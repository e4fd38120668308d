package saver

import (
	"github.com/parquet-go/parquet-go"

	"orderflow-engine/internal/model"
)

// barRow 是 Bar 的扁平列式形态，价格阶梯不入 Parquet
type barRow struct {
	Timestamp int64   `parquet:"t"` // Bar 起始时间，毫秒
	Symbol    string  `parquet:"symbol"`
	Interval  string  `parquet:"interval"`
	Open      float64 `parquet:"o"`
	High      float64 `parquet:"h"`
	Low       float64 `parquet:"l"`
	Close     float64 `parquet:"c"`
	Volume    int64   `parquet:"v"`
	BarDelta  int64   `parquet:"delta"`
	POCPrice  float64 `parquet:"poc"`
	POIPrice  float64 `parquet:"poi"`
	BidVolume int64   `parquet:"bid_v"`
	AskVolume int64   `parquet:"ask_v"`
}

// ParquetSaver 把 Bar 序列写成 Parquet
type ParquetSaver struct{}

func (ParquetSaver) Extension() string { return "parquet" }

func (ParquetSaver) Save(bars []model.Bar, path string) error {
	rows := make([]barRow, 0, len(bars))
	for _, b := range bars {
		rows = append(rows, barRow{
			Timestamp: b.Start.UnixMilli(),
			Symbol:    b.Symbol,
			Interval:  b.Interval,
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			Volume:    b.Volume,
			BarDelta:  b.BarDelta,
			POCPrice:  b.POCPrice,
			POIPrice:  b.POIPrice,
			BidVolume: b.BidVolumeTotal,
			AskVolume: b.AskVolumeTotal,
		})
	}
	return parquet.WriteFile(path, rows)
}
