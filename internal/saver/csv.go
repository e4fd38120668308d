package saver

import (
	"encoding/csv"
	"os"
	"strconv"

	"orderflow-engine/internal/model"
)

// CSVSaver 把 Bar 序列写成 CSV
// 列: t,symbol,interval,o,h,l,c,v,delta,poc,poi,bid_v,ask_v (价格阶梯不落 CSV)
type CSVSaver struct{}

func (CSVSaver) Extension() string { return "csv" }

func (CSVSaver) Save(bars []model.Bar, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{"t", "symbol", "interval", "o", "h", "l", "c", "v", "delta", "poc", "poi", "bid_v", "ask_v"}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, b := range bars {
		if err := w.Write([]string{
			strconv.FormatInt(b.Start.UnixMilli(), 10),
			b.Symbol,
			b.Interval,
			floatStr(b.Open),
			floatStr(b.High),
			floatStr(b.Low),
			floatStr(b.Close),
			strconv.FormatInt(b.Volume, 10),
			strconv.FormatInt(b.BarDelta, 10),
			floatStr(b.POCPrice),
			floatStr(b.POIPrice),
			strconv.FormatInt(b.BidVolumeTotal, 10),
			strconv.FormatInt(b.AskVolumeTotal, 10),
		}); err != nil {
			return err
		}
	}
	return nil
}

func floatStr(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
