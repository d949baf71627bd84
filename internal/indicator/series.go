package indicator

import (
	"fmt"
	"time"
)

// Candle 为单根K线。
type Candle struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// Validate 检查价格为正且最高价不低于最低价。
func (c Candle) Validate() error {
	if c.Low <= 0 || c.Close <= 0 {
		return fmt.Errorf("价格必须为正: low=%v close=%v", c.Low, c.Close)
	}
	if c.High < c.Low {
		return fmt.Errorf("最高价 %v 低于最低价 %v", c.High, c.Low)
	}
	return nil
}

// Series 为 talib 所需的列式序列。
type Series struct {
	Timestamps []time.Time
	High       []float64
	Low        []float64
	Close      []float64
}

// NewSeries 校验并拆分K线，保持输入顺序。
func NewSeries(candles []Candle) (Series, error) {
	s := Series{
		Timestamps: make([]time.Time, 0, len(candles)),
		High:       make([]float64, 0, len(candles)),
		Low:        make([]float64, 0, len(candles)),
		Close:      make([]float64, 0, len(candles)),
	}
	for i, c := range candles {
		if err := c.Validate(); err != nil {
			return Series{}, fmt.Errorf("indicator: 第 %d 根K线无效: %w", i, err)
		}
		s.Timestamps = append(s.Timestamps, c.Timestamp.UTC())
		s.High = append(s.High, c.High)
		s.Low = append(s.Low, c.Low)
		s.Close = append(s.Close, c.Close)
	}
	return s, nil
}

// Len 返回序列长度。
func (s Series) Len() int {
	return len(s.Close)
}

// LastClose 返回最新收盘价，空序列返回 0。
func (s Series) LastClose() float64 {
	if len(s.Close) == 0 {
		return 0
	}
	return s.Close[len(s.Close)-1]
}
