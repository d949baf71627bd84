package indicator

import (
	"errors"
	"fmt"
	"math"

	talib "github.com/markcheno/go-talib"
)

// DefaultATRPeriod 为 ATR 的默认周期。
const DefaultATRPeriod = 14

// ErrNotEnoughCandles 表示K线数量不足以计算指标。
var ErrNotEnoughCandles = errors.New("indicator: K线数量不足")

// ATRResult 保存 ATR 指标。
type ATRResult struct {
	Absolute     float64 `json:"absolute"`
	Relative     float64 `json:"relative"` // 相对最新收盘价
	PrevAbsolute float64 `json:"prev_absolute"`
	Period       int     `json:"period"`
}

// ATR 依据给定K线计算平均真实波幅，至少需要 period+1 根K线。
func ATR(candles []Candle, period int) (ATRResult, error) {
	if period <= 0 {
		period = DefaultATRPeriod
	}
	if len(candles) <= period {
		return ATRResult{}, fmt.Errorf("%w: 需要至少 %d 根，实际 %d 根", ErrNotEnoughCandles, period+1, len(candles))
	}

	series, err := NewSeries(candles)
	if err != nil {
		return ATRResult{}, err
	}

	// talib 输出前 period 个值无效
	values := talib.Atr(series.High, series.Low, series.Close, period)
	last := len(values) - 1

	current := values[last]
	if math.IsNaN(current) || current <= 0 {
		return ATRResult{}, errors.New("indicator: ATR 计算结果无效")
	}

	res := ATRResult{
		Absolute: current,
		Relative: current / series.LastClose(),
		Period:   period,
	}
	if last-1 >= period {
		res.PrevAbsolute = values[last-1]
	}
	return res, nil
}
