package indicator

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// LoadCandlesCSV 读取 timestamp,open,high,low,close[,volume] 格式的K线，首行为表头。
// timestamp 支持 RFC3339 或 Unix 秒。
func LoadCandlesCSV(r io.Reader) ([]Candle, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("indicator: CSV 为空")
		}
		return nil, fmt.Errorf("indicator: 读取表头失败: %w", err)
	}
	if len(header) < 5 {
		return nil, fmt.Errorf("indicator: 表头至少需要 5 列，实际 %d 列", len(header))
	}

	candles := make([]Candle, 0, 256)
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("indicator: 第 %d 行解析失败: %w", line, err)
		}
		if len(record) < 5 {
			return nil, fmt.Errorf("indicator: 第 %d 行列数不足", line)
		}

		candle, err := parseRecord(record)
		if err != nil {
			return nil, fmt.Errorf("indicator: 第 %d 行: %w", line, err)
		}
		candles = append(candles, candle)
	}

	return candles, nil
}

func parseRecord(record []string) (Candle, error) {
	ts, err := parseTimestamp(record[0])
	if err != nil {
		return Candle{}, err
	}

	values := make([]float64, 5)
	for i := 1; i < len(record) && i <= 5; i++ {
		v, err := strconv.ParseFloat(strings.TrimSpace(record[i]), 64)
		if err != nil {
			return Candle{}, fmt.Errorf("数值 %q 无效: %w", record[i], err)
		}
		values[i-1] = v
	}

	return Candle{
		Timestamp: ts,
		Open:      values[0],
		High:      values[1],
		Low:       values[2],
		Close:     values[3],
		Volume:    values[4],
	}, nil
}

func parseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if unix, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("时间 %q 无效: %w", value, err)
	}
	return ts.UTC(), nil
}
