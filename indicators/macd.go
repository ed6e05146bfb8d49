package indicators

// MACD computes MACD = EMA(fast) - EMA(slow) and its signal line
// EMA(signalPeriod) of the MACD series. Standard parameters are
// (12, 26, 9). Returns (nil, nil) when history is insufficient for the
// slow EMA plus the signal period.
func MACD(closes []float64, fast, slow, signalPeriod int) (macd, signal *float64) {
	if len(closes) < slow+signalPeriod {
		return nil, nil
	}

	fastSeries := EMASeries(closes, fast)
	slowSeries := EMASeries(closes, slow)

	var macdSeries []float64
	for i := range closes {
		if fastSeries[i] == nil || slowSeries[i] == nil {
			continue
		}
		macdSeries = append(macdSeries, *fastSeries[i]-*slowSeries[i])
	}
	if len(macdSeries) == 0 {
		return nil, nil
	}
	macdVal := macdSeries[len(macdSeries)-1]
	macd = &macdVal

	if len(macdSeries) < signalPeriod {
		return macd, nil
	}
	signal = EMA(macdSeries, signalPeriod)
	return macd, signal
}
