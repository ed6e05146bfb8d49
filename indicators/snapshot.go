package indicators

// Snapshots computes one Snapshot per bar (spec §4.3: "pure functions
// mapping OHLCVBar[] -> IndicatorSnapshot[], one-to-one with bars").
// Fields remain nil wherever fewer than 50 bars of trailing history are
// available for that field's computation (spec §4.3 contract).
func Snapshots(bars Bars) []Snapshot {
	out := make([]Snapshot, len(bars))
	if len(bars) == 0 {
		return out
	}

	closes := make([]float64, len(bars))
	volumes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
		volumes[i] = b.Volume
	}

	ema20 := EMASeries(closes, 20)
	ema50 := EMASeries(closes, 50)
	atr20 := ATRSeries(bars, 20)
	bbWidths := BollingerWidthSeries(closes, 20, 2.0)
	volSMA20 := make([]*float64, len(bars))

	const minHistory = 50

	var widthHistory []float64
	for i := range bars {
		snap := Snapshot{Timestamp: bars[i].Timestamp}

		if i+1 >= minHistory {
			snap.EMA20 = ema20[i]
			snap.EMA50 = ema50[i]
			snap.ATR20 = atr20[i]
			snap.RSI14 = RSI(closes[:i+1], 14)
			macd, signal := MACD(closes[:i+1], 12, 26, 9)
			snap.MACD = macd
			snap.MACDSignal = signal
			snap.BBWidth = bbWidths[i]
			if snap.BBWidth != nil {
				widthHistory = append(widthHistory, *snap.BBWidth)
				snap.BBWidthPercentile = BollingerWidthPercentile(widthHistory, 180)
			}
			volSMA20[i] = SMA(volumes[:i+1], 20)
			snap.VolumeSMA20 = volSMA20[i]
			snap.DistanceFrom52wHigh, snap.DistanceFrom52wLow = distanceFrom52w(bars[:i+1], bars[i].Close)
		}

		out[i] = snap
	}
	return out
}

// distanceFrom52w returns the percentage distance of price from the
// 52-week (252 trading day) high/low over the supplied history.
func distanceFrom52w(bars Bars, price float64) (fromHigh, fromLow *float64) {
	const window = 252
	sample := lastN(bars, window)
	if len(sample) == 0 {
		return nil, nil
	}
	high, low := sample[0].High, sample[0].Low
	for _, b := range sample[1:] {
		if b.High > high {
			high = b.High
		}
		if b.Low < low {
			low = b.Low
		}
	}
	if high != 0 {
		d := (price - high) / high * 100
		fromHigh = &d
	}
	if low != 0 {
		d := (price - low) / low * 100
		fromLow = &d
	}
	return fromHigh, fromLow
}
