package service

import "spreadmaster/internal/domain/model"

// 随机指标默认参数
const (
	StochKPeriod = 14
	StochDPeriod = 3
	StochSmooth  = 3
)

// Stochastic 计算 %K/%D 序列，长度与输入对齐
// 预热区以及 high==low 的平坦窗口取中性值 50，保证序列可直接序列化给图表
func Stochastic(candles []model.Candle, kPeriod, dPeriod, smooth int) (k, d []float64) {
	n := len(candles)
	k = make([]float64, n)
	d = make([]float64, n)
	if n == 0 {
		return k, d
	}
	if kPeriod <= 0 {
		kPeriod = StochKPeriod
	}
	if dPeriod <= 0 {
		dPeriod = StochDPeriod
	}
	if smooth <= 0 {
		smooth = StochSmooth
	}

	rawK := make([]float64, n)
	for i := 0; i < n; i++ {
		if i < kPeriod-1 {
			rawK[i] = 50
			continue
		}
		hi, lo := candles[i].High, candles[i].Low
		for j := i - kPeriod + 1; j <= i; j++ {
			if candles[j].High > hi {
				hi = candles[j].High
			}
			if candles[j].Low < lo {
				lo = candles[j].Low
			}
		}
		if hi == lo {
			rawK[i] = 50
			continue
		}
		rawK[i] = (candles[i].Close - lo) / (hi - lo) * 100
	}

	sma(rawK, smooth, k)
	sma(k, dPeriod, d)
	return k, d
}

// sma 简单移动平均，窗口不足时用可得区间
func sma(in []float64, period int, out []float64) {
	for i := range in {
		start := i - period + 1
		if start < 0 {
			start = 0
		}
		sum := 0.0
		for j := start; j <= i; j++ {
			sum += in[j]
		}
		out[i] = sum / float64(i-start+1)
	}
}
