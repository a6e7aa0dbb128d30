package service

import "math"

// PositionSizer 按银行比例给每个合约槽位分配名义规模
// 仅用于展示和后台模式的规模标注，不触碰真实资金
type PositionSizer struct {
	BankPercent  int // 可动用余额比例 [1,100]
	MaxContracts int // 槽位数 [1,20]
}

// SizeUSDT 单槽位名义规模 = 余额 * bankPercent / 100 / maxContracts
func (s PositionSizer) SizeUSDT(availableUSDT float64) float64 {
	if availableUSDT <= 0 || s.BankPercent <= 0 || s.MaxContracts <= 0 {
		return 0
	}
	bank := availableUSDT * float64(s.BankPercent) / 100
	return math.Round(bank/float64(s.MaxContracts)*100) / 100
}
