package port

// Instruments 引擎运行指标挂钩，Prometheus 实现在 infrastructure/metrics
type Instruments interface {
	PollApplied(quotes int)
	PollStale()
	PollError()
	ContractOpened(auto bool)
	ContractClosed(auto bool)
	SetActiveContracts(n int)
	SetTotalProfit(p float64)
	AdvisoryBatch()
}
