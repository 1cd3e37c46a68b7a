package notifier

import (
	"fmt"

	"paperperp/internal/pkg/circuit"
)

// Guarded 用熔断器包住下游通知器, 外部通道持续失败时快速放弃,
// 避免阻塞平仓扫描的主循环。
type Guarded struct {
	inner   TextNotifier
	breaker *circuit.Breaker
}

func NewGuarded(inner TextNotifier, breaker *circuit.Breaker) *Guarded {
	if breaker == nil {
		breaker = circuit.NewBreaker("notifier", 0, 0)
	}
	return &Guarded{inner: inner, breaker: breaker}
}

func (g *Guarded) SendText(text string) error {
	if g.inner == nil {
		return nil
	}
	if !g.breaker.Allow() {
		return fmt.Errorf("通知通道熔断中, 放弃本次推送")
	}
	if err := g.inner.SendText(text); err != nil {
		g.breaker.RecordFailure()
		return err
	}
	g.breaker.RecordSuccess()
	return nil
}
