// Package costs models transaction costs and margin constraints:
// spread, commission, slippage, lot granularity, margin admission, and
// forced liquidation. The model is deterministic — slippage is charged
// at its configured average rather than drawn from a distribution, so
// identical runs produce identical results.
package costs

import (
	"math"

	"prop-trading-lab/internal/domain"
)

// Model applies a CostConfig to fills and entry admission checks.
type Model struct {
	cfg domain.CostConfig
}

// NewModel creates a cost model from config.
func NewModel(cfg domain.CostConfig) *Model {
	return &Model{cfg: cfg}
}

// Breakdown itemizes the costs of one fill.
type Breakdown struct {
	SpreadCost float64
	Commission float64
	Slippage   float64
	Total      float64
}

// Apply computes the costs of filling the given size. Spread is paid
// on entry only; commission is charged half per side per lot; slippage
// is the configured average adverse deviation.
func (m *Model) Apply(size float64, isEntry bool) Breakdown {
	size = math.Abs(size)
	lots := m.Lots(size)

	b := Breakdown{
		Commission: lots * m.cfg.CommissionPerLot / 2,
		Slippage:   size * m.cfg.SlippagePerUnit,
	}
	if isEntry {
		b.SpreadCost = size * m.cfg.Spread
	}
	b.Total = b.SpreadCost + b.Commission + b.Slippage
	return b
}

// Lots converts units to lots.
func (m *Model) Lots(size float64) float64 {
	if m.cfg.LotUnits <= 0 {
		return 0
	}
	return math.Abs(size) / m.cfg.LotUnits
}

// RoundLots snaps a unit size to the nearest valid lot increment.
// A size that rounds below the minimum lot is returned as zero unless
// the floor-to-minimum policy is enabled.
func (m *Model) RoundLots(size float64) float64 {
	if m.cfg.MinLotSize <= 0 || m.cfg.LotUnits <= 0 {
		return size
	}

	lots := m.Lots(size)
	rounded := math.Round(lots/m.cfg.MinLotSize) * m.cfg.MinLotSize
	if rounded < m.cfg.MinLotSize {
		if !m.cfg.FloorToMinLot {
			return 0
		}
		rounded = m.cfg.MinLotSize
	}
	return rounded * m.cfg.LotUnits
}

// RequiredMargin returns the margin a position of the given size locks
// at the given price.
func (m *Model) RequiredMargin(size, price float64) float64 {
	if m.cfg.Leverage <= 0 {
		return 0
	}
	return math.Abs(size) * price / m.cfg.Leverage
}

// AdmitEntry checks whether equity can carry the position plus its
// entry costs under the margin usage cap.
func (m *Model) AdmitEntry(size, price, equity float64, entryCosts Breakdown) bool {
	cap := m.cfg.MarginUsageCap
	if cap <= 0 {
		cap = 1
	}
	return m.RequiredMargin(size, price)+entryCosts.Total <= equity*cap
}

// StopOut reports whether the margin level (equity including
// unrealized over margin used) has fallen below the stop-out level,
// forcing liquidation.
func (m *Model) StopOut(equity, size, price float64) bool {
	if m.cfg.StopOutLevel <= 0 {
		return false
	}
	marginUsed := m.RequiredMargin(size, price)
	if marginUsed <= 0 {
		return false
	}
	return equity/marginUsed < m.cfg.StopOutLevel
}
