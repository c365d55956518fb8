// internal/exit/ladder.go
package exit

import (
	"fmt"
)

// Side identifies which half of the exit plan a ladder covers.
type Side string

const (
	SideStopLoss   Side = "stop_loss"
	SideTakeProfit Side = "take_profit"
)

// LevelConfig declares one rung of a ladder: the price ratio (current
// price over entry price) that arms it and the fraction of the initial
// balance it sells.
type LevelConfig struct {
	TriggerRatio float64 `mapstructure:"trigger_ratio"`
	Fraction     float64 `mapstructure:"fraction"`
}

// DefaultStopLossLevels sells half the position at a 30% drawdown and
// the other half at a 50% drawdown.
func DefaultStopLossLevels() []LevelConfig {
	return []LevelConfig{
		{TriggerRatio: 0.7, Fraction: 0.5},
		{TriggerRatio: 0.5, Fraction: 0.5},
	}
}

// DefaultTakeProfitLevels scales out on the way up. The fractions
// deliberately oversubscribe the position; amounts get capped against
// what is actually left.
func DefaultTakeProfitLevels() []LevelConfig {
	return []LevelConfig{
		{TriggerRatio: 1.5, Fraction: 0.4},
		{TriggerRatio: 2.0, Fraction: 0.2},
		{TriggerRatio: 3.0, Fraction: 0.2},
		{TriggerRatio: 5.0, Fraction: 0.2},
		{TriggerRatio: 10.0, Fraction: 0.2},
	}
}

// Level is one armed rung. Reached latches on the first crossing and
// never resets, so a price oscillating around a trigger fires it once.
type Level struct {
	TriggerRatio float64
	Amount       uint64
	Reached      bool
}

// Fire is the instruction a crossed level emits.
type Fire struct {
	Side         Side
	TriggerRatio float64
	Amount       uint64
}

// Ladder tracks the fire-once levels of one side.
type Ladder struct {
	side   Side
	levels []*Level
}

// NewLadder resolves level fractions into concrete token amounts against
// the initial balance. Cumulative amounts are capped so a ladder can
// never sell more than the balance it started from.
func NewLadder(side Side, configs []LevelConfig, initialBalance uint64) (*Ladder, error) {
	if len(configs) == 0 {
		return nil, fmt.Errorf("%s ladder has no levels", side)
	}

	remaining := initialBalance
	levels := make([]*Level, 0, len(configs))
	for i, cfg := range configs {
		if cfg.TriggerRatio <= 0 {
			return nil, fmt.Errorf("%s level %d: trigger ratio must be positive", side, i)
		}
		if cfg.Fraction <= 0 || cfg.Fraction > 1 {
			return nil, fmt.Errorf("%s level %d: fraction must be in (0, 1]", side, i)
		}
		if i > 0 {
			prev := configs[i-1].TriggerRatio
			if side == SideStopLoss && cfg.TriggerRatio >= prev {
				return nil, fmt.Errorf("%s levels must have strictly decreasing triggers", side)
			}
			if side == SideTakeProfit && cfg.TriggerRatio <= prev {
				return nil, fmt.Errorf("%s levels must have strictly increasing triggers", side)
			}
		}

		amount := uint64(float64(initialBalance) * cfg.Fraction)
		if amount > remaining {
			amount = remaining
		}
		remaining -= amount

		levels = append(levels, &Level{
			TriggerRatio: cfg.TriggerRatio,
			Amount:       amount,
		})
	}

	return &Ladder{side: side, levels: levels}, nil
}

func (l *Ladder) Side() Side { return l.side }

// Observe latches every not-yet-reached level the ratio has crossed and
// returns the fires in ladder order. Levels whose capped amount is zero
// still latch but emit nothing.
func (l *Ladder) Observe(ratio float64) []Fire {
	var fires []Fire
	for _, level := range l.levels {
		if level.Reached {
			continue
		}
		if !l.crossed(level.TriggerRatio, ratio) {
			continue
		}
		level.Reached = true
		if level.Amount == 0 {
			continue
		}
		fires = append(fires, Fire{
			Side:         l.side,
			TriggerRatio: level.TriggerRatio,
			Amount:       level.Amount,
		})
	}
	return fires
}

func (l *Ladder) crossed(trigger, ratio float64) bool {
	if l.side == SideStopLoss {
		return ratio <= trigger
	}
	return ratio >= trigger
}

// Exhausted reports whether every level has latched.
func (l *Ladder) Exhausted() bool {
	for _, level := range l.levels {
		if !level.Reached {
			return false
		}
	}
	return true
}
