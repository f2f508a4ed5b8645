package domain

// Strategy names the extraction technique behind a TradeDecision.
type Strategy string

// Strategy values.
const (
	StrategyArbitrage     Strategy = "arbitrage"
	StrategySandwich      Strategy = "sandwich"
	StrategySandwichFront Strategy = "sandwich_front"
	StrategySandwichBack  Strategy = "sandwich_back"
	StrategySnipe         Strategy = "snipe"
)

func (s Strategy) String() string {
	return string(s)
}

// IsValid reports whether s is a known strategy.
func (s Strategy) IsValid() bool {
	switch s {
	case StrategyArbitrage, StrategySandwich, StrategySandwichFront, StrategySandwichBack, StrategySnipe:
		return true
	}
	return false
}

// IsSandwichLeg reports whether s is one half of a sandwich pair.
// Legs are dispatched on the priority-fee path.
func (s Strategy) IsSandwichLeg() bool {
	return s == StrategySandwichFront || s == StrategySandwichBack
}
