package domain

// SignalType identifies a signal generator implementation.
type SignalType string

// Signal type constants.
const (
	SignalTypeEMACross    SignalType = "EMA_CROSS"
	SignalTypeRSIReversal SignalType = "RSI_REVERSAL"
	SignalTypeMACDCross   SignalType = "MACD_CROSS"
	SignalTypeComposite   SignalType = "COMPOSITE"
)

// SignalConfig selects and parameterizes a signal generator.
// Pointer fields are required for the types that use them; the factory
// returns a clear error when one is missing.
type SignalConfig struct {
	SignalType SignalType

	// RSI_REVERSAL parameters.
	Oversold   *float64 // extreme level, e.g. 25
	Overbought *float64 // extreme level, e.g. 75

	// COMPOSITE members, evaluated in order.
	Members []SignalConfig
}
