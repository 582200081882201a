package signal

import (
	"errors"

	"prop-trading-lab/internal/domain"
)

// Factory errors.
var (
	ErrUnknownSignalType = errors.New("unknown signal type")
	ErrMissingOversold   = errors.New("RSI_REVERSAL requires Oversold")
	ErrMissingOverbought = errors.New("RSI_REVERSAL requires Overbought")
	ErrEmptyComposite    = errors.New("COMPOSITE requires at least one member")
)

// FromConfig creates a Generator from domain.SignalConfig.
// Validates required parameters per signal type and returns clear
// errors for missing/invalid params.
func FromConfig(cfg domain.SignalConfig, levels Levels) (Generator, error) {
	switch cfg.SignalType {
	case domain.SignalTypeEMACross:
		return NewEMACross(levels), nil
	case domain.SignalTypeRSIReversal:
		return fromRSIReversalConfig(cfg, levels)
	case domain.SignalTypeMACDCross:
		return NewMACDCross(levels), nil
	case domain.SignalTypeComposite:
		return fromCompositeConfig(cfg, levels)
	default:
		return nil, ErrUnknownSignalType
	}
}

// fromRSIReversalConfig creates RSIReversal from config.
func fromRSIReversalConfig(cfg domain.SignalConfig, levels Levels) (*RSIReversal, error) {
	if cfg.Oversold == nil {
		return nil, ErrMissingOversold
	}
	if cfg.Overbought == nil {
		return nil, ErrMissingOverbought
	}
	return NewRSIReversal(levels, *cfg.Oversold, *cfg.Overbought), nil
}

// fromCompositeConfig creates Composite from config, building each
// member recursively.
func fromCompositeConfig(cfg domain.SignalConfig, levels Levels) (*Composite, error) {
	if len(cfg.Members) == 0 {
		return nil, ErrEmptyComposite
	}

	members := make([]Generator, 0, len(cfg.Members))
	for _, mc := range cfg.Members {
		m, err := FromConfig(mc, levels)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return NewComposite(members...), nil
}
