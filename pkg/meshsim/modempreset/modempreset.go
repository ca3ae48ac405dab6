// Package modempreset holds the static LoRa modem parameter table and the
// time-on-air derivations that depend only on it.
package modempreset

import (
	"math"

	"github.com/go-meshsim/meshsim/internal/simerr"
)

// Mode names a LoRa modem preset, equal to Meshtastic's protobuf ModemPreset.
// https://github.com/meshtastic/protobufs/blob/14ec205865592fcfa798065bb001a549fc77b438/meshtastic/config.proto#L874
type Mode int

const (
	LongFast Mode = iota
	LongSlow
	VeryLongSlow
	MediumSlow
	MediumFast
	ShortSlow
	ShortFast
	LongModerate
	ShortTurbo
)

// String returns the JSON/CLI spelling of the mode.
func (m Mode) String() string {
	switch m {
	case LongFast:
		return "LongFast"
	case LongSlow:
		return "LongSlow"
	case VeryLongSlow:
		return "VeryLongSlow"
	case MediumSlow:
		return "MediumSlow"
	case MediumFast:
		return "MediumFast"
	case ShortSlow:
		return "ShortSlow"
	case ShortFast:
		return "ShortFast"
	case LongModerate:
		return "LongModerate"
	case ShortTurbo:
		return "ShortTurbo"
	default:
		return "Unknown"
	}
}

// Preset holds the parameters that fix a modem's on-air timing.
type Preset struct {
	SF int // spreading factor, 7..12
	CR int // coding rate denominator, 5 or 8
	BW int // bandwidth in Hz
}

// presets is indexed by Mode and mirrors KSSM's LoRaConstants.ModemPreset.params table.
var presets = [...]Preset{
	LongFast:     {SF: 11, CR: 5, BW: 250000},
	LongSlow:     {SF: 12, CR: 8, BW: 125000},
	VeryLongSlow: {SF: 12, CR: 8, BW: 62500},
	MediumSlow:   {SF: 10, CR: 5, BW: 250000},
	MediumFast:   {SF: 9, CR: 5, BW: 250000},
	ShortSlow:    {SF: 8, CR: 5, BW: 250000},
	ShortFast:    {SF: 7, CR: 5, BW: 250000},
	LongModerate: {SF: 11, CR: 8, BW: 125000},
	ShortTurbo:   {SF: 7, CR: 5, BW: 500000},
}

// ParseMode resolves a config-file mode string to a Mode. Unknown names are
// a ConfigError per spec §6/§7 (unlike Role, there is no silent fallback).
func ParseMode(name string) (Mode, error) {
	for m := LongFast; m <= ShortTurbo; m++ {
		if m.String() == name {
			return m, nil
		}
	}
	return 0, simerr.NewConfig("unknown lora_mode %q", name)
}

// Preset returns the preset parameters for a mode.
func (m Mode) Preset() Preset {
	return presets[m]
}

// SymbolTimeUS returns the symbol time in microseconds: 10^6 * 2^SF / BW.
func (p Preset) SymbolTimeUS() float64 {
	return 1e6 * math.Pow(2, float64(p.SF)) / float64(p.BW)
}

// LowDataRateOptimize reports whether the low-data-rate optimization bit is
// set, which the spec defines as symbol_time_us > 16000.
func (p Preset) LowDataRateOptimize() bool {
	return p.SymbolTimeUS() > 16000
}

// TxTimeUS computes the time-on-air in microseconds for a payload of length
// bytes, per spec §4.1. Length must be 1..250 or the call is a ConfigError.
func (p Preset) TxTimeUS(length int) (int, error) {
	if length < 1 || length > 250 {
		return 0, simerr.NewConfig("message length %d out of range [1,250]", length)
	}

	symbolTime := p.SymbolTimeUS()
	lowDR := 0.0
	if p.LowDataRateOptimize() {
		lowDR = 1.0
	}

	preambleTime := 20.25 * symbolTime
	cr := float64(p.CR - 4)

	numerator := 8.0*float64(length) - 4*float64(p.SF) + 28 + 16
	denominator := 4 * (float64(p.SF) - 2*lowDR)
	payloadSymbols := 8 + math.Max(math.Ceil(numerator/denominator)*cr, 0)

	return int(math.Floor(preambleTime + payloadSymbols*symbolTime)), nil
}
