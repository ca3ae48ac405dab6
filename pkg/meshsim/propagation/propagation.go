// Package propagation implements the RF path-loss models that couple nodes.
package propagation

import (
	"math"

	"github.com/go-meshsim/meshsim/internal/simerr"
)

// Point is a 3-D Cartesian position in meters.
type Point struct {
	X, Y, Z float64
}

// Distance returns the Euclidean distance between two points in meters.
func Distance(a, b Point) float64 {
	dx := b.X - a.X
	dy := b.Y - a.Y
	dz := b.Z - a.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// Model computes RF path loss in dB between a transmitter and a receiver at
// a given frequency. Implementations are pure functions of their inputs so
// callers can cache by node-pair.
type Model interface {
	// PathLoss returns the loss in dB for a transmission from tx to rx at
	// freqHz. Distance-zero and frequency-band edge cases are handled by
	// each model; an unsupported configuration returns a ConfigError.
	PathLoss(tx, rx Point, freqHz float64) (float64, error)

	// Name identifies the model, as used in config JSON.
	Name() string
}

// FSPL is the free-space path loss model: spec §4.2.
type FSPL struct{}

func (FSPL) Name() string { return "FSPL" }

func (FSPL) PathLoss(tx, rx Point, freqHz float64) (float64, error) {
	d := Distance(tx, rx)
	if d == 0 {
		return 0, nil
	}
	dKm := d / 1000.0
	fGHz := freqHz / 1e9
	return 32.44 + 20*math.Log10(dKm) + 20*math.Log10(fGHz), nil
}

// okumuraHataCorrection returns c_h for the "open"/"suburban" branches,
// shared between both since they differ only in the final adjustment term.
func okumuraHataCorrection(fMHz, hRx float64) float64 {
	return (1.1*math.Log10(fMHz)-0.7)*hRx - (1.56*math.Log10(fMHz) - 0.8)
}

func okumuraHataBase(d, f, hTx, hRx float64) float64 {
	dKm := d / 1000.0
	fMHz := f / 1e6
	cH := okumuraHataCorrection(fMHz, hRx)
	return 69.55 + 26.16*math.Log10(fMHz) - 13.82*math.Log10(hTx) - cH + (44.9-6.55*math.Log10(hTx))*math.Log10(dKm)
}

// symmetrize computes loss(T->R) and loss(R->T) via fn and averages them,
// per spec §4.2: the Okumura-Hata model is asymmetric in antenna heights,
// so the mean of both directions is used in the RF chain.
func symmetrize(tx, rx Point, freqHz float64, fn func(d, f, hTx, hRx float64) (float64, error)) (float64, error) {
	d := Distance(tx, rx)
	if d == 0 {
		return 0, nil
	}
	l1, err := fn(d, freqHz, tx.Z, rx.Z)
	if err != nil {
		return 0, err
	}
	l2, err := fn(d, freqHz, rx.Z, tx.Z)
	if err != nil {
		return 0, err
	}
	return (l1 + l2) / 2.0, nil
}

// OkumuraHataOpen is the Okumura-Hata model for open terrain.
type OkumuraHataOpen struct{}

func (OkumuraHataOpen) Name() string { return "OpenTerrain" }

func (OkumuraHataOpen) PathLoss(tx, rx Point, freqHz float64) (float64, error) {
	return symmetrize(tx, rx, freqHz, func(d, f, hTx, hRx float64) (float64, error) {
		fMHz := f / 1e6
		lU := okumuraHataBase(d, f, hTx, hRx)
		return lU - 4.78*math.Pow(math.Log10(fMHz), 2) + 18.33*math.Log10(fMHz) - 40.94, nil
	})
}

// OkumuraHataSuburban is the Okumura-Hata model for suburban areas.
type OkumuraHataSuburban struct{}

func (OkumuraHataSuburban) Name() string { return "Suburban" }

func (OkumuraHataSuburban) PathLoss(tx, rx Point, freqHz float64) (float64, error) {
	return symmetrize(tx, rx, freqHz, func(d, f, hTx, hRx float64) (float64, error) {
		fMHz := f / 1e6
		lU := okumuraHataBase(d, f, hTx, hRx)
		return lU - 2*math.Pow(math.Log10(fMHz/28.0), 2) - 5.4, nil
	})
}

// OkumuraHataCity is the Okumura-Hata model for large cities. It is
// undefined for 200 MHz < f < 400 MHz per spec §4.2.
type OkumuraHataCity struct{}

func (OkumuraHataCity) Name() string { return "City" }

func (OkumuraHataCity) PathLoss(tx, rx Point, freqHz float64) (float64, error) {
	return symmetrize(tx, rx, freqHz, func(d, f, hTx, hRx float64) (float64, error) {
		fMHz := f / 1e6
		var cH float64
		switch {
		case fMHz <= 200:
			cH = 8.29*math.Pow(math.Log10(1.54*hRx), 2) - 1.1
		case fMHz >= 400:
			cH = 3.2*math.Pow(math.Log10(11.75*hRx), 2) - 4.97
		default:
			return 0, simerr.NewConfig("Okumura-Hata large-city model undefined for 200 < f < 400 MHz (got %.1f MHz)", fMHz)
		}
		dKm := d / 1000.0
		return 69.55 + 26.16*math.Log10(fMHz) - 13.82*math.Log10(hTx) - cH + (44.9-6.55*math.Log10(hTx))*math.Log10(dKm), nil
	})
}

// ByName resolves a config-file model name to a Model. Unknown names fall
// back to FSPL, matching the KSSM prototype ("every other option is FSPL").
func ByName(name string) Model {
	switch name {
	case "OpenTerrain":
		return OkumuraHataOpen{}
	case "Suburban":
		return OkumuraHataSuburban{}
	case "City":
		return OkumuraHataCity{}
	default:
		return FSPL{}
	}
}

// RSSI returns the received signal strength in dBm given the transmitter's
// power and the path loss between transmitter and receiver.
func RSSI(txPowerDBm, pathLossDB float64) float64 {
	return txPowerDBm - pathLossDB
}

// SNR returns the signal-to-noise ratio in dB given RSSI and the receiver's
// noise floor.
func SNR(rssiDBm, noiseLevelDBm float64) float64 {
	return rssiDBm - noiseLevelDBm
}
