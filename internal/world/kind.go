// Package world provides settlements, the settlement network, and its generator.
package world

import (
	"errors"
	"fmt"
)

// Kind categorizes settlement scale.
type Kind uint8

const (
	KindVillage Kind = iota
	KindTown
	KindCity
)

var (
	// ErrUnsupportedPair is returned when no connection threshold exists for a kind pair.
	ErrUnsupportedPair = errors.New("unsupported settlement kind pair")
	// ErrUnknownKind is returned when a kind name cannot be parsed.
	ErrUnknownKind = errors.New("unknown settlement kind")
)

// kindSizes is the weight each kind carries in size-weighted aggregation.
var kindSizes = [...]int{
	KindVillage: 1,
	KindTown:    2,
	KindCity:    5,
}

// pairKey orders a kind pair so the table only needs one entry per unordered pair.
type pairKey struct{ hi, lo Kind }

func keyOf(a, b Kind) pairKey {
	if a < b {
		a, b = b, a
	}
	return pairKey{hi: a, lo: b}
}

// distThresholds holds the maximum connection distance per unordered kind pair.
var distThresholds = map[pairKey]float64{
	{KindVillage, KindVillage}: 8,
	{KindTown, KindVillage}:    12,
	{KindTown, KindTown}:       20,
	{KindCity, KindVillage}:    15,
	{KindCity, KindTown}:       25,
	{KindCity, KindCity}:       30,
}

// Size returns the aggregation weight for the kind (village=1, town=2, city=5).
func (k Kind) Size() int {
	if int(k) < len(kindSizes) {
		return kindSizes[k]
	}
	return 0
}

// String returns the lowercase kind name.
func (k Kind) String() string {
	switch k {
	case KindVillage:
		return "village"
	case KindTown:
		return "town"
	case KindCity:
		return "city"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	if int(k) >= len(kindSizes) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, uint8(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name.
func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseKind maps a lowercase name to a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "village":
		return KindVillage, nil
	case "town":
		return KindTown, nil
	case "city":
		return KindCity, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Threshold returns the connection distance threshold for two kinds.
// The table is symmetric: Threshold(a, b) == Threshold(b, a).
func Threshold(a, b Kind) (float64, error) {
	t, ok := distThresholds[keyOf(a, b)]
	if !ok {
		return 0, fmt.Errorf("%w: (%s, %s)", ErrUnsupportedPair, a, b)
	}
	return t, nil
}

// ConnectionWeight returns (threshold - dist) / threshold for the kind pair.
// ok is false when dist is not strictly below the threshold.
func ConnectionWeight(a, b Kind, dist float64) (weight float64, ok bool, err error) {
	t, err := Threshold(a, b)
	if err != nil {
		return 0, false, err
	}
	if dist < 0 || dist >= t {
		return 0, false, nil
	}
	return (t - dist) / t, true, nil
}
