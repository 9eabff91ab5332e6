// Package units converts length values between common CAD units.
// The modeling service works in millimeters; everything entering a
// request payload passes through this package first.
package units

import "fmt"

// Length is a unit of length.
type Length int

const (
	Millimeters Length = iota
	Centimeters
	Meters
	Inches
)

// millimeters per unit.
var factors = map[Length]float64{
	Millimeters: 1,
	Centimeters: 10,
	Meters:      1000,
	Inches:      25.4,
}

func (u Length) String() string {
	switch u {
	case Millimeters:
		return "mm"
	case Centimeters:
		return "cm"
	case Meters:
		return "m"
	case Inches:
		return "in"
	default:
		return fmt.Sprintf("Length(%d)", int(u))
	}
}

// ParseLength parses a unit symbol ("mm", "cm", "m", "in").
func ParseLength(s string) (Length, error) {
	switch s {
	case "mm":
		return Millimeters, nil
	case "cm":
		return Centimeters, nil
	case "m":
		return Meters, nil
	case "in":
		return Inches, nil
	default:
		return 0, fmt.Errorf("units: unknown length unit %q", s)
	}
}

// Distance is a length value with an explicit unit.
type Distance struct {
	Value float64
	Unit  Length
}

// MM is shorthand for a millimeter distance.
func MM(v float64) Distance {
	return Distance{Value: v, Unit: Millimeters}
}

// In converts d to the given unit.
func (d Distance) In(u Length) float64 {
	return d.Value * factors[d.Unit] / factors[u]
}

// Millimeters returns d expressed in millimeters, the service wire unit.
func (d Distance) Millimeters() float64 {
	return d.In(Millimeters)
}
