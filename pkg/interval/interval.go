// Package interval implements conservative interval arithmetic for the
// graph operators. Every rule is sound: for any concrete inputs drawn from
// the argument intervals, the concrete result lies in the returned
// interval, and a NaN result is only possible when the interval says so.
// Results are deterministic.
package interval

import (
	"fmt"
	"math"
)

// Interval is the closed range [Lo, Hi]. An interval with a NaN endpoint
// admits every value. MaybeNaN marks an interval whose finite bounds hold
// for every real result but some inputs in the region produce NaN, as for
// √x over a range reaching below zero.
type Interval struct {
	Lo, Hi   float64
	MaybeNaN bool
}

// New returns [lo, hi].
func New(lo, hi float64) Interval { return Interval{Lo: lo, Hi: hi} }

// Point returns the degenerate interval [v, v].
func Point(v float64) Interval { return Interval{Lo: v, Hi: v} }

// NaN returns the interval that admits anything, including NaN.
func NaN() Interval { return Interval{Lo: math.NaN(), Hi: math.NaN()} }

// Entire returns (-∞, +∞).
func Entire() Interval { return Interval{Lo: math.Inf(-1), Hi: math.Inf(1)} }

// HasNaN reports whether either endpoint is NaN.
func (i Interval) HasNaN() bool { return math.IsNaN(i.Lo) || math.IsNaN(i.Hi) }

// PossiblyNaN reports whether some input in the region may give NaN.
func (i Interval) PossiblyNaN() bool { return i.MaybeNaN || i.HasNaN() }

// WithNaN returns i marked as possibly NaN when nan is set.
func (i Interval) WithNaN(nan bool) Interval {
	i.MaybeNaN = i.MaybeNaN || nan
	return i
}

// Contains reports whether v lies in the interval. NaN is contained only
// in intervals that may be NaN.
func (i Interval) Contains(v float64) bool {
	switch {
	case math.IsNaN(v):
		return i.PossiblyNaN()
	case i.HasNaN():
		return true
	}
	return i.Lo <= v && v <= i.Hi
}

// infinite reports whether either endpoint is infinite.
func (i Interval) infinite() bool { return math.IsInf(i.Lo, 0) || math.IsInf(i.Hi, 0) }

// hasZero reports whether zero lies in the interval.
func (i Interval) hasZero() bool { return i.Lo <= 0 && i.Hi >= 0 }

// Width returns Hi - Lo.
func (i Interval) Width() float64 { return i.Hi - i.Lo }

// Mid returns the midpoint.
func (i Interval) Mid() float64 { return i.Lo + (i.Hi-i.Lo)/2 }

// Split divides the interval at its midpoint.
func (i Interval) Split() (Interval, Interval) {
	m := i.Mid()
	return Interval{Lo: i.Lo, Hi: m}, Interval{Lo: m, Hi: i.Hi}
}

// Positive reports whether every value is strictly greater than zero.
func (i Interval) Positive() bool { return !i.PossiblyNaN() && i.Lo > 0 }

// Negative reports whether every value is strictly less than zero.
func (i Interval) Negative() bool { return !i.PossiblyNaN() && i.Hi < 0 }

func (i Interval) String() string {
	if i.MaybeNaN {
		return fmt.Sprintf("[%g, %g]?", i.Lo, i.Hi)
	}
	return fmt.Sprintf("[%g, %g]", i.Lo, i.Hi)
}

// Hull returns the smallest interval containing a and b.
func Hull(a, b Interval) Interval {
	if a.HasNaN() || b.HasNaN() {
		return NaN()
	}
	r := Interval{Lo: math.Min(a.Lo, b.Lo), Hi: math.Max(a.Hi, b.Hi)}
	return r.WithNaN(a.MaybeNaN || b.MaybeNaN)
}

// widen moves each endpoint outward by one ulp to cover rounding in
// library transcendentals.
func widen(lo, hi float64) Interval {
	return Interval{Lo: math.Nextafter(lo, math.Inf(-1)), Hi: math.Nextafter(hi, math.Inf(1))}
}

// Neg returns -a.
func Neg(a Interval) Interval { return Interval{Lo: -a.Hi, Hi: -a.Lo, MaybeNaN: a.MaybeNaN} }

// Abs returns |a|.
func Abs(a Interval) Interval {
	switch {
	case a.HasNaN():
		return NaN()
	case a.Lo >= 0:
		return a
	case a.Hi <= 0:
		return Neg(a)
	default:
		return Interval{Lo: 0, Hi: math.Max(-a.Lo, a.Hi), MaybeNaN: a.MaybeNaN}
	}
}

// Square returns a².
func Square(a Interval) Interval {
	switch {
	case a.HasNaN():
		return NaN()
	case a.Hi < 0:
		return Interval{Lo: a.Hi * a.Hi, Hi: a.Lo * a.Lo, MaybeNaN: a.MaybeNaN}
	case a.Lo > 0:
		return Interval{Lo: a.Lo * a.Lo, Hi: a.Hi * a.Hi, MaybeNaN: a.MaybeNaN}
	default:
		m := math.Max(-a.Lo, a.Hi)
		return Interval{Lo: 0, Hi: m * m, MaybeNaN: a.MaybeNaN}
	}
}

// Sqrt returns √a. A negative lower bound is clamped to zero and the
// result marked as possibly NaN; an entirely negative interval has no real
// square root and yields NaN.
func Sqrt(a Interval) Interval {
	switch {
	case a.HasNaN() || a.Hi < 0:
		return NaN()
	case a.Lo < 0:
		return Interval{Lo: 0, Hi: math.Sqrt(a.Hi), MaybeNaN: true}
	default:
		return Interval{Lo: math.Sqrt(a.Lo), Hi: math.Sqrt(a.Hi), MaybeNaN: a.MaybeNaN}
	}
}

// Recip returns 1/a, or (-∞, +∞) when a touches or straddles zero.
func Recip(a Interval) Interval {
	switch {
	case a.HasNaN():
		return NaN()
	case a.Lo > 0 || a.Hi < 0:
		return Interval{Lo: 1 / a.Hi, Hi: 1 / a.Lo, MaybeNaN: a.MaybeNaN}
	default:
		return Entire().WithNaN(a.MaybeNaN)
	}
}

// Exp returns eᵃ.
func Exp(a Interval) Interval {
	if a.HasNaN() {
		return NaN()
	}
	r := widen(math.Exp(a.Lo), math.Exp(a.Hi))
	r.Lo = math.Max(r.Lo, 0)
	return r.WithNaN(a.MaybeNaN)
}

// Ln returns the natural logarithm of a. A lower bound at or below zero is
// clamped to -∞, and a negative one marks the result as possibly NaN; an
// entirely negative interval yields NaN.
func Ln(a Interval) Interval {
	switch {
	case a.HasNaN() || a.Hi < 0:
		return NaN()
	case a.Lo <= 0:
		r := Interval{Lo: math.Inf(-1), Hi: math.Nextafter(math.Log(a.Hi), math.Inf(1))}
		return r.WithNaN(a.MaybeNaN || a.Lo < 0)
	default:
		return widen(math.Log(a.Lo), math.Log(a.Hi)).WithNaN(a.MaybeNaN)
	}
}

// Sin returns sin a.
func Sin(a Interval) Interval {
	// Maxima at π/2 + 2kπ, minima at -π/2 + 2kπ.
	return periodic(a, math.Sin, math.Pi/2, -math.Pi/2)
}

// Cos returns cos a.
func Cos(a Interval) Interval {
	// Maxima at 2kπ, minima at π + 2kπ.
	return periodic(a, math.Cos, 0, math.Pi)
}

func periodic(a Interval, f func(float64) float64, peak, trough float64) Interval {
	if a.HasNaN() {
		return NaN()
	}
	// sin and cos of ±∞ are NaN.
	nan := a.MaybeNaN || a.infinite()
	if !(a.Hi-a.Lo < 2*math.Pi) {
		return Interval{Lo: -1, Hi: 1, MaybeNaN: nan}
	}
	lo, hi := f(a.Lo), f(a.Hi)
	if lo > hi {
		lo, hi = hi, lo
	}
	r := widen(lo, hi)
	if reaches(a, peak) {
		r.Hi = 1
	}
	if reaches(a, trough) {
		r.Lo = -1
	}
	r.Lo = math.Max(r.Lo, -1)
	r.Hi = math.Min(r.Hi, 1)
	return r.WithNaN(nan)
}

// reaches reports whether the interval contains phase + 2kπ for some k.
// The test errs toward true near the boundary.
func reaches(a Interval, phase float64) bool {
	const slack = 1e-9
	k := math.Ceil((a.Lo - phase - slack) / (2 * math.Pi))
	return phase+2*math.Pi*k <= a.Hi+slack
}

// Add returns a + b. Opposite infinities may cancel to NaN.
func Add(a, b Interval) Interval {
	if a.HasNaN() || b.HasNaN() {
		return NaN()
	}
	r := Interval{Lo: a.Lo + b.Lo, Hi: a.Hi + b.Hi}
	return r.WithNaN(a.MaybeNaN || b.MaybeNaN || (a.infinite() && b.infinite()))
}

// Sub returns a - b.
func Sub(a, b Interval) Interval {
	if a.HasNaN() || b.HasNaN() {
		return NaN()
	}
	r := Interval{Lo: a.Lo - b.Hi, Hi: a.Hi - b.Lo}
	return r.WithNaN(a.MaybeNaN || b.MaybeNaN || (a.infinite() && b.infinite()))
}

// mulEnd multiplies endpoints, treating 0 × ∞ as 0. Mul marks the result
// as possibly NaN whenever such a product can occur.
func mulEnd(a, b float64) float64 {
	if a == 0 || b == 0 {
		return 0
	}
	return a * b
}

// Mul returns a × b.
func Mul(a, b Interval) Interval {
	if a.HasNaN() || b.HasNaN() {
		return NaN()
	}
	p := [4]float64{
		mulEnd(a.Lo, b.Lo), mulEnd(a.Lo, b.Hi),
		mulEnd(a.Hi, b.Lo), mulEnd(a.Hi, b.Hi),
	}
	zeroInf := (a.hasZero() && b.infinite()) || (b.hasZero() && a.infinite())
	return span(p).WithNaN(a.MaybeNaN || b.MaybeNaN || zeroInf)
}

// Div returns a ÷ b. A divisor touching or straddling zero gives
// (-∞, +∞) rather than an error. 0 ÷ 0 and ∞ ÷ ∞ mark the result as
// possibly NaN.
func Div(a, b Interval) Interval {
	if a.HasNaN() || b.HasNaN() {
		return NaN()
	}
	nan := a.MaybeNaN || b.MaybeNaN || (a.hasZero() && b.hasZero()) || (a.infinite() && b.infinite())
	if b.hasZero() {
		return Entire().WithNaN(nan)
	}
	p := [4]float64{a.Lo / b.Lo, a.Lo / b.Hi, a.Hi / b.Lo, a.Hi / b.Hi}
	for _, v := range p {
		if math.IsNaN(v) {
			return Entire().WithNaN(true)
		}
	}
	return span(p).WithNaN(nan)
}

func span(p [4]float64) Interval {
	lo, hi := p[0], p[0]
	for _, v := range p[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return Interval{Lo: lo, Hi: hi}
}

// Min returns the endpoint-wise minimum of a and b. A NaN operand makes
// the result NaN, so either side's MaybeNaN carries over.
func Min(a, b Interval) Interval {
	if a.HasNaN() || b.HasNaN() {
		return NaN()
	}
	r := Interval{Lo: math.Min(a.Lo, b.Lo), Hi: math.Min(a.Hi, b.Hi)}
	return r.WithNaN(a.MaybeNaN || b.MaybeNaN)
}

// Max returns the endpoint-wise maximum of a and b.
func Max(a, b Interval) Interval {
	if a.HasNaN() || b.HasNaN() {
		return NaN()
	}
	r := Interval{Lo: math.Max(a.Lo, b.Lo), Hi: math.Max(a.Hi, b.Hi)}
	return r.WithNaN(a.MaybeNaN || b.MaybeNaN)
}

// Order describes how two intervals relate.
type Order uint8

const (
	Overlap Order = iota // the intervals share a point, or either may be NaN
	Below                // every value of a is strictly less than every value of b
	Above                // every value of a is strictly greater than every value of b
)

func (o Order) String() string {
	switch o {
	case Below:
		return "below"
	case Above:
		return "above"
	default:
		return "overlap"
	}
}

// Compare orders a relative to b. Touching intervals overlap, and so does
// any operand that may be NaN: min and max propagate NaN, so neither side
// can be dropped.
func Compare(a, b Interval) Order {
	switch {
	case a.PossiblyNaN() || b.PossiblyNaN():
		return Overlap
	case a.Hi < b.Lo:
		return Below
	case a.Lo > b.Hi:
		return Above
	default:
		return Overlap
	}
}
