// Package fixed implements checked unsigned fixed-point arithmetic with
// compile-time decimal scales. Every quantity in the exchange core carries
// its scale in the type: collateral amounts at 9 fractional digits, token
// amounts at 6, oracle prices at 8. Quantities of different scales never
// combine without an explicit conversion step.
package fixed

import (
	"errors"
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

// Arithmetic errors. Checked operations fail loudly, never wrap or saturate.
var (
	ErrOverflow       = errors.New("fixed: arithmetic overflow")
	ErrUnderflow      = errors.New("fixed: arithmetic underflow")
	ErrDivisionByZero = errors.New("fixed: division by zero")
	ErrParse          = errors.New("fixed: invalid decimal string")
)

// Scale is a marker for the number of fractional decimal digits of a value.
type Scale interface {
	Decimals() uint32
}

// N6 is the scale of token amounts (stablecoin, levercoin, pool shares).
type N6 struct{}

// N8 is the scale of oracle prices.
type N8 struct{}

// N9 is the scale of collateral amounts, NAVs, ratios and fee rates.
type N9 struct{}

func (N6) Decimals() uint32 { return 6 }
func (N8) Decimals() uint32 { return 8 }
func (N9) Decimals() uint32 { return 9 }

// UFix is an unsigned fixed-point value: real value = Bits / 10^S.Decimals().
type UFix[S Scale] struct {
	Bits uint64
}

// New wraps raw bits at scale S.
func New[S Scale](bits uint64) UFix[S] {
	return UFix[S]{Bits: bits}
}

// Zero returns 0 at scale S.
func Zero[S Scale]() UFix[S] {
	return UFix[S]{}
}

// One returns 1.0 at scale S.
func One[S Scale]() UFix[S] {
	return UFix[S]{Bits: pow10(decimalsOf[S]())}
}

func decimalsOf[S Scale]() uint32 {
	var s S
	return s.Decimals()
}

var pow10Table = [20]uint64{
	1, 10, 100, 1_000, 10_000, 100_000, 1_000_000, 10_000_000, 100_000_000,
	1_000_000_000, 10_000_000_000, 100_000_000_000, 1_000_000_000_000,
	10_000_000_000_000, 100_000_000_000_000, 1_000_000_000_000_000,
	10_000_000_000_000_000, 100_000_000_000_000_000, 1_000_000_000_000_000_000,
	10_000_000_000_000_000_000,
}

func pow10(n uint32) uint64 {
	return pow10Table[n]
}

func pow10Big(n uint32) *uint256.Int {
	if n < 20 {
		return uint256.NewInt(pow10Table[n])
	}
	return new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(uint64(n)))
}

// Add returns a+b or ErrOverflow.
func (a UFix[S]) Add(b UFix[S]) (UFix[S], error) {
	sum := a.Bits + b.Bits
	if sum < a.Bits {
		return UFix[S]{}, ErrOverflow
	}
	return UFix[S]{Bits: sum}, nil
}

// Sub returns a-b or ErrUnderflow.
func (a UFix[S]) Sub(b UFix[S]) (UFix[S], error) {
	if b.Bits > a.Bits {
		return UFix[S]{}, ErrUnderflow
	}
	return UFix[S]{Bits: a.Bits - b.Bits}, nil
}

// Cmp returns -1, 0 or 1.
func (a UFix[S]) Cmp(b UFix[S]) int {
	switch {
	case a.Bits < b.Bits:
		return -1
	case a.Bits > b.Bits:
		return 1
	default:
		return 0
	}
}

// IsZero reports whether the value is exactly zero.
func (a UFix[S]) IsZero() bool {
	return a.Bits == 0
}

// Float64 converts for display and metrics only; never feed the result back
// into exchange math.
func (a UFix[S]) Float64() float64 {
	return float64(a.Bits) / float64(pow10(decimalsOf[S]()))
}

// String renders the value as a decimal with the full fractional part.
func (a UFix[S]) String() string {
	d := decimalsOf[S]()
	scale := pow10(d)
	return fmt.Sprintf("%d.%0*d", a.Bits/scale, d, a.Bits%scale)
}

// Rescale converts a value to another scale. Scaling up is checked
// multiplication; scaling down floors.
func Rescale[To, From Scale](x UFix[From]) (UFix[To], error) {
	from, to := decimalsOf[From](), decimalsOf[To]()
	if to == from {
		return UFix[To]{Bits: x.Bits}, nil
	}
	if to > from {
		factor := pow10(to - from)
		bits := x.Bits * factor
		if x.Bits != 0 && bits/factor != x.Bits {
			return UFix[To]{}, ErrOverflow
		}
		return UFix[To]{Bits: bits}, nil
	}
	return UFix[To]{Bits: x.Bits / pow10(from-to)}, nil
}

// MulDivFloor computes floor(a*b/c) at result scale R. The decimal-point
// shift implied by the operand and result scales is applied inside the
// 256-bit intermediate, so the result floors exactly once.
func MulDivFloor[R, A, B, C Scale](a UFix[A], b UFix[B], c UFix[C]) (UFix[R], error) {
	num := new(uint256.Int).Mul(uint256.NewInt(a.Bits), uint256.NewInt(b.Bits))
	den := uint256.NewInt(c.Bits)
	expAdj := int(decimalsOf[R]()+decimalsOf[C]()) - int(decimalsOf[A]()+decimalsOf[B]())
	return quotFloor[R](num, den, expAdj)
}

// MulMulDivFloor computes floor(a*b*c/d) at result scale R.
func MulMulDivFloor[R, A, B, C, D Scale](a UFix[A], b UFix[B], c UFix[C], d UFix[D]) (UFix[R], error) {
	num := new(uint256.Int).Mul(uint256.NewInt(a.Bits), uint256.NewInt(b.Bits))
	num.Mul(num, uint256.NewInt(c.Bits))
	den := uint256.NewInt(d.Bits)
	expAdj := int(decimalsOf[R]()+decimalsOf[D]()) - int(decimalsOf[A]()+decimalsOf[B]()+decimalsOf[C]())
	return quotFloor[R](num, den, expAdj)
}

// MulDivDivFloor computes floor(a*b/(c*d)) at result scale R, flooring once
// on the combined denominator.
func MulDivDivFloor[R, A, B, C, D Scale](a UFix[A], b UFix[B], c UFix[C], d UFix[D]) (UFix[R], error) {
	num := new(uint256.Int).Mul(uint256.NewInt(a.Bits), uint256.NewInt(b.Bits))
	den := new(uint256.Int).Mul(uint256.NewInt(c.Bits), uint256.NewInt(d.Bits))
	expAdj := int(decimalsOf[R]()+decimalsOf[C]()+decimalsOf[D]()) - int(decimalsOf[A]()+decimalsOf[B]())
	return quotFloor[R](num, den, expAdj)
}

// quotFloor divides num by den after shifting by 10^expAdj (numerator side
// when positive, denominator side when negative).
func quotFloor[R Scale](num, den *uint256.Int, expAdj int) (UFix[R], error) {
	if expAdj > 0 {
		num = new(uint256.Int).Mul(num, pow10Big(uint32(expAdj)))
	} else if expAdj < 0 {
		den = new(uint256.Int).Mul(den, pow10Big(uint32(-expAdj)))
	}
	if den.IsZero() {
		return UFix[R]{}, ErrDivisionByZero
	}
	q := new(uint256.Int).Div(num, den)
	if !q.IsUint64() {
		return UFix[R]{}, ErrOverflow
	}
	return UFix[R]{Bits: q.Uint64()}, nil
}

// Parse reads a non-negative decimal string ("1.50") into scale S. More
// fractional digits than the scale holds is an error, not a rounding.
func Parse[S Scale](s string) (UFix[S], error) {
	d := decimalsOf[S]()
	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" && frac == "" {
		return UFix[S]{}, fmt.Errorf("%w: %q", ErrParse, s)
	}
	if whole == "" {
		whole = "0"
	}
	if uint32(len(frac)) > d {
		return UFix[S]{}, fmt.Errorf("%w: %q has more than %d fractional digits", ErrParse, s, d)
	}
	var bits uint64
	for _, r := range whole + frac {
		if r < '0' || r > '9' {
			return UFix[S]{}, fmt.Errorf("%w: %q", ErrParse, s)
		}
		digit := uint64(r - '0')
		if bits > (^uint64(0)-digit)/10 {
			return UFix[S]{}, ErrOverflow
		}
		bits = bits*10 + digit
	}
	factor := pow10(d - uint32(len(frac)))
	if bits != 0 && bits > ^uint64(0)/factor {
		return UFix[S]{}, ErrOverflow
	}
	return UFix[S]{Bits: bits * factor}, nil
}
