package rotation

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/spatial/r3"
)

// Epsilon guards the Rodrigues denominator and sets the antiparallel
// threshold: inputs with cos(angle) below -1+Epsilon are treated as
// antiparallel.
const Epsilon = 1e-10

// DefaultMaxAttempts bounds the perturbation strategy.
const DefaultMaxAttempts = 1000

// perturbAmplitude is the half-width of the uniform noise added to the
// source vector on each perturbation attempt.
const perturbAmplitude = 1e-2

// Strategy selects how Align resolves antiparallel inputs.
type Strategy int

const (
	// StrategyHalfTurn rotates 180 degrees about a fixed axis orthogonal to
	// the source vector. Output is deterministic.
	StrategyHalfTurn Strategy = iota
	// StrategyPerturb adds small uniform noise to the source vector until it
	// is no longer antiparallel. Output depends on the random source.
	StrategyPerturb
)

// String returns the configuration name of the strategy.
func (s Strategy) String() string {
	switch s {
	case StrategyHalfTurn:
		return "halfturn"
	case StrategyPerturb:
		return "perturb"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// ParseStrategy maps a configuration name to a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch s {
	case "", "halfturn":
		return StrategyHalfTurn, nil
	case "perturb":
		return StrategyPerturb, nil
	default:
		return 0, fmt.Errorf("unknown alignment strategy %q (want halfturn or perturb)", s)
	}
}

// DegenerateError reports a vector pair for which no alignment rotation
// could be built.
type DegenerateError struct {
	A, B   r3.Vec
	Reason string
}

func (e *DegenerateError) Error() string {
	return fmt.Sprintf("degenerate alignment from (%g, %g, %g) to (%g, %g, %g): %s",
		e.A.X, e.A.Y, e.A.Z, e.B.X, e.B.Y, e.B.Z, e.Reason)
}

// Aligner builds alignment rotations. The zero value uses the half-turn
// strategy.
type Aligner struct {
	Strategy Strategy
	// MaxAttempts caps perturbation retries; zero means DefaultMaxAttempts.
	MaxAttempts int
	// Rand is the noise source for StrategyPerturb. Nil uses the global
	// generator.
	Rand *rand.Rand
}

// Align returns the rotation matrix R with R·(a/|a|) = b/|b| using the
// half-turn strategy.
func Align(a, b r3.Vec) (*r3.Mat, error) {
	return Aligner{}.Align(a, b)
}

// AlignPerturbed is Align with the legacy perturbation strategy. rng may be
// nil.
func AlignPerturbed(a, b r3.Vec, maxAttempts int, rng *rand.Rand) (*r3.Mat, error) {
	return Aligner{Strategy: StrategyPerturb, MaxAttempts: maxAttempts, Rand: rng}.Align(a, b)
}

// Align returns the rotation matrix R with R·(a/|a|) = b/|b|.
func (al Aligner) Align(a, b r3.Vec) (*r3.Mat, error) {
	na, nb := r3.Norm(a), r3.Norm(b)
	if !finitePositive(na) || !finitePositive(nb) {
		return nil, &DegenerateError{A: a, B: b, Reason: "zero-length or non-finite vector"}
	}
	ua, ub := r3.Scale(1/na, a), r3.Scale(1/nb, b)

	if r3.Dot(ua, ub) >= -1+Epsilon {
		return rodrigues(ua, ub), nil
	}

	switch al.Strategy {
	case StrategyPerturb:
		return al.perturb(a, b, ua, ub)
	default:
		return halfTurn(ua), nil
	}
}

func (al Aligner) perturb(a, b, ua, ub r3.Vec) (*r3.Mat, error) {
	attempts := al.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}
	uniform := rand.Float64
	if al.Rand != nil {
		uniform = al.Rand.Float64
	}
	noise := func() float64 { return (2*uniform() - 1) * perturbAmplitude }

	for i := 0; i < attempts; i++ {
		p := r3.Add(ua, r3.Vec{X: noise(), Y: noise(), Z: noise()})
		n := r3.Norm(p)
		if !finitePositive(n) {
			continue
		}
		ua = r3.Scale(1/n, p)
		if r3.Dot(ua, ub) >= -1+Epsilon {
			return rodrigues(ua, ub), nil
		}
	}
	return nil, &DegenerateError{
		A:      a,
		B:      b,
		Reason: fmt.Sprintf("still antiparallel after %d perturbations", attempts),
	}
}

// rodrigues computes I + K + K²(1-c)/(|v|²+ε) for unit vectors a and b.
func rodrigues(a, b r3.Vec) *r3.Mat {
	v := r3.Cross(a, b)
	c := r3.Dot(a, b)
	k := r3.Skew(v)

	k2 := r3.NewMat(nil)
	k2.Mul(k, k)
	k2.Scale((1-c)/(r3.Norm2(v)+Epsilon), k2)

	r := r3.Eye()
	r.Add(r, k)
	r.Add(r, k2)
	return r
}

// halfTurn returns the 180 degree rotation 2nnᵀ - I about an axis n
// orthogonal to the unit vector a, so that R·a = -a.
func halfTurn(a r3.Vec) *r3.Mat {
	n := r3.Unit(r3.Cross(a, leastAligned(a)))
	r := r3.NewMat(nil)
	r.Outer(2, n, n)
	r.Sub(r, r3.Eye())
	return r
}

// leastAligned returns the basis vector with the smallest absolute
// component in a. Ties resolve to the earlier axis.
func leastAligned(a r3.Vec) r3.Vec {
	ax, ay, az := math.Abs(a.X), math.Abs(a.Y), math.Abs(a.Z)
	switch {
	case ax <= ay && ax <= az:
		return r3.Vec{X: 1}
	case ay <= az:
		return r3.Vec{Y: 1}
	default:
		return r3.Vec{Z: 1}
	}
}

func finitePositive(x float64) bool {
	return x > 0 && !math.IsInf(x, 0) && !math.IsNaN(x)
}
