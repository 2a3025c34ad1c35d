// stability.go --  This file is part of goStab project.
//
//	goStab is distributed in the hope that it will be useful,
//	but WITHOUT ANY WARRANTY; without even the implied warranty
//	of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
//	See the GNU General Public License for more details.
//
//	You should have received a copy of the GNU General Public License
//	along with this program.  If not, see http://www.gnu.org/licenses/
//
// ------------------------------------------------

// Package stability decides whether a converged mean-field solution is
// a true local minimum of the energy functional by solving for the
// lowest eigenvalue of the orbital-rotation Hessian, one dispatcher
// per reference type. An instability eigenvector is turned into a
// rotated orbital set suitable for re-optimization.
package stability

import (
	"errors"
	"log"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"gostab/linalg"
)

const (
	// DefaultNRoots is the number of roots requested from the
	// eigensolver when the caller does not override it.
	DefaultNRoots = 3
	// DefaultTol is the eigensolver convergence tolerance.
	DefaultTol = 1e-4
	// instabilityCutoff absorbs solver noise: only eigenvalues below
	// it count as instabilities.
	instabilityCutoff = -1e-5
)

// ErrUnsupportedChannel reports a stability channel that is not
// implemented for the requested reference type.
var ErrUnsupportedChannel = errors.New("stability: channel not implemented for this reference")

// ErrNotReoptimizable reports a re-optimization request that cannot
// be served: the collaborator exposes no re-optimization entry point,
// or the seed carries no orbitals.
var ErrNotReoptimizable = errors.New("stability: solution cannot be re-optimized")

// Options selects the channels to evaluate and configures the
// eigensolver. The zero value of NRoots and Tol means the defaults.
type Options struct {
	// Internal evaluates stability within the reference's own ansatz.
	Internal bool
	// External evaluates stability against relaxing the ansatz
	// (complex orbitals, spin extension) where implemented.
	External bool
	// BreakSymmetry disables the symmetry projection and forces the
	// initial guess onto the lowest-diagonal mode, so the search may
	// leave a symmetry-protected subspace.
	BreakSymmetry bool
	NRoots        int
	Tol           float64
	// Log receives per-channel verdicts and solver notes; nil keeps
	// the analysis silent.
	Log *log.Logger
}

// DefaultOptions evaluates the internal channel only, with default
// solver settings.
func DefaultOptions() *Options {
	return &Options{Internal: true}
}

func (o *Options) fill() Options {
	var c Options
	if o != nil {
		c = *o
	}
	if c.NRoots <= 0 {
		c.NRoots = DefaultNRoots
	}
	if c.Tol <= 0 {
		c.Tol = DefaultTol
	}
	return c
}

// Orbitals is a reference-dependent coefficient set. Exactly one field
// is populated: Real for restricted-type and enlarged spin-extension
// sets, Spin for per-spin pairs, Cplx for spinor-basis sets.
type Orbitals struct {
	Real *mat.Dense
	Spin [2]*mat.Dense
	Cplx *mat.CDense
}

// IsZero reports whether no coefficient set is present.
func (o Orbitals) IsZero() bool {
	return o.Real == nil && o.Spin[0] == nil && o.Cplx == nil
}

// RotatedOrbitals carries the per-channel orbital sets returned by a
// dispatcher. A stable channel returns the input orbitals unchanged;
// a skipped channel leaves its field zero.
type RotatedOrbitals struct {
	Internal Orbitals
	External Orbitals
}

// Verdict reports per-channel stability. Channels that were not
// evaluated read stable.
type Verdict struct {
	Internal bool
	External bool
}

// Analyzer is the stability contract every reference dispatcher
// implements. Stability returns the rotated orbitals alone;
// StabilityStatus additionally returns the per-channel verdicts. The
// two methods replace the variable-shape return of older interfaces:
// the caller picks the result shape by name.
type Analyzer interface {
	Stability(opts *Options) (RotatedOrbitals, error)
	StabilityStatus(opts *Options) (RotatedOrbitals, Verdict, error)
}

// dumpStatus emits the human-readable verdict for one channel.
func dumpStatus(lg *log.Logger, stable bool, methodClass, stabType string) {
	if lg == nil {
		return
	}
	if stable {
		lg.Println(methodClass + " wavefunction is stable in the " + stabType + " stability analysis")
	} else {
		lg.Println(methodClass + " wavefunction has an " + stabType + " instability")
	}
}

// lowestEigenpair adapts an operator, diagonal and guess to the
// Davidson solver and unwraps the lowest root. Higher roots are
// informational and only reach the log.
func lowestEigenpair(op linalg.Operator, hdiag, x0 []float64, o Options, tag string) (float64, []float64, error) {
	if floats.Norm(x0, 2) == 0 {
		k := minLiveIdx(hdiag)
		if k < 0 {
			// every rotation in this sector is symmetry-forbidden,
			// nothing to probe
			if o.Log != nil {
				o.Log.Println(tag + ": no rotation modes to probe")
			}
			return 0, append([]float64(nil), x0...), nil
		}
		// an all-negative diagonal also empties the guess; probe the
		// softest surviving mode instead of calling the sector stable
		x0 = append([]float64(nil), x0...)
		x0[k] = 1
	}
	es, vs, err := linalg.Davidson(op, x0, linalg.DiagPrecond(hdiag), linalg.Options{
		Tol:    o.Tol,
		NRoots: o.NRoots,
		Log:    o.Log,
	})
	if err != nil {
		return 0, nil, err
	}
	if o.Log != nil {
		o.Log.Println(tag+": lowest eigs of H =", es)
	}
	return es[0], vs[0], nil
}

func lowestEigenpairZ(op linalg.OperatorZ, hdiag []float64, x0 []complex128, o Options, tag string) (float64, []complex128, error) {
	zero := true
	for _, z := range x0 {
		if z != 0 {
			zero = false
			break
		}
	}
	if zero {
		k := minLiveIdx(hdiag)
		if k < 0 {
			if o.Log != nil {
				o.Log.Println(tag + ": no rotation modes to probe")
			}
			return 0, append([]complex128(nil), x0...), nil
		}
		x0 = append([]complex128(nil), x0...)
		x0[k] = 1
	}
	es, vs, err := linalg.DavidsonZ(op, x0, linalg.DiagPrecondZ(hdiag), linalg.Options{
		Tol:    o.Tol,
		NRoots: o.NRoots,
		Log:    o.Log,
	})
	if err != nil {
		return 0, nil, err
	}
	if o.Log != nil {
		o.Log.Println(tag+": lowest eigs of H =", es)
	}
	return es[0], vs[0], nil
}

// hermitianDouble turns the raw vir-occ block product into the full
// Hessian action: the occ-vir block equals the conjugate transpose of
// the vir-occ block, so the effective operator is 2*Re of the raw one.
type hermitianDouble struct {
	raw linalg.Operator
}

func (h hermitianDouble) Dim() int { return h.raw.Dim() }

func (h hermitianDouble) Apply(x []float64) []float64 {
	y := h.raw.Apply(x)
	out := make([]float64, len(y))
	for i, v := range y {
		out[i] = 2 * v
	}
	return out
}

func doubled(v []float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = 2 * x
	}
	return out
}

// minLiveIdx is the index of the smallest diagonal entry that has not
// been projected out, or -1 when the whole sector is forbidden.
func minLiveIdx(hdiag []float64) int {
	best := -1
	for i, d := range hdiag {
		if d == 0 {
			continue
		}
		if best < 0 || d < hdiag[best] {
			best = i
		}
	}
	return best
}

// seedFromGradient builds the internal-channel guess: 1/diagonal on
// the gradient's support, optionally forced onto the lowest-diagonal
// mode when symmetry breaking is allowed.
func seedFromGradient(g, hdiag []float64, breakSym bool) []float64 {
	x0 := make([]float64, len(g))
	for i := range g {
		if g[i] != 0 && math.Abs(hdiag[i]) > 1e-12 {
			x0[i] = 1 / hdiag[i]
		}
	}
	if breakSym && len(hdiag) > 0 {
		x0[floats.MinIdx(hdiag)] = 1
	}
	return x0
}

// seedFromDiag builds the external-channel guess from the diagonal
// alone.
func seedFromDiag(hdiag []float64, breakSym bool) []float64 {
	x0 := make([]float64, len(hdiag))
	for i, d := range hdiag {
		if d > 1e-5 {
			x0[i] = 1 / d
		}
	}
	if breakSym && len(hdiag) > 0 {
		x0[floats.MinIdx(hdiag)] = 1
	}
	return x0
}

// small matrix helpers in the product-chain style of the Fock
// transforms

func mul(a, b mat.Matrix) *mat.Dense {
	var out mat.Dense
	out.Mul(a, b)
	return &out
}

func mul3(a, b, c mat.Matrix) *mat.Dense {
	return mul(mul(a, b), c)
}

func add(a, b mat.Matrix) *mat.Dense {
	var out mat.Dense
	out.Add(a, b)
	return &out
}

func sub(a, b mat.Matrix) *mat.Dense {
	var out mat.Dense
	out.Sub(a, b)
	return &out
}

func scaled(f float64, a mat.Matrix) *mat.Dense {
	var out mat.Dense
	out.Scale(f, a)
	return &out
}

// cols extracts the listed columns of c.
func cols(c *mat.Dense, idx []int) *mat.Dense {
	r, _ := c.Dims()
	out := mat.NewDense(r, len(idx), nil)
	for j, q := range idx {
		for i := 0; i < r; i++ {
			out.Set(i, j, c.At(i, q))
		}
	}
	return out
}

// block extracts the rows x cols submatrix of f.
func block(f *mat.Dense, rows, colIdx []int) *mat.Dense {
	out := mat.NewDense(len(rows), len(colIdx), nil)
	for i, p := range rows {
		for j, q := range colIdx {
			out.Set(i, j, f.At(p, q))
		}
	}
	return out
}

// maskedShape reshapes a packed trial vector into nvir x nocc with
// symmetry-forbidden entries zeroed.
func maskedShape(x []float64, nvir, nocc int, forbid []bool) *mat.Dense {
	out := mat.NewDense(nvir, nocc, nil)
	for a := 0; a < nvir; a++ {
		for i := 0; i < nocc; i++ {
			k := a*nocc + i
			if forbid != nil && forbid[k] {
				continue
			}
			out.Set(a, i, x[k])
		}
	}
	return out
}

// flattenMasked packs a nvir x nocc block back into a vector, zeroing
// forbidden entries.
func flattenMasked(m *mat.Dense, forbid []bool) []float64 {
	r, c := m.Dims()
	out := make([]float64, r*c)
	for a := 0; a < r; a++ {
		for i := 0; i < c; i++ {
			k := a*c + i
			if forbid != nil && forbid[k] {
				continue
			}
			out[k] = m.At(a, i)
		}
	}
	return out
}

// zeroForbidden applies a symmetry mask to a diagonal vector.
func zeroForbidden(v []float64, forbid []bool) {
	if forbid == nil {
		return
	}
	for i, f := range forbid {
		if f {
			v[i] = 0
		}
	}
}
