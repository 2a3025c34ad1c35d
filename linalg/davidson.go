// davidson.go --  This file is part of goStab project.
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
package linalg

import (
	"errors"
	"fmt"
	"log"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Operator applies a linear operator to a packed trial vector without
// ever materializing the matrix.
type Operator interface {
	Dim() int
	Apply(x []float64) []float64
}

// OpFunc adapts a plain function to the Operator interface.
type OpFunc struct {
	N int
	F func(x []float64) []float64
}

func (o OpFunc) Dim() int                    { return o.N }
func (o OpFunc) Apply(x []float64) []float64 { return o.F(x) }

// Precond improves a residual vector given the current eigenvalue
// estimate.
type Precond func(dx []float64, e float64) []float64

// diagFloor is the smallest magnitude allowed for a preconditioner
// denominator.
const diagFloor = 1e-8

// DiagPrecond builds the standard diagonal preconditioner: the residual
// is divided by (diag - e), with denominators floored at 1e-8 in
// magnitude so near-degeneracies do not blow up.
func DiagPrecond(diag []float64) Precond {
	return func(dx []float64, e float64) []float64 {
		out := make([]float64, len(dx))
		for i, d := range diag {
			den := d - e
			if den < diagFloor && den > -diagFloor {
				den = diagFloor
			}
			out[i] = dx[i] / den
		}
		return out
	}
}

// Options controls the Davidson iteration.
type Options struct {
	Tol      float64 // residual norm target, default 1e-12
	MaxCycle int     // default 50
	MaxSpace int     // default 12 + NRoots
	NRoots   int     // default 1
	Log      *log.Logger
}

func (o Options) fill() Options {
	if o.Tol <= 0 {
		o.Tol = 1e-12
	}
	if o.MaxCycle <= 0 {
		o.MaxCycle = 50
	}
	if o.NRoots <= 0 {
		o.NRoots = 1
	}
	if o.MaxSpace <= 0 {
		o.MaxSpace = 12 + o.NRoots
	}
	return o
}

// ErrZeroGuess reports an initial vector with vanishing norm.
var ErrZeroGuess = errors.New("linalg: initial guess has zero norm")

// Davidson finds the lowest eigenpairs of a symmetric operator by
// subspace expansion. It returns eigenvalues in ascending order with
// the matching eigenvectors.
func Davidson(aop Operator, x0 []float64, precond Precond, opt Options) ([]float64, [][]float64, error) {
	opt = opt.fill()
	n := aop.Dim()
	if len(x0) != n {
		return nil, nil, fmt.Errorf("linalg: guess length %d does not match operator dimension %d", len(x0), n)
	}
	nroots := opt.NRoots
	if nroots > n {
		nroots = n
	}
	if opt.MaxSpace > n {
		opt.MaxSpace = n
	}

	v := append([]float64(nil), x0...)
	nrm := floats.Norm(v, 2)
	if nrm < 1e-12 {
		return nil, nil, ErrZeroGuess
	}
	floats.Scale(1/nrm, v)

	vs := [][]float64{v}
	ws := [][]float64{aop.Apply(v)}

	var theta []float64
	var ritz [][]float64
	for cycle := 0; cycle < opt.MaxCycle; cycle++ {
		m := len(vs)
		h := mat.NewSymDense(m, nil)
		for i := 0; i < m; i++ {
			for j := 0; j <= i; j++ {
				h.SetSym(i, j, floats.Dot(vs[i], ws[j]))
			}
		}
		var eig mat.EigenSym
		if ok := eig.Factorize(h, true); !ok {
			return nil, nil, errors.New("linalg: subspace eigendecomposition failed")
		}
		vals := eig.Values(nil)
		var vecs mat.Dense
		eig.VectorsTo(&vecs)

		k := nroots
		if k > m {
			k = m
		}
		theta = theta[:0]
		ritz = ritz[:0]
		allConv := true
		added := 0
		for r := 0; r < k; r++ {
			x := make([]float64, n)
			ax := make([]float64, n)
			for i := 0; i < m; i++ {
				c := vecs.At(i, r)
				floats.AddScaled(x, c, vs[i])
				floats.AddScaled(ax, c, ws[i])
			}
			res := make([]float64, n)
			copy(res, ax)
			floats.AddScaled(res, -vals[r], x)
			rn := floats.Norm(res, 2)
			theta = append(theta, vals[r])
			ritz = append(ritz, x)
			if opt.Log != nil {
				opt.Log.Println("davidson cycle", cycle, "root", r, "e =", vals[r], "|r| =", rn)
			}
			if rn < opt.Tol {
				continue
			}
			allConv = false
			if m+added >= opt.MaxSpace {
				continue
			}
			t := precond(res, vals[r])
			if orthoAppend(&vs, &ws, t, aop) {
				added++
			}
		}
		if allConv && k == nroots {
			return theta, ritz, nil
		}
		if k < nroots || (added == 0 && len(vs)+1 <= opt.MaxSpace) {
			// span exhausted before convergence; bring in a fresh
			// canonical direction
			if !injectCanonical(&vs, &ws, aop) && added == 0 {
				break
			}
			continue
		}
		if added == 0 {
			// subspace full: restart from the current Ritz vectors
			nvs, nws := restartBasis(ritz, aop)
			if len(nvs) == 0 {
				break
			}
			vs, ws = nvs, nws
		}
	}
	if opt.Log != nil {
		opt.Log.Println("Warning! Davidson iteration stopped before reaching tolerance")
	}
	return theta, ritz, nil
}

// orthoAppend orthogonalizes t against the basis and appends it
// (together with its operator product) when enough of it survives.
func orthoAppend(vs, ws *[][]float64, t []float64, aop Operator) bool {
	for pass := 0; pass < 2; pass++ {
		for _, b := range *vs {
			floats.AddScaled(t, -floats.Dot(b, t), b)
		}
	}
	tn := floats.Norm(t, 2)
	if tn < 1e-7 {
		return false
	}
	floats.Scale(1/tn, t)
	*vs = append(*vs, t)
	*ws = append(*ws, aop.Apply(t))
	return true
}

func injectCanonical(vs, ws *[][]float64, aop Operator) bool {
	n := aop.Dim()
	for i := 0; i < n; i++ {
		t := make([]float64, n)
		t[i] = 1
		if orthoAppend(vs, ws, t, aop) {
			return true
		}
	}
	return false
}

func restartBasis(ritz [][]float64, aop Operator) ([][]float64, [][]float64) {
	var vs, ws [][]float64
	for _, x := range ritz {
		t := append([]float64(nil), x...)
		orthoAppend(&vs, &ws, t, aop)
	}
	return vs, ws
}
