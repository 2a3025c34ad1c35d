// davidsonz.go --  This file is part of goStab project.
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
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"
)

// OperatorZ is the complex counterpart of Operator.
type OperatorZ interface {
	Dim() int
	Apply(x []complex128) []complex128
}

// OpFuncZ adapts a plain function to the OperatorZ interface.
type OpFuncZ struct {
	N int
	F func(x []complex128) []complex128
}

func (o OpFuncZ) Dim() int                          { return o.N }
func (o OpFuncZ) Apply(x []complex128) []complex128 { return o.F(x) }

// PrecondZ improves a complex residual given the current eigenvalue
// estimate.
type PrecondZ func(dx []complex128, e float64) []complex128

// DiagPrecondZ divides the residual by (diag - e) with the same 1e-8
// magnitude floor as the real preconditioner. The diagonal itself is
// real: the operators here are Hermitian.
func DiagPrecondZ(diag []float64) PrecondZ {
	return func(dx []complex128, e float64) []complex128 {
		out := make([]complex128, len(dx))
		for i, d := range diag {
			den := d - e
			if den < diagFloor && den > -diagFloor {
				den = diagFloor
			}
			out[i] = dx[i] / complex(den, 0)
		}
		return out
	}
}

func zdot(a, b []complex128) complex128 {
	var s complex128
	for i := range a {
		s += cmplx.Conj(a[i]) * b[i]
	}
	return s
}

func znorm(a []complex128) float64 {
	return math.Sqrt(real(zdot(a, a)))
}

func zscale(c complex128, a []complex128) {
	for i := range a {
		a[i] *= c
	}
}

func zaddScaled(dst []complex128, c complex128, a []complex128) {
	for i := range dst {
		dst[i] += c * a[i]
	}
}

// DavidsonZ finds the lowest eigenpairs of a Hermitian operator with
// complex trial vectors. gonum carries no Hermitian
// eigendecomposition, so the subspace problem is solved through its
// doubled real-symmetric embedding [[A,-B],[B,A]] for H = A + iB.
func DavidsonZ(aop OperatorZ, x0 []complex128, precond PrecondZ, opt Options) ([]float64, [][]complex128, error) {
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

	v := append([]complex128(nil), x0...)
	nrm := znorm(v)
	if nrm < 1e-12 {
		return nil, nil, ErrZeroGuess
	}
	zscale(complex(1/nrm, 0), v)

	vs := [][]complex128{v}
	ws := [][]complex128{aop.Apply(v)}

	var theta []float64
	var ritz [][]complex128
	for cycle := 0; cycle < opt.MaxCycle; cycle++ {
		m := len(vs)
		vals, vecs, err := subspaceEigZ(vs, ws, m)
		if err != nil {
			return nil, nil, err
		}

		k := nroots
		if k > m {
			k = m
		}
		theta = theta[:0]
		ritz = ritz[:0]
		allConv := true
		added := 0
		for r := 0; r < k; r++ {
			x := make([]complex128, n)
			ax := make([]complex128, n)
			for i := 0; i < m; i++ {
				c := vecs[r][i]
				zaddScaled(x, c, vs[i])
				zaddScaled(ax, c, ws[i])
			}
			res := append([]complex128(nil), ax...)
			zaddScaled(res, complex(-vals[r], 0), x)
			rn := znorm(res)
			theta = append(theta, vals[r])
			ritz = append(ritz, x)
			if opt.Log != nil {
				opt.Log.Println("davidsonz cycle", cycle, "root", r, "e =", vals[r], "|r| =", rn)
			}
			if rn < opt.Tol {
				continue
			}
			allConv = false
			if m+added >= opt.MaxSpace {
				continue
			}
			t := precond(res, vals[r])
			if zorthoAppend(&vs, &ws, t, aop) {
				added++
			}
		}
		if allConv && k == nroots {
			return theta, ritz, nil
		}
		if k < nroots || (added == 0 && len(vs)+1 <= opt.MaxSpace) {
			if !zinjectCanonical(&vs, &ws, aop) && added == 0 {
				break
			}
			continue
		}
		if added == 0 {
			var nvs, nws [][]complex128
			for _, x := range ritz {
				t := append([]complex128(nil), x...)
				zorthoAppend(&nvs, &nws, t, aop)
			}
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

// subspaceEigZ diagonalizes the Hermitian subspace matrix H_ij =
// <v_i, w_j> via the real embedding and returns ascending eigenvalues
// with one complex subspace eigenvector per root.
func subspaceEigZ(vs, ws [][]complex128, m int) ([]float64, [][]complex128, error) {
	emb := mat.NewSymDense(2*m, nil)
	for i := 0; i < m; i++ {
		for j := 0; j <= i; j++ {
			h := zdot(vs[i], ws[j])
			emb.SetSym(i, j, real(h))
			emb.SetSym(m+i, m+j, real(h))
			// antisymmetric imaginary block
			emb.SetSym(m+i, j, imag(h))
			if i != j {
				emb.SetSym(m+j, i, -imag(h))
			}
		}
	}
	var eig mat.EigenSym
	if ok := eig.Factorize(emb, true); !ok {
		return nil, nil, errors.New("linalg: subspace eigendecomposition failed")
	}
	embVals := eig.Values(nil)
	var embVecs mat.Dense
	eig.VectorsTo(&embVecs)

	// the doubled spectrum repeats every eigenvalue; keep one complex
	// representative per pair
	var vals []float64
	var vecs [][]complex128
	var kept [][]complex128
	for c := 0; c < 2*m && len(vals) < m; c++ {
		z := make([]complex128, m)
		for i := 0; i < m; i++ {
			z[i] = complex(embVecs.At(i, c), embVecs.At(m+i, c))
		}
		for _, p := range kept {
			zaddScaled(z, -zdot(p, z), p)
		}
		zn := znorm(z)
		if zn < 1e-8 {
			continue
		}
		zscale(complex(1/zn, 0), z)
		kept = append(kept, z)
		vals = append(vals, embVals[c])
		vecs = append(vecs, z)
	}
	return vals, vecs, nil
}

func zorthoAppend(vs, ws *[][]complex128, t []complex128, aop OperatorZ) bool {
	for pass := 0; pass < 2; pass++ {
		for _, b := range *vs {
			zaddScaled(t, -zdot(b, t), b)
		}
	}
	tn := znorm(t)
	if tn < 1e-7 {
		return false
	}
	zscale(complex(1/tn, 0), t)
	*vs = append(*vs, t)
	*ws = append(*ws, aop.Apply(t))
	return true
}

func zinjectCanonical(vs, ws *[][]complex128, aop OperatorZ) bool {
	n := aop.Dim()
	for i := 0; i < n; i++ {
		t := make([]complex128, n)
		t[i] = 1
		if zorthoAppend(vs, ws, t, aop) {
			return true
		}
	}
	return false
}
