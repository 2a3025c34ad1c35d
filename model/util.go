// util.go --  This file is part of goStab project.
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
package model

import (
	"errors"

	"gonum.org/v1/gonum/mat"
)

func addM(a, b *mat.Dense) *mat.Dense {
	var out mat.Dense
	out.Add(a, b)
	return &out
}

// mulM and mul3M keep every product in a fresh matrix; chaining Mul
// calls on one receiver panics once the intermediate shapes differ.
func mulM(a, b mat.Matrix) *mat.Dense {
	var out mat.Dense
	out.Mul(a, b)
	return &out
}

func mul3M(a, b, c mat.Matrix) *mat.Dense { return mulM(mulM(a, b), c) }

func traceProd(a, b *mat.Dense) float64 {
	r, c := a.Dims()
	sum := 0.0
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			sum += a.At(i, j) * b.At(i, j)
		}
	}
	return sum
}

// densityMat builds C diag(occ) C^T.
func densityMat(c *mat.Dense, occ []float64) *mat.Dense {
	n, nmo := c.Dims()
	dm := mat.NewDense(n, n, nil)
	for k := 0; k < nmo; k++ {
		if occ[k] == 0 {
			continue
		}
		for i := 0; i < n; i++ {
			ci := occ[k] * c.At(i, k)
			for j := 0; j < n; j++ {
				dm.Set(i, j, dm.At(i, j)+ci*c.At(j, k))
			}
		}
	}
	return dm
}

// eigOrtho diagonalizes f in the orthogonalized basis defined by
// a = S^-1/2 and back-transforms the eigenvectors.
func eigOrtho(f, a *mat.Dense) (*mat.Dense, []float64, error) {
	n, _ := f.Dims()
	var ft mat.Dense
	ft.Mul(a, f)
	ft.Mul(&ft, a)

	// symmetrize against round-off before factorizing
	fsym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			fsym.SetSym(i, j, 0.5*(ft.At(i, j)+ft.At(j, i)))
		}
	}

	var eig mat.EigenSym
	if !eig.Factorize(fsym, true) {
		return nil, nil, errors.New("model: Fock eigendecomposition failed")
	}
	var ev mat.Dense
	eig.VectorsTo(&ev)
	var c mat.Dense
	c.Mul(a, &ev)

	vals := make([]float64, n)
	eig.Values(vals)
	return &c, vals, nil
}

// moTransform computes C^T M C.
func moTransform(m, c *mat.Dense) *mat.Dense {
	return mul3M(c.T(), m, c)
}

func blockOf(m *mat.Dense, rows, cols []int) *mat.Dense {
	out := mat.NewDense(len(rows), len(cols), nil)
	for i, p := range rows {
		for j, q := range cols {
			out.Set(i, j, m.At(p, q))
		}
	}
	return out
}

func colsOf(m *mat.Dense, idx []int) *mat.Dense {
	r, _ := m.Dims()
	out := mat.NewDense(r, len(idx), nil)
	for j, q := range idx {
		for i := 0; i < r; i++ {
			out.Set(i, j, m.At(i, q))
		}
	}
	return out
}

func zeroMasked(v []float64, forbid []bool) {
	if forbid == nil {
		return
	}
	for i, f := range forbid {
		if f {
			v[i] = 0
		}
	}
}
