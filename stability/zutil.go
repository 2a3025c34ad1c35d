// zutil.go --  This file is part of goStab project.
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
package stability

import (
	"gonum.org/v1/gonum/mat"

	"gostab/linalg"
)

// complex-matrix helpers for the generalized and relativistic paths

func zconjT(a *mat.CDense) *mat.CDense { return linalg.ZConjT(a) }

func zmulM(a, b *mat.CDense) *mat.CDense { return linalg.ZMul(a, b) }

func zmul3(a, b, c *mat.CDense) *mat.CDense { return linalg.ZMul3(a, b, c) }

func zadd(a, b *mat.CDense) *mat.CDense {
	r, c := a.Dims()
	out := mat.NewCDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out.Set(i, j, a.At(i, j)+b.At(i, j))
		}
	}
	return out
}

func zsub(a, b *mat.CDense) *mat.CDense {
	r, c := a.Dims()
	out := mat.NewCDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out.Set(i, j, a.At(i, j)-b.At(i, j))
		}
	}
	return out
}

func ztrans(a *mat.CDense) *mat.CDense {
	r, c := a.Dims()
	out := mat.NewCDense(c, r, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out.Set(j, i, a.At(i, j))
		}
	}
	return out
}

func zcols(c *mat.CDense, idx []int) *mat.CDense {
	r, _ := c.Dims()
	out := mat.NewCDense(r, len(idx), nil)
	for j, q := range idx {
		for i := 0; i < r; i++ {
			out.Set(i, j, c.At(i, q))
		}
	}
	return out
}

func zblock(f *mat.CDense, rows, colIdx []int) *mat.CDense {
	out := mat.NewCDense(len(rows), len(colIdx), nil)
	for i, p := range rows {
		for j, q := range colIdx {
			out.Set(i, j, f.At(p, q))
		}
	}
	return out
}

// zshaped reshapes a packed vector into r x c (row-major) zeroing
// masked entries.
func zshaped(x []complex128, r, c int, forbid []bool) *mat.CDense {
	out := mat.NewCDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			k := i*c + j
			if forbid != nil && forbid[k] {
				continue
			}
			out.Set(i, j, x[k])
		}
	}
	return out
}

// zflatMasked packs a matrix back into a row-major vector, zeroing
// masked entries.
func zflatMasked(m *mat.CDense, forbid []bool) []complex128 {
	r, c := m.Dims()
	out := make([]complex128, r*c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			k := i*c + j
			if forbid != nil && forbid[k] {
				continue
			}
			out[k] = m.At(i, j)
		}
	}
	return out
}
