// expm.go --  This file is part of goStab project.
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
	"math/cmplx"

	"gonum.org/v1/gonum/mat"
)

// ExpMat returns exp(a) for a square real matrix by scaling and
// squaring with a Taylor expansion of the scaled matrix. Accurate for
// the unit-scale rotation generators used here.
func ExpMat(a *mat.Dense) *mat.Dense {
	n, _ := a.Dims()
	nrm := mat.Norm(a, 1)
	s := 0
	for nrm > 0.5 {
		nrm /= 2
		s++
	}
	as := mat.DenseCopyOf(a)
	as.Scale(1/float64(int(1)<<uint(s)), as)

	res := eye(n)
	term := eye(n)
	for k := 1; k <= 32; k++ {
		var t mat.Dense
		t.Mul(term, as)
		t.Scale(1/float64(k), &t)
		term = &t
		res.Add(res, term)
		if mat.Norm(term, 1) < 1e-16 {
			break
		}
	}
	for i := 0; i < s; i++ {
		var sq mat.Dense
		sq.Mul(res, res)
		res = &sq
	}
	return res
}

// ExpMatZ is the complex counterpart of ExpMat, used for
// anti-Hermitian rotation generators.
func ExpMatZ(a *mat.CDense) *mat.CDense {
	n, _ := a.Dims()
	nrm := zmaxAbs(a) * float64(n)
	s := 0
	for nrm > 0.5 {
		nrm /= 2
		s++
	}
	as := zcopy(a)
	zscaleMat(complex(1/float64(int(1)<<uint(s)), 0), as)

	res := zeye(n)
	term := zeye(n)
	for k := 1; k <= 32; k++ {
		term = zmul(term, as)
		zscaleMat(complex(1/float64(k), 0), term)
		zaddMat(res, term)
		if zmaxAbs(term) < 1e-16 {
			break
		}
	}
	for i := 0; i < s; i++ {
		res = zmul(res, res)
	}
	return res
}

func eye(n int) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}

func zeye(n int) *mat.CDense {
	m := mat.NewCDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}

func zcopy(a *mat.CDense) *mat.CDense {
	r, c := a.Dims()
	out := mat.NewCDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out.Set(i, j, a.At(i, j))
		}
	}
	return out
}

func zmul(a, b *mat.CDense) *mat.CDense {
	ar, ac := a.Dims()
	_, bc := b.Dims()
	out := mat.NewCDense(ar, bc, nil)
	for i := 0; i < ar; i++ {
		for j := 0; j < bc; j++ {
			var s complex128
			for k := 0; k < ac; k++ {
				s += a.At(i, k) * b.At(k, j)
			}
			out.Set(i, j, s)
		}
	}
	return out
}

func zaddMat(dst, a *mat.CDense) {
	r, c := dst.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			dst.Set(i, j, dst.At(i, j)+a.At(i, j))
		}
	}
}

func zscaleMat(f complex128, a *mat.CDense) {
	r, c := a.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			a.Set(i, j, f*a.At(i, j))
		}
	}
}

func zmaxAbs(a *mat.CDense) float64 {
	r, c := a.Dims()
	m := 0.0
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if v := cmplx.Abs(a.At(i, j)); v > m {
				m = v
			}
		}
	}
	return m
}

// ZConjT returns the conjugate transpose of a.
func ZConjT(a *mat.CDense) *mat.CDense {
	r, c := a.Dims()
	out := mat.NewCDense(c, r, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out.Set(j, i, cmplx.Conj(a.At(i, j)))
		}
	}
	return out
}

// ZMul3 computes a*b*c for complex matrices.
func ZMul3(a, b, c *mat.CDense) *mat.CDense {
	return zmul(zmul(a, b), c)
}

// ZMul computes a*b for complex matrices.
func ZMul(a, b *mat.CDense) *mat.CDense {
	return zmul(a, b)
}
