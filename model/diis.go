// diis.go --  This file is part of goStab project.
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
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// diis accumulates Fock matrices and their orthogonalized commutator
// residuals and extrapolates the next Fock matrix by minimizing the
// residual norm under the Pulay constraint. Spin-unrestricted callers
// stack both spin blocks into one matrix per iteration.
type diis struct {
	flist []*mat.Dense
	rlist []*mat.Dense
}

// residual is the DIIS error vector A(FDS - SDF)A with A = S^-1/2.
func diisResidual(f, dm, s, a *mat.Dense) *mat.Dense {
	n, _ := s.Dims()
	term1 := mat.NewDense(n, n, nil)
	term2 := mat.NewDense(n, n, nil)
	term1.Mul(f, dm)
	term1.Mul(term1, s)
	term2.Mul(s, dm)
	term2.Mul(term2, f)
	term1.Sub(term1, term2)
	term1.Mul(a, term1)
	term1.Mul(term1, a)
	return term1
}

func (d *diis) push(f, r *mat.Dense) {
	d.flist = append(d.flist, mat.DenseCopyOf(f))
	d.rlist = append(d.rlist, r)
}

// drms is the RMS of the latest residual.
func (d *diis) drms() float64 {
	res := mat.DenseCopyOf(d.rlist[len(d.rlist)-1])
	res.MulElem(res, res)
	return math.Sqrt(stat.Mean(res.RawMatrix().Data, nil))
}

// extrapolate solves the Pulay equations and returns the combined
// Fock matrix, or nil when the history is too short or the system is
// singular (the caller then keeps the plain Fock matrix).
func (d *diis) extrapolate() *mat.Dense {
	m := len(d.flist)
	if m < 2 {
		return nil
	}
	bdim := m + 1
	b := mat.NewDense(bdim, bdim, nil)
	for i := 0; i < m; i++ {
		b.Set(i, bdim-1, -1)
		b.Set(bdim-1, i, -1)
	}
	rr, rc := d.rlist[0].Dims()
	for i := range d.rlist {
		for j := range d.rlist {
			p := mat.NewDense(rr, rc, nil)
			p.MulElem(d.rlist[i], d.rlist[j])
			b.Set(i, j, mat.Sum(p))
		}
	}

	rhs := mat.NewVecDense(bdim, nil)
	rhs.SetVec(m, -1)
	var lu mat.LU
	lu.Factorize(b)
	var coefs mat.VecDense
	if err := lu.SolveVecTo(&coefs, false, rhs); err != nil {
		// the Pulay system is routinely ill-conditioned near
		// convergence; a Condition warning still carries a usable
		// solution, only genuine singularity aborts
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return nil
		}
	}

	fr, fc := d.flist[0].Dims()
	f := mat.NewDense(fr, fc, nil)
	for j := range d.flist {
		part := mat.NewDense(fr, fc, nil)
		part.Scale(coefs.AtVec(j), d.flist[j])
		f.Add(f, part)
	}
	return f
}
