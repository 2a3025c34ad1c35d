// sqrtinv.go --  This file is part of goStab project.
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
	"math"

	"gonum.org/v1/gonum/mat"
)

// SqrtInvSym returns S^{-1/2} for a symmetric positive definite matrix
// via its eigendecomposition (Löwdin orthogonalization).
func SqrtInvSym(s *mat.SymDense) (*mat.Dense, error) {
	n := s.SymmetricDim()
	var eig mat.EigenSym
	if ok := eig.Factorize(s, true); !ok {
		return nil, errors.New("linalg: overlap eigendecomposition failed")
	}
	vals := eig.Values(nil)
	var ev mat.Dense
	eig.VectorsTo(&ev)

	d := mat.NewDense(n, n, nil)
	for i, v := range vals {
		if v <= 0 {
			return nil, errors.New("linalg: overlap matrix is not positive definite")
		}
		d.Set(i, i, 1/math.Sqrt(v))
	}
	var res mat.Dense
	res.Mul(&ev, d)
	res.Mul(&res, ev.T())
	return &res, nil
}
