// rotate.go --  This file is part of goStab project.
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
	"gostab/scf"
)

// rotateMO scatters the instability eigenvector into the antisymmetric
// rotation generator and applies exp(generator) to the coefficients.
// A zero eigenvector returns the coefficients unchanged.
func rotateMO(c *mat.Dense, occ []float64, dx []float64) *mat.Dense {
	dr := scf.UnpackUniqVar(dx, occ)
	u := linalg.ExpMat(dr)
	return mul(c, u)
}

// rotateMOZ is the complex counterpart: the completed generator is
// anti-Hermitian and the resulting transform unitary.
func rotateMOZ(c *mat.CDense, occ []float64, dx []complex128) *mat.CDense {
	dr := scf.UnpackUniqVarZ(dx, occ)
	u := linalg.ExpMatZ(dr)
	return linalg.ZMul(c, u)
}

func complexify(v []float64) []complex128 {
	out := make([]complex128, len(v))
	for i, x := range v {
		out[i] = complex(x, 0)
	}
	return out
}
