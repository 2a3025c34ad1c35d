// expm_test.go --  This file is part of goStab project.
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
	"math"
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestExpMatIdentityAtZero(t *testing.T) {
	u := ExpMat(mat.NewDense(3, 3, nil))
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			want := 0.0
			if i == j {
				want = 1
			}
			assert.InDelta(t, want, u.At(i, j), 1e-14)
		}
	}
}

func TestExpMatAntisymmetricGivesOrthogonal(t *testing.T) {
	k := mat.NewDense(4, 4, nil)
	vals := []float64{0.7, -1.3, 2.1, 0.4, -0.9, 1.6}
	n := 0
	for i := 0; i < 4; i++ {
		for j := i + 1; j < 4; j++ {
			k.Set(i, j, vals[n])
			k.Set(j, i, -vals[n])
			n++
		}
	}
	u := ExpMat(k)
	var utu mat.Dense
	utu.Mul(u.T(), u)
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			want := 0.0
			if i == j {
				want = 1
			}
			assert.InDelta(t, want, utu.At(i, j), 1e-10)
		}
	}
}

func TestExpMatScalarBlock(t *testing.T) {
	// exp of a 2x2 rotation generator is the plane rotation
	th := 0.3
	k := mat.NewDense(2, 2, []float64{0, -th, th, 0})
	u := ExpMat(k)
	assert.InDelta(t, math.Cos(th), u.At(0, 0), 1e-12)
	assert.InDelta(t, -math.Sin(th), u.At(0, 1), 1e-12)
	assert.InDelta(t, math.Sin(th), u.At(1, 0), 1e-12)
	assert.InDelta(t, math.Cos(th), u.At(1, 1), 1e-12)
}

func TestExpMatZAntiHermitianGivesUnitary(t *testing.T) {
	k := mat.NewCDense(3, 3, nil)
	k.Set(0, 1, complex(0.4, 0.7))
	k.Set(1, 0, complex(-0.4, 0.7))
	k.Set(0, 2, complex(-1.1, 0.2))
	k.Set(2, 0, complex(1.1, 0.2))
	k.Set(1, 1, complex(0, 0.5)) // purely imaginary diagonal is allowed
	u := ExpMatZ(k)
	uhu := ZMul(ZConjT(u), u)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			want := complex(0, 0)
			if i == j {
				want = 1
			}
			assert.Less(t, cmplx.Abs(uhu.At(i, j)-want), 1e-10)
		}
	}
}

func TestSqrtInvSym(t *testing.T) {
	s := mat.NewSymDense(3, []float64{
		1, 0.2, 0,
		0.2, 1, 0.1,
		0, 0.1, 1,
	})
	a, err := SqrtInvSym(s)
	require.NoError(t, err)

	var asa mat.Dense
	asa.Mul(a, s)
	asa.Mul(&asa, a)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			want := 0.0
			if i == j {
				want = 1
			}
			assert.InDelta(t, want, asa.At(i, j), 1e-12)
		}
	}
}

func TestSqrtInvSymRejectsIndefinite(t *testing.T) {
	s := mat.NewSymDense(2, []float64{1, 2, 2, 1})
	_, err := SqrtInvSym(s)
	require.Error(t, err)
}
