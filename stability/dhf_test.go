// dhf_test.go --  This file is part of goStab project.
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
package stability_test

import (
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"gostab/linalg"
	"gostab/scf"
	"gostab/stability"
)

// fakeDHF is a minimal four-component solution with a diagonal
// complex Hessian oracle.
type fakeDHF struct {
	energy []float64
	occ    []float64
}

func (f *fakeDHF) Label() string { return "DHF" }

func (f *fakeDHF) MO() (*mat.CDense, []float64, []float64) {
	n := len(f.energy)
	c := mat.NewCDense(n, n, nil)
	for i := 0; i < n; i++ {
		c.Set(i, i, 1)
	}
	return c, f.occ, f.energy
}

func (f *fakeDHF) MakeRDM1(c *mat.CDense, occ []float64) *mat.CDense {
	n := len(f.energy)
	dm := mat.NewCDense(n, n, nil)
	for k, o := range occ {
		if o == 0 {
			continue
		}
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				dm.Set(i, j, dm.At(i, j)+complex(o, 0)*c.At(i, k)*cmplx.Conj(c.At(j, k)))
			}
		}
	}
	return dm
}

func (f *fakeDHF) GenGHopZ() ([]float64, linalg.OperatorZ, []float64) {
	occidx, viridx := scf.OccVir(f.occ)
	dim := len(viridx) * len(occidx)
	hdiag := make([]float64, 0, dim)
	for _, a := range viridx {
		for _, i := range occidx {
			hdiag = append(hdiag, f.energy[a]-f.energy[i])
		}
	}
	g := make([]float64, dim)
	for i := range g {
		g[i] = 1e-14
	}
	hd := append([]float64(nil), hdiag...)
	hop := linalg.OpFuncZ{N: dim, F: func(x []complex128) []complex128 {
		out := make([]complex128, dim)
		for i := range x {
			out[i] = complex(hd[i], 0) * x[i]
		}
		return out
	}}
	return g, hop, hdiag
}

func TestRelativisticStable(t *testing.T) {
	mf := &fakeDHF{energy: []float64{-2, -1, 1, 2}, occ: []float64{1, 1, 0, 0}}
	rot, ver, err := stability.Relativistic{MF: mf}.StabilityStatus(stability.DefaultOptions())
	require.NoError(t, err)
	assert.True(t, ver.Internal)
	// the external channel is not defined and reads stable
	assert.True(t, ver.External)
	require.NotNil(t, rot.Internal.Cplx)
}

func TestRelativisticUnstableRotates(t *testing.T) {
	mf := &fakeDHF{energy: []float64{1, -1}, occ: []float64{1, 0}}
	rot, ver, err := stability.Relativistic{MF: mf}.StabilityStatus(stability.DefaultOptions())
	require.NoError(t, err)
	assert.False(t, ver.Internal)
	require.NotNil(t, rot.Internal.Cplx)
	unitaryCols(t, rot.Internal.Cplx)
	assert.Greater(t, cmplx.Abs(rot.Internal.Cplx.At(1, 0)), 0.1)
}
