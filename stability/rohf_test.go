// rohf_test.go --  This file is part of goStab project.
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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"gostab/linalg"
	"gostab/scf"
	"gostab/stability"
)

// fakeROHF is a minimal restricted-open-shell oracle with a diagonal
// orbital Hessian.
type fakeROHF struct {
	energy []float64
	occ    []float64
}

func (f *fakeROHF) Label() string { return "ROHF" }

func (f *fakeROHF) MO() (*mat.Dense, []float64, []float64) {
	n := len(f.energy)
	c := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		c.Set(i, i, 1)
	}
	return c, f.occ, f.energy
}

func (f *fakeROHF) GenGHop(withSymmetry bool) ([]float64, linalg.Operator, []float64) {
	dim := scf.NUniqVar(f.occ)
	hdiag := make([]float64, 0, dim)
	nmo := len(f.occ)
	mask := scf.UniqVarMask(f.occ)
	for p := 0; p < nmo; p++ {
		for q := 0; q < nmo; q++ {
			if mask[p*nmo+q] {
				hdiag = append(hdiag, f.energy[p]-f.energy[q])
			}
		}
	}
	g := make([]float64, dim)
	for i := range g {
		g[i] = 1e-14
	}
	hd := append([]float64(nil), hdiag...)
	hop := linalg.OpFunc{N: dim, F: func(x []float64) []float64 {
		out := make([]float64, dim)
		for i := range x {
			out[i] = hd[i] * x[i]
		}
		return out
	}}
	return g, hop, hdiag
}

func TestRestrictedOpenExternalUnsupported(t *testing.T) {
	mf := &fakeROHF{energy: []float64{-1, 0, 1}, occ: []float64{2, 1, 0}}
	opts := stability.DefaultOptions()
	opts.External = true
	_, _, err := stability.RestrictedOpen{MF: mf}.StabilityStatus(opts)
	require.Error(t, err)
	assert.ErrorIs(t, err, stability.ErrUnsupportedChannel)
}

func TestRestrictedOpenInternalStable(t *testing.T) {
	mf := &fakeROHF{energy: []float64{-1, 0, 1}, occ: []float64{2, 1, 0}}
	rot, ver, err := stability.RestrictedOpen{MF: mf}.StabilityStatus(stability.DefaultOptions())
	require.NoError(t, err)
	assert.True(t, ver.Internal)
	require.NotNil(t, rot.Internal.Real)
}

func TestRestrictedOpenInternalUnstableRotates(t *testing.T) {
	// inverted level ordering puts singly occupied weight above a hole
	mf := &fakeROHF{energy: []float64{1, 0, -1}, occ: []float64{2, 1, 0}}
	rot, ver, err := stability.RestrictedOpen{MF: mf}.StabilityStatus(stability.DefaultOptions())
	require.NoError(t, err)
	assert.False(t, ver.Internal)
	require.NotNil(t, rot.Internal.Real)

	// the generator is orthogonal, columns stay orthonormal
	var ctc mat.Dense
	ctc.Mul(rot.Internal.Real.T(), rot.Internal.Real)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			want := 0.0
			if i == j {
				want = 1
			}
			assert.InDelta(t, want, ctc.At(i, j), 1e-9)
		}
	}
}
