// rhf_test.go --  This file is part of goStab project.
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

// fakeRHF is a minimal closed-shell solution with a diagonal Fock
// matrix and a vanishing response, so every verdict follows from the
// orbital energies alone.
type fakeRHF struct {
	energy []float64
	occ    []float64
}

func (f *fakeRHF) nmo() int { return len(f.energy) }

func (f *fakeRHF) Label() string { return "RHF" }

func (f *fakeRHF) MO() (*mat.Dense, []float64, []float64) {
	n := f.nmo()
	c := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		c.Set(i, i, 1)
	}
	return c, f.occ, f.energy
}

func (f *fakeRHF) OrbSym() []int { return nil }

func (f *fakeRHF) Hcore() *mat.Dense {
	n := f.nmo()
	h := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		h.Set(i, i, f.energy[i])
	}
	return h
}

func (f *fakeRHF) Veff(dm *mat.Dense) *mat.Dense {
	return mat.NewDense(f.nmo(), f.nmo(), nil)
}

func (f *fakeRHF) Response(opt scf.ResponseOptions) scf.ResponseFunc {
	n := f.nmo()
	return func(dm *mat.Dense) *mat.Dense { return mat.NewDense(n, n, nil) }
}

func (f *fakeRHF) MakeRDM1(c *mat.Dense, occ []float64) *mat.Dense {
	n := f.nmo()
	dm := mat.NewDense(n, n, nil)
	for k, o := range occ {
		if o == 0 {
			continue
		}
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				dm.Set(i, j, dm.At(i, j)+o*c.At(i, k)*c.At(j, k))
			}
		}
	}
	return dm
}

func (f *fakeRHF) GenGHop(withSymmetry bool) ([]float64, linalg.Operator, []float64) {
	occidx, viridx := scf.OccVir(f.occ)
	dim := len(viridx) * len(occidx)
	g := make([]float64, dim)
	hdiag := make([]float64, 0, dim)
	for _, a := range viridx {
		for _, i := range occidx {
			hdiag = append(hdiag, f.energy[a]-f.energy[i])
		}
	}
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

func TestRestrictedExternalAllNegativeDiagonal(t *testing.T) {
	// an occupied orbital above a virtual one makes every external
	// diagonal entry negative, so the 1/diagonal guess is empty; the
	// channel must probe the softest mode anyway
	mf := &fakeRHF{energy: []float64{1, -1}, occ: []float64{2, 0}}
	opts := stability.DefaultOptions()
	opts.Internal = false
	opts.External = true
	rot, ver, err := stability.Restricted{MF: mf}.StabilityStatus(opts)
	require.NoError(t, err)
	assert.False(t, ver.External)
	require.NotNil(t, rot.External.Spin[0])
	assert.False(t, mat.EqualApprox(rot.External.Spin[0], rot.External.Spin[1], 1e-6))
}
