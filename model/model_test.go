// model_test.go --  This file is part of goStab project.
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
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

func TestRHFDimerEnergy(t *testing.T) {
	// half-filled dimer: E = -2t + U/2
	lat := NewChain(2, 1.0, 2.0, 2)
	rhf, err := SolveRHF(lat, nil)
	require.NoError(t, err)
	assert.InDelta(t, -1.0, rhf.Etot, 1e-9)

	// bonding/antibonding gap is 2t
	assert.InDelta(t, 2.0, rhf.MOEnergy[1]-rhf.MOEnergy[0], 1e-9)
	assert.Equal(t, []float64{2, 0}, rhf.Occ)
}

func TestUHFSymmetricMatchesRHF(t *testing.T) {
	lat := NewChain(2, 1.0, 3.0, 2)
	rhf, err := SolveRHF(lat, nil)
	require.NoError(t, err)
	uhf, err := SolveUHF(lat, nil)
	require.NoError(t, err)
	// the core guess is spin-symmetric, so UHF lands on the
	// restricted solution
	assert.InDelta(t, rhf.Etot, uhf.Etot, 1e-8)
}

func TestUHFBrokenSeedFindsLowerMinimum(t *testing.T) {
	lat := NewChain(2, 1.0, 6.0, 2)
	sym, err := SolveUHF(lat, nil)
	require.NoError(t, err)

	seeda := mat.NewDense(2, 2, []float64{1, 0, 0, 0})
	seedb := mat.NewDense(2, 2, []float64{0, 0, 0, 1})
	broken, err := sym.Run(seeda, seedb)
	require.NoError(t, err)

	b := broken.(*UHF)
	assert.Less(t, b.Etot, sym.Etot-0.05)

	// the spin densities actually broke the site symmetry
	dma, dmb := b.MakeRDM1(b.C, b.Occ)
	assert.Greater(t, floats.Max([]float64{dma.At(0, 0) - dma.At(1, 1), dma.At(1, 1) - dma.At(0, 0)}), 0.1)
	assert.InDelta(t, dma.At(0, 0), dmb.At(1, 1), 1e-6)
}

func TestRHFRunFromSeed(t *testing.T) {
	lat := NewChain(4, 1.0, 1.5, 4)
	rhf, err := SolveRHF(lat, nil)
	require.NoError(t, err)

	seed := mat.NewDense(4, 4, nil)
	for i := 0; i < 4; i++ {
		seed.Set(i, i, 1)
	}
	again, err := rhf.Run(seed)
	require.NoError(t, err)
	assert.InDelta(t, rhf.Etot, again.(*RHF).Etot, 1e-8)
}

func TestOrbParityOnSymmetricChain(t *testing.T) {
	lat := NewChain(2, 1.0, 2.0, 2)
	rhf, err := SolveRHF(lat, nil)
	require.NoError(t, err)
	sym := rhf.OrbSym()
	require.NotNil(t, sym)
	assert.Equal(t, []int{0, 1}, sym)
}

func TestOrbParityDisabledByAsymmetry(t *testing.T) {
	lat := NewChain(2, 1.0, 2.0, 2)
	lat.Eps = []float64{0, 0.3}
	rhf, err := SolveRHF(lat, nil)
	require.NoError(t, err)
	assert.Nil(t, rhf.OrbSym())
}

func TestNonOrthogonalOverlap(t *testing.T) {
	lat := NewChain(2, 1.0, 2.0, 2)
	lat.Ovlp = mat.NewSymDense(2, []float64{1, 0.2, 0.2, 1})
	rhf, err := SolveRHF(lat, nil)
	require.NoError(t, err)

	// orbitals are orthonormal under the metric: C^T S C = 1
	var cs mat.Dense
	cs.Mul(rhf.C.T(), mat.DenseCopyOf(lat.Overlap()))
	cs.Mul(&cs, rhf.C)
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			want := 0.0
			if i == j {
				want = 1
			}
			assert.InDelta(t, want, cs.At(i, j), 1e-9)
		}
	}
}

func TestRHFHessianOperatorSymmetric(t *testing.T) {
	lat := NewChain(4, 1.0, 2.5, 4)
	rhf, err := SolveRHF(lat, nil)
	require.NoError(t, err)
	g, hop, hdiag := rhf.GenGHop(false)
	n := hop.Dim()
	require.Equal(t, 4, n)
	require.Len(t, g, n)
	require.Len(t, hdiag, n)

	// converged solution: vanishing orbital gradient
	assert.Less(t, floats.Norm(g, 2), 1e-6)

	x := []float64{0.3, -0.2, 0.9, 0.1}
	y := []float64{-0.5, 0.4, 0.2, -0.8}
	hx := hop.Apply(x)
	hy := hop.Apply(y)
	assert.InDelta(t, floats.Dot(y, hx), floats.Dot(x, hy), 1e-9)
}

func TestUHFHessianOperatorSymmetric(t *testing.T) {
	lat := NewChain(4, 1.0, 2.5, 4)
	uhf, err := SolveUHF(lat, nil)
	require.NoError(t, err)
	g, hop, hdiag := uhf.GenGHop(false)
	n := hop.Dim()
	require.Equal(t, 8, n)
	require.Len(t, g, n)
	require.Len(t, hdiag, n)
	assert.Less(t, floats.Norm(g, 2), 1e-6)

	x := make([]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x[i] = float64(i%3) - 1
		y[i] = float64((i+1)%4) - 2
	}
	hx := hop.Apply(x)
	hy := hop.Apply(y)
	assert.InDelta(t, floats.Dot(y, hx), floats.Dot(x, hy), 1e-9)
}

func TestRHFHessianRectangularOrbitalBlocks(t *testing.T) {
	// nocc and nvir differ from the basis size here, so every product
	// inside the operator mixes rectangular blocks
	lat := NewChain(6, 1.0, 2.0, 2)
	rhf, err := SolveRHF(lat, nil)
	require.NoError(t, err)
	_, hop, hdiag := rhf.GenGHop(false)
	n := hop.Dim()
	require.Equal(t, 5, n)
	require.Len(t, hdiag, n)

	x := []float64{0.7, -0.1, 0.4, 0.2, -0.6}
	y := []float64{-0.3, 0.8, 0.1, -0.2, 0.5}
	hx := hop.Apply(x)
	hy := hop.Apply(y)
	require.Len(t, hx, n)
	assert.InDelta(t, floats.Dot(y, hx), floats.Dot(x, hy), 1e-9)
}

func TestUHFHessianRectangularOrbitalBlocks(t *testing.T) {
	lat := NewChain(6, 1.0, 2.0, 2)
	uhf, err := SolveUHF(lat, nil)
	require.NoError(t, err)
	_, hop, _ := uhf.GenGHop(false)
	n := hop.Dim()
	require.Equal(t, 10, n)

	x := make([]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x[i] = float64(i%5)/4 - 0.5
		y[i] = float64((i+2)%7)/6 - 0.4
	}
	hx := hop.Apply(x)
	hy := hop.Apply(y)
	require.Len(t, hx, n)
	assert.InDelta(t, floats.Dot(y, hx), floats.Dot(x, hy), 1e-9)
}

func TestDIISExtrapolateIllConditioned(t *testing.T) {
	// near-parallel residuals make the Pulay system ill-conditioned;
	// the condition warning must not abort the extrapolation
	f1 := mat.NewDense(2, 2, []float64{1, 0, 0, -1})
	f2 := mat.NewDense(2, 2, []float64{1, 1e-9, 1e-9, -1})
	r1 := mat.NewDense(2, 2, []float64{1e-4, 0, 0, -1e-4})
	r2 := mat.NewDense(2, 2, nil)
	r2.Scale(1+1e-9, r1)

	acc := &diis{}
	acc.push(f1, r1)
	acc.push(f2, r2)
	fx := acc.extrapolate()
	require.NotNil(t, fx)
	for _, v := range fx.RawMatrix().Data {
		assert.False(t, math.IsNaN(v))
		assert.False(t, math.IsInf(v, 0))
	}
}

func TestGenGHopSymmetryMask(t *testing.T) {
	lat := NewChain(4, 1.0, 2.0, 4)
	rhf, err := SolveRHF(lat, nil)
	require.NoError(t, err)
	require.NotNil(t, rhf.OrbSym())

	_, hop, hdiag := rhf.GenGHop(true)
	// parity-forbidden rotations carry no diagonal and are projected
	// out of the product
	x := []float64{1, 1, 1, 1}
	hx := hop.Apply(x)
	for i := range hdiag {
		if hdiag[i] == 0 {
			assert.InDelta(t, 0, hx[i], 1e-12, "masked entry %d", i)
		}
	}
}
