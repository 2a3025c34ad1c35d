// stability_test.go --  This file is part of goStab project.
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
	"bytes"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"gostab/model"
	"gostab/stability"
)

func solveRHF(t *testing.T, u float64) *model.RHF {
	t.Helper()
	rhf, err := model.SolveRHF(model.NewChain(2, 1.0, u, 2), nil)
	require.NoError(t, err)
	return rhf
}

func solveUHF(t *testing.T, u float64) *model.UHF {
	t.Helper()
	uhf, err := model.SolveUHF(model.NewChain(2, 1.0, u, 2), nil)
	require.NoError(t, err)
	return uhf
}

func TestRestrictedInternalStable(t *testing.T) {
	// on-site repulsion never drives a singlet instability in the
	// half-filled dimer
	rhf := solveRHF(t, 6.0)
	opts := stability.DefaultOptions()
	rot, ver, err := stability.Restricted{MF: rhf}.StabilityStatus(opts)
	require.NoError(t, err)
	assert.True(t, ver.Internal)
	require.NotNil(t, rot.Internal.Real)
	assert.True(t, mat.EqualApprox(rot.Internal.Real, rhf.C, 1e-12))
}

func TestRestrictedExternalStableBelowThreshold(t *testing.T) {
	// the triplet channel turns over at U = 2t
	rhf := solveRHF(t, 1.0)
	opts := stability.DefaultOptions()
	opts.External = true
	opts.BreakSymmetry = true
	rot, ver, err := stability.Restricted{MF: rhf}.StabilityStatus(opts)
	require.NoError(t, err)
	assert.True(t, ver.External)
	require.NotNil(t, rot.External.Spin[0])
	assert.True(t, mat.EqualApprox(rot.External.Spin[0], rot.External.Spin[1], 1e-12))
}

func TestRestrictedExternalUnstableAboveThreshold(t *testing.T) {
	rhf := solveRHF(t, 6.0)
	opts := stability.DefaultOptions()
	opts.External = true
	opts.BreakSymmetry = true
	rot, ver, err := stability.Restricted{MF: rhf}.StabilityStatus(opts)
	require.NoError(t, err)
	assert.False(t, ver.External)

	// the alpha set is rotated away from the beta set
	require.NotNil(t, rot.External.Spin[0])
	require.NotNil(t, rot.External.Spin[1])
	assert.False(t, mat.EqualApprox(rot.External.Spin[0], rot.External.Spin[1], 1e-6))
	assert.True(t, mat.EqualApprox(rot.External.Spin[1], rhf.C, 1e-12))
}

func TestRestrictedSymmetryMaskHidesExternalMode(t *testing.T) {
	// with the parity projection in place the gerade/ungerade triplet
	// mode is not accessible
	rhf := solveRHF(t, 6.0)
	require.NotNil(t, rhf.OrbSym())
	opts := stability.DefaultOptions()
	opts.External = true
	_, ver, err := stability.Restricted{MF: rhf}.StabilityStatus(opts)
	require.NoError(t, err)
	assert.True(t, ver.External)
}

func TestRestrictedReoptimize(t *testing.T) {
	rhf := solveRHF(t, 2.0)
	next, err := stability.Restricted{MF: rhf}.Reoptimize(stability.Orbitals{Real: rhf.C})
	require.NoError(t, err)
	got := next.(stability.Restricted).MF.(*model.RHF)
	assert.InDelta(t, rhf.Etot, got.Etot, 1e-8)
}

func TestUnrestrictedInternalSaddle(t *testing.T) {
	// the spin-symmetric solution above U = 2t is a saddle of the
	// unrestricted surface
	uhf := solveUHF(t, 6.0)
	opts := stability.DefaultOptions()
	opts.BreakSymmetry = true
	rot, ver, err := stability.Unrestricted{MF: uhf}.StabilityStatus(opts)
	require.NoError(t, err)
	assert.False(t, ver.Internal)
	require.NotNil(t, rot.Internal.Spin[0])
	assert.False(t, mat.EqualApprox(rot.Internal.Spin[0], uhf.C[0], 1e-6))
}

func TestUnrestrictedInternalStableBelowThreshold(t *testing.T) {
	uhf := solveUHF(t, 1.0)
	opts := stability.DefaultOptions()
	opts.BreakSymmetry = true
	_, ver, err := stability.Unrestricted{MF: uhf}.StabilityStatus(opts)
	require.NoError(t, err)
	assert.True(t, ver.Internal)
}

func TestUnrestrictedExternalAtSaddle(t *testing.T) {
	// the generalized extension sees the same transverse mode
	uhf := solveUHF(t, 6.0)
	opts := stability.DefaultOptions()
	opts.Internal = false
	opts.External = true
	opts.BreakSymmetry = true
	rot, ver, err := stability.Unrestricted{MF: uhf}.StabilityStatus(opts)
	require.NoError(t, err)
	assert.False(t, ver.External)

	// the rotated generalized set lives in the enlarged space
	require.NotNil(t, rot.External.Real)
	r, c := rot.External.Real.Dims()
	assert.Equal(t, 4, r)
	assert.Equal(t, 4, c)
}

func TestUnrestrictedExternalStableAtBrokenMinimum(t *testing.T) {
	sym := solveUHF(t, 6.0)
	seeda := mat.NewDense(2, 2, []float64{1, 0, 0, 0})
	seedb := mat.NewDense(2, 2, []float64{0, 0, 0, 1})
	run, err := sym.Run(seeda, seedb)
	require.NoError(t, err)
	broken := run.(*model.UHF)

	opts := stability.DefaultOptions()
	opts.External = true
	opts.BreakSymmetry = true
	opts.Tol = 1e-6
	_, ver, err := stability.Unrestricted{MF: broken}.StabilityStatus(opts)
	require.NoError(t, err)
	assert.True(t, ver.Internal)
	// the global spin rotation is a zero mode, not an instability
	assert.True(t, ver.External)
}

func TestStabilizeEscapesSaddle(t *testing.T) {
	uhf := solveUHF(t, 6.0)
	final, err := stability.Stabilize(stability.Unrestricted{MF: uhf}, 0, nil)
	require.NoError(t, err)

	got := final.(stability.Unrestricted).MF.(*model.UHF)
	assert.Less(t, got.Etot, uhf.Etot-0.05)

	opts := stability.DefaultOptions()
	opts.BreakSymmetry = true
	_, ver, err := stability.Unrestricted{MF: got}.StabilityStatus(opts)
	require.NoError(t, err)
	assert.True(t, ver.Internal)
}

func TestStabilizeAnalyzesFinalSolution(t *testing.T) {
	// one reoptimization reaches the broken minimum; the verdict must
	// come from that final solution, not from the attempt count
	uhf := solveUHF(t, 6.0)
	var buf bytes.Buffer
	final, err := stability.Stabilize(stability.Unrestricted{MF: uhf}, 1, log.New(&buf, "", 0))
	require.NoError(t, err)

	got := final.(stability.Unrestricted).MF.(*model.UHF)
	assert.Less(t, got.Etot, uhf.Etot-0.05)
	assert.NotContains(t, buf.String(), "failed")
}

func TestReoptimizeRejectsEmptySeed(t *testing.T) {
	rhf := solveRHF(t, 2.0)
	_, err := stability.Restricted{MF: rhf}.Reoptimize(stability.Orbitals{})
	assert.ErrorIs(t, err, stability.ErrNotReoptimizable)

	uhf := solveUHF(t, 2.0)
	_, err = stability.Unrestricted{MF: uhf}.Reoptimize(stability.Orbitals{})
	assert.ErrorIs(t, err, stability.ErrNotReoptimizable)
}

func TestStabilizeKeepsStableSolution(t *testing.T) {
	uhf := solveUHF(t, 1.0)
	final, err := stability.Stabilize(stability.Unrestricted{MF: uhf}, 5, nil)
	require.NoError(t, err)
	got := final.(stability.Unrestricted).MF.(*model.UHF)
	assert.InDelta(t, uhf.Etot, got.Etot, 1e-12)
}
