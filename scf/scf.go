// scf.go --  This file is part of goStab project.
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

// Package scf declares the mean-field collaborator contracts the
// stability analysis consumes, one interface per reference type, plus
// the orbital bookkeeping shared by all of them. The actual SCF
// solver lives behind these interfaces; this module only reads its
// converged solutions.
package scf

import (
	"math/cmplx"

	"gonum.org/v1/gonum/mat"

	"gostab/linalg"
)

// Hermi selects the Hermitian symmetry of a density-matrix
// perturbation handed to a response kernel.
type Hermi int

const (
	NonHermitian  Hermi = 0
	Hermitian     Hermi = 1
	AntiHermitian Hermi = 2
)

// Spin selects the spin channel of a spin-restricted response kernel.
type Spin int

const (
	SpinFree Spin = iota // spin-summed kernel
	Singlet
	Triplet
)

// ResponseOptions configures gen_response-style kernels. WithCoulomb
// keeps the direct Coulomb term; kernels for anti-Hermitian
// perturbations drop it regardless.
type ResponseOptions struct {
	Hermi       Hermi
	WithCoulomb bool
	Spin        Spin // restricted references only
}

// ResponseFunc maps a density perturbation to the induced potential.
type ResponseFunc func(dm *mat.Dense) *mat.Dense

// SpinResponseFunc is the per-spin-block variant of ResponseFunc.
type SpinResponseFunc func(dma, dmb *mat.Dense) (*mat.Dense, *mat.Dense)

// ResponseFuncZ is the complex variant used by generalized references.
type ResponseFuncZ func(dm *mat.CDense) *mat.CDense

// Restricted is a converged closed-shell mean-field solution. Orbital
// occupations are 0 or 2.
type Restricted interface {
	// Label names the method class for log output, e.g. "RHF".
	Label() string
	// MO returns coefficients (columns are orbitals), occupations and
	// orbital energies. Callers must not mutate the returned values.
	MO() (c *mat.Dense, occ, energy []float64)
	// OrbSym returns per-orbital symmetry labels, or nil when the
	// molecular system carries no symmetry information.
	OrbSym() []int
	Hcore() *mat.Dense
	Veff(dm *mat.Dense) *mat.Dense
	Response(opt ResponseOptions) ResponseFunc
	MakeRDM1(c *mat.Dense, occ []float64) *mat.Dense
	// GenGHop is the orbital-Hessian oracle: orbital gradient, the
	// Hessian-vector operator over the packed vir x occ space and its
	// diagonal approximation.
	GenGHop(withSymmetry bool) (g []float64, hop linalg.Operator, hdiag []float64)
}

// RestrictedRunner extends Restricted with the re-optimization entry
// point: a new SCF solution converged from the seed density matrix.
type RestrictedRunner interface {
	Restricted
	Run(seed *mat.Dense) (RestrictedRunner, error)
}

// Unrestricted is a converged spin-unrestricted solution. Index 0 is
// the alpha block, index 1 beta; occupations are 0 or 1 per spin.
type Unrestricted interface {
	Label() string
	MO() (c [2]*mat.Dense, occ, energy [2][]float64)
	OrbSym() [2][]int
	Hcore() *mat.Dense
	Veff(dma, dmb *mat.Dense) (*mat.Dense, *mat.Dense)
	Response(opt ResponseOptions) SpinResponseFunc
	MakeRDM1(c [2]*mat.Dense, occ [2][]float64) (*mat.Dense, *mat.Dense)
	GenGHop(withSymmetry bool) (g []float64, hop linalg.Operator, hdiag []float64)
}

// UnrestrictedRunner extends Unrestricted with re-optimization.
type UnrestrictedRunner interface {
	Unrestricted
	Run(seeda, seedb *mat.Dense) (UnrestrictedRunner, error)
}

// RestrictedOpen is a converged restricted-open-shell solution.
// Occupations are 0, 1 or 2 over a single orbital set. Only the
// orbital-Hessian oracle is consumed here.
type RestrictedOpen interface {
	Label() string
	MO() (c *mat.Dense, occ, energy []float64)
	GenGHop(withSymmetry bool) (g []float64, hop linalg.Operator, hdiag []float64)
}

// Generalized is a converged generalized (spinor-basis) solution.
// Coefficients are complex-typed; whether the solution is genuinely
// complex is decided from its density matrix.
type Generalized interface {
	Label() string
	MO() (c *mat.CDense, occ, energy []float64)
	OrbSym() []int
	Hcore() *mat.CDense
	Fock(h, dm *mat.CDense) *mat.CDense
	Response(opt ResponseOptions) ResponseFuncZ
	MakeRDM1(c *mat.CDense, occ []float64) *mat.CDense
	GenGHop(withSymmetry bool) (g []float64, hop linalg.Operator, hdiag []float64)
}

// Relativistic is a converged four-component solution. Its oracle
// works with complex trial vectors.
type Relativistic interface {
	Label() string
	MO() (c *mat.CDense, occ, energy []float64)
	MakeRDM1(c *mat.CDense, occ []float64) *mat.CDense
	GenGHopZ() (g []float64, hop linalg.OperatorZ, hdiag []float64)
}

// OccVir splits orbital indices into occupied (occupation > 0) and
// virtual (occupation == 0) sets.
func OccVir(occ []float64) (occidx, viridx []int) {
	for i, o := range occ {
		if o > 0 {
			occidx = append(occidx, i)
		} else {
			viridx = append(viridx, i)
		}
	}
	return occidx, viridx
}

// SymForbid flags vir-occ pairs whose orbitals carry different
// symmetry labels, in the row-major nvir x nocc layout of the packed
// trial vectors. Either label set being nil disables the mask.
func SymForbid(symVir, symOcc []int, viridx, occidx []int) []bool {
	if symVir == nil || symOcc == nil {
		return nil
	}
	mask := make([]bool, len(viridx)*len(occidx))
	for a, p := range viridx {
		for i, q := range occidx {
			if symVir[p] != symOcc[q] {
				mask[a*len(occidx)+i] = true
			}
		}
	}
	return mask
}

// UniqVarMask marks the independent orbital-rotation parameters for an
// occupation pattern, in row-major nmo x nmo layout. For closed-shell
// patterns this reduces to the vir x occ block; patterns with singly
// occupied orbitals additionally couple them to both closed and
// virtual orbitals.
func UniqVarMask(occ []float64) []bool {
	nmo := len(occ)
	mask := make([]bool, nmo*nmo)
	for p := 0; p < nmo; p++ {
		for q := 0; q < nmo; q++ {
			vira := occ[p] == 0
			occa := occ[q] > 0
			virb := occ[p] < 2
			occb := occ[q] == 2
			if (vira && occa) || (virb && occb) {
				mask[p*nmo+q] = true
			}
		}
	}
	return mask
}

// UnpackUniqVar scatters the packed rotation parameters into the full
// antisymmetric generator matrix.
func UnpackUniqVar(dx []float64, occ []float64) *mat.Dense {
	nmo := len(occ)
	mask := UniqVarMask(occ)
	dr := mat.NewDense(nmo, nmo, nil)
	k := 0
	for p := 0; p < nmo; p++ {
		for q := 0; q < nmo; q++ {
			if mask[p*nmo+q] {
				dr.Set(p, q, dx[k])
				k++
			}
		}
	}
	var out mat.Dense
	out.Sub(dr, dr.T())
	return &out
}

// UnpackUniqVarZ is the complex counterpart of UnpackUniqVar; the
// result is anti-Hermitian.
func UnpackUniqVarZ(dx []complex128, occ []float64) *mat.CDense {
	nmo := len(occ)
	mask := UniqVarMask(occ)
	dr := mat.NewCDense(nmo, nmo, nil)
	k := 0
	for p := 0; p < nmo; p++ {
		for q := 0; q < nmo; q++ {
			if mask[p*nmo+q] {
				dr.Set(p, q, dx[k])
				k++
			}
		}
	}
	out := mat.NewCDense(nmo, nmo, nil)
	for p := 0; p < nmo; p++ {
		for q := 0; q < nmo; q++ {
			out.Set(p, q, dr.At(p, q)-cmplx.Conj(dr.At(q, p)))
		}
	}
	return out
}

// NUniqVar counts the independent rotation parameters for occ.
func NUniqVar(occ []float64) int {
	n := 0
	for _, m := range UniqVarMask(occ) {
		if m {
			n++
		}
	}
	return n
}

// BlockDiag2 joins two coefficient blocks into one block-diagonal
// matrix, the enlarged space used by spin-extension rotations.
func BlockDiag2(a, b *mat.Dense) *mat.Dense {
	ar, ac := a.Dims()
	br, bc := b.Dims()
	out := mat.NewDense(ar+br, ac+bc, nil)
	for i := 0; i < ar; i++ {
		for j := 0; j < ac; j++ {
			out.Set(i, j, a.At(i, j))
		}
	}
	for i := 0; i < br; i++ {
		for j := 0; j < bc; j++ {
			out.Set(ar+i, ac+j, b.At(i, j))
		}
	}
	return out
}
