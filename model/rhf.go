// rhf.go --  This file is part of goStab project.
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
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"gostab/linalg"
	"gostab/scf"
)

// RHF is a converged spin-restricted Hubbard mean field.
type RHF struct {
	Lat      *Lattice
	C        *mat.Dense
	Occ      []float64
	MOEnergy []float64
	Etot     float64

	opts SCFOptions
}

// SolveRHF converges the restricted mean field from the core-guess
// density.
func SolveRHF(lat *Lattice, opt *SCFOptions) (*RHF, error) {
	o := opt.fill()
	a, err := linalg.SqrtInvSym(lat.Overlap())
	if err != nil {
		return nil, err
	}
	c, _, err := eigOrtho(lat.Hcore(), a)
	if err != nil {
		return nil, err
	}
	dm := densityMat(c, rhfOcc(lat))
	return runRHF(lat, o, dm)
}

func rhfOcc(lat *Lattice) []float64 {
	occ := make([]float64, lat.Sites)
	for i := 0; i < lat.Nelec/2; i++ {
		occ[i] = 2
	}
	return occ
}

func runRHF(lat *Lattice, o SCFOptions, dm *mat.Dense) (*RHF, error) {
	h := lat.Hcore()
	s := mat.DenseCopyOf(lat.Overlap())
	a, err := linalg.SqrtInvSym(lat.Overlap())
	if err != nil {
		return nil, err
	}
	occ := rhfOcc(lat)

	var c *mat.Dense
	var moe []float64
	acc := &diis{}
	ePrev := 0.0
	for step := 1; step <= o.MaxSteps; step++ {
		f := addM(h, veffRestricted(lat.U, dm))
		etot := 0.5 * traceProd(dm, addM(h, f))

		acc.push(f, diisResidual(f, dm, s, a))
		dRMS := acc.drms()
		if o.Log != nil {
			o.Log.Println("Iteration ", step, ". Energy = ", etot, ", dE = ", ePrev-etot, ", dRMS = ", dRMS)
		}
		if c != nil && math.Abs(ePrev-etot) < o.TolE && dRMS < o.TolD {
			if o.Log != nil {
				o.Log.Println("SCF converged after step ", step)
			}
			return &RHF{Lat: lat, C: c, Occ: occ, MOEnergy: moe, Etot: etot, opts: o}, nil
		}
		ePrev = etot

		if fx := acc.extrapolate(); fx != nil {
			f = fx
		}
		c, moe, err = eigOrtho(f, a)
		if err != nil {
			return nil, err
		}
		dm = densityMat(c, occ)
	}
	if o.Log != nil {
		o.Log.Println("Warning! SCF NOT converged after step ", o.MaxSteps)
	}
	return nil, fmt.Errorf("%w after %d steps", ErrNotConverged, o.MaxSteps)
}

// veffRestricted is the closed-shell on-site mean field, the Coulomb
// term minus half the exchange.
func veffRestricted(u float64, dm *mat.Dense) *mat.Dense {
	n, _ := dm.Dims()
	v := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		v.Set(i, i, 0.5*u*dm.At(i, i))
	}
	return v
}

func (r *RHF) Label() string { return "RHF" }

func (r *RHF) MO() (*mat.Dense, []float64, []float64) { return r.C, r.Occ, r.MOEnergy }

func (r *RHF) OrbSym() []int { return orbParity(r.C) }

func (r *RHF) Hcore() *mat.Dense { return r.Lat.Hcore() }

func (r *RHF) Veff(dm *mat.Dense) *mat.Dense { return veffRestricted(r.Lat.U, dm) }

// Response builds the on-site response kernel. The Coulomb part only
// survives Hermitian spin-conserving perturbations; anti-Hermitian
// and triplet perturbations see pure exchange.
func (r *RHF) Response(opt scf.ResponseOptions) scf.ResponseFunc {
	u := r.Lat.U
	n := r.Lat.Sites
	withJ := opt.WithCoulomb && opt.Hermi != scf.AntiHermitian && opt.Spin != scf.Triplet
	return func(dm *mat.Dense) *mat.Dense {
		v := mat.NewDense(n, n, nil)
		for i := 0; i < n; i++ {
			x := -0.5 * u * dm.At(i, i)
			if withJ {
				x += u * dm.At(i, i)
			}
			v.Set(i, i, x)
		}
		return v
	}
}

func (r *RHF) MakeRDM1(c *mat.Dense, occ []float64) *mat.Dense { return densityMat(c, occ) }

// Run reconverges the mean field from a seed density matrix.
func (r *RHF) Run(seed *mat.Dense) (scf.RestrictedRunner, error) {
	return runRHF(r.Lat, r.opts, seed)
}

// GenGHop assembles the orbital gradient, Hessian-vector operator and
// Hessian diagonal over the packed vir x occ rotation space, with the
// closed-shell factors folded in.
func (r *RHF) GenGHop(withSymmetry bool) ([]float64, linalg.Operator, []float64) {
	c, occ, _ := r.MO()
	occidx, viridx := scf.OccVir(occ)
	nocc, nvir := len(occidx), len(viridx)

	dm := r.MakeRDM1(c, occ)
	fock := moTransform(addM(r.Hcore(), r.Veff(dm)), c)
	foo := blockOf(fock, occidx, occidx)
	fvv := blockOf(fock, viridx, viridx)
	fvo := blockOf(fock, viridx, occidx)

	var forbid []bool
	if withSymmetry {
		sym := r.OrbSym()
		forbid = scf.SymForbid(sym, sym, viridx, occidx)
	}

	g := make([]float64, nvir*nocc)
	hdiag := make([]float64, nvir*nocc)
	for a := 0; a < nvir; a++ {
		for i := 0; i < nocc; i++ {
			g[a*nocc+i] = 2 * fvo.At(a, i)
			hdiag[a*nocc+i] = 2 * (fvv.At(a, a) - foo.At(i, i))
		}
	}
	zeroMasked(g, forbid)
	zeroMasked(hdiag, forbid)

	orbo := colsOf(c, occidx)
	orbv := colsOf(c, viridx)
	resp := r.Response(scf.ResponseOptions{Hermi: scf.Hermitian, WithCoulomb: true, Spin: scf.SpinFree})

	hop := linalg.OpFunc{N: nvir * nocc, F: func(x []float64) []float64 {
		xm := append([]float64(nil), x...)
		zeroMasked(xm, forbid)
		x1 := mat.NewDense(nvir, nocc, xm)

		x2 := mulM(fvv, x1)
		x2.Sub(x2, mulM(x1, foo))
		x2.Scale(2, x2)

		d1 := mul3M(orbv, x1, orbo.T())
		var dm1 mat.Dense
		dm1.Add(d1, d1.T())

		v1 := mul3M(orbv.T(), resp(&dm1), orbo)
		v1.Scale(4, v1)
		x2.Add(x2, v1)

		out := append([]float64(nil), x2.RawMatrix().Data...)
		zeroMasked(out, forbid)
		return out
	}}
	return g, hop, hdiag
}
