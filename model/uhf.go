// uhf.go --  This file is part of goStab project.
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

// UHF is a converged spin-unrestricted Hubbard mean field.
type UHF struct {
	Lat      *Lattice
	C        [2]*mat.Dense
	Occ      [2][]float64
	MOEnergy [2][]float64
	Etot     float64

	opts SCFOptions
}

// SolveUHF converges the unrestricted mean field from the core-guess
// density. The core guess is spin-symmetric, so without a
// symmetry-broken seed the solution stays spin-symmetric even when a
// broken solution lies lower.
func SolveUHF(lat *Lattice, opt *SCFOptions) (*UHF, error) {
	o := opt.fill()
	a, err := linalg.SqrtInvSym(lat.Overlap())
	if err != nil {
		return nil, err
	}
	c, _, err := eigOrtho(lat.Hcore(), a)
	if err != nil {
		return nil, err
	}
	occa, occb := uhfOcc(lat)
	return runUHF(lat, o, densityMat(c, occa), densityMat(c, occb))
}

func uhfOcc(lat *Lattice) ([]float64, []float64) {
	na, nb := lat.nAlphaBeta()
	occa := make([]float64, lat.Sites)
	occb := make([]float64, lat.Sites)
	for i := 0; i < na; i++ {
		occa[i] = 1
	}
	for i := 0; i < nb; i++ {
		occb[i] = 1
	}
	return occa, occb
}

func runUHF(lat *Lattice, o SCFOptions, dma, dmb *mat.Dense) (*UHF, error) {
	h := lat.Hcore()
	s := mat.DenseCopyOf(lat.Overlap())
	a, err := linalg.SqrtInvSym(lat.Overlap())
	if err != nil {
		return nil, err
	}
	occa, occb := uhfOcc(lat)

	var ca, cb *mat.Dense
	var moea, moeb []float64
	acc := &diis{}
	ePrev := 0.0
	for step := 1; step <= o.MaxSteps; step++ {
		va, vb := veffUnrestricted(lat.U, dma, dmb)
		fa := addM(h, va)
		fb := addM(h, vb)
		etot := 0.5 * (traceProd(dma, addM(h, fa)) + traceProd(dmb, addM(h, fb)))

		acc.push(stack2(fa, fb), stack2(
			diisResidual(fa, dma, s, a),
			diisResidual(fb, dmb, s, a),
		))
		dRMS := acc.drms()
		if o.Log != nil {
			o.Log.Println("Iteration ", step, ". Energy = ", etot, ", dE = ", ePrev-etot, ", dRMS = ", dRMS)
		}
		if ca != nil && math.Abs(ePrev-etot) < o.TolE && dRMS < o.TolD {
			if o.Log != nil {
				o.Log.Println("SCF converged after step ", step)
			}
			return &UHF{
				Lat: lat,
				C:   [2]*mat.Dense{ca, cb},
				Occ: [2][]float64{occa, occb}, MOEnergy: [2][]float64{moea, moeb},
				Etot: etot, opts: o,
			}, nil
		}
		ePrev = etot

		if fx := acc.extrapolate(); fx != nil {
			fa, fb = unstack2(fx)
		}
		ca, moea, err = eigOrtho(fa, a)
		if err != nil {
			return nil, err
		}
		cb, moeb, err = eigOrtho(fb, a)
		if err != nil {
			return nil, err
		}
		dma = densityMat(ca, occa)
		dmb = densityMat(cb, occb)
	}
	if o.Log != nil {
		o.Log.Println("Warning! SCF NOT converged after step ", o.MaxSteps)
	}
	return nil, fmt.Errorf("%w after %d steps", ErrNotConverged, o.MaxSteps)
}

// veffUnrestricted is the per-spin on-site mean field: each spin sees
// the opposite-spin density, same-spin Coulomb and exchange cancel.
func veffUnrestricted(u float64, dma, dmb *mat.Dense) (*mat.Dense, *mat.Dense) {
	n, _ := dma.Dims()
	va := mat.NewDense(n, n, nil)
	vb := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		va.Set(i, i, u*dmb.At(i, i))
		vb.Set(i, i, u*dma.At(i, i))
	}
	return va, vb
}

// stack2 places two n x n blocks on top of each other for the shared
// DIIS history.
func stack2(a, b *mat.Dense) *mat.Dense {
	r, c := a.Dims()
	out := mat.NewDense(2*r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out.Set(i, j, a.At(i, j))
			out.Set(r+i, j, b.At(i, j))
		}
	}
	return out
}

func unstack2(m *mat.Dense) (*mat.Dense, *mat.Dense) {
	r2, c := m.Dims()
	r := r2 / 2
	a := mat.NewDense(r, c, nil)
	b := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			a.Set(i, j, m.At(i, j))
			b.Set(i, j, m.At(r+i, j))
		}
	}
	return a, b
}

func (u *UHF) Label() string { return "UHF" }

func (u *UHF) MO() ([2]*mat.Dense, [2][]float64, [2][]float64) {
	return u.C, u.Occ, u.MOEnergy
}

func (u *UHF) OrbSym() [2][]int {
	return [2][]int{orbParity(u.C[0]), orbParity(u.C[1])}
}

func (u *UHF) Hcore() *mat.Dense { return u.Lat.Hcore() }

func (u *UHF) Veff(dma, dmb *mat.Dense) (*mat.Dense, *mat.Dense) {
	return veffUnrestricted(u.Lat.U, dma, dmb)
}

// Response builds the per-spin on-site kernel. Without the Coulomb
// term each spin block sees pure same-block exchange, which also
// serves the spin-off-diagonal blocks of the generalized extension.
func (u *UHF) Response(opt scf.ResponseOptions) scf.SpinResponseFunc {
	uu := u.Lat.U
	n := u.Lat.Sites
	withJ := opt.WithCoulomb && opt.Hermi != scf.AntiHermitian
	return func(dma, dmb *mat.Dense) (*mat.Dense, *mat.Dense) {
		va := mat.NewDense(n, n, nil)
		vb := mat.NewDense(n, n, nil)
		for i := 0; i < n; i++ {
			xa := -uu * dma.At(i, i)
			xb := -uu * dmb.At(i, i)
			if withJ {
				tot := uu * (dma.At(i, i) + dmb.At(i, i))
				xa += tot
				xb += tot
			}
			va.Set(i, i, xa)
			vb.Set(i, i, xb)
		}
		return va, vb
	}
}

func (u *UHF) MakeRDM1(c [2]*mat.Dense, occ [2][]float64) (*mat.Dense, *mat.Dense) {
	return densityMat(c[0], occ[0]), densityMat(c[1], occ[1])
}

// Run reconverges the mean field from per-spin seed densities.
func (u *UHF) Run(seeda, seedb *mat.Dense) (scf.UnrestrictedRunner, error) {
	return runUHF(u.Lat, u.opts, seeda, seedb)
}

// GenGHop assembles the orbital gradient, Hessian-vector operator and
// Hessian diagonal over the concatenated alpha and beta vir x occ
// rotation blocks.
func (u *UHF) GenGHop(withSymmetry bool) ([]float64, linalg.Operator, []float64) {
	c, occ, _ := u.MO()
	occa, vira := scf.OccVir(occ[0])
	occb, virb := scf.OccVir(occ[1])
	na := len(vira) * len(occa)
	nb := len(virb) * len(occb)

	dma, dmb := u.MakeRDM1(c, occ)
	va, vb := u.Veff(dma, dmb)
	focka := moTransform(addM(u.Hcore(), va), c[0])
	fockb := moTransform(addM(u.Hcore(), vb), c[1])
	fooa := blockOf(focka, occa, occa)
	fvva := blockOf(focka, vira, vira)
	foob := blockOf(fockb, occb, occb)
	fvvb := blockOf(fockb, virb, virb)

	var forbid []bool
	if withSymmetry {
		sym := u.OrbSym()
		fa := scf.SymForbid(sym[0], sym[0], vira, occa)
		fb := scf.SymForbid(sym[1], sym[1], virb, occb)
		if fa != nil && fb != nil {
			forbid = append(append([]bool(nil), fa...), fb...)
		}
	}

	g := make([]float64, 0, na+nb)
	hdiag := make([]float64, 0, na+nb)
	for a := 0; a < len(vira); a++ {
		for i := 0; i < len(occa); i++ {
			g = append(g, focka.At(vira[a], occa[i]))
			hdiag = append(hdiag, fvva.At(a, a)-fooa.At(i, i))
		}
	}
	for b := 0; b < len(virb); b++ {
		for i := 0; i < len(occb); i++ {
			g = append(g, fockb.At(virb[b], occb[i]))
			hdiag = append(hdiag, fvvb.At(b, b)-foob.At(i, i))
		}
	}
	zeroMasked(g, forbid)
	zeroMasked(hdiag, forbid)

	orboa := colsOf(c[0], occa)
	orbva := colsOf(c[0], vira)
	orbob := colsOf(c[1], occb)
	orbvb := colsOf(c[1], virb)
	resp := u.Response(scf.ResponseOptions{Hermi: scf.Hermitian, WithCoulomb: true})

	hop := linalg.OpFunc{N: na + nb, F: func(x []float64) []float64 {
		xm := append([]float64(nil), x...)
		zeroMasked(xm, forbid)
		x1a := mat.NewDense(len(vira), len(occa), xm[:na])
		x1b := mat.NewDense(len(virb), len(occb), xm[na:])

		x2a := fockTerm(fvva, fooa, x1a)
		x2b := fockTerm(fvvb, foob, x1b)

		d1a := symDouble(orbva, x1a, orboa)
		d1b := symDouble(orbvb, x1b, orbob)
		v1a, v1b := resp(d1a, d1b)

		addProjected(x2a, orbva, v1a, orboa)
		addProjected(x2b, orbvb, v1b, orbob)

		out := append(append([]float64(nil), x2a.RawMatrix().Data...), x2b.RawMatrix().Data...)
		zeroMasked(out, forbid)
		return out
	}}
	return g, hop, hdiag
}

func fockTerm(fvv, foo, x1 *mat.Dense) *mat.Dense {
	x2 := mulM(fvv, x1)
	x2.Sub(x2, mulM(x1, foo))
	return x2
}

// symDouble builds d1 + d1^T with d1 = orbv x1 orbo^T.
func symDouble(orbv, x1, orbo *mat.Dense) *mat.Dense {
	d1 := mul3M(orbv, x1, orbo.T())
	var dm mat.Dense
	dm.Add(d1, d1.T())
	return &dm
}

// addProjected adds orbv^T v1 orbo to x2 in place.
func addProjected(x2, orbv, v1, orbo *mat.Dense) {
	x2.Add(x2, mul3M(orbv.T(), v1, orbo))
}
