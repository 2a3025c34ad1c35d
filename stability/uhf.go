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
package stability

import (
	"gonum.org/v1/gonum/mat"

	"gostab/linalg"
	"gostab/scf"
)

// Unrestricted analyzes a spin-unrestricted reference. The internal
// channel probes same-spin rotations; the external channel probes
// real -> complex orbitals and the unrestricted -> generalized
// extension (spin-flip generalized solutions are not considered).
type Unrestricted struct {
	MF scf.Unrestricted
}

func (u Unrestricted) Stability(opts *Options) (RotatedOrbitals, error) {
	rot, _, err := u.StabilityStatus(opts)
	return rot, err
}

func (u Unrestricted) StabilityStatus(opts *Options) (RotatedOrbitals, Verdict, error) {
	o := opts.fill()
	rot := RotatedOrbitals{}
	ver := Verdict{Internal: true, External: true}
	if o.Internal {
		orb, stable, err := u.internal(o)
		if err != nil {
			return rot, ver, err
		}
		rot.Internal, ver.Internal = orb, stable
	}
	if o.External {
		orb, stable, err := u.external(o)
		if err != nil {
			return rot, ver, err
		}
		rot.External, ver.External = orb, stable
	}
	return rot, ver, nil
}

// Reoptimize reconverges the SCF from the rotated per-spin orbital
// pair.
func (u Unrestricted) Reoptimize(seed Orbitals) (Reoptimizable, error) {
	runner, ok := u.MF.(scf.UnrestrictedRunner)
	if !ok || seed.IsZero() {
		return nil, ErrNotReoptimizable
	}
	_, occ, _ := u.MF.MO()
	dma, dmb := u.MF.MakeRDM1(seed.Spin, occ)
	next, err := runner.Run(dma, dmb)
	if err != nil {
		return nil, err
	}
	return Unrestricted{MF: next}, nil
}

func (u Unrestricted) internal(o Options) (Orbitals, bool, error) {
	c, occ, _ := u.MF.MO()
	g, hop, hdiag := u.MF.GenGHop(!o.BreakSymmetry)
	hd := doubled(hdiag)
	x0 := seedFromGradient(g, hd, o.BreakSymmetry)
	e, v, err := lowestEigenpair(hermitianDouble{hop}, hd, x0, o, u.MF.Label()+" internal")
	if err != nil {
		return Orbitals{}, false, err
	}
	stable := !(e < instabilityCutoff)
	dumpStatus(o.Log, stable, u.MF.Label(), "internal")
	if stable {
		return Orbitals{Spin: c}, true, nil
	}
	occa, vira := scf.OccVir(occ[0])
	na := len(vira) * len(occa)
	return Orbitals{Spin: [2]*mat.Dense{
		rotateMO(c[0], occ[0], v[:na]),
		rotateMO(c[1], occ[1], v[na:]),
	}}, false, nil
}

func (u Unrestricted) external(o Options) (Orbitals, bool, error) {
	ops := newUHFExternalOps(u.MF, !o.BreakSymmetry)

	x0 := seedFromDiag(ops.hdiag1, o.BreakSymmetry)
	e1, _, err := lowestEigenpair(uhfReal2Complex{ops}, ops.hdiag1, x0, o, u.MF.Label()+" real2complex")
	if err != nil {
		return Orbitals{}, false, err
	}
	dumpStatus(o.Log, !(e1 < instabilityCutoff), u.MF.Label(), "real -> complex")

	x0 = seedFromDiag(ops.hdiag2, o.BreakSymmetry)
	e3, v3, err := lowestEigenpair(uhf2GHF{ops}, ops.hdiag2, x0, o, u.MF.Label()+" external")
	if err != nil {
		return Orbitals{}, false, err
	}
	stable := !(e3 < instabilityCutoff)
	dumpStatus(o.Log, stable, u.MF.Label(), "UHF/UKS -> GHF/GKS")

	c, _, _ := u.MF.MO()
	mo := scf.BlockDiag2(c[0], c[1])
	if !stable {
		mo = ops.rotateEnlarged(mo, v3)
	}
	return Orbitals{Real: mo}, stable, nil
}

// uhfExternalOps bundles the per-spin Fock blocks, orbital blocks,
// masks and response kernels of the unrestricted external channels.
type uhfExternalOps struct {
	fooa, fvva, foob, fvvb     *mat.Dense
	orboa, orbva, orbob, orbvb *mat.Dense
	nocca, nvira, noccb, nvirb int
	occidxa, viridxa           []int
	occidxb, viridxb           []int
	forbid1, forbid2           []bool
	hdiag1, hdiag2             []float64
	respZ                      scf.SpinResponseFunc // anti-Hermitian, Coulomb-free
	respX                      scf.SpinResponseFunc // non-Hermitian, Coulomb-free
}

func newUHFExternalOps(mf scf.Unrestricted, withSym bool) *uhfExternalOps {
	c, occ, _ := mf.MO()
	occidxa, viridxa := scf.OccVir(occ[0])
	occidxb, viridxb := scf.OccVir(occ[1])

	ops := &uhfExternalOps{
		orboa: cols(c[0], occidxa), orbva: cols(c[0], viridxa),
		orbob: cols(c[1], occidxb), orbvb: cols(c[1], viridxb),
		nocca: len(occidxa), nvira: len(viridxa),
		noccb: len(occidxb), nvirb: len(viridxb),
		occidxa: occidxa, viridxa: viridxa,
		occidxb: occidxb, viridxb: viridxb,
	}
	if withSym {
		sym := mf.OrbSym()
		fa := scf.SymForbid(sym[0], sym[0], viridxa, occidxa)
		fb := scf.SymForbid(sym[1], sym[1], viridxb, occidxb)
		if fa != nil && fb != nil {
			ops.forbid1 = append(append([]bool(nil), fa...), fb...)
		}
		fab := scf.SymForbid(sym[0], sym[1], viridxa, occidxb)
		fba := scf.SymForbid(sym[1], sym[0], viridxb, occidxa)
		if fab != nil && fba != nil {
			ops.forbid2 = append(append([]bool(nil), fab...), fba...)
		}
	}

	dma, dmb := mf.MakeRDM1(c, occ)
	va, vb := mf.Veff(dma, dmb)
	h1e := mf.Hcore()
	focka := mul3(c[0].T(), add(h1e, va), c[0])
	fockb := mul3(c[1].T(), add(h1e, vb), c[1])
	ops.fooa = block(focka, occidxa, occidxa)
	ops.fvva = block(focka, viridxa, viridxa)
	ops.foob = block(fockb, occidxb, occidxb)
	ops.fvvb = block(fockb, viridxb, viridxb)

	ops.hdiag1 = make([]float64, 0, ops.nvira*ops.nocca+ops.nvirb*ops.noccb)
	ops.hdiag1 = appendDiagDiff(ops.hdiag1, ops.fvva, ops.fooa)
	ops.hdiag1 = appendDiagDiff(ops.hdiag1, ops.fvvb, ops.foob)
	zeroForbidden(ops.hdiag1, ops.forbid1)

	ops.hdiag2 = make([]float64, 0, ops.nvira*ops.noccb+ops.nvirb*ops.nocca)
	ops.hdiag2 = appendDiagDiff(ops.hdiag2, ops.fvva, ops.foob)
	ops.hdiag2 = appendDiagDiff(ops.hdiag2, ops.fvvb, ops.fooa)
	zeroForbidden(ops.hdiag2, ops.forbid2)

	ops.respZ = mf.Response(scf.ResponseOptions{Hermi: scf.AntiHermitian, WithCoulomb: false})
	ops.respX = mf.Response(scf.ResponseOptions{Hermi: scf.NonHermitian, WithCoulomb: false})
	return ops
}

func appendDiagDiff(dst []float64, fvv, foo *mat.Dense) []float64 {
	nv, _ := fvv.Dims()
	no, _ := foo.Dims()
	for a := 0; a < nv; a++ {
		for i := 0; i < no; i++ {
			dst = append(dst, fvv.At(a, a)-foo.At(i, i))
		}
	}
	return dst
}

// uhfReal2Complex is the real -> complex Hessian-vector product over
// the concatenated alpha and beta vir x occ blocks.
type uhfReal2Complex struct {
	*uhfExternalOps
}

func (op uhfReal2Complex) Dim() int {
	return op.nvira*op.nocca + op.nvirb*op.noccb
}

func (op uhfReal2Complex) Apply(x []float64) []float64 {
	na := op.nvira * op.nocca
	xm := masked(x, op.forbid1)
	x1a := shaped(xm[:na], op.nvira, op.nocca)
	x1b := shaped(xm[na:], op.nvirb, op.noccb)

	x2a := sub(mul(op.fvva, x1a), mul(x1a, op.fooa))
	x2b := sub(mul(op.fvvb, x1b), mul(x1b, op.foob))

	d1a := mul3(op.orbva, x1a, op.orboa.T())
	d1b := mul3(op.orbvb, x1b, op.orbob.T())
	v1a, v1b := op.respZ(sub(d1a, d1a.T()), sub(d1b, d1b.T()))
	x2a = add(x2a, mul3(op.orbva.T(), v1a, op.orboa))
	x2b = add(x2b, mul3(op.orbvb.T(), v1b, op.orbob))

	out := append(flat(x2a), flat(x2b)...)
	zeroForbidden(out, op.forbid1)
	return out
}

// uhf2GHF is the unrestricted -> generalized Hessian-vector product
// over the cross-spin blocks (alpha-vir x beta-occ, beta-vir x
// alpha-occ). Only the real part is kept.
type uhf2GHF struct {
	*uhfExternalOps
}

func (op uhf2GHF) Dim() int {
	return op.nvira*op.noccb + op.nvirb*op.nocca
}

func (op uhf2GHF) Apply(x []float64) []float64 {
	nab := op.nvira * op.noccb
	xm := masked(x, op.forbid2)
	x1ab := shaped(xm[:nab], op.nvira, op.noccb)
	x1ba := shaped(xm[nab:], op.nvirb, op.nocca)

	x2ab := sub(mul(op.fvva, x1ab), mul(x1ab, op.foob))
	x2ba := sub(mul(op.fvvb, x1ba), mul(x1ba, op.fooa))

	d1ab := mul3(op.orbva, x1ab, op.orbob.T())
	d1ba := mul3(op.orbvb, x1ba, op.orboa.T())
	v1ab, v1ba := op.respX(add(d1ab, d1ba.T()), add(d1ba, d1ab.T()))
	x2ab = add(x2ab, mul3(op.orbva.T(), v1ab, op.orbob))
	x2ba = add(x2ba, mul3(op.orbvb.T(), v1ba, op.orboa))

	out := append(flat(x2ab), flat(x2ba)...)
	zeroForbidden(out, op.forbid2)
	return out
}

// rotateEnlarged builds the rotation in the enlarged block-diagonal
// space coupling the two spin sectors, applies it, and reorders the
// columns so occupied orbitals of both spins precede the virtuals.
func (op *uhfExternalOps) rotateEnlarged(mo *mat.Dense, v []float64) *mat.Dense {
	nmo := op.nocca + op.nvira
	dx := mat.NewDense(2*nmo, 2*nmo, nil)
	for a, p := range op.viridxa {
		for i, q := range op.occidxb {
			dx.Set(p, nmo+q, v[a*op.noccb+i])
		}
	}
	nab := op.nvira * op.noccb
	for b, p := range op.viridxb {
		for i, q := range op.occidxa {
			dx.Set(nmo+p, q, v[nab+b*op.nocca+i])
		}
	}
	u := linalg.ExpMat(sub(dx, dx.T()))
	rotated := mul(mo, u)

	var order []int
	order = append(order, op.occidxa...)
	for _, q := range op.occidxb {
		order = append(order, nmo+q)
	}
	order = append(order, op.viridxa...)
	for _, q := range op.viridxb {
		order = append(order, nmo+q)
	}
	return cols(rotated, order)
}

func masked(x []float64, forbid []bool) []float64 {
	out := append([]float64(nil), x...)
	zeroForbidden(out, forbid)
	return out
}

func shaped(x []float64, r, c int) *mat.Dense {
	return mat.NewDense(r, c, append([]float64(nil), x...))
}

func flat(m *mat.Dense) []float64 {
	r, c := m.Dims()
	out := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		out = append(out, m.RawRowView(i)...)
	}
	return out
}
