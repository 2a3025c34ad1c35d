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
package stability

import (
	"gonum.org/v1/gonum/mat"

	"gostab/scf"
)

// Restricted analyzes a closed-shell reference. The internal channel
// probes rotations within the restricted space; the external channel
// probes real -> complex orbitals and the restricted -> unrestricted
// extension.
type Restricted struct {
	MF scf.Restricted
}

func (r Restricted) Stability(opts *Options) (RotatedOrbitals, error) {
	rot, _, err := r.StabilityStatus(opts)
	return rot, err
}

func (r Restricted) StabilityStatus(opts *Options) (RotatedOrbitals, Verdict, error) {
	o := opts.fill()
	rot := RotatedOrbitals{}
	ver := Verdict{Internal: true, External: true}
	if o.Internal {
		orb, stable, err := r.internal(o)
		if err != nil {
			return rot, ver, err
		}
		rot.Internal, ver.Internal = orb, stable
	}
	if o.External {
		orb, stable, err := r.external(o)
		if err != nil {
			return rot, ver, err
		}
		rot.External, ver.External = orb, stable
	}
	return rot, ver, nil
}

// Reoptimize reconverges the SCF from a density built with the rotated
// orbitals, returning a dispatcher over the new solution.
func (r Restricted) Reoptimize(seed Orbitals) (Reoptimizable, error) {
	runner, ok := r.MF.(scf.RestrictedRunner)
	if !ok || seed.IsZero() {
		return nil, ErrNotReoptimizable
	}
	_, occ, _ := r.MF.MO()
	dm := r.MF.MakeRDM1(seed.Real, occ)
	next, err := runner.Run(dm)
	if err != nil {
		return nil, err
	}
	return Restricted{MF: next}, nil
}

func (r Restricted) internal(o Options) (Orbitals, bool, error) {
	c, occ, _ := r.MF.MO()
	g, hop, hdiag := r.MF.GenGHop(!o.BreakSymmetry)
	hd := doubled(hdiag)
	x0 := seedFromGradient(g, hd, o.BreakSymmetry)
	e, v, err := lowestEigenpair(hermitianDouble{hop}, hd, x0, o, r.MF.Label()+" internal")
	if err != nil {
		return Orbitals{}, false, err
	}
	stable := !(e < instabilityCutoff)
	dumpStatus(o.Log, stable, r.MF.Label(), "internal")
	if stable {
		return Orbitals{Real: c}, true, nil
	}
	return Orbitals{Real: rotateMO(c, occ, v)}, false, nil
}

func (r Restricted) external(o Options) (Orbitals, bool, error) {
	ops := newRHFExternalOps(r.MF, !o.BreakSymmetry)
	x0 := seedFromDiag(ops.hdiag, o.BreakSymmetry)

	e1, v1, err := lowestEigenpair(rhfReal2Complex{ops}, ops.hdiag, x0, o, r.MF.Label()+" real2complex")
	if err != nil {
		return Orbitals{}, false, err
	}
	dumpStatus(o.Log, !(e1 < instabilityCutoff), r.MF.Label(), "real -> complex")

	// the real2complex eigenvector seeds the spin-extension search
	e3, v3, err := lowestEigenpair(rhf2UHF{ops}, ops.hdiag, v1, o, r.MF.Label()+" external")
	if err != nil {
		return Orbitals{}, false, err
	}
	stable := !(e3 < instabilityCutoff)
	dumpStatus(o.Log, stable, r.MF.Label(), "RHF/RKS -> UHF/UKS")

	c, occ, _ := r.MF.MO()
	if stable {
		return Orbitals{Spin: [2]*mat.Dense{c, c}}, true, nil
	}
	return Orbitals{Spin: [2]*mat.Dense{rotateMO(c, occ, v3), c}}, false, nil
}

// rhfExternalOps bundles the Fock occ/vir blocks, orbital blocks and
// response kernels shared by both external channels of a restricted
// reference.
type rhfExternalOps struct {
	foo, fvv   *mat.Dense
	orbo, orbv *mat.Dense
	nocc, nvir int
	forbid     []bool
	respZ      scf.ResponseFunc // anti-Hermitian perturbation, Coulomb-free
	respT      scf.ResponseFunc // triplet channel
	hdiag      []float64
}

func newRHFExternalOps(mf scf.Restricted, withSym bool) *rhfExternalOps {
	c, occ, _ := mf.MO()
	occidx, viridx := scf.OccVir(occ)

	ops := &rhfExternalOps{
		orbo: cols(c, occidx),
		orbv: cols(c, viridx),
		nocc: len(occidx),
		nvir: len(viridx),
	}
	if withSym {
		sym := mf.OrbSym()
		ops.forbid = scf.SymForbid(sym, sym, viridx, occidx)
	}

	dm0 := mf.MakeRDM1(c, occ)
	fockAO := add(mf.Hcore(), mf.Veff(dm0))
	fock := mul3(c.T(), fockAO, c)
	ops.foo = block(fock, occidx, occidx)
	ops.fvv = block(fock, viridx, viridx)

	ops.hdiag = make([]float64, ops.nvir*ops.nocc)
	for a := 0; a < ops.nvir; a++ {
		for i := 0; i < ops.nocc; i++ {
			ops.hdiag[a*ops.nocc+i] = ops.fvv.At(a, a) - ops.foo.At(i, i)
		}
	}
	zeroForbidden(ops.hdiag, ops.forbid)

	ops.respZ = mf.Response(scf.ResponseOptions{Hermi: scf.AntiHermitian, WithCoulomb: false, Spin: scf.SpinFree})
	ops.respT = mf.Response(scf.ResponseOptions{Hermi: scf.Hermitian, WithCoulomb: true, Spin: scf.Triplet})
	return ops
}

// rhfReal2Complex is the Hessian-vector product for the real ->
// complex channel: the trial vector parametrizes an anti-Hermitian
// density perturbation, so the Coulomb-type response is absent.
type rhfReal2Complex struct {
	*rhfExternalOps
}

func (op rhfReal2Complex) Dim() int { return op.nvir * op.nocc }

func (op rhfReal2Complex) Apply(x []float64) []float64 {
	x1 := maskedShape(x, op.nvir, op.nocc, op.forbid)
	x2 := sub(mul(op.fvv, x1), mul(x1, op.foo))

	d1 := mul3(op.orbv, scaled(2, x1), op.orbo.T())
	dm1 := sub(d1, d1.T())
	v1 := op.respZ(dm1)
	x2 = add(x2, mul3(op.orbv.T(), v1, op.orbo))
	return flattenMasked(x2, op.forbid)
}

// rhf2UHF is the Hessian-vector product for the restricted ->
// unrestricted channel, the triplet response of a Hermitian density
// perturbation. Only the real part of the product survives.
type rhf2UHF struct {
	*rhfExternalOps
}

func (op rhf2UHF) Dim() int { return op.nvir * op.nocc }

func (op rhf2UHF) Apply(x []float64) []float64 {
	x1 := maskedShape(x, op.nvir, op.nocc, op.forbid)
	x2 := sub(mul(op.fvv, x1), mul(x1, op.foo))

	d1 := mul3(op.orbv, scaled(2, x1), op.orbo.T())
	dm1 := add(d1, d1.T())
	v1 := op.respT(dm1)
	x2 = add(x2, mul3(op.orbv.T(), v1, op.orbo))
	return flattenMasked(x2, op.forbid)
}
