// dhf.go --  This file is part of goStab project.
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
	"gonum.org/v1/gonum/floats"

	"gostab/linalg"
	"gostab/scf"
)

// Relativistic analyzes a four-component reference. Only the internal
// channel is defined; the external verdict always reads stable.
type Relativistic struct {
	MF scf.Relativistic
}

func (d Relativistic) Stability(opts *Options) (RotatedOrbitals, error) {
	rot, _, err := d.StabilityStatus(opts)
	return rot, err
}

func (d Relativistic) StabilityStatus(opts *Options) (RotatedOrbitals, Verdict, error) {
	o := opts.fill()
	rot := RotatedOrbitals{}
	ver := Verdict{Internal: true, External: true}

	orb, stable, err := d.internal(o)
	if err != nil {
		return rot, ver, err
	}
	rot.Internal, ver.Internal = orb, stable
	return rot, ver, nil
}

func (d Relativistic) internal(o Options) (Orbitals, bool, error) {
	c, occ, _ := d.MF.MO()
	g, hop, hdiag := d.MF.GenGHopZ()
	hd := doubled(hdiag)

	x0 := seedFromGradient(g, hd, false)
	// the lowest-diagonal mode is always probed: the four-component
	// gradient support alone misses time-reversal breaking modes
	if len(hd) > 0 {
		x0[floats.MinIdx(hd)] = 1
	}

	e, v, err := lowestEigenpair(realPartDouble{hop}, hd, x0, o, d.MF.Label()+" internal")
	if err != nil {
		return Orbitals{}, false, err
	}
	stable := !(e < instabilityCutoff)
	dumpStatus(o.Log, stable, d.MF.Label(), "internal")
	if stable {
		return Orbitals{Cplx: c}, true, nil
	}
	return Orbitals{Cplx: rotateMOZ(c, occ, complexify(v))}, false, nil
}

// realPartDouble drives a complex oracle with real trial vectors,
// keeping twice the real part of the product. The imaginary part
// cancels between the vir-occ block and its conjugate.
type realPartDouble struct {
	raw linalg.OperatorZ
}

func (h realPartDouble) Dim() int { return h.raw.Dim() }

func (h realPartDouble) Apply(x []float64) []float64 {
	y := h.raw.Apply(complexify(x))
	out := make([]float64, len(y))
	for i, z := range y {
		out[i] = 2 * real(z)
	}
	return out
}
