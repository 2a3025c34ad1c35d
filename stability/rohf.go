// rohf.go --  This file is part of goStab project.
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
	"fmt"

	"gostab/scf"
)

// RestrictedOpen analyzes a restricted-open-shell reference. Only the
// internal channel exists; requesting the external channel is a hard
// unsupported-operation failure, never a silent internal-only run.
type RestrictedOpen struct {
	MF scf.RestrictedOpen
}

func (r RestrictedOpen) Stability(opts *Options) (RotatedOrbitals, error) {
	rot, _, err := r.StabilityStatus(opts)
	return rot, err
}

func (r RestrictedOpen) StabilityStatus(opts *Options) (RotatedOrbitals, Verdict, error) {
	o := opts.fill()
	rot := RotatedOrbitals{}
	ver := Verdict{Internal: true, External: true}
	if o.External {
		return rot, ver, fmt.Errorf("%w: %s external", ErrUnsupportedChannel, r.MF.Label())
	}
	if o.Internal {
		orb, stable, err := r.internal(o)
		if err != nil {
			return rot, ver, err
		}
		rot.Internal, ver.Internal = orb, stable
	}
	return rot, ver, nil
}

func (r RestrictedOpen) internal(o Options) (Orbitals, bool, error) {
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
