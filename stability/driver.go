// driver.go --  This file is part of goStab project.
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

import "log"

// DefaultMaxAttempt bounds the reoptimization loop of Stabilize.
const DefaultMaxAttempt = 10

// Reoptimizable is an analyzer whose underlying mean-field can be
// reconverged from rotated orbitals.
type Reoptimizable interface {
	Analyzer
	Reoptimize(seed Orbitals) (Reoptimizable, error)
}

// Stabilize alternates internal stability analysis with SCF
// reoptimization from the rotated orbitals until the solution is
// internally stable or maxAttempt rounds have passed. maxAttempt <= 0
// means DefaultMaxAttempt. Failure to stabilize is soft: the last
// solution is returned with a logged warning.
func Stabilize(sol Reoptimizable, maxAttempt int, lg *log.Logger) (Reoptimizable, error) {
	if maxAttempt <= 0 {
		maxAttempt = DefaultMaxAttempt
	}
	opts := DefaultOptions()
	// escaping a saddle may require leaving the symmetry sector of
	// the current solution
	opts.BreakSymmetry = true
	opts.Log = lg

	rot, ver, err := sol.StabilityStatus(opts)
	if err != nil {
		return sol, err
	}
	for attempt := 1; attempt <= maxAttempt && !ver.Internal; attempt++ {
		if lg != nil {
			lg.Println("Try to optimize orbitals until stable, attempt", attempt)
		}
		next, err := sol.Reoptimize(rot.Internal)
		if err != nil {
			return sol, err
		}
		sol = next
		// the verdict must describe the solution being returned, so
		// every reconverged solution is analyzed before the loop can
		// give up on it
		rot, ver, err = sol.StabilityStatus(opts)
		if err != nil {
			return sol, err
		}
	}
	if !ver.Internal && lg != nil {
		lg.Println("Warning! Stability Opt failed after", maxAttempt, "attempts")
	}
	return sol, nil
}
