// model.go --  This file is part of goStab project.
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

// Package model provides Hubbard-lattice mean-field solutions. The
// two-electron interaction is an on-site repulsion, so every Coulomb
// and exchange build reduces to a diagonal update and the solver runs
// without integral tables. The converged solutions satisfy the scf
// collaborator contracts consumed by the stability package.
package model

import (
	"errors"
	"log"
	"math"

	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/mat"
)

// ErrNotConverged reports an SCF loop that exhausted its step limit.
var ErrNotConverged = errors.New("model: SCF not converged")

// Lattice defines a Hubbard model: a one-electron hopping matrix over
// sites, an on-site repulsion U and an electron count. TwoSz fixes
// Nalpha - Nbeta for spin-unrestricted solutions. Ovlp is an optional
// site-basis overlap; nil means an orthonormal basis.
type Lattice struct {
	Sites int
	Hop   *mat.Dense
	U     float64
	Nelec int
	TwoSz int
	Eps   []float64 // optional per-site energies
	Ovlp  *mat.SymDense
}

// NewChain builds an open chain with nearest-neighbor hopping -t.
func NewChain(sites int, t, u float64, nelec int) *Lattice {
	h := mat.NewDense(sites, sites, nil)
	for i := 0; i+1 < sites; i++ {
		h.Set(i, i+1, -t)
		h.Set(i+1, i, -t)
	}
	return &Lattice{Sites: sites, Hop: h, U: u, Nelec: nelec}
}

// NewRing closes the chain with a periodic bond.
func NewRing(sites int, t, u float64, nelec int) *Lattice {
	l := NewChain(sites, t, u, nelec)
	if sites > 2 {
		l.Hop.Set(0, sites-1, -t)
		l.Hop.Set(sites-1, 0, -t)
	}
	return l
}

// Hcore returns the one-electron matrix, site energies included.
func (l *Lattice) Hcore() *mat.Dense {
	h := mat.DenseCopyOf(l.Hop)
	for i, e := range l.Eps {
		h.Set(i, i, h.At(i, i)+e)
	}
	return h
}

// Overlap returns the site overlap, identity when none was set.
func (l *Lattice) Overlap() *mat.SymDense {
	if l.Ovlp != nil {
		return l.Ovlp
	}
	s := mat.NewSymDense(l.Sites, nil)
	for i := 0; i < l.Sites; i++ {
		s.SetSym(i, i, 1)
	}
	return s
}

func (l *Lattice) nAlphaBeta() (int, int) {
	na := (l.Nelec + l.TwoSz) / 2
	return na, l.Nelec - na
}

// orbParity classifies orbitals under the site reflection
// i -> Sites-1-i. Orbitals that are not parity eigenstates within
// tolerance disable the classification entirely (nil result), which
// in turn disables symmetry masks downstream.
func orbParity(c *mat.Dense) []int {
	n, nmo := c.Dims()
	sym := make([]int, nmo)
	for j := 0; j < nmo; j++ {
		col := make([]float64, n)
		mat.Col(col, j, c)
		rev := append([]float64(nil), col...)
		slices.Reverse(rev)

		even, odd := 0.0, 0.0
		for i := range col {
			even = math.Max(even, math.Abs(col[i]-rev[i]))
			odd = math.Max(odd, math.Abs(col[i]+rev[i]))
		}
		switch {
		case even < 1e-6:
			sym[j] = 0
		case odd < 1e-6:
			sym[j] = 1
		default:
			return nil
		}
	}
	return sym
}

// SCFOptions tunes the self-consistency loop.
type SCFOptions struct {
	TolE     float64 // energy change threshold
	TolD     float64 // DIIS residual RMS threshold
	MaxSteps int
	Log      *log.Logger
}

func (o *SCFOptions) fill() SCFOptions {
	out := SCFOptions{TolE: 1e-12, TolD: 1e-9, MaxSteps: 100}
	if o == nil {
		return out
	}
	if o.TolE > 0 {
		out.TolE = o.TolE
	}
	if o.TolD > 0 {
		out.TolD = o.TolD
	}
	if o.MaxSteps > 0 {
		out.MaxSteps = o.MaxSteps
	}
	out.Log = o.Log
	return out
}
