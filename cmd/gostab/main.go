// main.go --  This file is part of goStab project.
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
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"gostab/model"
	"gostab/stability"
)

var (
	InfoLogger    *log.Logger
	WarningLogger *log.Logger
	ErrorLogger   *log.Logger
	OutputLogger  *log.Logger
)

func initLog() {
	InfoLogger = log.New(os.Stdout, "INFO: ", log.Ldate|log.Ltime)
	WarningLogger = log.New(os.Stdout, "WARNING: ", log.Ldate|log.Ltime)
	ErrorLogger = log.New(os.Stderr, "ERROR: ", log.Ldate|log.Ltime|log.Lshortfile)
	OutputLogger = log.New(os.Stdout, "", 0)
}

func printOutputDelimiter() {
	OutputLogger.Println(strings.Repeat("-", 70))
}

func main() {
	sites := flag.Int("sites", 2, "number of lattice sites")
	nelec := flag.Int("nelec", 2, "number of electrons")
	t := flag.Float64("t", 1.0, "nearest-neighbor hopping")
	u := flag.Float64("u", 4.0, "on-site repulsion")
	ring := flag.Bool("ring", false, "periodic boundary")
	flag.Parse()

	initLog()
	InfoLogger.Println("Starting goStab...")
	OutputLogger.Println("Hubbard lattice mean-field stability analysis")
	printOutputDelimiter()
	OutputLogger.Println("sites =", *sites, " nelec =", *nelec, " t =", *t, " U =", *u)
	printOutputDelimiter()

	var lat *model.Lattice
	if *ring {
		lat = model.NewRing(*sites, *t, *u, *nelec)
	} else {
		lat = model.NewChain(*sites, *t, *u, *nelec)
	}

	rhf, err := model.SolveRHF(lat, &model.SCFOptions{Log: OutputLogger})
	if err != nil {
		ErrorLogger.Fatal("RHF did not converge: ", err)
	}
	OutputLogger.Println("RHF energy = ", rhf.Etot, " a.u.")
	printOutputDelimiter()

	opts := stability.DefaultOptions()
	opts.External = true
	opts.Log = OutputLogger
	_, verdict, err := stability.Restricted{MF: rhf}.StabilityStatus(opts)
	if err != nil {
		ErrorLogger.Fatal("stability analysis failed: ", err)
	}
	printOutputDelimiter()

	if verdict.External {
		fmt.Println("goStab done.")
		return
	}

	WarningLogger.Println("Restricted solution is a saddle point. Reoptimizing without spin restriction.")
	uhf, err := model.SolveUHF(lat, &model.SCFOptions{Log: OutputLogger})
	if err != nil {
		ErrorLogger.Fatal("UHF did not converge: ", err)
	}
	stable, err := stability.Stabilize(stability.Unrestricted{MF: uhf}, stability.DefaultMaxAttempt, OutputLogger)
	if err != nil {
		ErrorLogger.Fatal("stabilization failed: ", err)
	}
	if final, ok := stable.(stability.Unrestricted); ok {
		if mf, ok := final.MF.(*model.UHF); ok {
			OutputLogger.Println("UHF energy = ", mf.Etot, " a.u.")
		}
	}
	printOutputDelimiter()
	fmt.Println("goStab done.")
}
