// Command pbdemo drives pbkernel's propagation core over a DIMACS CNF
// problem: propagate reports every literal forced at the empty assignment,
// and sat checks satisfiability of the formula together with an optional
// list of assumed literals. Grounded on the teacher's cmd/saturday/saturday.go
// flag-based CLI, rewritten onto spf13/cobra with one subcommand per
// operation instead of a single mode-switching flag.
package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cespare/pbkernel"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "pbdemo",
		Short: "pbdemo drives pbkernel's propagation core over DIMACS CNF input",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logrus.SetLevel(logrus.DebugLevel)
			}
			return nil
		},
	}
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newPropagateCmd())
	rootCmd.AddCommand(newSatCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newPropagateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "propagate [input.cnf]",
		Short: "attach every clause as a unit-coefficient constraint and print the literals forced at the empty assignment",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			e, _, err := loadEngine(path)
			if err != nil {
				return err
			}
			for _, v := range e.PropagatedLits() {
				fmt.Println(v)
			}
			return nil
		},
	}
}

func newSatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sat [input.cnf] [assumption...]",
		Short: "check satisfiability of the formula, optionally assuming the given signed literals",
		Args:  cobra.MinimumNArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			rest := args
			if len(args) > 0 {
				if _, err := strconv.Atoi(args[0]); err != nil {
					path = args[0]
					rest = args[1:]
				}
			}
			e, _, err := loadEngine(path)
			if err != nil {
				return err
			}

			var assumptions []pbkernel.Lit
			for _, a := range rest {
				n, err := strconv.Atoi(a)
				if err != nil {
					return fmt.Errorf("invalid assumption %q: %w", a, err)
				}
				l, err := pbkernel.FromSigned(n)
				if err != nil {
					return err
				}
				assumptions = append(assumptions, l)
			}

			if missing := e.CheckSat(assumptions); missing != nil {
				fmt.Println("UNSAT")
				return nil
			}
			fmt.Println("SAT")
			model := e.PropagatedLits()
			for i, v := range model {
				if i > 0 {
					fmt.Print(" ")
				}
				fmt.Print(v)
			}
			fmt.Println()
			return nil
		},
	}
}

func loadEngine(path string) (*pbkernel.PropEngine, [][]int, error) {
	var r io.Reader = os.Stdin
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, nil, err
		}
		defer f.Close()
		r = f
	}

	clauses, err := pbkernel.ParseDIMACS(r)
	if err != nil {
		return nil, nil, fmt.Errorf("reading DIMACS input: %s", err)
	}

	nVars := 0
	for _, c := range clauses {
		for _, lit := range c {
			v := lit
			if v < 0 {
				v = -v
			}
			if v > nVars {
				nVars = v
			}
		}
	}

	e := pbkernel.NewPropEngine(nVars)
	for i, c := range clauses {
		coeffs := make([]int64, len(c))
		for j := range c {
			coeffs[j] = 1
		}
		ineq, err := pbkernel.NewInequalityFromCoeffsLitsDegree(coeffs, c, 1)
		if err != nil {
			return nil, nil, fmt.Errorf("clause %d: %s", i, err)
		}
		if _, err := e.Attach(ineq, uint64(i+1)); err != nil {
			return nil, nil, fmt.Errorf("attaching clause %d: %s", i, err)
		}
	}
	return e, clauses, nil
}
