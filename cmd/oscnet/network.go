package main

import (
	"fmt"
	"strings"

	"github.com/san-kum/oscnet/internal/analysis"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"
)

func showResonances(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	model, err := cfg.Model()
	if err != nil {
		return err
	}

	modes, err := analysis.Resonances(model.SystemMatrix())
	if err != nil {
		return err
	}

	rows := make([][]string, len(modes))
	for i, m := range modes {
		rows[i] = []string{
			fmt.Sprint(i + 1),
			fmt.Sprintf("%.6f", m.Frequency),
			fmt.Sprintf("%.6f", m.DampedFrequency),
			fmt.Sprintf("%.4f", m.DampingRatio),
			fmt.Sprintf("%.4f%+.4fi", real(m.Eigenvalue), imag(m.Eigenvalue)),
		}
	}
	fmt.Printf("resonances: %s\n\n", cfg.Name)
	fmt.Print(table([]string{"MODE", "FREQ (HZ)", "DAMPED (HZ)", "ZETA", "EIGENVALUE"}, rows))
	return nil
}

func estimateDistances(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	model, err := cfg.Model()
	if err != nil {
		return err
	}
	mode, err := analysis.ParseGroundMode(groundMode)
	if err != nil {
		return err
	}

	positions := eqPos
	if positions == nil {
		x0, err := cfg.InitialState()
		if err != nil {
			return err
		}
		positions = x0.Positions()
	}

	rest, err := analysis.EstimateDistances(model.Stiffness(), positions, mode, loads)
	if err != nil {
		return err
	}

	fmt.Printf("rest lengths: %s (%s ground)\n\n", cfg.Name, mode)
	fmt.Print(matrixTable(rest))
	return nil
}

func matrixTable(m *mat.Dense) string {
	r, c := m.Dims()
	headers := make([]string, c+1)
	for j := 1; j <= c; j++ {
		headers[j] = fmt.Sprint(j)
	}
	rows := make([][]string, r)
	for i := range rows {
		rows[i] = make([]string, c+1)
		rows[i][0] = fmt.Sprint(i + 1)
		for j := 0; j < c; j++ {
			rows[i][j+1] = strings.TrimSpace(fmt.Sprintf("% .6g", m.At(i, j)))
		}
	}
	return table(headers, rows)
}
