// bidopt runs the optimization pipeline offline against two local files and
// writes the annotated xlsx report, same engine as the HTTP service.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/AngelCh415/bidopt/internal/engine"
	"github.com/AngelCh415/bidopt/internal/ingest"
	"github.com/AngelCh415/bidopt/internal/models"
	"github.com/AngelCh415/bidopt/internal/report"
)

var (
	internalPath   string
	advertiserPath string
	outPath        string
	mainCol        string
	secCol         string
	mainTarget     float64
	secTarget      float64
	mainWeight     float64
	excludeSites   string
)

func main() {
	root := &cobra.Command{
		Use:   "bidopt",
		Short: "Classify campaign line-items and recommend bid adjustments",
		RunE:  run,
	}
	root.Flags().StringVar(&internalPath, "internal", "", "internal campaign export (xlsx)")
	root.Flags().StringVar(&advertiserPath, "advertiser", "", "advertiser performance report (csv)")
	root.Flags().StringVarP(&outPath, "out", "o", "optimization_results.xlsx", "output report path")
	root.Flags().StringVar(&mainCol, "main-col", "I", "main KPI column (index or letter)")
	root.Flags().StringVar(&secCol, "sec-col", "K", "secondary KPI column (index or letter)")
	root.Flags().Float64Var(&mainTarget, "main-target", 10, "main KPI target, percent")
	root.Flags().Float64Var(&secTarget, "sec-target", 5, "secondary KPI target, percent")
	root.Flags().Float64Var(&mainWeight, "main-weight", 80, "main KPI weight, percent (secondary gets the rest)")
	root.Flags().StringVar(&excludeSites, "exclude-sites", "", "override excluded-site regex")
	root.MarkFlagRequired("internal")
	root.MarkFlagRequired("advertiser")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	pCol, err := ingest.ColumnRef(mainCol)
	if err != nil {
		return err
	}
	sCol, err := ingest.ColumnRef(secCol)
	if err != nil {
		return err
	}
	cfg := models.RunConfig{
		PrimaryColumn:   pCol,
		SecondaryColumn: sCol,
		TargetPrimary:   mainTarget / 100.0,
		TargetSecondary: secTarget / 100.0,
		WeightPrimary:   mainWeight / 100.0,
		WeightSecondary: (100.0 - mainWeight) / 100.0,
	}

	internal, err := readFile(internalPath, ingest.ReadXLSX)
	if err != nil {
		return fmt.Errorf("internal table: %w", err)
	}
	advertiser, err := readFile(advertiserPath, ingest.ReadCSV)
	if err != nil {
		return fmt.Errorf("advertiser table: %w", err)
	}

	eng, err := engine.New(logger, nil, excludeSites)
	if err != nil {
		return err
	}
	rep, summary, err := eng.Run(cmd.Context(), internal, advertiser, cfg)
	if err != nil {
		return err
	}

	b, err := report.Bytes(rep, report.Fills)
	if err != nil {
		return err
	}
	if err := os.WriteFile(outPath, b, 0o644); err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", " ")
	if err := enc.Encode(summary); err != nil {
		return err
	}
	logger.Info("report written", slog.String("path", outPath))
	return nil
}

func readFile(path string, read func(r io.Reader) (ingest.Table, error)) (ingest.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return ingest.Table{}, err
	}
	defer f.Close()
	return read(f)
}
