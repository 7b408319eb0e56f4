package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"gocausal/adapters/excel"
	"gocausal/app"
	"gocausal/internal/config"
	"gocausal/internal/container"
	"gocausal/internal/report"
	"gocausal/ports"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "gocausal",
		Short:         "Interventional do-sampling from observational data",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newDemoCmd(),
		newSampleCmd(),
		newRunsCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadContainer() (*container.Container, error) {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return container.New(cfg)
}

func newDemoCmd() *cobra.Command {
	var rows, draws int
	var seed uint64

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run the confounded-treatment walkthrough and print a markdown report",
		Long: `Generate Z ~ U(0,1), D ~ Bernoulli(sigmoid(5Z)), Y = 2Z + D + noise,
then compare the naive difference of means with do-sampled estimates.

Example: gocausal demo --rows 5000 --seed 42 --draws 50`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadContainer()
			if err != nil {
				return err
			}
			defer c.Shutdown(cmd.Context())

			res, err := c.Demo.Run(cmd.Context(), app.DemoRequest{Rows: rows, Seed: seed, Draws: draws})
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), report.Markdown(res))
			return err
		},
	}

	cmd.Flags().IntVar(&rows, "rows", 0, "Rows to generate (default 5000)")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Scenario seed (default 42)")
	cmd.Flags().IntVar(&draws, "draws", 0, "Bootstrap replicates (default BOOTSTRAP_DRAWS)")

	return cmd
}

func newSampleCmd() *cobra.Command {
	var jobPath, outPath, sheet string

	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Draw one do-sample as described by a YAML job file",
		Long: `Read a dataset from a csv/xlsx file or a SQL query, draw a sample under
the job's intervention and write it to --out (.csv or .xlsx) or stdout as CSV.

Example: gocausal sample --job job.yaml --out do_sample.xlsx`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSample(cmd, jobPath, outPath, sheet)
		},
	}

	cmd.Flags().StringVar(&jobPath, "job", "", "YAML job file")
	cmd.Flags().StringVar(&outPath, "out", "", "Output file (.csv or .xlsx); stdout when empty")
	cmd.Flags().StringVar(&sheet, "out-sheet", excel.DefaultSheet, "Sheet name for .xlsx output")
	_ = cmd.MarkFlagRequired("job")

	return cmd
}

func runSample(cmd *cobra.Command, jobPath, outPath, sheet string) error {
	ctx := cmd.Context()
	job, err := config.LoadJob(jobPath)
	if err != nil {
		return err
	}
	c, err := loadContainer()
	if err != nil {
		return err
	}
	defer c.Shutdown(ctx)

	var reader ports.DatasetReader
	if job.Dataset.Query != "" {
		if err := c.InitDatabase(ctx); err != nil {
			return err
		}
		if reader, err = c.QueryReader(job.Dataset.Query); err != nil {
			return err
		}
	} else {
		reader = excel.NewDataReader(job.Dataset.Path, job.Dataset.Sheet, c.Logger)
	}

	types, err := job.VariableTypes()
	if err != nil {
		return err
	}
	data, err := reader.ReadDataset(ctx, types)
	if err != nil {
		return err
	}

	seed := job.SeedOr(c.Config.Sampler.Seed)
	res, err := c.Sampling.Sample(ctx, app.SampleRequest{
		Data:                      data,
		Types:                     types,
		Treatments:                job.Treatments,
		Outcomes:                  job.Outcomes,
		Confounders:               job.Confounders,
		Graph:                     job.Graph,
		ProceedWhenUnidentifiable: job.ProceedWhenUnidentifiable,
		Intervention:              job.InterventionValue(),
		KeepOriginalTreatment:     job.KeepOriginalTreatment,
		SampleSize:                job.SampleSize,
		Seed:                      &seed,
		ExtremePolicy:             job.ExtremePolicy,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "run %s: %d rows, adjusted for {%s}, ESS %.1f\n",
		res.RunID, res.Sample.RowCount(), strings.Join(res.Confounders, ", "), res.Diagnostics.EffectiveSize)
	fmt.Fprintf(cmd.ErrOrStderr(), "replay key %s\n", res.Manifest.ReplayKey())

	if outPath == "" {
		return excel.WriteCSV(cmd.OutOrStdout(), excel.FormatRows(res.Sample))
	}
	return excel.NewDataWriter(outPath, sheet).WriteDataset(ctx, res.Sample)
}

func newRunsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded do-sample runs from the database ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadContainer()
			if err != nil {
				return err
			}
			defer c.Shutdown(cmd.Context())
			if c.Config.Database.URL == "" {
				return fmt.Errorf("runs are only persisted with DATABASE_URL set")
			}
			if err := c.InitDatabase(cmd.Context()); err != nil {
				return err
			}
			return printRuns(cmd, c.Ledger, limit)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum runs to list")
	return cmd
}

func printRuns(cmd *cobra.Command, ledger ports.RunLedger, limit int) error {
	manifests, err := ledger.List(cmd.Context(), limit)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tCREATED\tINTERVENTION\tROWS\tESS\tADJUSTED FOR")
	for _, m := range manifests {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.1f\t{%s}\n",
			m.RunID, m.CreatedAt.Format(time.RFC3339), m.Intervention, m.OutputRows, m.EffectiveSize, strings.Join(m.Confounders, ", "))
	}
	return w.Flush()
}
