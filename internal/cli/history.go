package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	apprepo "github.com/probelab/benchforge/internal/app/repository"
	"github.com/probelab/benchforge/internal/domain/history"
	domainreport "github.com/probelab/benchforge/internal/domain/report"
	"github.com/probelab/benchforge/internal/infra/database"
	"github.com/probelab/benchforge/internal/infra/database/repository"
	infrareport "github.com/probelab/benchforge/internal/infra/report"
)

var (
	historyLimit int
	exportFormat string
	exportOutput string
	pruneKeep    int
	pruneKeepSet bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect and export saved benchmark runs",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved runs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, closer, err := openHistory(cmd.Context())
		if err != nil {
			return err
		}
		defer closer()

		records, err := repo.List(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Println("no saved runs")
			return nil
		}

		for _, rec := range records {
			state := rec.State
			if state == "cancelled" {
				state = color.YellowString(state)
			}
			fmt.Printf("%s  %-12s %-10s %-10s %s  %d measured, %d errors, mean %.3f ms\n",
				rec.ID, rec.Suite, rec.Mode, state,
				rec.StartedAt.Local().Format(time.DateTime),
				rec.Summary.Measured, rec.Summary.Errors, rec.Summary.Mean)
		}
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show one saved run with its results",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, closer, err := openHistory(cmd.Context())
		if err != nil {
			return err
		}
		defer closer()

		rec, err := repo.GetByID(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		rendered, err := infrareport.NewMarkdownGenerator().Generate(rec)
		if err != nil {
			return err
		}
		fmt.Print(string(rendered.Content))
		return nil
	},
}

var historyExportCmd = &cobra.Command{
	Use:   "export <run-id>",
	Short: "Export one saved run to a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format := domainreport.Format(exportFormat)
		if err := format.Validate(); err != nil {
			return err
		}

		repo, closer, err := openHistory(cmd.Context())
		if err != nil {
			return err
		}
		defer closer()

		rec, err := repo.GetByID(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		var gen domainreport.Generator
		switch format {
		case domainreport.FormatMarkdown:
			gen = infrareport.NewMarkdownGenerator()
		default:
			gen = infrareport.NewJSONGenerator()
		}

		rendered, err := gen.Generate(rec)
		if err != nil {
			return err
		}

		out := exportOutput
		if out == "" {
			out = rec.ID + format.FileExtension()
		}
		if err := os.WriteFile(out, rendered.Content, 0o644); err != nil {
			return err
		}
		fmt.Printf("exported %s to %s\n", rec.ID, out)
		return nil
	},
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete old runs, keeping the newest",
	RunE: func(cmd *cobra.Command, args []string) error {
		keep := cfg.History.Keep
		if pruneKeepSet {
			keep = pruneKeep
		}

		repo, closer, err := openHistory(cmd.Context())
		if err != nil {
			return err
		}
		defer closer()

		removed, err := repo.Prune(cmd.Context(), keep)
		if err != nil {
			return err
		}
		fmt.Printf("removed %d runs, kept at most %d\n", removed, keep)
		return nil
	},
}

func init() {
	historyListCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum number of runs to list, 0 for all")
	historyExportCmd.Flags().StringVar(&exportFormat, "format", "json", "export format: json or markdown")
	historyExportCmd.Flags().StringVar(&exportOutput, "output", "", "output file (default <run-id> with the format's extension)")
	historyPruneCmd.Flags().IntVar(&pruneKeep, "keep", 0, "how many runs to keep (default from config)")
	historyPruneCmd.PreRun = func(cmd *cobra.Command, args []string) {
		pruneKeepSet = cmd.Flags().Changed("keep")
	}

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyExportCmd)
	historyCmd.AddCommand(historyPruneCmd)
}

// openHistory opens the configured history database. The caller owns the
// returned closer.
func openHistory(ctx context.Context) (apprepo.HistoryRepository, func(), error) {
	if cfg.History.Path == "" {
		return nil, nil, fmt.Errorf("history is disabled: no history path configured")
	}
	db, err := database.InitializeSQLite(ctx, cfg.History.Path)
	if err != nil {
		return nil, nil, err
	}
	return repository.NewSQLiteHistoryRepository(db), func() { db.Close() }, nil
}

// saveHistory records a finished run, opening and closing the database
// around the single write.
func saveHistory(ctx context.Context, record *history.Record) error {
	repo, closer, err := openHistory(ctx)
	if err != nil {
		return err
	}
	defer closer()
	return repo.Save(ctx, record)
}
