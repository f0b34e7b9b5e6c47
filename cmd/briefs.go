package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/tealeg/xlsx/v2"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/lead-intake/internal/model"
	"github.com/sells-group/lead-intake/internal/store"
)

var (
	briefsStatus string
	briefsFormat string
	exportOut    string
)

var briefsCmd = &cobra.Command{
	Use:   "briefs",
	Short: "Inspect and manage submitted briefs",
}

var briefsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List briefs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.Open(cmd.Context(), cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close()

		filter := store.BriefFilter{}
		if briefsStatus != "" {
			status := model.BriefStatus(briefsStatus)
			if !model.ValidBriefStatus(status) {
				return eris.Errorf("unknown status %q", briefsStatus)
			}
			filter.Status = status
		}

		briefs, err := st.ListBriefs(cmd.Context(), filter)
		if err != nil {
			return err
		}

		switch briefsFormat {
		case "json":
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(briefs)
		case "yaml":
			return yaml.NewEncoder(os.Stdout).Encode(briefs)
		default:
			for _, b := range briefs {
				fmt.Printf("%-22s  %-11s  %-8s  %-30s  %s\n",
					b.ID, b.Status, b.Complexity, b.Input.Email,
					b.CreatedAt.Format("2006-01-02 15:04"),
				)
			}
			return nil
		}
	},
}

var briefsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate brief counts by status",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.Open(cmd.Context(), cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close()

		stats, err := st.Stats(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Printf("Total: %d (spam flagged: %d)\n", stats.Total, stats.SpamFlagged)
		for _, status := range model.AllBriefStatuses() {
			fmt.Printf("  %-12s %d\n", status, stats.ByStatus[status])
		}
		return nil
	},
}

var briefsSetStatusCmd = &cobra.Command{
	Use:   "set-status <id> <status>",
	Short: "Update a brief's workflow status",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		status := model.BriefStatus(args[1])
		if !model.ValidBriefStatus(status) {
			return eris.Errorf("unknown status %q", args[1])
		}

		st, err := store.Open(cmd.Context(), cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.UpdateStatus(cmd.Context(), args[0], status); err != nil {
			return err
		}
		fmt.Printf("brief %s -> %s\n", args[0], status)
		return nil
	},
}

var briefsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export briefs to an xlsx spreadsheet",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.Open(cmd.Context(), cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close()

		briefs, err := st.ListBriefs(cmd.Context(), store.BriefFilter{Limit: 10000})
		if err != nil {
			return err
		}

		if err := writeBriefsXLSX(exportOut, briefs); err != nil {
			return err
		}
		fmt.Printf("wrote %d briefs to %s\n", len(briefs), exportOut)
		return nil
	},
}

func writeBriefsXLSX(path string, briefs []model.Brief) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Briefs")
	if err != nil {
		return eris.Wrap(err, "xlsx: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range []string{
		"ID", "Created", "Status", "Complexity", "Name", "Email", "Company",
		"Budget", "Timeline", "Score", "Est. hours", "Estimate low", "Estimate high",
		"Engagement model", "Suitability", "Spam flagged",
	} {
		header.AddCell().Value = h
	}

	for _, b := range briefs {
		row := sheet.AddRow()
		row.AddCell().Value = b.ID
		row.AddCell().Value = b.CreatedAt.Format("2006-01-02 15:04")
		row.AddCell().Value = string(b.Status)
		row.AddCell().Value = string(b.Complexity)
		row.AddCell().Value = b.Input.Name
		row.AddCell().Value = b.Input.Email
		row.AddCell().Value = b.Input.Company
		row.AddCell().Value = b.Input.BudgetRange
		row.AddCell().Value = b.Input.Timeline
		row.AddCell().SetInt(b.Analysis.ComplexityScore)
		row.AddCell().SetFloat(b.Analysis.EstimatedHours)
		row.AddCell().SetFloat(b.Analysis.TotalEstimate.Min)
		row.AddCell().SetFloat(b.Analysis.TotalEstimate.Max)
		row.AddCell().Value = string(b.Analysis.RecommendedEngagementModel)
		row.AddCell().Value = string(b.Analysis.Suitability)
		row.AddCell().SetBool(b.SpamFlagged)
	}

	return eris.Wrap(f.Save(path), "xlsx: save")
}

func init() {
	briefsListCmd.Flags().StringVar(&briefsStatus, "status", "", "filter by status")
	briefsListCmd.Flags().StringVar(&briefsFormat, "format", "table", "output format: table, json, yaml")
	briefsExportCmd.Flags().StringVar(&exportOut, "out", "briefs.xlsx", "output file")

	briefsCmd.AddCommand(briefsListCmd, briefsStatsCmd, briefsSetStatusCmd, briefsExportCmd)
	rootCmd.AddCommand(briefsCmd)
}
