package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KtodaZ/the-exicon-project-sub000/internal/snapshot"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a JSON snapshot as an XLSX workbook",
	RunE:  runExport,
}

func init() {
	f := exportCmd.Flags()
	f.String("input", "", "JSON snapshot path (default: enrich.snapshot_json)")
	f.String("output", "", "XLSX output path (default: input with .xlsx extension)")

	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	input, _ := cmd.Flags().GetString("input")
	if input == "" {
		input = cfg.Enrich.SnapshotJSON
	}
	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		output = strings.TrimSuffix(input, ".json") + ".xlsx"
	}

	items, err := snapshot.ReadJSON(input)
	if err != nil {
		return err
	}

	if err := snapshot.WriteXLSX(output, items); err != nil {
		return err
	}

	fmt.Printf("Exported %s to %s\n", snapshot.Describe(items), output)
	return nil
}
