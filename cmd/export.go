package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/store"
	"github.com/sells-group/prospect-cli/pkg/notion"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored contacts",
}

var exportXLSXOut string

var exportXLSXCmd = &cobra.Command{
	Use:   "xlsx",
	Short: "Export contacts to an XLSX workbook",
	RunE: func(cmd *cobra.Command, _ []string) error {
		contacts, err := loadContacts(cmd)
		if err != nil {
			return err
		}

		file := xlsx.NewFile()
		sheet, err := file.AddSheet("Prospects")
		if err != nil {
			return eris.Wrap(err, "add sheet")
		}

		header := sheet.AddRow()
		for _, col := range []string{"Name", "Role", "Company", "Work Email", "Country", "Source", "Confidence"} {
			header.AddCell().Value = col
		}
		for _, c := range contacts {
			row := sheet.AddRow()
			row.AddCell().Value = c.FullName
			row.AddCell().Value = c.Role
			row.AddCell().Value = c.Company
			row.AddCell().Value = c.WorkEmail
			row.AddCell().Value = c.Country
			row.AddCell().Value = string(c.Source)
			row.AddCell().SetInt(c.ConfidenceScore)
		}

		if err := file.Save(exportXLSXOut); err != nil {
			return eris.Wrapf(err, "save %s", exportXLSXOut)
		}
		fmt.Printf("Exported %d contact(s) to %s\n", len(contacts), exportXLSXOut)
		return nil
	},
}

var exportNotionCmd = &cobra.Command{
	Use:   "notion",
	Short: "Export contacts into the Notion prospects database",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if cfg.Notion.Token == "" {
			return eris.New("notion token is required (PROSPECT_NOTION_TOKEN)")
		}
		if cfg.Notion.ProspectDB == "" {
			return eris.New("notion prospect DB id is required (PROSPECT_NOTION_PROSPECT_DB)")
		}

		contacts, err := loadContacts(cmd)
		if err != nil {
			return err
		}

		client := notion.NewClient(cfg.Notion.Token)
		exported, failures := notion.ExportContacts(cmd.Context(), client, cfg.Notion.ProspectDB, contacts)

		zap.L().Info("notion export complete",
			zap.Int("exported", exported),
			zap.Int("failed", len(failures)),
		)
		fmt.Printf("Exported %d contact(s) to Notion.\n", exported)
		for _, f := range failures {
			fmt.Printf("  failed %s: %s\n", f.Item, f.Reason)
		}
		return nil
	},
}

func loadContacts(cmd *cobra.Command) ([]model.ContactRecord, error) {
	st, err := store.Open(cmd.Context(), cfg.Store)
	if err != nil {
		return nil, err
	}
	defer st.Close()
	return st.ListContacts(cmd.Context())
}

func init() {
	exportXLSXCmd.Flags().StringVar(&exportXLSXOut, "out", "prospects.xlsx", "output file path")
	exportCmd.AddCommand(exportXLSXCmd, exportNotionCmd)
	rootCmd.AddCommand(exportCmd)
}
