package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/importer"
	"github.com/sells-group/prospect-cli/internal/store"
)

var (
	importCSVPath   string
	importDelimiter string
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import contacts from a CSV file into the store",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		f, err := os.Open(importCSVPath)
		if err != nil {
			return eris.Wrapf(err, "open %s", importCSVPath)
		}
		defer f.Close()

		opts := importer.CSVOptions{}
		if importDelimiter != "" {
			opts.Delimiter = rune(importDelimiter[0])
		}
		res, err := importer.ParseContacts(ctx, f, opts)
		if err != nil {
			return err
		}

		st, err := store.Open(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close()

		inserted, err := st.SaveContacts(ctx, res.Contacts)
		if err != nil {
			return err
		}

		zap.L().Info("import complete",
			zap.String("csv", importCSVPath),
			zap.Int("parsed", len(res.Contacts)),
			zap.Int("inserted", inserted),
			zap.Int("skipped", len(res.Skipped)),
		)
		fmt.Printf("Imported %d contact(s) (%d duplicates skipped by the store).\n",
			inserted, len(res.Contacts)-inserted)
		for _, s := range res.Skipped {
			fmt.Printf("  skipped %s: %s\n", s.Item, s.Reason)
		}
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importCSVPath, "csv", "", "path to CSV file (required)")
	importCmd.Flags().StringVar(&importDelimiter, "delimiter", "", "field delimiter (default ',')")
	_ = importCmd.MarkFlagRequired("csv")
	rootCmd.AddCommand(importCmd)
}
