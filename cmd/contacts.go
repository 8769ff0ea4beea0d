package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/store"
)

var contactsCmd = &cobra.Command{
	Use:   "contacts",
	Short: "Inspect and manage stored contacts",
}

var contactsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored contacts",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		st, err := store.Open(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close()

		contacts, err := st.ListContacts(ctx)
		if err != nil {
			return err
		}
		if len(contacts) == 0 {
			fmt.Println("No contacts stored.")
			return nil
		}
		for _, c := range contacts {
			email := c.WorkEmail
			if email == "" {
				email = "(no email)"
			}
			fmt.Printf("%s  %-25s %-25s %-30s %s\n", c.ID, c.FullName, c.Role, email, c.Source)
		}
		fmt.Printf("%d contact(s)\n", len(contacts))
		return nil
	},
}

var contactsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a stored contact by id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := store.Open(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.DeleteContact(ctx, args[0]); err != nil {
			return err
		}
		zap.L().Info("contact deleted", zap.String("id", args[0]))
		fmt.Println("Deleted.")
		return nil
	},
}

func init() {
	contactsCmd.AddCommand(contactsListCmd, contactsDeleteCmd)
	rootCmd.AddCommand(contactsCmd)
}
