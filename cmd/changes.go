package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/seedkeeper/seedkeeper/pkg/storage"
)

var changesCmd = &cobra.Command{
	Use:   "changes",
	Short: "Show recent catalog changes (default 50)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		uid, _ := cmd.Flags().GetString("uid")

		db, closeDB, err := openDB(cmd, false)
		if err != nil {
			return err
		}
		defer closeDB()

		var changes []storage.Change
		if uid != "" {
			changes, err = db.ListSeedChanges(cmd.Context(), uid, limit)
		} else {
			changes, err = db.ListRecentChanges(cmd.Context(), limit)
		}
		if err != nil {
			return err
		}
		for _, c := range changes {
			ts := c.OccurredAt.Local().Format("2006-01-02 15:04:05")
			if c.FieldKey == "" {
				fmt.Printf("%s  %-12s  %s\n", ts, c.Reason, c.SeedName)
				continue
			}
			fmt.Printf("%s  %-12s  %s  %s: %q -> %q\n", ts, c.Reason, c.SeedName, c.FieldKey, oneLine(c.OldValue), oneLine(c.NewValue))
		}
		return nil
	},
}

func oneLine(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) > 60 {
		return s[:57] + "..."
	}
	return s
}

func init() {
	rootCmd.AddCommand(changesCmd)
	changesCmd.Flags().Int("limit", 50, "Number of recent changes to show")
	changesCmd.Flags().StringP("uid", "u", "", "Only show changes of this seed")
}
