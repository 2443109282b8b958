package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/seedkeeper/seedkeeper/internal/utils"
	"github.com/seedkeeper/seedkeeper/pkg/merge"
	"github.com/seedkeeper/seedkeeper/pkg/refresh"
	"github.com/seedkeeper/seedkeeper/pkg/storage"
)

// refreshCmd implements: seedkeeper refresh
// Flags:
//
//	--search string     Only seeds whose name contains this text
//	--category string   Only seeds in this category
//	--section string    Only fill one form section
//	--concurrency int   Number of parallel AI lookups
//	--dry-run           Print what would change without saving
var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Fill in the blank fields of every catalog seed",
	Long: `Run an AI lookup for each stored seed and fill in the fields that are still
empty. Values already in the catalog are never replaced.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		section, _ := cmd.Flags().GetString("section")
		concurrency, _ := cmd.Flags().GetInt("concurrency")
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		reg, err := loadRegistry()
		if err != nil {
			return err
		}
		if section != "" && !reg.HasSection(section) {
			return fmt.Errorf("unknown section %q (available: %s)", section, strings.Join(reg.Sections(), ", "))
		}
		client, err := newAIClient(reg)
		if err != nil {
			return err
		}

		db, closeDB, err := openDB(cmd, !dryRun)
		if err != nil {
			return err
		}
		defer closeDB()

		res, err := refresh.Run(cmd.Context(), refresh.Config{
			DB:          db,
			Client:      client,
			Registry:    reg,
			Filter:      listOptions(cmd),
			Section:     section,
			Concurrency: concurrency,
			DryRun:      dryRun,
			Log:         utils.Log,
			OnSeedDone: func(s storage.Seed, changes merge.ChangeSet, err error) {
				if err != nil || len(changes) == 0 {
					return
				}
				fmt.Printf("%s  %s\n", s.DisplayName(), strings.ReplaceAll(changes.Summary(reg), "\n", "\n    "))
			},
		})
		if err != nil {
			return err
		}

		verb := "Updated"
		if dryRun {
			verb = "Would update"
		}
		fmt.Printf("%s %d of %d seeds (%d lookups failed)\n", verb, res.Updated, res.Seeds, len(res.Errors))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(refreshCmd)
	refreshCmd.Flags().String("search", "", "Only seeds whose seed or variety name contains this text")
	refreshCmd.Flags().StringP("category", "c", "", "Only seeds in this category")
	refreshCmd.Flags().StringP("section", "s", "", "Only fill this form section")
	refreshCmd.Flags().Int("concurrency", 3, "Number of parallel AI lookups")
	refreshCmd.Flags().Bool("dry-run", false, "Show what would change without saving")
}
