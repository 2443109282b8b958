package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// statsCmd represents the stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Prints statistics about the seeds in the catalog.",
	Long:  "Prints statistics about the seeds in the catalog and how their fields were filled in.",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, closeDB, err := openDB(cmd, false)
		if err != nil {
			return err
		}
		defer closeDB()

		stats, err := db.GetStats(cmd.Context())
		if err != nil {
			return err
		}

		if stats.SeedCount == 0 {
			fmt.Println("No data in the database to generate stats.")
			return nil
		}

		fmt.Printf("%d seeds, %d without a variety\n\n", stats.SeedCount, stats.WithoutVariety)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight)
		fmt.Fprintln(w, "CATEGORY\tSEEDS\t")
		for _, c := range stats.Categories {
			fmt.Fprintf(w, "%s\t%d\t\n", c.Category, c.Count)
		}

		fmt.Fprintln(w, " \t \t")
		fmt.Fprintln(w, "CHANGE REASON\tCOUNT\t")
		var total int
		for _, r := range stats.Changes {
			fmt.Fprintf(w, "%s\t%d\t\n", r.Reason, r.Count)
			total += r.Count
		}
		fmt.Fprintf(w, "TOTAL\t%d\t\n", total)

		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
