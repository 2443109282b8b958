package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var fieldsCmd = &cobra.Command{
	Use:   "fields",
	Short: "List the catalog fields and what the AI may fill in",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		section, _ := cmd.Flags().GetString("section")
		reg, err := loadRegistry()
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "KEY\tLABEL\tKIND\tSECTION\tAI\tVALUES")
		for _, f := range reg.Fields() {
			if section != "" && !strings.EqualFold(f.Section, section) {
				continue
			}
			ai := "-"
			if f.AIPopulated {
				ai = string(f.Confidence)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", f.Key, f.Label, f.Kind, f.Section, ai, strings.Join(f.Values(), " | "))
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(fieldsCmd)
	fieldsCmd.Flags().StringP("section", "s", "", "Only list fields of this section")
}
