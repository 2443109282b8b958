package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/seedkeeper/seedkeeper/pkg/export"
	"github.com/seedkeeper/seedkeeper/pkg/merge"
	"github.com/seedkeeper/seedkeeper/pkg/schema"
	"github.com/seedkeeper/seedkeeper/pkg/storage"
)

// seedsCmd represents the seeds command
var seedsCmd = &cobra.Command{
	Use:   "seeds",
	Short: "Manage the seeds in the catalog",
}

var seedsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog seeds",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		db, closeDB, err := openDB(cmd, false)
		if err != nil {
			return err
		}
		defer closeDB()

		seeds, err := db.ListSeeds(cmd.Context(), listOptions(cmd))
		if err != nil {
			return err
		}
		if len(seeds) == 0 {
			fmt.Println("No seeds in the catalog.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "UID\tSEED\tCATEGORIES\tUPDATED\t")
		for _, s := range seeds {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t\n", s.UID, s.DisplayName(), strings.Join(s.Categories(), ", "), s.UpdatedAt.Format("2006-01-02"))
		}
		return w.Flush()
	},
}

var seedsShowCmd = &cobra.Command{
	Use:   "show [uid]",
	Short: "Print every filled-in field of a seed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := loadRegistry()
		if err != nil {
			return err
		}
		db, closeDB, err := openDB(cmd, false)
		if err != nil {
			return err
		}
		defer closeDB()

		seed, err := db.GetSeed(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		for _, section := range reg.Sections() {
			printed := false
			for _, f := range reg.Fields() {
				if f.Section != section {
					continue
				}
				val := merge.FormatValue(seed.Value(f.Key))
				if val == "" {
					continue
				}
				if !printed {
					fmt.Fprintf(w, "[%s]\t\n", section)
					printed = true
				}
				fmt.Fprintf(w, "  %s\t%s\n", f.Label, strings.ReplaceAll(val, "\n", " "))
			}
		}
		fmt.Fprintf(w, "\nCreated\t%s\n", seed.CreatedAt.Format("2006-01-02 15:04:05"))
		fmt.Fprintf(w, "Updated\t%s\n", seed.UpdatedAt.Format("2006-01-02 15:04:05"))
		return w.Flush()
	},
}

var seedsAddCmd = &cobra.Command{
	Use:   "add [seed name]",
	Short: "Add a seed by hand",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		variety, _ := cmd.Flags().GetString("variety")
		sets, _ := cmd.Flags().GetStringArray("set")

		reg, err := loadRegistry()
		if err != nil {
			return err
		}

		state := merge.NewFormState()
		state.Set("seed_name", args[0])
		if variety != "" {
			state.Set("variety_name", variety)
		}
		for _, kv := range sets {
			key, raw, ok := strings.Cut(kv, "=")
			if !ok {
				return fmt.Errorf("bad --set %q, expected key=value", kv)
			}
			v, err := parseFieldValue(reg, strings.TrimSpace(key), raw)
			if err != nil {
				return err
			}
			state.Set(strings.TrimSpace(key), v)
		}

		db, closeDB, err := openDB(cmd, true)
		if err != nil {
			return err
		}
		defer closeDB()

		seed := storage.SeedFromState("", state)
		if err := db.CreateSeed(cmd.Context(), seed, nil); err != nil {
			return err
		}
		fmt.Println(seed.UID)
		return nil
	},
}

var seedsDeleteCmd = &cobra.Command{
	Use:   "delete [uid]",
	Short: "Remove a seed from the catalog",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, closeDB, err := openDB(cmd, true)
		if err != nil {
			return err
		}
		defer closeDB()

		if err := db.DeleteSeed(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted %s\n", args[0])
		return nil
	},
}

var seedsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the catalog as CSV",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		output, _ := cmd.Flags().GetString("output")

		reg, err := loadRegistry()
		if err != nil {
			return err
		}
		db, closeDB, err := openDB(cmd, false)
		if err != nil {
			return err
		}
		defer closeDB()

		seeds, err := db.ListSeeds(cmd.Context(), listOptions(cmd))
		if err != nil {
			return err
		}

		out := os.Stdout
		if output != "" && output != "-" {
			f, err := os.Create(output)
			if err != nil {
				return err
			}
			defer f.Close()
			out = f
		}
		return export.WriteCSV(out, reg, seeds)
	},
}

func listOptions(cmd *cobra.Command) storage.ListOptions {
	search, _ := cmd.Flags().GetString("search")
	category, _ := cmd.Flags().GetString("category")
	limit, _ := cmd.Flags().GetInt("limit")
	return storage.ListOptions{Search: search, Category: category, Limit: limit}
}

// parseFieldValue turns a command line value into the field's type.
func parseFieldValue(reg *schema.Registry, key, raw string) (any, error) {
	f, ok := reg.Get(key)
	if !ok {
		return nil, fmt.Errorf("unknown field %q (see 'seedkeeper fields')", key)
	}
	raw = strings.TrimSpace(raw)

	switch f.Kind {
	case schema.KindBoolean:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %q is not a boolean", key, raw)
		}
		return b, nil
	case schema.KindInteger:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %q is not a whole number", key, raw)
		}
		return n, nil
	case schema.KindEnum:
		v, ok := reg.CanonicalizeEnumValue(key, raw)
		if !ok {
			return nil, fmt.Errorf("%s: %q is not one of %s", key, raw, strings.Join(f.Values(), ", "))
		}
		return v, nil
	case schema.KindMultiEnum:
		var out []string
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part == "" {
				continue
			}
			v, ok := reg.CanonicalizeEnumValue(key, part)
			if !ok {
				return nil, fmt.Errorf("%s: %q is not one of %s", key, part, strings.Join(f.Values(), ", "))
			}
			out = append(out, v)
		}
		return out, nil
	}
	return raw, nil
}

func init() {
	rootCmd.AddCommand(seedsCmd)
	seedsCmd.AddCommand(seedsListCmd, seedsShowCmd, seedsAddCmd, seedsDeleteCmd, seedsExportCmd)

	for _, c := range []*cobra.Command{seedsListCmd, seedsExportCmd} {
		c.Flags().String("search", "", "Only seeds whose seed or variety name contains this text")
		c.Flags().StringP("category", "c", "", "Only seeds in this category")
	}
	seedsListCmd.Flags().Int("limit", 0, "Maximum number of seeds to list (0 for all)")

	seedsAddCmd.Flags().String("variety", "", "Variety name")
	seedsAddCmd.Flags().StringArray("set", nil, "Set a field, as key=value (repeatable)")

	seedsExportCmd.Flags().StringP("output", "o", "", "Write the CSV to this file instead of stdout")
}
