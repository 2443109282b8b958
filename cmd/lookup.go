package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/seedkeeper/seedkeeper/internal/utils"
	"github.com/seedkeeper/seedkeeper/pkg/ai"
	"github.com/seedkeeper/seedkeeper/pkg/merge"
	"github.com/seedkeeper/seedkeeper/pkg/populate"
	"github.com/seedkeeper/seedkeeper/pkg/storage"
)

// lookupCmd implements: seedkeeper lookup [seed name]
//
//	--variety string   Variety to ask about
//	--section string   Only fill one form section (basic, plant, growing, harvest, notes)
//	--uid string       Start from a stored seed instead of an empty form
//	--save             Store the result in the catalog
//	--overwrite        Let the AI replace values already stored for --uid
//	--json             Print the full merge outcome as JSON
var lookupCmd = &cobra.Command{
	Use:   "lookup [seed name]",
	Short: "Ask the AI to fill in a seed's details",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		variety, _ := cmd.Flags().GetString("variety")
		section, _ := cmd.Flags().GetString("section")
		uid, _ := cmd.Flags().GetString("uid")
		save, _ := cmd.Flags().GetBool("save")
		asJSON, _ := cmd.Flags().GetBool("json")
		overwrite, _ := cmd.Flags().GetBool("overwrite")

		if len(args) == 0 && uid == "" {
			return fmt.Errorf("please provide a seed name or --uid")
		}

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

		var (
			db      *storage.DB
			closeDB func()
		)
		if save || uid != "" {
			db, closeDB, err = openDB(cmd, save)
			if err != nil {
				return err
			}
			defer closeDB()
		}

		// Names given on the command line count as user edits.
		state := merge.NewFormState()
		if uid != "" {
			seed, err := db.GetSeed(cmd.Context(), uid)
			if err != nil {
				return err
			}
			state = storedState(seed, overwrite)
		}
		if len(args) > 0 {
			state.Set("seed_name", strings.TrimSpace(args[0]))
		}
		if variety != "" {
			state.Set("variety_name", strings.TrimSpace(variety))
		}

		q := ai.Query{
			SeedName:    state.String("seed_name"),
			VarietyName: state.String("variety_name"),
			Section:     section,
		}
		utils.Log.Debugf("Looking up %q (variety %q, section %q)", q.SeedName, q.VarietyName, q.Section)

		session := populate.NewSession(client, reg, utils.Log)
		res, err := session.Populate(cmd.Context(), populate.Request{Query: q, State: state})
		if err != nil {
			return err
		}
		for _, w := range res.Warnings {
			utils.Log.Debugf("Dropped %s (%s): %s", w.RawKey, w.Kind, w.Detail)
		}

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(res); err != nil {
				return err
			}
		} else {
			fmt.Println(res.Summary)
			if res.Dropped > 0 {
				fmt.Printf("(%d unusable fields in the AI answer were ignored)\n", res.Dropped)
			}
		}

		if !save {
			return nil
		}
		if uid == "" {
			seed := storage.SeedFromState("", res.State)
			if err := db.CreateSeed(cmd.Context(), seed, res.Changes); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "Saved %s as %s\n", seed.DisplayName(), seed.UID)
			return nil
		}
		if res.NoOp {
			return nil
		}
		seed := storage.SeedFromState(uid, res.State)
		changes, err := db.UpdateSeed(cmd.Context(), seed, res.Changes)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Updated %d fields of %s\n", len(changes), seed.DisplayName())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(lookupCmd)
	lookupCmd.Flags().String("variety", "", "Variety name")
	lookupCmd.Flags().StringP("section", "s", "", "Only fill this form section")
	lookupCmd.Flags().StringP("uid", "u", "", "UID of a stored seed to fill in")
	lookupCmd.Flags().Bool("save", false, "Save the result to the catalog")
	lookupCmd.Flags().Bool("json", false, "Print the merge outcome as JSON")
	lookupCmd.Flags().Bool("overwrite", false, "Allow the AI to replace values already stored for --uid")
}

// storedState is the form a stored seed is looked up into. Stored values
// count as user edits unless overwrite is set.
func storedState(seed *storage.Seed, overwrite bool) merge.FormState {
	if overwrite {
		return seed.FormState()
	}
	return seed.LockedFormState()
}
