package cmd

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/seedkeeper/seedkeeper/pkg/storage"
)

// dbCmd represents the db command
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Interact with the seedkeeper database",
}

// shellCmd represents the shell command
var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start an interactive shell to the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		dsn, err := dbLocation(cmd)
		if err != nil {
			return err
		}

		client, clientArgs := "sqlite3", []string{dsn}
		if storage.IsPostgresDSN(dsn) {
			client = "psql"
		} else if _, err := os.Stat(dsn); os.IsNotExist(err) {
			return fmt.Errorf("database file not found: %s", dsn)
		}

		clientPath, err := exec.LookPath(client)
		if err != nil {
			return fmt.Errorf("%s command not found in your PATH. Please install it to use the db shell", client)
		}

		if client == "sqlite3" {
			// Print schema first
			fmt.Println("--> Database schema:")
			schemaCmd := exec.Command(clientPath, dsn, ".schema")
			schemaCmd.Stdout = os.Stdout
			schemaCmd.Stderr = os.Stderr
			if err := schemaCmd.Run(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: couldn't retrieve schema: %v\n", err)
			}
		}
		fmt.Println("\n--> Starting interactive shell... (Ctrl+D to exit)")

		c := exec.Command(clientPath, clientArgs...)
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr

		return c.Run()
	},
}

// pathCmd prints where the catalog lives.
var pathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the database location",
	RunE: func(cmd *cobra.Command, args []string) error {
		dsn, err := dbLocation(cmd)
		if err != nil {
			return err
		}
		fmt.Println(dsn)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dbCmd)
	dbCmd.AddCommand(shellCmd)
	dbCmd.AddCommand(pathCmd)
}
