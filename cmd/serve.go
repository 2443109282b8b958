package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/seedkeeper/seedkeeper/internal/server"
	"github.com/seedkeeper/seedkeeper/internal/utils"
	"github.com/seedkeeper/seedkeeper/pkg/populate"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the seedkeeper HTTP API",
	Long:  `Start a web server exposing the catalog and AI lookups as a JSON API.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := loadRegistry()
		if err != nil {
			return err
		}
		client, err := newAIClient(reg)
		if err != nil {
			return err
		}

		db, closeDB, err := openDB(cmd, false)
		if err != nil {
			return err
		}
		defer closeDB()

		// Auth
		user, _ := cmd.Flags().GetString("username")
		pass, _ := cmd.Flags().GetString("password")
		addr, _ := cmd.Flags().GetString("listen")
		user = utils.FirstNonEmpty(user, viper.GetString("server.username"))
		pass = utils.FirstNonEmpty(pass, viper.GetString("server.password"))
		if user == "" && pass == "" {
			utils.Log.Warn("No basic auth configured, the API is open to anyone who can reach it")
		}

		srv := server.New(db, reg, populate.NewSessions(client, reg, utils.Log), user, pass)
		return srv.Start(addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("listen", "b", ":9999", "Address to bind the server to")
	serveCmd.Flags().StringP("username", "u", "", "Username for basic auth (optional)")
	serveCmd.Flags().StringP("password", "p", "", "Password for basic auth (optional)")
}
