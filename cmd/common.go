package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/seedkeeper/seedkeeper/internal/utils"
	"github.com/seedkeeper/seedkeeper/pkg/ai"
	"github.com/seedkeeper/seedkeeper/pkg/schema"
	"github.com/seedkeeper/seedkeeper/pkg/storage"
)

// loadRegistry returns the built-in field registry with the configured
// overrides file applied.
func loadRegistry() (*schema.Registry, error) {
	reg := schema.Default()
	path := viper.GetString("schema.overrides")
	if path == "" {
		return reg, nil
	}
	o, err := schema.LoadOverrides(path)
	if err != nil {
		return nil, err
	}
	utils.Log.Debugf("Applying schema overrides from %s", path)
	return reg.Apply(o)
}

// dbLocation picks the database from --dbpath, then db.path, then the
// default file.
func dbLocation(cmd *cobra.Command) (string, error) {
	dbPath, _ := cmd.Flags().GetString("dbpath")
	dbPath = utils.FirstNonEmpty(dbPath, viper.GetString("db.path"))
	if storage.IsPostgresDSN(dbPath) {
		return dbPath, nil
	}
	return utils.GetAbsDBPath(dbPath)
}

// openDB opens the catalog. With write set, SQLite files are also locked so
// two CLI processes don't write at once. The returned func closes both.
func openDB(cmd *cobra.Command, write bool) (*storage.DB, func(), error) {
	dsn, err := dbLocation(cmd)
	if err != nil {
		return nil, nil, err
	}

	var lock *utils.DBLock
	if write && !storage.IsPostgresDSN(dsn) {
		lock, err = utils.NewDBLock(dsn)
		if err != nil {
			return nil, nil, err
		}
		if err := lock.Lock(cmd.Context()); err != nil {
			return nil, nil, err
		}
	}

	db, err := storage.Open(dsn)
	if err != nil {
		if lock != nil {
			lock.Unlock()
		}
		return nil, nil, fmt.Errorf("could not open database: %w", err)
	}

	closer := func() {
		db.Close()
		if lock != nil {
			if err := lock.Unlock(); err != nil {
				utils.Log.Warn(err)
			}
		}
	}
	return db, closer, nil
}

// newAIClient builds the configured AI client. The API key falls back to
// the provider's usual environment variable.
func newAIClient(reg *schema.Registry) (ai.Client, error) {
	provider := strings.ToLower(viper.GetString("ai.provider"))

	var envKey string
	switch provider {
	case "openai":
		envKey = os.Getenv("OPENAI_API_KEY")
	default:
		envKey = os.Getenv("GEMINI_API_KEY")
	}
	apiKey := utils.FirstNonEmpty(viper.GetString("ai.api_key"), envKey)
	if apiKey == "" {
		return nil, fmt.Errorf("no API key for %s: set ai.api_key in ~/.seedkeeper.yaml", provider)
	}

	return ai.NewClient(ai.Config{
		Provider:    provider,
		APIKey:      apiKey,
		Model:       viper.GetString("ai.model"),
		Endpoint:    viper.GetString("ai.endpoint"),
		Timeout:     viper.GetDuration("ai.timeout"),
		MaxAttempts: viper.GetInt("ai.max_attempts"),
		Registry:    reg,
	})
}
