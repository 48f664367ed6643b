package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/DoyleJ11/teamfinder/internal/config"
	"github.com/DoyleJ11/teamfinder/internal/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) (err error) {
	db, err := config.LoadDatabase()
	if err != nil {
		return err
	}
	log, err := newLogger("info", "console")
	if err != nil {
		return err
	}

	st, err := store.Open(db.URL, log)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, st.Close()) }()

	if err := st.Migrate(cmd.Context()); err != nil {
		return err
	}
	log.Info("schema up to date")
	return nil
}
