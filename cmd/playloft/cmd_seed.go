package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/playloft/playloft/internal/db"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert the demo station pool",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(); err != nil {
			return err
		}
		database, err := db.Connect(cfg)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer db.Close(database)

		if err := db.Migrate(database); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}
		if err := db.Seed(database); err != nil {
			return err
		}
		logger.Info().Msg("station data seeded")
		return nil
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete all sessions and stations (development only)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(); err != nil {
			return err
		}
		database, err := db.Connect(cfg)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer db.Close(database)

		if err := db.Migrate(database); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}
		if err := db.Reset(database); err != nil {
			return err
		}
		logger.Warn().Msg("all stations and sessions deleted")
		return nil
	},
}
