package main

import (
	"github.com/urfave/cli/v2"

	"storefront/pkg/infrastructure/mysql"
)

func migrateUp(c *cli.Context) error {
	return runMigrations(c, mysql.Up)
}

func migrateDown(c *cli.Context) error {
	return runMigrations(c, mysql.Down)
}

func runMigrations(c *cli.Context, direction mysql.Direction) error {
	cfg, closeLog := loadConfig(c)
	defer closeLog()

	db, err := mysql.Open(databaseConfig(cfg))
	if err != nil {
		return err
	}
	defer db.Close()

	return mysql.Migrate(db.DB, direction)
}
