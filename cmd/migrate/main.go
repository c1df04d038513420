package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/urfave/cli/v2"

	"libraryapi/db"
	"libraryapi/internal/config"
	"libraryapi/internal/platform/postgres"
)

func main() {
	config.LoadEnvFiles()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	dirFlag := &cli.StringFlag{
		Name:    "dir",
		Usage:   "read migrations from this directory instead of the embedded set",
		EnvVars: []string{"MIGRATIONS_DIR"},
	}
	dsnFlag := &cli.StringFlag{
		Name:    "dsn",
		Usage:   "PostgreSQL connection string",
		EnvVars: []string{"DB_DSN"},
		Value:   config.DatabaseDSN(),
	}

	return &cli.App{
		Name:  "migrate",
		Usage: "apply or roll back the library database schema",
		Flags: []cli.Flag{dirFlag, dsnFlag},
		Commands: []*cli.Command{
			{
				Name:   "up",
				Usage:  "apply all pending migrations",
				Action: withDB(goose.UpContext),
			},
			{
				Name:   "down",
				Usage:  "roll back the latest migration",
				Action: withDB(goose.DownContext),
			},
			{
				Name:   "status",
				Usage:  "print applied and pending migrations",
				Action: withDB(goose.StatusContext),
			},
			{
				Name:   "version",
				Usage:  "print the current schema version",
				Action: withDB(goose.VersionContext),
			},
			{
				Name:      "create",
				Usage:     "create a new SQL migration file",
				ArgsUsage: "<name>",
				Action:    create,
			},
		},
	}
}

// source returns the filesystem goose reads from and the directory inside it.
// An empty dir selects the migrations compiled into the binary.
func source(dir string) (fs.FS, string) {
	if dir == "" {
		return db.Migrations, db.MigrationsDir
	}
	return nil, dir
}

type gooseFunc func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error

func withDB(run gooseFunc) cli.ActionFunc {
	return func(c *cli.Context) error {
		pool, err := postgres.Open(c.Context, c.String("dsn"), 5*time.Second)
		if err != nil {
			return fmt.Errorf("connect %s: %w", config.RedactDSN(c.String("dsn")), err)
		}
		defer pool.Close()

		sqlDB := stdlib.OpenDBFromPool(pool)
		defer sqlDB.Close()

		fsys, dir := source(c.String("dir"))
		goose.SetBaseFS(fsys)
		if err := goose.SetDialect("postgres"); err != nil {
			return err
		}

		if err := run(c.Context, sqlDB, dir); err != nil {
			return fmt.Errorf("%s: %w", c.Command.Name, err)
		}
		log.Printf("%s: done", c.Command.Name)
		return nil
	}
}

func create(c *cli.Context) error {
	name := c.Args().First()
	if name == "" {
		return errors.New("create: migration name is required")
	}

	dir := c.String("dir")
	if dir == "" {
		dir = config.MigrationsDir()
	}
	goose.SetBaseFS(nil)
	if err := goose.Create(nil, dir, name, "sql"); err != nil {
		return fmt.Errorf("create: %w", err)
	}
	return nil
}
