package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/alecthomas/kong"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/josemwas/HR-management/internal/migrate"
	"github.com/josemwas/HR-management/internal/obs"
	"github.com/josemwas/HR-management/migrations"
)

type globals struct {
	DSN        string        `help:"PostgreSQL connection string" name:"dsn" env:"HR_PG_DSN" required:""`
	Migrations string        `help:"directory with *.up.sql/*.down.sql files; defaults to the embedded schema" type:"existingdir"`
	Seeds      string        `help:"directory with seed files; defaults to the embedded seeds" type:"existingdir"`
	Timeout    time.Duration `help:"overall timeout" default:"60s"`
	Dev        bool          `help:"console logs" env:"HR_DEV"`
}

// manager opens the database and builds a migrate.Manager. The returned func closes the
// database.
func (g *globals) manager() (*migrate.Manager, func(), error) {
	db, err := sql.Open("pgx", g.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open db: %w", err)
	}
	var schema, seeds fs.FS = migrations.Schema(), migrations.Seeds()
	if g.Migrations != "" {
		schema = os.DirFS(g.Migrations)
	}
	if g.Seeds != "" {
		seeds = os.DirFS(g.Seeds)
	}
	return migrate.NewManager(db, schema, seeds), func() { _ = db.Close() }, nil
}

type upCmd struct{}

func (upCmd) Run(ctx context.Context, g *globals) error {
	mgr, closeDB, err := g.manager()
	if err != nil {
		return err
	}
	defer closeDB()
	applied, err := mgr.Up(ctx)
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		fmt.Println("schema is up to date")
	}
	for _, name := range applied {
		fmt.Println("applied", name)
	}
	return nil
}

type downCmd struct{}

func (downCmd) Run(ctx context.Context, g *globals) error {
	mgr, closeDB, err := g.manager()
	if err != nil {
		return err
	}
	defer closeDB()
	name, err := mgr.Down(ctx)
	if errors.Is(err, migrate.ErrNothingToRollback) {
		fmt.Println("nothing to roll back")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Println("rolled back", name)
	return nil
}

type seedCmd struct{}

func (seedCmd) Run(ctx context.Context, g *globals) error {
	mgr, closeDB, err := g.manager()
	if err != nil {
		return err
	}
	defer closeDB()
	applied, err := mgr.Seed(ctx)
	if err != nil {
		return err
	}
	for _, name := range applied {
		fmt.Println("seeded", name)
	}
	return nil
}

type statusCmd struct{}

func (statusCmd) Run(ctx context.Context, g *globals) error {
	mgr, closeDB, err := g.manager()
	if err != nil {
		return err
	}
	defer closeDB()
	applied, err := mgr.Status(ctx)
	if err != nil {
		return err
	}
	pending, err := mgr.Pending(ctx)
	if err != nil {
		return err
	}
	for _, name := range applied {
		fmt.Println("applied ", name)
	}
	for _, name := range pending {
		fmt.Println("pending ", name)
	}
	return nil
}

var cli struct {
	Globals globals `embed:""`

	Up     upCmd     `cmd:"" help:"Apply pending migrations"`
	Down   downCmd   `cmd:"" help:"Roll back the latest migration"`
	Seed   seedCmd   `cmd:"" help:"Apply seed files that have not run yet"`
	Status statusCmd `cmd:"" help:"List applied and pending migrations"`
}

func main() {
	kctx := kong.Parse(&cli, kong.Name("hr-migrate"))
	obs.SetupLogger(cli.Globals.Dev, "info")

	ctx, cancel := context.WithTimeout(context.Background(), cli.Globals.Timeout)
	defer cancel()
	kctx.BindTo(ctx, (*context.Context)(nil))
	err := kctx.Run(&cli.Globals)
	kctx.FatalIfErrorf(err)
}
