package main

import (
	"context"

	"github.com/alecthomas/kong"

	"github.com/josemwas/HR-management/cmd/api/internal/commands"
)

var (
	version = "dev"
	commit  = ""
	cli     struct {
		Config     string `help:"path to a YAML config file" type:"path" env:"HR_CONFIG"`
		Dev        bool   `help:"development mode: console logs at debug level" env:"HR_DEV"`
		Listen     string `help:"HTTP listen address" env:"HR_LISTEN"`
		GRPCListen string `help:"gRPC health listen address" name:"grpc-listen" env:"HR_GRPC_LISTEN"`
		Store      string `help:"storage backend (postgres or memory)" env:"HR_STORE"`
		DSN        string `help:"PostgreSQL connection string" name:"pg-dsn" env:"HR_PG_DSN"`
		AuthSecret string `help:"HS256 token signing secret" env:"HR_AUTH_SECRET"`
		NATSURL    string `help:"NATS URL for audit fan-out" name:"nats-url" env:"HR_NATS_URL"`
		Version    kong.VersionFlag

		TrustedProxies []string `help:"proxy addresses or CIDRs whose X-Forwarded-For is trusted" env:"HR_TRUSTED_PROXIES"`

		Serve          commands.ServeCmd          `cmd:"" help:"Start the HTTP API and gRPC health listener"`
		Bootstrap      commands.BootstrapCmd      `cmd:"" help:"Create an organization with default roles and settings"`
		CreateEmployee commands.CreateEmployeeCmd `cmd:"" help:"Create an employee account"`
	}
)

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Name("hr-api"),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{
		ConfigPath: cli.Config,
		Dev:        cli.Dev,
		Version:    version,
		Commit:     commit,
		Overrides: commands.Overrides{
			Listen:     cli.Listen,
			GRPCListen: cli.GRPCListen,
			Store:      cli.Store,
			DSN:        cli.DSN,
			AuthSecret: cli.AuthSecret,
			NATSURL:    cli.NATSURL,

			TrustedProxies: cli.TrustedProxies,
		},
	})
	cmd.FatalIfErrorf(err)
}
