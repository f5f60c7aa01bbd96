package main

import (
	"fmt"
	"log"
	"os"

	"pilotopos/internal/export"
	"pilotopos/internal/model"
	"pilotopos/internal/repository"
	"pilotopos/internal/service"
	"pilotopos/pkg/config"
	"pilotopos/pkg/database"
	"pilotopos/pkg/jwt"
	"pilotopos/pkg/logger"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

// env is what every command needs, opened once in Before.
type env struct {
	cfg *config.Config
	log *zap.Logger
	db  *database.DB
}

func main() {
	e := &env{}

	app := &cli.App{
		Name:  "posctl",
		Usage: "maintenance commands for a PilotoPOS deployment",
		Before: func(c *cli.Context) error {
			return e.open(c)
		},
		After: func(c *cli.Context) error {
			if e.db != nil {
				return e.db.Close()
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "migrate",
				Usage: "create or update the tables of the tenant schema",
				Action: func(c *cli.Context) error {
					e.log.Info("schema up to date")
					return nil
				},
			},
			{
				Name:  "create-admin",
				Usage: "create the admin account, or reset its password and reactivate it",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "username",
						Aliases: []string{"u"},
						Value:   "admin",
						EnvVars: []string{"ADMIN_USER"},
					},
					&cli.StringFlag{
						Name:     "password",
						Aliases:  []string{"p"},
						EnvVars:  []string{"ADMIN_PASSWORD"},
						Required: true,
					},
				},
				Action: e.createAdmin,
			},
			{
				Name:   "export",
				Usage:  "write productos.json and historial.json once",
				Action: e.export,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("❌ %v", err)
	}
}

func (e *env) open(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	zl, err := logger.InitLogger(&logger.LogConfig{
		Level:       cfg.LogLevel,
		Environment: cfg.Env,
		ServiceName: "posctl",
	})
	if err != nil {
		return errors.Wrap(err, "init logger")
	}
	db, err := database.Connect(cfg.Database())
	if err != nil {
		return err
	}
	if err := db.Migrate(c.Context, cfg.Tenant(), model.All()...); err != nil {
		db.Close()
		return err
	}
	e.cfg, e.log, e.db = cfg, zl, db
	return nil
}

func (e *env) createAdmin(c *cli.Context) error {
	// The issuer is unused here; EnsureAdmin never signs tokens.
	issuer := jwt.NewIssuer(e.cfg.JWTSecret, 0, e.cfg.ServiceName)
	auth := service.NewAuthService(e.db, repository.NewUserRepo(), issuer, nil, e.log)

	username := c.String("username")
	created, err := auth.EnsureAdmin(c.Context, e.cfg.Tenant(), username, c.String("password"))
	if err != nil {
		return err
	}
	if created {
		fmt.Printf("✅ Admin user %q created\n", username)
	} else {
		fmt.Printf("✅ Admin user %q updated and reactivated\n", username)
	}
	return nil
}

func (e *env) export(c *cli.Context) error {
	mirror := export.NewMirror(e.cfg.ExportDir(), e.db, repository.NewProductRepo(), repository.NewSaleRepo(), e.log, nil)
	tenant := e.cfg.Tenant()
	if err := mirror.Refresh(c.Context, tenant); err != nil {
		return err
	}
	fmt.Printf("✅ Export written to %s\n", mirror.Dir(tenant))
	return nil
}
