package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"golang.org/x/crypto/bcrypt"

	"github.com/padraicbc/trainerpages/ai"
	"github.com/padraicbc/trainerpages/blob"
	"github.com/padraicbc/trainerpages/config"
	"github.com/padraicbc/trainerpages/db"
	"github.com/padraicbc/trainerpages/models"
	"github.com/padraicbc/trainerpages/site"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "trainerctl",
		Short:        "Trainer Pages admin tasks",
		SilenceUsage: true,
	}
	root.AddCommand(
		newTablesCmd(),
		newHashPasscodeCmd(),
		newGenerateCmd(),
		newDomainCmd(),
	)
	return root
}

// openDB reads the configuration and connects to its database.
func openDB(ctx context.Context) (*config.Config, *bun.DB, error) {
	cfg, err := config.Read()
	if err != nil {
		return nil, nil, err
	}
	bdb, err := db.Open(cfg.DSN(), cfg.Debug)
	if err != nil {
		return nil, nil, err
	}
	if err := bdb.PingContext(ctx); err != nil {
		bdb.Close()
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	return cfg, bdb, nil
}

func newTablesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "Create tables and indexes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_, bdb, err := openDB(ctx)
			if err != nil {
				return err
			}
			defer bdb.Close()

			if err := db.CreateTables(ctx, bdb); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "tables ready")
			return nil
		},
	}
}

func newHashPasscodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-passcode <passcode>",
		Short: "Print a bcrypt hash for ADMIN_PASSCODE_HASH",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if args[0] == "" {
				return errors.New("passcode must not be empty")
			}
			hash, err := bcrypt.GenerateFromPassword([]byte(args[0]), bcrypt.DefaultCost)
			if err != nil {
				return fmt.Errorf("bcrypt: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(hash))
			return nil
		},
	}
}

func newGenerateCmd() *cobra.Command {
	var enhance bool

	cmd := &cobra.Command{
		Use:   "generate <submission-id>",
		Short: "Build and publish an approved trainer's document and microsite",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid submission id: %w", err)
			}
			ctx := cmd.Context()
			cfg, bdb, err := openDB(ctx)
			if err != nil {
				return err
			}
			defer bdb.Close()

			gen, err := newGenerator(ctx, cfg, bdb)
			if err != nil {
				return err
			}
			res, err := gen.Generate(ctx, id, enhance)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "document: %s\n", res.DocumentURL)
			fmt.Fprintf(out, "site: %s\n", res.SiteURL)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&enhance, "enhance", "e", false, "Rewrite the copy with the configured AI provider first")
	return cmd
}

func newGenerator(ctx context.Context, cfg *config.Config, bdb *bun.DB) (*site.Generator, error) {
	store, err := blob.New(ctx, cfg.Blob)
	if err != nil {
		return nil, err
	}
	renderer, err := site.NewRenderer()
	if err != nil {
		return nil, err
	}
	rewriter, err := ai.New(ctx, cfg.AI)
	if err != nil && !errors.Is(err, ai.ErrDisabled) {
		return nil, err
	}
	return &site.Generator{DB: bdb, Blob: store, Renderer: renderer, Rewriter: rewriter}, nil
}

func newDomainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "domain",
		Short: "Manage custom domains",
	}
	cmd.AddCommand(newDomainAddCmd())
	return cmd
}

func newDomainAddCmd() *cobra.Command {
	var primary bool

	cmd := &cobra.Command{
		Use:   "add <hostname> <trainer-slug>",
		Short: "Map a hostname to a trainer",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			host, err := models.NormalizeHostname(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			_, bdb, err := openDB(ctx)
			if err != nil {
				return err
			}
			defer bdb.Close()

			d := &models.DomainMapping{Hostname: host, TrainerSlug: args[1], IsPrimary: primary}
			if err := db.AddDomain(ctx, bdb, d); err != nil {
				return fmt.Errorf("add %s: %w", host, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s (primary=%t)\n", d.Hostname, d.TrainerSlug, d.IsPrimary)
			return nil
		},
	}

	cmd.Flags().BoolVar(&primary, "primary", false, "Make this the trainer's primary hostname")
	return cmd
}
