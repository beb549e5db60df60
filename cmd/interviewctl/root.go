package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	httpserver "github.com/fairyhunter13/ai-interview-coach/internal/adapter/httpserver"
	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-coach/internal/adapter/repo/postgres"
	"github.com/fairyhunter13/ai-interview-coach/internal/config"
	"github.com/fairyhunter13/ai-interview-coach/internal/seed"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "interviewctl",
		Short:         "Operator tools for the interview coach",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("db", "", "Postgres DSN (overrides DB_URL)")
	root.AddCommand(newMigrateCmd(), newSeedCmd(), newTokenCmd(), newHashPasswordCmd())
	return root
}

// loadConfig reads the environment and applies --db.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	if dsn, _ := cmd.Flags().GetString("db"); dsn != "" {
		cfg.DBURL = dsn
	}
	slog.SetDefault(observability.SetupLogger(cfg))
	return cfg, nil
}

func openPool(ctx context.Context, cmd *cobra.Command) (*pgxpool.Pool, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return postgres.NewPool(ctx, cfg.DBURL)
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			pool, err := openPool(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer pool.Close()
			applied, err := postgres.Migrate(cmd.Context(), pool)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s) %v\n", len(applied), applied)
			return nil
		},
	}
}

func newSeedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Import subjects and questions from a YAML or JSON bank",
		RunE: func(cmd *cobra.Command, _ []string) error {
			file, _ := cmd.Flags().GetString("file")
			pool, err := openPool(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer pool.Close()
			if _, err := postgres.Migrate(cmd.Context(), pool); err != nil {
				return err
			}
			st, err := seed.LoadFile(cmd.Context(), postgres.NewContentRepo(pool), file)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d subject(s), %d question(s)\n", st.Subjects, st.Questions)
			return nil
		},
	}
	cmd.Flags().String("file", "configs/question_bank.yaml", "question bank path")
	return cmd
}

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for a user (development)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			user, _ := cmd.Flags().GetString("user")
			ttl, _ := cmd.Flags().GetDuration("ttl")
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if secret, _ := cmd.Flags().GetString("secret"); secret != "" {
				cfg.AuthJWTSecret = secret
			}
			tok, err := httpserver.NewTokenAuth(cfg.AuthJWTSecret, cfg.AuthJWTIssuer).Issue(user, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().String("user", "", "user id placed in the sub claim")
	cmd.Flags().Duration("ttl", 24*time.Hour, "token lifetime")
	cmd.Flags().String("secret", "", "signing secret (overrides AUTH_JWT_SECRET)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password <password>",
		Short: "Print an argon2id hash for METRICS_PASSWORD_HASH",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := httpserver.HashPassword(args[0], httpserver.DefaultArgon2Params)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), h)
			return nil
		},
	}
}
