package migrate

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/sandeepkv93/account-lifecycle-service/internal/config"
	"github.com/sandeepkv93/account-lifecycle-service/internal/database"
	"github.com/sandeepkv93/account-lifecycle-service/internal/repository"
	"github.com/sandeepkv93/account-lifecycle-service/internal/tools/common"
)

const toolName = "migrate"

type options struct {
	envFile string
	timeout time.Duration
	ci      bool
}

// action is the body of a subcommand. It receives an open database and
// returns the lines to report.
type action func(ctx context.Context, cfg *config.Config, db *gorm.DB) ([]string, error)

func NewRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Account database tooling",
	}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "path to env file")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "operation timeout")
	cmd.PersistentFlags().BoolVar(&opts.ci, "ci", false, "non-interactive machine-readable output")

	cmd.AddCommand(
		newSubcommand(opts, "up", "Apply schema migrations", upAction),
		newSubcommand(opts, "status", "Check database reachability and schema", statusAction),
		newSubcommand(opts, "plan", "Show migration plan (dry-run)", planAction),
		newSubcommand(opts, "purge", "Delete expired one-time codes and revocations", purgeAction(time.Now)),
	)
	return cmd
}

func newSubcommand(opts *options, use, short string, fn action) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := common.Execute(cmd.Context(), common.Invocation{
				Tool:    toolName,
				Command: use,
				CI:      opts.ci,
				Timeout: opts.timeout,
				Out:     cmd.OutOrStdout(),
				Action: func(ctx context.Context) ([]string, error) {
					cfg, db, err := loadConfigDB(opts.envFile)
					if err != nil {
						return nil, err
					}
					sqlDB, err := db.DB()
					if err != nil {
						return nil, err
					}
					defer func() { _ = sqlDB.Close() }()
					return fn(ctx, cfg, db)
				},
			})
			if err != nil {
				os.Exit(3)
			}
			return nil
		},
	}
}

func upAction(ctx context.Context, cfg *config.Config, db *gorm.DB) ([]string, error) {
	pending, err := database.PendingTables(ctx, db)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db.WithContext(ctx)); err != nil {
		return nil, err
	}
	details := []string{"schema migration applied", "service: " + cfg.OTELServiceName}
	if len(pending) > 0 {
		details = append(details, "created tables: "+strings.Join(pending, ", "))
	}
	return details, nil
}

func statusAction(ctx context.Context, cfg *config.Config, db *gorm.DB) ([]string, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	pending, err := database.PendingTables(ctx, db)
	if err != nil {
		return nil, err
	}
	schema := "schema: up to date"
	if len(pending) > 0 {
		schema = "schema: missing " + strings.Join(pending, ", ")
	}
	return []string{"database reachable", "service: " + cfg.OTELServiceName, schema}, nil
}

func planAction(ctx context.Context, _ *config.Config, db *gorm.DB) ([]string, error) {
	names, err := database.TableNames(db)
	if err != nil {
		return nil, err
	}
	pending, err := database.PendingTables(ctx, db)
	if err != nil {
		return nil, err
	}
	details := []string{
		"would apply AutoMigrate for: " + strings.Join(names, ", "),
	}
	if len(pending) > 0 {
		details = append(details, "would create: "+strings.Join(pending, ", "))
	}
	return append(details, "no mutation executed in plan mode"), nil
}

func purgeAction(now func() time.Time) action {
	return func(ctx context.Context, _ *config.Config, db *gorm.DB) ([]string, error) {
		at := now().UTC()
		codes, err := repository.NewOneTimeCodeRepository(db).PurgeExpired(ctx, at)
		if err != nil {
			return nil, fmt.Errorf("purge one-time codes: %w", err)
		}
		revoked, err := repository.NewGormRevocationStore(db).PurgeExpired(ctx, at)
		if err != nil {
			return nil, fmt.Errorf("purge revocations: %w", err)
		}
		return []string{
			fmt.Sprintf("expired one-time codes deleted: %d", codes),
			fmt.Sprintf("expired revocations deleted: %d", revoked),
		}, nil
	}
}

func loadConfigDB(envFile string) (*config.Config, *gorm.DB, error) {
	if err := common.LoadEnvFile(envFile); err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	db, err := database.Open(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, db, nil
}
