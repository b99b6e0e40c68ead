package loadgen

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/account-lifecycle-service/internal/tools/common"
)

type options struct {
	baseURL     string
	profile     string
	duration    time.Duration
	rps         int
	concurrency int
	seed        int64
	ci          bool
}

func NewRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{Use: "loadgen", Short: "Generate account lifecycle traffic"}
	cmd.PersistentFlags().StringVar(&opts.baseURL, "base-url", "http://localhost:8080", "API base URL")
	cmd.PersistentFlags().StringVar(&opts.profile, "profile", "mixed", "traffic profile: auth|mixed|error-heavy")
	cmd.PersistentFlags().DurationVar(&opts.duration, "duration", 15*time.Second, "traffic duration")
	cmd.PersistentFlags().IntVar(&opts.rps, "rps", 20, "requests per second")
	cmd.PersistentFlags().IntVar(&opts.concurrency, "concurrency", 6, "concurrent workers")
	cmd.PersistentFlags().Int64Var(&opts.seed, "seed", 42, "random seed")
	cmd.PersistentFlags().BoolVar(&opts.ci, "ci", false, "non-interactive machine-readable output")
	cmd.AddCommand(newRunCommand(opts))
	return cmd
}

func newRunCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run load generation",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := common.Execute(cmd.Context(), common.Invocation{
				Tool:    "loadgen",
				Command: "run",
				CI:      opts.ci,
				Timeout: opts.duration + 15*time.Second,
				Out:     cmd.OutOrStdout(),
				Action: func(ctx context.Context) ([]string, error) {
					res, err := Run(ctx, Config{
						BaseURL:     opts.baseURL,
						Profile:     opts.profile,
						Duration:    opts.duration,
						RPS:         opts.rps,
						Concurrency: opts.concurrency,
						Seed:        opts.seed,
					})
					if err != nil {
						return nil, err
					}
					return []string{
						fmt.Sprintf("total_requests=%d", res.TotalRequests),
						fmt.Sprintf("failures=%d", res.Failures),
						fmt.Sprintf("status_2xx=%d", res.Status2xx),
						fmt.Sprintf("status_4xx=%d", res.Status4xx),
						fmt.Sprintf("status_5xx=%d", res.Status5xx),
						fmt.Sprintf("status_429=%d", res.Status429),
					}, nil
				},
			})
			if err != nil {
				os.Exit(4)
			}
			return nil
		},
	}
}
