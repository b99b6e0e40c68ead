package common

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/sandeepkv93/account-lifecycle-service/internal/observability"
	"github.com/sandeepkv93/account-lifecycle-service/internal/tools/ui"
)

type Action func(ctx context.Context) ([]string, error)

// Invocation describes one tool command run. In CI mode the action runs
// headless and a JSON report is written to Out; otherwise the progress UI
// renders it.
type Invocation struct {
	Tool    string
	Command string
	CI      bool
	Timeout time.Duration
	Out     io.Writer
	Action  Action

	runUI func(ctx context.Context, title string, timeout time.Duration, action func(context.Context) ([]string, error)) ([]string, error)
}

func Execute(ctx context.Context, inv Invocation) (Report, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	out := inv.Out
	if out == nil {
		out = os.Stdout
	}
	runUI := inv.runUI
	if runUI == nil {
		runUI = ui.Run
	}

	start := time.Now()
	var (
		details []string
		err     error
	)
	if inv.CI {
		actx, cancel := withOptionalTimeout(ctx, inv.Timeout)
		details, err = inv.Action(actx)
		cancel()
	} else {
		details, err = runUI(ctx, inv.Tool+" "+inv.Command, inv.Timeout, inv.Action)
	}
	report := newReport(inv.Tool, inv.Command, details, time.Since(start), err)
	observability.RecordToolCommandRun(context.WithoutCancel(ctx), inv.Tool, inv.Command, report.Status())

	if inv.CI {
		if werr := WriteReport(out, report); werr != nil && err == nil {
			err = werr
		}
	}
	return report, err
}

func withOptionalTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
