// Command mise prints a minimum-makespan cooking schedule for a plan file.
//
// Usage:
//
//	mise [flags] <plan-file>
//
// The schedule goes to stdout and diagnostics to stderr. The exit status is
// 0 when a schedule was printed, 1 on configuration or solver errors, 2 on
// usage errors and 3 when no schedule exists or none was found in time.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
