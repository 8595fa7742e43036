package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Exit codes. A gate failure is never reported as exitError.
const (
	exitPass     = 0
	exitGateFail = 1
	exitError    = 2
)

// errGateFailed is returned by commands whose checks ran to completion but
// did not pass. main maps it to exitGateFail without printing it.
var errGateFailed = errors.New("gate failed")

func main() {
	os.Exit(run(newRootCmd(), os.Args[1:], os.Stdout, os.Stderr))
}

// run executes root and maps its outcome to an exit code.
func run(root *cobra.Command, args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	switch {
	case err == nil:
		return exitPass
	case errors.Is(err, errGateFailed):
		return exitGateFail
	default:
		fmt.Fprintln(stderr, "Error:", err)
		return exitError
	}
}
