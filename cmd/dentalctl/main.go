package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"dentalflow/internal/client"
	"dentalflow/internal/logging"
)

const usage = `usage: dentalctl [global flags] <command> [flags]

commands:
  register  -name -email -password
  login     -email -password
  logout
  whoami
  list      [-q query]
  create    -patient -phone [-email] -date dd/mm/yyyy -time hh:mm -procedure [-notes]
  edit      -id [-patient -phone -email -date -time -procedure -notes -status]
  delete    -id
  watch     [-topic all]

global flags:
`

func main() {
	logging.Setup(envOrDefault("DENTALFLOW_LOG_LEVEL", "warn"), false)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "dentalctl:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("dentalctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	addr := fs.String("addr", envOrDefault("DENTALFLOW_ADDR", "localhost:50051"), "server gRPC address")
	sessionPath := fs.String("session", strings.TrimSpace(os.Getenv("DENTALFLOW_SESSION")), "session file (default in the user config dir)")
	amqpURL := fs.String("amqp", strings.TrimSpace(os.Getenv("AMQP_URL")), "broker URL for watch")
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return fmt.Errorf("missing command")
	}

	path := *sessionPath
	if path == "" {
		var err error
		if path, err = client.DefaultSessionPath(); err != nil {
			return err
		}
	}
	remote, cc, err := client.Dial(*addr, client.NewFileSessionStore(path))
	if err != nil {
		return err
	}
	defer cc.Close()

	a := newApp(remote, stdout)
	a.amqpURL = *amqpURL
	return a.dispatch(ctx, fs.Arg(0), fs.Args()[1:])
}

func envOrDefault(name, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return v
	}
	return fallback
}
