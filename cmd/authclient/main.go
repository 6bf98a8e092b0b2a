// Command authclient logs in to an identity service and keeps the session on disk so
// later invocations can query or use it.
//
// Usage:
//
//	authclient [-config file.yaml] [-base-url URL] [-debug] [-audit] <command> [args]
//
// Commands:
//
//	login -u USER -p PASS   log in and cache the session
//	logout                  end the session remotely and locally
//	status [-sync]          ask the server; -sync drops a session it no longer knows
//	whoami                  print the cached session
//	demo-users              list the demo accounts the server advertises
//	refresh                 rotate the bearer token
//	validate                ask the server whether the cached token is still valid
//	has-role ROLE           exit 0 when the cached session holds ROLE
//
// Without -config, settings come from AUTHCLIENT_* variables and an optional .env file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"

	authclient "github.com/MrEthical07/authclient"
	"go.uber.org/zap"
)

const (
	exitOK    = 0
	exitFail  = 1
	exitUsage = 2
)

var errUsage = errors.New("usage")

type command struct {
	usage string
	run   func(ctx context.Context, c *authclient.Client, args []string, out io.Writer) error
}

var commands = map[string]command{
	"login":      {usage: "login -u USER -p PASS", run: cmdLogin},
	"logout":     {usage: "logout", run: cmdLogout},
	"status":     {usage: "status [-sync]", run: cmdStatus},
	"whoami":     {usage: "whoami", run: cmdWhoami},
	"demo-users": {usage: "demo-users", run: cmdDemoUsers},
	"refresh":    {usage: "refresh", run: cmdRefresh},
	"validate":   {usage: "validate", run: cmdValidate},
	"has-role":   {usage: "has-role ROLE", run: cmdHasRole},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("authclient", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		configPath = fs.String("config", "", "YAML config file; AUTHCLIENT_* env is used when empty")
		envFile    = fs.String("env-file", ".env", "dotenv file read before the environment")
		baseURL    = fs.String("base-url", "", "identity service root, overrides config")
		debug      = fs.Bool("debug", false, "development logging on stderr")
		audit      = fs.Bool("audit", false, "write audit events to stderr as JSON lines")
	)
	fs.Usage = func() { printUsage(fs) }
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	rest := fs.Args()
	if len(rest) == 0 {
		fs.Usage()
		return exitUsage
	}
	cmd, ok := commands[rest[0]]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n", rest[0])
		fs.Usage()
		return exitUsage
	}

	cfg, err := loadConfig(*configPath, *envFile)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitFail
	}
	if *baseURL != "" {
		cfg.BaseURL = *baseURL
	}
	// a memory slot would not outlive this process
	if cfg.Session.Backend == authclient.BackendMemory {
		cfg.Session.Backend = authclient.BackendFile
	}

	logger, err := newLogger(*debug)
	if err != nil {
		fmt.Fprintf(stderr, "init logger: %v\n", err)
		return exitFail
	}
	defer func() { _ = logger.Sync() }()

	b := authclient.New().WithConfig(cfg).WithLogger(logger)
	if *audit {
		b.WithAuditSink(authclient.NewJSONWriterSink(stderr))
	}
	client, err := b.Build()
	if err != nil {
		fmt.Fprintf(stderr, "build client: %v\n", err)
		return exitFail
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Warn("close client", zap.Error(err))
		}
	}()

	err = cmd.run(ctx, client, rest[1:], stdout)
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, errUsage):
		fmt.Fprintf(stderr, "usage: authclient %s\n", cmd.usage)
		return exitUsage
	default:
		fmt.Fprintln(stderr, err)
		return exitFail
	}
}

func loadConfig(path, envFile string) (authclient.Config, error) {
	if path != "" {
		return authclient.LoadConfigFile(path)
	}
	if envFile == "" {
		return authclient.LoadConfigFromEnv()
	}
	return authclient.LoadConfigFromEnv(envFile)
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}

func printUsage(fs *flag.FlagSet) {
	out := fs.Output()
	fmt.Fprintln(out, "usage: authclient [flags] <command> [args]")
	fmt.Fprintln(out, "\ncommands:")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(out, "  %s\n", commands[name].usage)
	}
	fmt.Fprintln(out, "\nflags:")
	fs.PrintDefaults()
}

func joinRoles(roles []string) string {
	if len(roles) == 0 {
		return "-"
	}
	return strings.Join(roles, ", ")
}
