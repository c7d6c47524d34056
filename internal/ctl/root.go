// Package ctl implements clockworkctl, the operator CLI for the Clockwork
// backend: schema migrations, account creation and session revocation.
package ctl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/justlikeclockwork/clockwork/internal/buildinfo"
	"github.com/justlikeclockwork/clockwork/internal/common"
	"github.com/justlikeclockwork/clockwork/internal/logging"
	"github.com/justlikeclockwork/clockwork/internal/server/config"
)

// Test seams for the terminal.
var (
	readPassword = term.ReadPassword
	isTerminal   = term.IsTerminal
	loadConfig   = config.LoadEnvConfig
)

type cli struct {
	open     Opener
	in       *bufio.Reader
	out      io.Writer
	dsn      string
	logLevel string
}

// NewRootCmd builds the clockworkctl command tree. Commands read input from
// in and write results to out.
func NewRootCmd(open Opener, in io.Reader, out io.Writer) *cobra.Command {
	c := &cli{open: open, in: bufio.NewReader(in), out: out}

	cmd := &cobra.Command{
		Use:           "clockworkctl",
		Short:         "Administer the Just Like Clockwork backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(out)
	cmd.PersistentFlags().StringVar(&c.dsn, "dsn", "", "PostgreSQL DSN (overrides DATABASE_URL)")
	cmd.PersistentFlags().StringVar(&c.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "migrate",
			Short: "Apply pending schema migrations",
			Args:  cobra.NoArgs,
			RunE:  c.withBackend(c.migrate),
		},
		&cobra.Command{
			Use:   "useradd <username>",
			Short: "Create an account; the password is read from stdin",
			Args:  cobra.ExactArgs(1),
			RunE:  c.withBackend(c.useradd),
		},
		&cobra.Command{
			Use:   "revoke-all <username>",
			Short: "Revoke every refresh token of an account",
			Args:  cobra.ExactArgs(1),
			RunE:  c.withBackend(c.revokeAll),
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print build information",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintln(c.out, buildinfo.String())
			},
		},
	)
	return cmd
}

type backendFunc func(ctx context.Context, b Backend, args []string) error

func (c *cli) withBackend(fn backendFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		if c.dsn != "" {
			cfg.DatabaseDSN = c.dsn
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		b, err := c.open(ctx, cfg, logging.New(c.logLevel, os.Stderr))
		if err != nil {
			return err
		}
		defer b.Close()

		return fn(ctx, b, args)
	}
}

func (c *cli) migrate(ctx context.Context, b Backend, _ []string) error {
	if err := b.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	fmt.Fprintln(c.out, "migrations applied")
	return nil
}

func (c *cli) useradd(ctx context.Context, b Backend, args []string) error {
	password, err := c.password()
	if err != nil {
		return err
	}
	if password == "" {
		return errors.New("password must not be empty")
	}

	u, err := b.AddUser(ctx, args[0], password)
	if errors.Is(err, common.ErrorAlreadyExists) {
		return fmt.Errorf("user %q already exists", args[0])
	}
	if err != nil {
		return fmt.Errorf("useradd: %w", err)
	}
	fmt.Fprintf(c.out, "created user %s (id %d)\n", u.UserName, u.ID)
	return nil
}

func (c *cli) revokeAll(ctx context.Context, b Backend, args []string) error {
	n, err := b.RevokeAll(ctx, args[0])
	if errors.Is(err, common.ErrorNotFound) {
		return fmt.Errorf("user %q not found", args[0])
	}
	if err != nil {
		return fmt.Errorf("revoke-all: %w", err)
	}
	fmt.Fprintf(c.out, "revoked %d refresh tokens\n", n)
	return nil
}

// password reads without echo from a terminal, otherwise the first line
// of input.
func (c *cli) password() (string, error) {
	fd := int(os.Stdin.Fd())
	if isTerminal(fd) {
		fmt.Fprint(c.out, "Enter password: ")
		pw, err := readPassword(fd)
		fmt.Fprintln(c.out)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		defer common.WipeByteArray(pw)
		return string(pw), nil
	}

	line, err := c.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
