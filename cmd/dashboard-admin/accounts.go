package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/xnome/dashboard/config"
	"github.com/xnome/dashboard/internal/bootstrap"
	domainauth "github.com/xnome/dashboard/internal/domain/auth"
	"github.com/xnome/dashboard/internal/service"
)

// withServices opens the configured store and wires the services for one command.
func withServices(
	cmdCtx *commandContext,
	f func(ctx context.Context, svc bootstrap.ServiceContainer) error,
) error {
	ctx, stop := signal.NotifyContext(cmdCtx.Ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultCommandTimeout)
	defer cancel()

	cfg := cmdCtx.Config
	if cfg.Store.Backend == config.StoreBackendMemory {
		cmdCtx.Logger.Warn("STORE_BACKEND=memory; changes are discarded when the command exits")
	}

	store, err := bootstrap.OpenStore(ctx, &cfg, cmdCtx.Logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			cmdCtx.Logger.Warn("store close failed", "error", cerr)
		}
	}()

	svc, err := bootstrap.NewServices(bootstrap.ServiceDeps{Config: &cfg, Store: store, Logger: cmdCtx.Logger})
	if err != nil {
		return err
	}
	return f(ctx, svc)
}

// superadminActor is the identity the CLI acts as. Operators running it hold
// the store credentials, so it carries the superadmin's full rights.
func superadminActor(cfg *config.AppConfig) domainauth.Identity {
	email := domainauth.NormalizeEmail(cfg.Auth.SuperadminEmail)
	return domainauth.Identity{
		ID:    "u_" + email,
		Email: email,
		Name:  "dashboard-admin",
		Role:  domainauth.RoleSuperadmin,
	}
}

type accountOptions struct {
	Email string
	Role  string
	TTL   time.Duration
}

type accountFlags struct {
	role  bool
	ttl   bool
	email bool // required
}

func parseAccountFlags(name string, stderr io.Writer, args []string, want accountFlags) (accountOptions, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts accountOptions
	fs.StringVar(&opts.Email, "email", "", "Account email")
	if want.role {
		fs.StringVar(&opts.Role, "role", "", "Role: user, admin")
	}
	if want.ttl {
		fs.DurationVar(&opts.TTL, "ttl", 0, "Token lifetime (defaults to SESSION_TTL)")
	}
	if err := fs.Parse(args); err != nil {
		return accountOptions{}, err
	}

	opts.Email = domainauth.NormalizeEmail(opts.Email)
	if want.email && opts.Email == "" {
		return accountOptions{}, errors.New("--email is required")
	}
	if opts.TTL < 0 {
		return accountOptions{}, errors.New("--ttl must not be negative")
	}
	return opts, nil
}

func runAllowlistList(cmdCtx *commandContext, _ []string) error {
	return withServices(cmdCtx, func(ctx context.Context, svc bootstrap.ServiceContainer) error {
		entries, err := svc.Allowlist.EnsureSeeded(ctx)
		if err != nil {
			return err
		}
		return printAllowlist(cmdCtx.Out, entries)
	})
}

func runAllowlistAdd(cmdCtx *commandContext, args []string) error {
	opts, err := parseAccountFlags("allowlist-add", cmdCtx.Err, args, accountFlags{email: true, role: true})
	if err != nil {
		return err
	}
	return withServices(cmdCtx, func(ctx context.Context, svc bootstrap.ServiceContainer) error {
		entries, err := svc.Allowlist.Add(ctx, superadminActor(&cmdCtx.Config), service.AddAllowlistInput{
			Email: opts.Email,
			Role:  opts.Role,
		})
		if err != nil {
			return err
		}
		return printAllowlist(cmdCtx.Out, entries)
	})
}

func runAllowlistRemove(cmdCtx *commandContext, args []string) error {
	opts, err := parseAccountFlags("allowlist-remove", cmdCtx.Err, args, accountFlags{email: true})
	if err != nil {
		return err
	}
	return withServices(cmdCtx, func(ctx context.Context, svc bootstrap.ServiceContainer) error {
		entries, err := svc.Allowlist.Remove(ctx, superadminActor(&cmdCtx.Config), opts.Email)
		if err != nil {
			return err
		}
		return printAllowlist(cmdCtx.Out, entries)
	})
}

func runUsersList(cmdCtx *commandContext, _ []string) error {
	return withServices(cmdCtx, func(ctx context.Context, svc bootstrap.ServiceContainer) error {
		users, err := svc.Users.List(ctx)
		if err != nil {
			return err
		}
		return printUsers(cmdCtx.Out, users)
	})
}

func runUserSetRole(cmdCtx *commandContext, args []string) error {
	opts, err := parseAccountFlags("user-set-role", cmdCtx.Err, args, accountFlags{email: true, role: true})
	if err != nil {
		return err
	}
	if opts.Role == "" {
		return errors.New("--role is required")
	}
	return withServices(cmdCtx, func(ctx context.Context, svc bootstrap.ServiceContainer) error {
		user, err := svc.Users.SetRole(ctx, superadminActor(&cmdCtx.Config), opts.Email, opts.Role)
		if err != nil {
			return err
		}
		return printUsers(cmdCtx.Out, []domainauth.StoredUser{*user})
	})
}

// runMintToken signs a session for scripted API access. The role is resolved
// from the store on every request, so the token carries none.
func runMintToken(cmdCtx *commandContext, args []string) error {
	opts, err := parseAccountFlags("mint-token", cmdCtx.Err, args, accountFlags{email: true, ttl: true})
	if err != nil {
		return err
	}
	if !strings.Contains(opts.Email, "@") {
		return fmt.Errorf("invalid email %q", opts.Email)
	}
	return withServices(cmdCtx, func(_ context.Context, svc bootstrap.ServiceContainer) error {
		ttl := opts.TTL
		if ttl == 0 {
			ttl = cmdCtx.Config.Auth.SessionTTL
		}
		token, err := svc.Codec.Sign(domainauth.Claims{Email: opts.Email}, ttl)
		if err != nil {
			return fmt.Errorf("sign token: %w", err)
		}
		return writef(cmdCtx.Out, "%s\n", token)
	})
}

func printAllowlist(w io.Writer, entries []domainauth.AllowlistEntry) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if err := writef(tw, "EMAIL\tROLE\tADDED\n"); err != nil {
		return err
	}
	for _, e := range entries {
		if err := writef(tw, "%s\t%s\t%s\n", e.Email, e.Role, formatTime(e.AddedAt)); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func printUsers(w io.Writer, users []domainauth.StoredUser) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if err := writef(tw, "EMAIL\tROLE\tNAME\tLAST LOGIN\n"); err != nil {
		return err
	}
	for _, u := range users {
		lastLogin := "-"
		if u.LastLoginAt != nil {
			lastLogin = formatTime(*u.LastLoginAt)
		}
		name := u.Name
		if name == "" {
			name = "-"
		}
		if err := writef(tw, "%s\t%s\t%s\t%s\n", u.Email, u.Role, name, lastLogin); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}
