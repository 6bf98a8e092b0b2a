package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	authclient "github.com/MrEthical07/authclient"
	"github.com/MrEthical07/authclient/permission"
)

var errNotHeld = errors.New("role not held")

func cmdLogin(ctx context.Context, c *authclient.Client, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	user := fs.String("u", "", "username or email")
	pass := fs.String("p", "", "password; AUTHCLIENT_PASSWORD when empty")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if *pass == "" {
		*pass = os.Getenv(authclient.EnvPrefix + "PASSWORD")
	}
	if *user == "" || *pass == "" {
		return errUsage
	}

	res := c.Login(ctx, *user, *pass)
	if !res.Success {
		return errors.New(res.Message)
	}
	fmt.Fprintln(out, res.Message)
	fmt.Fprintf(out, "user:  %s\n", res.User.Username)
	fmt.Fprintf(out, "roles: %s\n", joinRoles(permission.Roles(res.User.Authorities)))
	return nil
}

func cmdLogout(ctx context.Context, c *authclient.Client, _ []string, out io.Writer) error {
	res := c.Logout(ctx)
	if !res.Success {
		return errors.New(res.Message)
	}
	fmt.Fprintln(out, res.Message)
	return nil
}

func cmdStatus(ctx context.Context, c *authclient.Client, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	sync := fs.Bool("sync", false, "clear the cached session when the server no longer knows it")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	var res authclient.StatusResult
	if *sync {
		rec := c.Reconcile(ctx)
		res = rec.StatusResult
		if rec.Cleared {
			fmt.Fprintln(out, "cached session cleared")
		}
	} else {
		res = c.CheckAuthStatus(ctx)
	}
	if !res.Success {
		return errors.New(res.Message)
	}
	if !res.Authenticated {
		fmt.Fprintln(out, "not authenticated")
		return nil
	}
	fmt.Fprintf(out, "authenticated as %s\n", res.User.Username)
	fmt.Fprintf(out, "roles: %s\n", joinRoles(permission.Roles(res.User.Authorities)))
	return nil
}

func cmdWhoami(ctx context.Context, c *authclient.Client, _ []string, out io.Writer) error {
	sess := c.Session(ctx)
	if sess == nil {
		return errors.New("not logged in")
	}
	fmt.Fprintf(out, "user:      %s\n", sess.Username)
	fmt.Fprintf(out, "roles:     %s\n", joinRoles(permission.Roles(sess.Authorities)))
	fmt.Fprintf(out, "logged in: %s\n", sess.LoginTime.Format(time.RFC3339))
	switch {
	case !sess.HasToken():
		fmt.Fprintln(out, "token:     none (server session)")
	case sess.TokenExpiresAt.IsZero():
		fmt.Fprintln(out, "token:     bearer")
	default:
		fmt.Fprintf(out, "token:     bearer, expires %s\n", sess.TokenExpiresAt.Format(time.RFC3339))
	}
	return nil
}

func cmdDemoUsers(ctx context.Context, c *authclient.Client, _ []string, out io.Writer) error {
	res := c.DemoUsers(ctx)
	if !res.Success {
		return errors.New(res.Message)
	}
	names := make([]string, 0, len(res.Users))
	for name := range res.Users {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(out, "%-12s %s\n", name, res.Users[name])
	}
	if res.Instruction != "" {
		fmt.Fprintln(out, res.Instruction)
	}
	return nil
}

func cmdRefresh(ctx context.Context, c *authclient.Client, _ []string, out io.Writer) error {
	res := c.RefreshToken(ctx)
	if !res.Success {
		return errors.New(res.Message)
	}
	fmt.Fprintln(out, res.Message)
	return nil
}

func cmdValidate(ctx context.Context, c *authclient.Client, _ []string, out io.Writer) error {
	res := c.ValidateToken(ctx)
	if !res.Success {
		return errors.New(res.Message)
	}
	if !res.Valid {
		return errors.New(res.Message)
	}
	fmt.Fprintf(out, "valid for %s\n", res.RemainingTime.Round(time.Second))
	if res.ExpiringSoon {
		fmt.Fprintln(out, "expiring soon; run refresh")
	}
	return nil
}

func cmdHasRole(ctx context.Context, c *authclient.Client, args []string, out io.Writer) error {
	if len(args) != 1 {
		return errUsage
	}
	if !c.HasRole(ctx, args[0]) {
		fmt.Fprintln(out, "no")
		return errNotHeld
	}
	fmt.Fprintln(out, "yes")
	return nil
}
