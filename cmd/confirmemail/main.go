// Mark user email as confirmed (or not). Password reset works for confirmed emails only
//
//	confirmemail -d postgres://... -e user@example.com
//	confirmemail -d postgres://... -e user@example.com --unconfirm
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/nkiryanov/gopherreset/internal/db"
	"github.com/nkiryanov/gopherreset/internal/repository/postgres"
)

func main() {
	if err := run(context.Background(), os.Getenv, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, getenv func(string) string, args []string, out io.Writer) error {
	fs := pflag.NewFlagSet("confirmemail", pflag.ContinueOnError)
	dsn := fs.StringP("database", "d", getenv("DATABASE_URI"), "database DSN")
	email := fs.StringP("email", "e", "", "user email")
	unconfirm := fs.Bool("unconfirm", false, "mark email as not confirmed")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *dsn == "" {
		return errors.New("database DSN is required")
	}
	if *email == "" {
		return errors.New("email is required")
	}

	pool, err := db.Connect(ctx, *dsn)
	if err != nil {
		return err
	}
	defer pool.Close()

	users := postgres.NewStorage(pool).User()
	user, err := users.GetUserByEmail(ctx, *email)
	if err != nil {
		return fmt.Errorf("can't get user %s. Err: %w", *email, err)
	}

	if err := users.SetEmailConfirmed(ctx, user.ID, !*unconfirm); err != nil {
		return err
	}

	fmt.Fprintf(out, "%s email_confirmed=%t\n", user.Email, !*unconfirm)
	return nil
}
