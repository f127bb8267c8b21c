// Command admin manages local dashboard accounts without a browser.
//
// USAGE:
//
//	admin [-db path] register -email jane99@x.com -gender female
//	admin [-db path] users
//
// register prompts for the password without echo. The database path
// defaults to DB_PATH (or data/dashboard.db), the same file the server
// uses; WAL mode lets both have it open at once.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"golang.org/x/term"

	"github.com/sakif/pulse-dashboard/internal/auth"
	"github.com/sakif/pulse-dashboard/internal/credentials"
	sqliteRepo "github.com/sakif/pulse-dashboard/internal/repository/sqlite"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// passwords is swapped for a low-cost hasher in tests.
var passwords = auth.NewPasswordService()

type storageConfig struct {
	DBPath string `env:"DB_PATH" envDefault:"data/dashboard.db"`
}

var errUsage = errors.New("usage: admin [-db path] register -email EMAIL -gender male|female | users")

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	if err := run(context.Background(), os.Args[1:], os.Stdout, logger); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer, logger *slog.Logger) error {
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return fmt.Errorf("load .env file: %w", err)
		}
	}
	var cfg storageConfig
	if err := env.Parse(&cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	global := flag.NewFlagSet("admin", flag.ContinueOnError)
	global.SetOutput(out)
	dbPath := global.String("db", cfg.DBPath, "path to the dashboard database")
	if err := global.Parse(args); err != nil {
		return err
	}
	if global.NArg() == 0 {
		return errUsage
	}

	db, err := sqliteRepo.New(*dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	store := credentials.NewStore(db, passwords, logger)

	switch cmd, rest := global.Arg(0), global.Args()[1:]; cmd {
	case "register":
		return register(ctx, store, rest, out)
	case "users":
		return listUsers(ctx, store, out)
	default:
		return fmt.Errorf("unknown command %q\n%w", cmd, errUsage)
	}
}

func register(ctx context.Context, store *credentials.Store, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	fs.SetOutput(out)
	email := fs.String("email", "", "account email")
	gender := fs.String("gender", "", "male or female")
	if err := fs.Parse(args); err != nil {
		return err
	}

	fmt.Fprint(out, "Enter password: ")
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(out)
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}
	defer clear(pw)

	rec, err := store.Register(ctx, *email, string(pw), *gender)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "registered %s (%s)\n", rec.Email, rec.DisplayName)
	return nil
}

func listUsers(ctx context.Context, store *credentials.Store, out io.Writer) error {
	users, err := store.List(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "EMAIL\tNAME\tGENDER\tCREATED")
	for _, u := range users {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", u.Email, u.DisplayName, u.Gender, u.CreatedAt.Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}
