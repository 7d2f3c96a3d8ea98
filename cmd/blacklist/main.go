// Command blacklist manages the blacklisted characters table.
//
// Usage:
//
//	blacklist -dsn postgres://... add -name Testplayer -realm Draenor -reason "declined offer"
//	blacklist -dsn postgres://... remove -name Testplayer -realm Draenor
//	blacklist -dsn postgres://... list
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"

	"guild-scout/internal/domain"
	"guild-scout/internal/storage/migrations"
	pgstore "guild-scout/internal/storage/postgres"
)

func main() {
	_ = godotenv.Load()

	dsn := flag.String("dsn", os.Getenv("SCOUT_POSTGRES_DSN"), "PostgreSQL connection string")
	flag.Parse()

	if flag.NArg() < 1 {
		fail("expected a subcommand: add, remove or list")
	}
	if *dsn == "" {
		fail("-dsn or SCOUT_POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgstore.NewPool(ctx, *dsn)
	if err != nil {
		fail("connect to postgres: %v", err)
	}
	defer pool.Close()

	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		fail("run migrations: %v", err)
	}

	store := pgstore.NewBlacklistStore(pool)

	switch flag.Arg(0) {
	case "add":
		runAdd(ctx, store, flag.Args()[1:])
	case "remove":
		runRemove(ctx, store, flag.Args()[1:])
	case "list":
		runList(ctx, store)
	default:
		fail("unknown subcommand %q", flag.Arg(0))
	}
}

func identityFlags(fs *flag.FlagSet) (*string, *string) {
	name := fs.String("name", "", "Character name")
	realm := fs.String("realm", "", "Character realm")
	return name, realm
}

func parseIdentity(fs *flag.FlagSet, name, realm *string, args []string) domain.Identity {
	if err := fs.Parse(args); err != nil {
		fail("parse flags: %v", err)
	}
	if *name == "" || *realm == "" {
		fail("-name and -realm are required")
	}
	return domain.Identity{Name: *name, Realm: *realm}
}

func runAdd(ctx context.Context, store *pgstore.BlacklistStore, args []string) {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	name, realm := identityFlags(fs)
	reason := fs.String("reason", "", "Why the character is blacklisted")

	id := parseIdentity(fs, name, realm, args)
	if err := store.Add(ctx, id, *reason); err != nil {
		fail("add %s: %v", id, err)
	}
	fmt.Printf("blacklisted %s\n", id)
}

func runRemove(ctx context.Context, store *pgstore.BlacklistStore, args []string) {
	fs := flag.NewFlagSet("remove", flag.ExitOnError)
	name, realm := identityFlags(fs)

	id := parseIdentity(fs, name, realm, args)
	if err := store.Remove(ctx, id); err != nil {
		fail("remove %s: %v", id, err)
	}
	fmt.Printf("removed %s\n", id)
}

func runList(ctx context.Context, store *pgstore.BlacklistStore) {
	records, err := store.List(ctx)
	if err != nil {
		fail("list: %v", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CHARACTER\tREALM\tSINCE\tREASON")
	for _, rec := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			rec.Identity.Name, rec.Identity.Realm,
			rec.BlacklistedAt.Format("2006-01-02"), rec.Reason)
	}
	w.Flush()
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
