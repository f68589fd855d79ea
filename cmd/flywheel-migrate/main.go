// Command flywheel-migrate applies or rolls back the control plane's
// Postgres schema using goose, driven off the embedded migrations in
// internal/persistence/migrations, the way goose's own cmd/goose
// reference binary drives a database/sql connection plus an embedded
// filesystem of numbered .sql files.
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/flywheel-ml/flywheel/internal/persistence"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [up|down|status|version] [-dsn DSN]\n", os.Args[0])
	}
	dsn := flag.String("dsn", os.Getenv("DATABASE_URL"), "Postgres DSN (env: DATABASE_URL)")
	flag.Parse()

	if *dsn == "" {
		log.Fatal("missing DSN: pass -dsn or set DATABASE_URL")
	}
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}
	command := flag.Arg(0)

	db, err := sql.Open("pgx", *dsn)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	goose.SetBaseFS(persistence.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		log.Fatalf("set dialect: %v", err)
	}

	switch command {
	case "up":
		err = goose.Up(db, "migrations")
	case "down":
		err = goose.Down(db, "migrations")
	case "status":
		err = goose.Status(db, "migrations")
	case "version":
		err = goose.Version(db, "migrations")
	default:
		flag.Usage()
		os.Exit(1)
	}
	if err != nil {
		log.Fatalf("%s: %v", command, err)
	}
}
