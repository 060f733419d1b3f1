package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/spf13/pflag"
)

const (
	dsnFlag            = "dsn"
	migrationsPathFlag = "migrations-path"
	downFlag           = "down"

	dsnEnvName = "FARMBRIDGE_SQL_DB"
)

type flags struct {
	dsn            string
	migrationsPath string
	down           bool
}

func main() {
	f := parseFlags(os.Args[1:])
	if err := f.validate(); err != nil {
		slog.Error("too few args", "err", err)
		os.Exit(2)
	}

	if err := migrateDB(f); err != nil {
		slog.Error("failed to migrate", "err", err)
		os.Exit(1)
	}
}

type migrationLogger struct {
	logger *slog.Logger
}

func (ml migrationLogger) Printf(format string, v ...any) {
	ml.logger.Info(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (migrationLogger) Verbose() bool {
	return true
}

func parseFlags(args []string) flags {
	var f flags
	fs := pflag.NewFlagSet("migrator", pflag.ExitOnError)
	fs.StringVarP(&f.dsn, dsnFlag, "s", os.Getenv(dsnEnvName),
		"postgres connection string, "+dsnEnvName+" by default")
	fs.StringVarP(&f.migrationsPath, migrationsPathFlag, "m", "migrations",
		"directory with migration files")
	fs.BoolVar(&f.down, downFlag, false, "roll back every migration")
	_ = fs.Parse(args)
	return f
}

func (f flags) validate() error {
	var errs []error
	if f.dsn == "" {
		errs = append(errs, fmt.Errorf("--%s flag: required", dsnFlag))
	}
	if f.migrationsPath == "" {
		errs = append(errs, fmt.Errorf("--%s flag: required", migrationsPathFlag))
	}
	return errors.Join(errs...)
}

// databaseURL switches a postgres DSN to the pgx/v5 migrate driver.
func databaseURL(dsn string) string {
	for _, scheme := range []string{"postgres://", "postgresql://"} {
		if rest, ok := strings.CutPrefix(dsn, scheme); ok {
			return "pgx5://" + rest
		}
	}
	if strings.Contains(dsn, "://") {
		return dsn
	}
	return "pgx5://" + dsn
}

func migrateDB(f flags) error {
	m, err := migrate.New("file://"+f.migrationsPath, databaseURL(f.dsn))
	if err != nil {
		return err
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if err := errors.Join(srcErr, dbErr); err != nil {
			slog.Error("failed to close migrate", "err", err)
		}
	}()

	m.Log = migrationLogger{slog.Default()}

	apply, direction := m.Up, "up"
	if f.down {
		apply, direction = m.Down, "down"
	}

	if err := apply(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			m.Log.Printf("no migrations to apply")
			return nil
		}
		return err
	}
	m.Log.Printf("migrations applied: %s", direction)
	return nil
}
