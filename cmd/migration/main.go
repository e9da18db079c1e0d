package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/riskibarqy/player-risk-alerts/db/migrations"
	"github.com/riskibarqy/player-risk-alerts/internal/config"
	"github.com/spf13/cobra"
)

func main() {
	root, closeMigrator := newRootCommand(os.Stdout)
	err := root.Execute()
	closeMigrator()
	if err != nil {
		color.New(color.FgRed, color.Bold).Fprintf(os.Stderr, "✗ %v\n", err)
		os.Exit(1)
	}
}

// migrator is opened lazily so --help works without DB_URL.
type migrator struct {
	m      *migrate.Migrate
	source string
}

// newRootCommand also returns the func that closes the migrator once any command opened it.
func newRootCommand(out io.Writer) (*cobra.Command, func()) {
	var mg migrator
	root := &cobra.Command{
		Use:           "migration",
		Short:         "Apply the alerts, rosters, runs and usage schema",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return mg.open()
		},
	}
	root.SetOut(out)

	ok := color.New(color.FgGreen)
	root.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply every pending migration",
			Args:  cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error {
				if err := ignoreNoChange(mg.m.Up()); err != nil {
					return err
				}
				ok.Fprintf(out, "✓ schema up to date (source=%s)\n", mg.source)
				return nil
			},
		},
		&cobra.Command{
			Use:   "down [steps]",
			Short: "Roll back migrations, one by default",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(_ *cobra.Command, args []string) error {
				steps, err := parseSteps(args)
				if err != nil {
					return err
				}
				if err := ignoreNoChange(mg.m.Steps(-steps)); err != nil {
					return err
				}
				ok.Fprintf(out, "✓ rolled back %d migration(s)\n", steps)
				return nil
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the applied version and dirty flag",
			Args:  cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error {
				version, dirty, err := mg.version()
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "version: %s\ndirty: %t\n", formatVersion(version), dirty)
				return nil
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "List embedded migrations and whether each is applied",
			Args:  cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error {
				version, dirty, err := mg.version()
				if err != nil {
					return err
				}
				names, err := embeddedMigrations(migrations.FS)
				if err != nil {
					return err
				}
				for _, row := range migrationStatus(names, version, dirty) {
					fmt.Fprintln(out, row)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "force <version>",
			Short: "Set the version without running migrations, to clear a dirty state",
			Args:  cobra.ExactArgs(1),
			RunE: func(_ *cobra.Command, args []string) error {
				version, err := parseVersion(args[0])
				if err != nil {
					return err
				}
				if err := mg.m.Force(version); err != nil {
					return fmt.Errorf("force version %d: %w", version, err)
				}
				ok.Fprintf(out, "✓ forced version to %d\n", version)
				return nil
			},
		},
		&cobra.Command{
			Use:     "goto <version>",
			Aliases: []string{"migrate"},
			Short:   "Migrate up or down to a target version",
			Args:    cobra.ExactArgs(1),
			RunE: func(_ *cobra.Command, args []string) error {
				target, err := parseTarget(args[0])
				if err != nil {
					return err
				}
				if err := ignoreNoChange(mg.m.Migrate(target)); err != nil {
					return err
				}
				ok.Fprintf(out, "✓ migrated to version %d\n", target)
				return nil
			},
		},
	)
	return root, func() { mg.close(out) }
}

func (mg *migrator) open() error {
	if err := config.LoadDotEnv(); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}
	dbURL := strings.TrimSpace(os.Getenv("DB_URL"))
	if dbURL == "" {
		return errors.New("DB_URL is required")
	}
	m, source, err := newMigrator(dbURL)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	mg.m, mg.source = m, source
	return nil
}

func (mg *migrator) close(out io.Writer) {
	if mg.m == nil {
		return
	}
	srcErr, dbErr := mg.m.Close()
	if srcErr != nil {
		fmt.Fprintf(out, "close migration source: %v\n", srcErr)
	}
	if dbErr != nil {
		fmt.Fprintf(out, "close migration db: %v\n", dbErr)
	}
}

// version reports zero when nothing has been applied yet.
func (mg *migrator) version() (uint, bool, error) {
	version, dirty, err := mg.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read version: %w", err)
	}
	return version, dirty, nil
}

func ignoreNoChange(err error) error {
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	return err
}

func parseSteps(args []string) (int, error) {
	if len(args) == 0 {
		return 1, nil
	}
	steps, err := strconv.Atoi(strings.TrimSpace(args[0]))
	if err != nil {
		return 0, fmt.Errorf("invalid down steps %q: %w", args[0], err)
	}
	if steps <= 0 {
		return 0, errors.New("down steps must be > 0")
	}
	return steps, nil
}

func parseVersion(raw string) (int, error) {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid version %q: %w", raw, err)
	}
	if value < -1 {
		return 0, errors.New("version must be >= -1")
	}
	return value, nil
}

func parseTarget(raw string) (uint, error) {
	value, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid target version %q: %w", raw, err)
	}
	return uint(value), nil
}

func formatVersion(version uint) string {
	if version == 0 {
		return "none"
	}
	return strconv.FormatUint(uint64(version), 10)
}

// embeddedMigrations returns the up migration names, oldest first.
func embeddedMigrations(fsys fs.FS) ([]string, error) {
	names, err := fs.Glob(fsys, "*.up.sql")
	if err != nil {
		return nil, fmt.Errorf("list embedded migrations: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

func migrationStatus(names []string, applied uint, dirty bool) []string {
	rows := make([]string, 0, len(names))
	for _, name := range names {
		prefix, _, _ := strings.Cut(name, "_")
		version, err := strconv.ParseUint(prefix, 10, 64)
		state := "pending"
		switch {
		case err != nil:
			state = "unparsable"
		case uint(version) == applied && dirty:
			state = "dirty"
		case uint(version) <= applied:
			state = "applied"
		}
		rows = append(rows, fmt.Sprintf("%-8s %s", state, strings.TrimSuffix(name, ".up.sql")))
	}
	return rows
}

// newMigrator reads the embedded schema unless MIGRATIONS_DIR points at a directory on disk.
func newMigrator(dbURL string) (*migrate.Migrate, string, error) {
	if dir := strings.TrimSpace(os.Getenv("MIGRATIONS_DIR")); dir != "" {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return nil, "", fmt.Errorf("resolve MIGRATIONS_DIR: %w", err)
		}
		if info, err := os.Stat(abs); err != nil || !info.IsDir() {
			return nil, "", fmt.Errorf("MIGRATIONS_DIR %q is not a directory", dir)
		}
		sourceURL := "file://" + filepath.ToSlash(abs)
		m, err := migrate.New(sourceURL, dbURL)
		return m, sourceURL, err
	}

	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return nil, "", fmt.Errorf("open embedded migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, dbURL)
	return m, "embedded", err
}
