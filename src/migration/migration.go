package migration

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/opsportal/portal/src/db"
	"github.com/opsportal/portal/src/migration/migrations"
	"github.com/opsportal/portal/src/migration/types"
	"github.com/opsportal/portal/src/oops"
	"github.com/opsportal/portal/src/website"
	"github.com/spf13/cobra"
)

var listMigrations bool

func init() {
	migrateCommand := &cobra.Command{
		Use:   "migrate [target migration id]",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			conn := db.NewConn()
			defer conn.Close(context.Background())

			if listMigrations {
				ListMigrations(ctx, conn)
				return nil
			}

			targetVersion := time.Time{}
			if len(args) > 0 {
				var err error
				targetVersion, err = time.Parse(time.RFC3339, args[0])
				if err != nil {
					return fmt.Errorf("bad version string: %w", err)
				}
			}
			return Migrate(ctx, conn, types.MigrationVersion(targetVersion))
		},
	}
	migrateCommand.Flags().BoolVar(&listMigrations, "list", false, "List available migrations")

	makeMigrationCommand := &cobra.Command{
		Use:   "makemigration <name> <description>...",
		Short: "Create a new database migration file",
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) < 2 {
				fmt.Printf("You must provide a name and a description.\n\n")
				cmd.Usage()
				os.Exit(1)
			}

			name := args[0]
			description := strings.Join(args[1:], " ")

			MakeMigration(name, description)
		},
	}

	website.WebsiteCommand.AddCommand(migrateCommand)
	website.WebsiteCommand.AddCommand(makeMigrationCommand)
}

func getSortedMigrationVersions() []types.MigrationVersion {
	var allVersions []types.MigrationVersion
	for migrationTime := range migrations.All {
		allVersions = append(allVersions, migrationTime)
	}
	sort.Slice(allVersions, func(i, j int) bool {
		return allVersions[i].Before(allVersions[j])
	})

	return allVersions
}

func getCurrentVersion(ctx context.Context, conn db.ConnOrTx) (types.MigrationVersion, error) {
	var currentVersion time.Time
	row := conn.QueryRow(ctx, "SELECT version FROM portal_migration")
	err := row.Scan(&currentVersion)
	if err != nil {
		return types.MigrationVersion{}, err
	}
	currentVersion = currentVersion.UTC()

	return types.MigrationVersion(currentVersion), nil
}

func ListMigrations(ctx context.Context, conn db.ConnOrTx) {
	// A missing migration table just means nothing has run yet.
	currentVersion, _ := getCurrentVersion(ctx, conn)
	for _, version := range getSortedMigrationVersions() {
		migration := migrations.All[version]
		indicator := "  "
		if version.Equal(currentVersion) {
			indicator = "✔ "
		}
		fmt.Printf("%s%v (%s: %s)\n", indicator, version, migration.Name(), migration.Description())
	}
}

/*
Migrate rolls the schema forward or back to targetVersion. A zero target means
the latest migration. Each migration runs in its own transaction together with
the version bump, so a failure leaves the database at the last good version.
*/
func Migrate(ctx context.Context, conn db.ConnOrTx, targetVersion types.MigrationVersion) error {
	_, err := conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS portal_migration (
			version		TIMESTAMP WITH TIME ZONE
		)
	`)
	if err != nil {
		return oops.New(err, "failed to create migration table")
	}

	// ensure there is a row
	numRows, err := db.QueryOneScalar[int](ctx, conn, "SELECT COUNT(*) FROM portal_migration")
	if err != nil {
		return oops.New(err, "failed to count migration rows")
	}
	if numRows < 1 {
		_, err := conn.Exec(ctx, "INSERT INTO portal_migration (version) VALUES ($1)", time.Time{})
		if err != nil {
			return oops.New(err, "failed to insert initial migration row")
		}
	}

	currentVersion, err := getCurrentVersion(ctx, conn)
	if err != nil {
		return oops.New(err, "failed to get current version")
	}
	if currentVersion.IsZero() {
		fmt.Println("This is the first time you have run database migrations.")
	} else {
		fmt.Printf("Current version: %s\n", currentVersion.String())
	}

	allVersions := getSortedMigrationVersions()
	if targetVersion.IsZero() {
		targetVersion = allVersions[len(allVersions)-1]
	}

	currentIndex := -1
	targetIndex := -1
	for i, version := range allVersions {
		if currentVersion.Equal(version) {
			currentIndex = i
		}
		if targetVersion.Equal(version) {
			targetIndex = i
		}
	}

	if targetIndex < 0 {
		return oops.New(nil, "could not find migration with version %v", targetVersion)
	}

	if currentIndex < targetIndex {
		// roll forward
		for i := currentIndex + 1; i <= targetIndex; i++ {
			version := allVersions[i]
			migration := migrations.All[version]
			fmt.Printf("Applying migration %v (%v)\n", version, migration.Name())

			err := db.Transact(ctx, conn, func(tx pgx.Tx) error {
				if err := migration.Up(ctx, tx); err != nil {
					return oops.New(err, "migration %v failed", version)
				}
				if _, err := tx.Exec(ctx, "UPDATE portal_migration SET version = $1", time.Time(version)); err != nil {
					return oops.New(err, "failed to update version in migrations table")
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
	} else if currentIndex > targetIndex {
		// roll back
		for i := currentIndex; i > targetIndex; i-- {
			version := allVersions[i]
			previousVersion := types.MigrationVersion{}
			if i > 0 {
				previousVersion = allVersions[i-1]
			}

			fmt.Printf("Rolling back migration %v\n", version)
			migration := migrations.All[version]

			err := db.Transact(ctx, conn, func(tx pgx.Tx) error {
				if err := migration.Down(ctx, tx); err != nil {
					return oops.New(err, "rollback of %v failed", version)
				}
				if _, err := tx.Exec(ctx, "UPDATE portal_migration SET version = $1", time.Time(previousVersion)); err != nil {
					return oops.New(err, "failed to update version in migrations table")
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
	} else {
		fmt.Println("Already migrated; nothing to do.")
	}

	return nil
}

//go:embed migrationTemplate.txt
var migrationTemplate string

func MakeMigration(name, description string) {
	result := migrationTemplate
	result = strings.ReplaceAll(result, "%NAME%", name)
	result = strings.ReplaceAll(result, "%DESCRIPTION%", fmt.Sprintf("%#v", description))

	now := time.Now().UTC()
	nowConstructor := fmt.Sprintf("time.Date(%d, %d, %d, %d, %d, %d, 0, time.UTC)", now.Year(), now.Month(), now.Day(), now.Hour(), now.Minute(), now.Second())
	result = strings.ReplaceAll(result, "%DATE%", nowConstructor)

	safeVersion := strings.ReplaceAll(types.MigrationVersion(now).String(), ":", "")
	filename := fmt.Sprintf("%v_%v.go", safeVersion, name)
	path := filepath.Join("src", "migration", "migrations", filename)

	err := os.WriteFile(path, []byte(result), 0644)
	if err != nil {
		panic(fmt.Errorf("failed to write migration file: %w", err))
	}

	fmt.Println("Successfully created migration file:")
	fmt.Println(path)
}
