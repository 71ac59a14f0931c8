package main

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"shrimp/adapters/postgres"
	"shrimp/app"
)

// Workbook filenames start with the source name, e.g. sales_2024-03.xlsx.
var sourcePrefixes = []string{
	app.SourceSales,
	app.SourceRawMaterials,
	app.SourceShrimpPrices,
	app.SourceShareOfWallet,
	app.SourceExports,
}

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: migrate <database_url> [workbook_dir]")
	}
	databaseURL := os.Args[1]

	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := postgres.NewMigrator(db).Up(ctx); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Println("Schema migrations applied")

	if len(os.Args) < 3 {
		return
	}
	workbookDir := os.Args[2]

	files, err := findWorkbooks(workbookDir)
	if err != nil {
		log.Fatalf("Failed to scan %s: %v", workbookDir, err)
	}
	log.Printf("Found %d workbooks to load", len(files))

	uploads := app.NewUploadService(postgres.NewUploadStore(db), nil)

	loaded := 0
	skipped := 0
	for _, file := range files {
		source := sourceForFile(file)
		if source == "" {
			log.Printf("Skipping %s: filename does not start with a known source", filepath.Base(file))
			skipped++
			continue
		}

		f, err := os.Open(file)
		if err != nil {
			log.Printf("Failed to open %s: %v", file, err)
			skipped++
			continue
		}
		result, err := uploads.Ingest(ctx, source, f)
		f.Close()
		if err != nil {
			log.Printf("Failed to load %s: %v", filepath.Base(file), err)
			skipped++
			continue
		}

		loaded++
		log.Printf("Loaded %s: %d rows into %s", filepath.Base(file), result.Rows, result.Source)
	}

	log.Printf("Workbook load complete: %d loaded, %d skipped", loaded, skipped)
}

// findWorkbooks returns the .xlsx files under dir sorted by name, so monthly
// files named <source>_YYYY-MM.xlsx load in the order the month-serialization
// checks require.
func findWorkbooks(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && strings.HasSuffix(path, ".xlsx") {
			files = append(files, path)
		}
		return nil
	})
	sort.Strings(files)
	return files, err
}

func sourceForFile(path string) string {
	name := filepath.Base(path)
	for _, prefix := range sourcePrefixes {
		if strings.HasPrefix(name, prefix) {
			return prefix
		}
	}
	return ""
}
