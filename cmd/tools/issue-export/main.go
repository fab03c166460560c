// cmd/tools/issue-export/main.go
//
// issue-export fetches one account's issue categories straight from the
// upstream API and writes them as CSV or NDJSON files, one file per
// category. It talks to the upstream directly so it works without the
// Redis/Postgres stack the server needs.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"sellerqi-insights/internal/common/config"
	"sellerqi-insights/internal/common/logger"
	"sellerqi-insights/internal/export"
	"sellerqi-insights/internal/fetch"
	"sellerqi-insights/internal/issues/account"
	"sellerqi-insights/internal/issues/conversion"
	"sellerqi-insights/internal/issues/inventory"
	"sellerqi-insights/internal/issues/ranking"
	"sellerqi-insights/internal/models"
)

func main() {
	var (
		accountID  = flag.String("account", "", "account identifier (required)")
		categories = flag.String("categories", "all", "comma-separated categories, or \"all\"")
		format     = flag.String("format", "csv", "output format: csv or ndjson")
		outputDir  = flag.String("output", "", "output directory (default: config export.output_dir)")
	)
	flag.Parse()

	if *accountID == "" {
		fmt.Fprintln(os.Stderr, "Usage: issue-export -account <id> [-categories ranking,inventory] [-format csv|ndjson] [-output dir]")
		os.Exit(1)
	}
	if *format != "csv" && *format != "ndjson" {
		fmt.Fprintf(os.Stderr, "unsupported format %q\n", *format)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}
	if *outputDir == "" {
		*outputDir = cfg.Export.OutputDir
	}

	zapLog := logger.New(cfg.Logging.Level, "console")
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	selected, err := resolveCategories(*categories)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	fetcher := fetch.NewClient(cfg.Upstream, log)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	exitCode := 0
	for _, category := range selected {
		rows, err := fetchAllRows(ctx, fetcher, *accountID, category, cfg.Upstream.PageLimit)
		if err != nil {
			zapLog.Error("category export failed",
				zap.String("category", string(category)),
				zap.Error(err),
			)
			exitCode = 1
			continue
		}

		path := filepath.Join(*outputDir, fmt.Sprintf("%s-%s.%s", *accountID, category, *format))
		if err := writeRows(path, *format, rows); err != nil {
			zapLog.Error("write failed",
				zap.String("path", path),
				zap.Error(err),
			)
			exitCode = 1
			continue
		}

		zapLog.Info("category exported",
			zap.String("category", string(category)),
			zap.Int("rows", len(rows)),
			zap.String("path", path),
		)
	}
	os.Exit(exitCode)
}

func resolveCategories(spec string) ([]models.Category, error) {
	if spec == "all" {
		return models.IssueCategories, nil
	}

	var out []models.Category
	for _, name := range strings.Split(spec, ",") {
		category := models.Category(strings.TrimSpace(name))
		if !category.IsIssueCategory() {
			return nil, fmt.Errorf("unknown category %q", name)
		}
		out = append(out, category)
	}
	return out, nil
}

// fetchAllRows walks the category's pages until the upstream total is
// reached.
func fetchAllRows(ctx context.Context, fetcher *fetch.Client, accountID string, category models.Category, limit int) ([]models.IssueRow, error) {
	var all []models.IssueRow

	for page := 1; ; page++ {
		raw, err := fetcher.FetchCategory(ctx, fetch.PageRequest{
			Account:  accountID,
			Category: category,
			Page:     page,
			Limit:    limit,
		})
		if err != nil {
			return nil, err
		}

		rows, meta, err := normalizeRaw(category, raw)
		if err != nil {
			return nil, err
		}
		all = append(all, rows...)

		// Account payloads are single-shot; paged categories stop when
		// the declared total is covered.
		if category == models.CategoryAccount || meta.Total <= page*limit || len(rows) == 0 {
			return all, nil
		}
	}
}

func normalizeRaw(category models.Category, raw json.RawMessage) ([]models.IssueRow, models.PageMeta, error) {
	switch category {
	case models.CategoryRanking:
		var page models.RankingPage
		if err := json.Unmarshal(raw, &page); err != nil {
			return nil, models.PageMeta{}, err
		}
		return ranking.NormalizePage(page), page.PageMeta, nil
	case models.CategoryConversion:
		var page models.ConversionPage
		if err := json.Unmarshal(raw, &page); err != nil {
			return nil, models.PageMeta{}, err
		}
		return conversion.NormalizePage(page), page.PageMeta, nil
	case models.CategoryInventory:
		var page models.InventoryPage
		if err := json.Unmarshal(raw, &page); err != nil {
			return nil, models.PageMeta{}, err
		}
		return inventory.NormalizePage(page), page.PageMeta, nil
	case models.CategoryAccount:
		var page models.AccountPage
		if err := json.Unmarshal(raw, &page); err != nil {
			return nil, models.PageMeta{}, err
		}
		return account.NormalizePage(page), page.PageMeta, nil
	}
	return nil, models.PageMeta{}, fmt.Errorf("unknown category %q", category)
}

func writeRows(path, format string, rows []models.IssueRow) error {
	if format == "ndjson" {
		w, err := export.NewNDJSONWriter(path)
		if err != nil {
			return err
		}
		if err := w.Write(rows); err != nil {
			w.Close()
			return err
		}
		return w.Close()
	}

	w, err := export.NewCSVWriter(path)
	if err != nil {
		return err
	}
	if err := w.Write(rows); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}
