package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"ndcscan/internal/app"
	"ndcscan/internal/config"
	"ndcscan/internal/docai"
	"ndcscan/internal/logging"
	"ndcscan/internal/pipeline"
	"ndcscan/internal/rxnorm"
	"ndcscan/internal/util"
)

func main() {
	cfg, err := config.Load()
	must(err)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	logger, err := logging.New(cfg)
	must(err)
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cmd := os.Args[1]
	switch cmd {
	case "scan":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		input := fs.String("input", "", "image or pdf path")
		mimeType := fs.String("mime", "", "mime type (inferred from extension when empty)")
		out := fs.String("out", "", "optional output xlsx path")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*input) == "" {
			must(fmt.Errorf("--input is required"))
		}
		if *mimeType == "" {
			*mimeType = mimeFromPath(*input)
		}
		if *mimeType == "" {
			must(fmt.Errorf("cannot infer mime type for %s, pass --mime", *input))
		}

		content, err := os.ReadFile(*input)
		must(err)
		must(pipeline.CheckPageLimit(content, *mimeType, cfg.MaxPDFPages))

		db, err := app.OpenDB(cfg, logger)
		must(err)
		defer db.Close()

		analyzer, err := docai.NewClient(ctx, cfg, logger)
		must(err)
		doc, err := analyzer.Process(ctx, content, *mimeType)
		must(err)

		rows, err := app.NewTranslator(cfg, db, logger).TranslateDocument(ctx, doc)
		must(err)
		blob, err := json.MarshalIndent(map[string]any{"scannedNdcs": rows}, "", "  ")
		must(err)
		fmt.Println(string(blob))
		if strings.TrimSpace(*out) != "" {
			must(pipeline.ExportTranslationsToXLSX(rows, *out))
			fmt.Printf("exported %d rows to %s\n", len(rows), *out)
		}
	case "lookup":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		ndc := fs.String("ndc", "", "ndc as printed or normalized")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*ndc) == "" {
			must(fmt.Errorf("--ndc is required"))
		}
		db, err := app.OpenDB(cfg, logger)
		must(err)
		defer db.Close()

		row, err := app.NewTranslator(cfg, db, logger).Translate(ctx, *ndc)
		must(err)
		fmt.Printf("ndc=%s rxcui=%s drugName=%s\n", row.NDC, orDash(row.RXCUI), orDash(row.DrugName))
	case "mappings:import":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		xlsx := fs.String("xlsx", "", "xlsx with ndc, rxcui, str columns")
		_ = fs.Parse(os.Args[2:])
		if strings.TrimSpace(*xlsx) == "" {
			must(fmt.Errorf("--xlsx is required"))
		}
		content, err := os.ReadFile(*xlsx)
		must(err)

		db, err := app.OpenDB(cfg, logger)
		must(err)
		defer db.Close()

		start := time.Now()
		count, err := rxnorm.NewImportService(db, logger).ImportXLSX(ctx, content)
		must(err)
		fmt.Printf("import complete: %d mappings in %s\n", count, time.Since(start).Round(time.Millisecond))
	case "serve":
		must(app.RunServer(ctx, cfg, logger))
	default:
		usage()
		os.Exit(1)
	}
}

func mimeFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return pipeline.MimeTypePDF
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".tif", ".tiff":
		return "image/tiff"
	case ".gif":
		return "image/gif"
	case ".bmp":
		return "image/bmp"
	case ".webp":
		return "image/webp"
	default:
		return ""
	}
}

func orDash(v *string) string {
	if s := util.DerefString(v); s != "" {
		return s
	}
	return "-"
}

func usage() {
	fmt.Println("usage: ndcscan <command>")
	fmt.Println("commands:")
	fmt.Println("  scan --input=./label.jpg [--mime=image/jpeg] [--out=./out/ndcs.xlsx]")
	fmt.Println("  lookup --ndc=00071-0155-23")
	fmt.Println("  mappings:import --xlsx=./ndc_rxcui.xlsx")
	fmt.Println("  serve")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
