package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"

	"comppipe/internal/config"
	"comppipe/internal/domain"
	"comppipe/internal/embedding/openai"
	"comppipe/internal/formatter"
	"comppipe/internal/logger"
	"comppipe/internal/service"
	"comppipe/internal/tabular/excel"
	"comppipe/internal/tui"
	"comppipe/internal/vectorindex/memory"
	"comppipe/internal/vectorindex/pinecone"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	numberStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

func main() {
	_ = godotenv.Load()

	var cfgPath string
	var yes, dryRun bool
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/comppipe/config.yaml if not provided)")
	flag.BoolVar(&yes, "y", false, "Skip the upload confirmation prompt")
	flag.BoolVar(&dryRun, "dry-run", false, "Aggregate and format only; vectors go to an in-memory index")
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Println("Usage: comppipe [--config=config.yaml] [-y] [--dry-run] workbook.xlsx")
		os.Exit(1)
	}
	workbookPath := flag.Arg(0)

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	lg, err := logger.New(cfg.Logging.Mode)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer lg.Sync()

	wb, err := excel.Open(workbookPath)
	if err != nil {
		lg.Fatal("failed to open workbook", "path", workbookPath, "error", err)
	}
	defer wb.Close()

	// Assemble components
	var emb domain.Embedder
	switch cfg.Embedder.Type {
	case "openai", "":
		client, err := openai.NewClient(openai.Config{
			BaseURL:   cfg.Embedder.OpenAI.BaseURL,
			APIKeyEnv: cfg.Embedder.OpenAI.APIKeyEnv,
			Model:     cfg.Embedder.OpenAI.Model,
			Timeout:   time.Duration(cfg.Embedder.OpenAI.TimeoutSecs) * time.Second,
			BatchSize: cfg.Embedder.OpenAI.BatchSize,
		})
		if err != nil {
			lg.Fatal("openai embedder init failed", "error", err)
		}
		emb = client
	default:
		lg.Fatal("unknown embedder", "type", cfg.Embedder.Type)
	}

	var ix domain.VectorIndex
	switch {
	case dryRun, cfg.Index.Type == "memory":
		ix = memory.New()
	case cfg.Index.Type == "pinecone", cfg.Index.Type == "":
		idx, err := pinecone.New(pinecone.Config{
			Host:      cfg.Index.Pinecone.Host,
			APIKeyEnv: cfg.Index.Pinecone.APIKeyEnv,
			Timeout:   time.Duration(cfg.Index.Pinecone.TimeoutSecs) * time.Second,
		})
		if err != nil {
			lg.Fatal("pinecone index init failed", "error", err)
		}
		ix = idx
	default:
		lg.Fatal("unknown vector index", "type", cfg.Index.Type)
	}

	pipeline := service.New(lg, formatter.New(), emb, ix, cfg.Upload.BatchSize)

	result, docs, err := pipeline.BuildDocuments(wb)
	if err != nil {
		lg.Fatal("aggregation failed", "error", err)
	}

	summary := service.Summarize(result)
	printSummary(summary)

	if !yes && !dryRun {
		ok, err := tui.Confirm(
			fmt.Sprintf("Upload %d documents to the vector index?", len(docs)),
			fmt.Sprintf("embedder: %s (%s)", emb.Name(), cfg.Embedder.OpenAI.Model),
			fmt.Sprintf("index: %s", cfg.Index.Type),
		)
		if err != nil {
			lg.Fatal("confirmation prompt failed", "error", err)
		}
		if !ok {
			fmt.Println("Upload cancelled")
			return
		}
	}

	ctx := context.Background()
	report, err := pipeline.Upload(ctx, docs)
	if err != nil {
		lg.Fatal("upload failed", "error", err)
	}
	printReport(report)

	if stats, err := ix.Stats(ctx); err != nil {
		lg.Warn("could not verify upload", "error", err)
	} else {
		fmt.Println(titleStyle.Render("Index verification"))
		fmt.Println(statLine("total vectors", stats.TotalVectors))
		fmt.Println(statLine("dimension", stats.Dimension))
		fmt.Println(statLine("namespaces", stats.Namespaces))
	}
}

func statLine(label string, n int) string {
	return labelStyle.Render("  "+label+": ") + numberStyle.Render(fmt.Sprintf("%d", n))
}

func printSummary(s service.RunSummary) {
	fmt.Println(titleStyle.Render("Aggregation summary"))
	fmt.Println(statLine("employees", s.Employees))
	fmt.Println(statLine("commission contracts", s.CommissionContracts))
	fmt.Println(statLine("override entries", s.OverrideEntries))
	fmt.Println(statLine("policy contracts", s.PolicyContracts))
	fmt.Println(statLine("performance entries", s.PerformanceEntries))
	fmt.Println(statLine("allowance entries", s.AllowanceEntries))
	fmt.Println(statLine("clawback entries", s.ClawbackEntries))
	fmt.Println(labelStyle.Render("  total final payments: ") + numberStyle.Render(s.TotalFinalPayment.Round(0).String()+"원"))
	fmt.Println(labelStyle.Render("  total commissions: ") + numberStyle.Render(s.TotalCommission.Round(0).String()+"원"))
	fmt.Println(labelStyle.Render("  total overrides: ") + numberStyle.Render(s.TotalOverride.Round(0).String()+"원"))
	for _, skipped := range s.SkippedSources {
		fmt.Println(labelStyle.Render("  skipped source: ") + skipped)
	}
}

func printReport(r *service.UploadReport) {
	fmt.Println(titleStyle.Render("Upload report"))
	fmt.Println(statLine("employees", r.Employees))
	fmt.Println(statLine("documents", r.Documents))
	fmt.Println(statLine("vectors uploaded", r.Uploaded))
	fmt.Println(statLine("rejected", r.Rejected))
}
