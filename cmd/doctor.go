package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/dentassist/internal/config"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check environment and configuration health",
		Run: func(cmd *cobra.Command, args []string) {
			runDoctor()
		},
	}
}

func runDoctor() {
	godotenv.Load()

	fmt.Println("dentassist doctor")
	fmt.Printf("  Version:  %s\n", Version)
	fmt.Printf("  OS:       %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Printf("  Go:       %s\n", runtime.Version())
	fmt.Println()

	cfgPath := resolveConfigPath()
	fmt.Printf("  Config:   %s", cfgPath)
	if _, err := os.Stat(cfgPath); err != nil {
		fmt.Println(" (NOT FOUND, using defaults)")
	} else {
		fmt.Println(" (OK)")
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Printf("  Config load error: %s\n", err)
		return
	}
	if err := cfg.Validate(); err != nil {
		fmt.Printf("  Config invalid: %s\n", err)
	}

	fmt.Println()
	fmt.Println("  OpenAI:")
	if cfg.OpenAI.APIKey == "" {
		fmt.Println("    API key:  MISSING (set DENTASSIST_OPENAI_API_KEY)")
	} else {
		fmt.Println("    API key:  OK")
	}
	fmt.Printf("    Model:    %s\n", cfg.OpenAI.Model)

	fmt.Println()
	fmt.Println("  WhatsApp bridge:")
	fmt.Printf("    URL:      %s\n", cfg.WhatsApp.BridgeURL)
	if cfg.WhatsApp.OperatorJID == "" {
		fmt.Println("    Operator: NOT SET (handoff notifications will be dropped)")
	} else {
		fmt.Println("    Operator: OK")
	}

	fmt.Println()
	fmt.Println("  Database:")
	if cfg.Database.PostgresDSN == "" {
		fmt.Println("    Store:    in-memory (set DENTASSIST_POSTGRES_DSN for persistence)")
	} else {
		fmt.Println("    Store:    postgres")
		checkPostgres(cfg.Database.PostgresDSN)
	}

	fmt.Println()
	checkHealthPort(cfg.Health.Port)
}

func checkPostgres(dsn string) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		fmt.Printf("    Connect:  FAILED (%s)\n", err)
		return
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		fmt.Printf("    Ping:     FAILED (%s)\n", err)
		return
	}
	fmt.Println("    Ping:     OK")
}

func checkHealthPort(port int) {
	url := fmt.Sprintf("http://localhost:%d/health", port)
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		fmt.Printf("  Health:   %s (not running)\n", url)
		return
	}
	resp.Body.Close()
	fmt.Printf("  Health:   %s (%d, assistant is running)\n", url, resp.StatusCode)
}
