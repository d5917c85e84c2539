package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"

	"github.com/yuduki/chartkeeper/internal/bot"
	"github.com/yuduki/chartkeeper/internal/config"
	"github.com/yuduki/chartkeeper/internal/ledger"
	"github.com/yuduki/chartkeeper/internal/notify"
	"github.com/yuduki/chartkeeper/internal/registry"
	"github.com/yuduki/chartkeeper/internal/runlog"
	"github.com/yuduki/chartkeeper/internal/sheet"
	"github.com/yuduki/chartkeeper/internal/web"
)

var (
	loadDotEnv         = godotenv.Load
	newBot             = bot.New
	openBot            = func(b *bot.Bot) error { return b.Open() }
	defaultListenServe = http.ListenAndServe
)

func main() {
	if err := run(context.Background(), defaultListenServe); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func run(ctx context.Context, serve func(string, http.Handler) error) error {
	// Load .env file (ignore error if file doesn't exist)
	_ = loadDotEnv()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log.Printf("Starting chartkeeper...")
	log.Printf("Port: %d", cfg.Port)
	log.Printf("Guilds: %d", len(cfg.GuildIDs))
	log.Printf("Check interval: %v", cfg.CheckInterval)
	log.Printf("State files: %s, %s", cfg.DataFile, cfg.NotifyFile)

	// Community overrides from the optional config file
	sheet.ApplyEmojiOverrides(cfg.StatusEmoji)

	// Persistent state
	reg := registry.Load(cfg.DataFile)
	led := ledger.Load(cfg.NotifyFile)
	log.Printf("Registry: %d aliases, ledger: %d keys", reg.Len(), led.Len())

	// Pass history for the status UI
	passes := runlog.NewStore()

	// Sheet endpoint client
	sheetClient := sheet.NewClient(cfg.SheetAPIURL, cfg.SheetAPISecret)
	if cfg.SheetAPISecret != "" {
		log.Printf("Sheet fetch: signed bearer enabled")
	}

	// Discord bot
	discordBot, err := newBot(cfg.DiscordToken, cfg.GuildIDs, sheetClient, reg)
	if err != nil {
		return fmt.Errorf("failed to initialize bot: %w", err)
	}

	// Deadline reconciler, with the bot as its messaging capability
	reconciler := notify.New(sheetClient, reg, led, discordBot, passes)
	if len(cfg.Milestones) > 0 {
		ms := make([]notify.Milestone, 0, len(cfg.Milestones))
		for _, m := range cfg.Milestones {
			ms = append(ms, notify.Milestone{Days: m.Days, Tag: m.Tag})
		}
		reconciler.WithMilestones(ms)
		log.Printf("Milestones overridden: %v", ms)
	}
	discordBot.WithReconciler(reconciler)

	if err := openBot(discordBot); err != nil {
		return fmt.Errorf("failed to connect to Discord: %w", err)
	}
	defer discordBot.Close()

	// Start the recurring deadline check
	reconciler.Start(ctx, cfg.CheckInterval)

	// Status page handler
	webHandler, err := web.NewHandler(passes, reg, led)
	if err != nil {
		return fmt.Errorf("failed to initialize web handler: %w", err)
	}

	// Setup router
	r := mux.NewRouter()
	webHandler.RegisterRoutes(r)

	// Health check endpoint
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	// Root endpoint with info
	r.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"service":"chartkeeper","status":"running","guilds":%d}`, len(cfg.GuildIDs))
	}).Methods("GET")

	// Start server
	addr := fmt.Sprintf(":%d", cfg.Port)
	log.Printf("Server listening on %s", addr)
	log.Printf("Health check: http://localhost%s/health", addr)
	log.Printf("Status UI: http://localhost%s/passes", addr)

	if err := serve(addr, r); err != nil {
		return fmt.Errorf("server failed to start: %w", err)
	}

	return nil
}
