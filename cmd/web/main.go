// Web server for go-guildhub
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	prof "github.com/go-while/go-cpu-mem-profiler"

	"github.com/go-while/go-guildhub/internal/config"
	"github.com/go-while/go-guildhub/internal/database"
	"github.com/go-while/go-guildhub/internal/web"
)

var (
	// command-line flags
	configPath  string
	webport     int
	webssl      bool
	webcertFile string
	webkeyFile  string
	dbPath      string
	pprofAddr   string

	Prof *prof.Profiler
)

var appVersion = "-unset-"

func main() {
	config.AppVersion = appVersion

	flag.StringVar(&configPath, "config", "config.yaml", "YAML config file (written with defaults if missing, empty to use defaults only)")
	flag.IntVar(&webport, "webport", 0, "Web server port (default: 11980 (no ssl) or 19443 (webssl))")
	flag.BoolVar(&webssl, "webssl", false, "Enable SSL")
	flag.StringVar(&webcertFile, "websslcert", "", "SSL certificate file (/path/to/fullchain.pem)")
	flag.StringVar(&webkeyFile, "websslkey", "", "SSL key file (/path/to/privkey.pem)")
	flag.StringVar(&dbPath, "db", "", "Path to the main database (overrides database.main_db)")
	flag.StringVar(&pprofAddr, "pprof", "", "Serve pprof on this address, e.g. :51111 (default: off)")
	flag.Parse()

	log.Printf("Starting go-guildhub web server (version: %s)", appVersion)

	mainConfig, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("[WEB]: Failed to load config %s: %v", configPath, err)
	}
	webConfig := &mainConfig.Web

	// Override config with command-line flags if provided
	if webssl {
		webConfig.SSL = true
		log.Printf("[WEB]: SSL enabled via command-line flag")
		if webport == 0 && webConfig.ListenPort == config.DefaultWebPort {
			webConfig.ListenPort = config.DefaultWebSSLPort
		}
	}
	if webport > 0 {
		webConfig.ListenPort = webport
		log.Printf("[WEB]: Overriding listen port with command-line flag: %d", webConfig.ListenPort)
	}
	if webcertFile != "" {
		webConfig.CertFile = webcertFile
		log.Printf("[WEB]: SSL cert file set: %s", webConfig.CertFile)
	}
	if webkeyFile != "" {
		webConfig.KeyFile = webkeyFile
		log.Printf("[WEB]: SSL key file set: %s", webConfig.KeyFile)
	}
	if dbPath != "" {
		mainConfig.Database.MainDB = dbPath
	}

	// Validate port
	if webConfig.ListenPort < 1024 || webConfig.ListenPort > 65535 {
		log.Fatalf("[WEB]: Invalid port number: %d (must be between 1024 and 65535)", webConfig.ListenPort)
	}

	if pprofAddr != "" {
		Prof = prof.NewProf()
		go Prof.PprofWeb(pprofAddr)
		log.Printf("[WEB]: pprof listening on %s", pprofAddr)
	}

	db, err := database.OpenDatabase(database.DefaultDBConfig(mainConfig.Database.MainDB))
	if err != nil {
		log.Fatalf("[WEB]: Failed to initialize database: %v", err)
	}
	if err := db.Migrate(); err != nil {
		log.Fatalf("[WEB]: Failed to apply database migrations: %v", err)
	}

	server := web.NewServer(mainConfig, web.ServerDeps{Articles: db, Guilds: db})

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	webServerErrChan := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			webServerErrChan <- err
		}
	}()
	log.Printf("[WEB]: Server started. Press Ctrl+C to gracefully shutdown...")

	select {
	case <-sigChan:
		log.Printf("[WEB]: Received shutdown signal, initiating graceful shutdown...")
	case err := <-webServerErrChan:
		log.Fatalf("[WEB]: Failed to start web server: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("[WEB]: %v", err)
	}

	if err := db.Shutdown(); err != nil {
		log.Fatalf("[WEB]: Failed to shutdown database: %v", err)
	}
	log.Printf("[WEB]: Graceful shutdown completed")
}
