package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"syscall"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"

	"github.com/go-while/go-guildhub/internal/config"
	"github.com/go-while/go-guildhub/internal/database"
)

var appVersion = "-unset-"

func main() {
	config.AppVersion = appVersion
	log.Printf("go-guildhub Guild Manager (version: %s)", config.AppVersion)
	var (
		createGuild   = flag.Bool("create", false, "Create a new guild")
		listGuilds    = flag.Bool("list", false, "List all guilds")
		renameGuild   = flag.Bool("rename", false, "Rename a guild")
		setPassphrase = flag.Bool("passphrase", false, "Set or clear the editor passphrase of a guild")
		protect       = flag.Bool("protect", false, "Ask for an editor passphrase when creating a guild")
		guildID       = flag.Int64("id", 0, "Guild ID for rename/passphrase operations")
		name          = flag.String("name", "", "Guild name for create/rename")
		configPath    = flag.String("config", "", "YAML config file (empty to use defaults)")
		dbPath        = flag.String("db", "", "Path to the main database (overrides database.main_db)")
	)
	flag.Parse()

	if !*createGuild && !*listGuilds && !*renameGuild && !*setPassphrase {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -create -name \"Final Fantasy Legends\"\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -create -name \"Night Watch\" -protect\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -list\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -rename -id 1 -name \"FFL\"\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -passphrase -id 1   (empty input clears the passphrase)\n", os.Args[0])
		os.Exit(1)
	}

	mainConfig, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *dbPath != "" {
		mainConfig.Database.MainDB = *dbPath
	}

	// Initialize database
	db, err := database.OpenDatabase(database.DefaultDBConfig(mainConfig.Database.MainDB))
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Shutdown()

	// Apply migrations
	if err := db.Migrate(); err != nil {
		log.Fatalf("Failed to apply database migrations: %v", err)
	}

	ctx := context.Background()
	switch {
	case *createGuild:
		if *name == "" {
			log.Fatal("Name is required for guild creation")
		}
		if err := createNewGuild(ctx, db, *name, *protect); err != nil {
			log.Fatalf("Failed to create guild: %v", err)
		}

	case *listGuilds:
		if err := listAllGuilds(ctx, db); err != nil {
			log.Fatalf("Failed to list guilds: %v", err)
		}

	case *renameGuild:
		if *guildID <= 0 || *name == "" {
			log.Fatal("-id and -name are required for guild rename")
		}
		if err := db.RenameGuild(ctx, *guildID, *name); err != nil {
			log.Fatalf("Failed to rename guild: %v", err)
		}
		fmt.Printf("✅ Guild %d renamed to '%s'\n", *guildID, *name)

	case *setPassphrase:
		if *guildID <= 0 {
			log.Fatal("-id is required to set a passphrase")
		}
		if err := updateGuildPassphrase(ctx, db, *guildID); err != nil {
			log.Fatalf("Failed to update passphrase: %v", err)
		}
	}
}

func createNewGuild(ctx context.Context, db *database.Database, name string, protect bool) error {
	var hash string
	if protect {
		var err error
		hash, err = readPassphraseHash()
		if err != nil {
			return err
		}
		if hash == "" {
			return fmt.Errorf("passphrase must not be empty with -protect")
		}
	}

	id, err := db.CreateGuild(ctx, name)
	if err != nil {
		return err
	}
	if hash != "" {
		if err := db.SetGuildPassphrase(ctx, id, hash); err != nil {
			return fmt.Errorf("guild created but failed to set passphrase: %v", err)
		}
		fmt.Printf("✅ Editor passphrase set for guild %d\n", id)
	}

	fmt.Printf("✅ Guild '%s' created with ID %d\n", name, id)
	return nil
}

func listAllGuilds(ctx context.Context, db *database.Database) error {
	guilds, err := db.ListGuilds(ctx)
	if err != nil {
		return fmt.Errorf("failed to get guilds: %v", err)
	}

	if len(guilds) == 0 {
		fmt.Println("No guilds found")
		return nil
	}

	fmt.Printf("Found %d guilds:\n\n", len(guilds))
	fmt.Printf("%-4s %-10s %-40s %s\n", "ID", "Protected", "Name", "Created")
	fmt.Printf("%-4s %-10s %-40s %s\n", "----", "---------", "----", "-------")

	for _, guild := range guilds {
		protected := "no"
		if guild.Protected() {
			protected = "yes"
		}
		fmt.Printf("%-4d %-10s %-40s %s\n",
			guild.ID,
			protected,
			truncate(guild.Name, 40),
			guild.CreatedAt.Format("2006-01-02 15:04"),
		)
	}

	return nil
}

func updateGuildPassphrase(ctx context.Context, db *database.Database, id int64) error {
	guild, err := db.GetGuild(ctx, id)
	if err != nil {
		return err
	}

	fmt.Printf("Editor passphrase for guild '%s' (empty clears it)\n", guild.Name)
	hash, err := readPassphraseHash()
	if err != nil {
		return err
	}
	if err := db.SetGuildPassphrase(ctx, id, hash); err != nil {
		return err
	}

	if hash == "" {
		fmt.Printf("✅ Passphrase cleared, guild '%s' is open for editing\n", guild.Name)
	} else {
		fmt.Printf("✅ Passphrase updated successfully for guild '%s'\n", guild.Name)
	}
	return nil
}

// readPassphraseHash prompts twice and returns the bcrypt hash, or "" for empty input
func readPassphraseHash() (string, error) {
	fmt.Print("Enter passphrase: ")
	passphrase, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", fmt.Errorf("failed to read passphrase: %v", err)
	}
	fmt.Println()

	fmt.Print("Confirm passphrase: ")
	confirm, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", fmt.Errorf("failed to read passphrase confirmation: %v", err)
	}
	fmt.Println()

	if string(passphrase) != string(confirm) {
		return "", fmt.Errorf("passphrases do not match")
	}
	if len(passphrase) == 0 {
		return "", nil
	}
	if len(passphrase) < 6 {
		return "", fmt.Errorf("passphrase must be at least 6 characters long")
	}

	hashed, err := bcrypt.GenerateFromPassword(passphrase, bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash passphrase: %v", err)
	}
	return string(hashed), nil
}

// truncate shortens s to maxLen runes, never splitting a character
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}
