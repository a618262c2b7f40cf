// ABOUTME: Entry point for the skiff outreach CLI and MCP server
// ABOUTME: Routes to onboarding, generation, session, and server commands
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/harperreed/skiff/cli"
	"github.com/harperreed/skiff/config"
	"github.com/harperreed/skiff/db"
)

const version = "0.1.0"

func main() {
	// Global flags
	showVersion := flag.Bool("version", false, "Show version and exit")
	dbPath := flag.String("db-path", "", "Database path (default: ~/.local/share/skiff/skiff.db)")
	initOnly := flag.Bool("init", false, "Initialize database and exit")

	// Parse global flags but don't fail on unknown (for subcommands)
	_ = flag.CommandLine.Parse(os.Args[1:])

	if *showVersion {
		fmt.Printf("skiff version %s\n", version)
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	finalDBPath := *dbPath
	if finalDBPath == "" {
		finalDBPath = config.DefaultDBPath()
	}
	database, err := db.OpenDatabase(finalDBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer database.Close()

	if *initOnly {
		log.Printf("Database initialized: %s", finalDBPath)
		os.Exit(0)
	}

	command := args[0]
	commandArgs := args[1:]

	switch command {
	case "onboard":
		if err := cli.Onboard(database, cfg); err != nil {
			log.Fatalf("Error: %v", err)
		}

	case "generate":
		generateFlags := flag.NewFlagSet("generate", flag.ExitOnError)
		campaignID := generateFlags.String("campaign", "", "Campaign ID (required)")
		callToAction := generateFlags.String("cta", "", "Call to action override")
		_ = generateFlags.Parse(commandArgs)
		if *campaignID == "" {
			fmt.Println("Error: generate requires --campaign <id>")
			printUsage()
			os.Exit(1)
		}
		if err := cli.Generate(database, cfg, *campaignID, *callToAction); err != nil {
			log.Fatalf("Error: %v", err)
		}

	case "recover":
		if err := cli.Recover(database); err != nil {
			log.Fatalf("Error: %v", err)
		}

	case "status":
		if err := cli.Status(database); err != nil {
			log.Fatalf("Error: %v", err)
		}

	case "signout":
		if err := cli.SignOut(); err != nil {
			log.Fatalf("Error: %v", err)
		}

	case "serve":
		if err := cli.Serve(database, cfg); err != nil {
			log.Fatalf("Error: %v", err)
		}

	case "mcp":
		if err := cli.RunMCPServer(database, cfg); err != nil {
			log.Fatalf("MCP server failed: %v", err)
		}

	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf(`skiff v%s - Cold outreach campaign engine

USAGE:
  skiff [global flags] <command> [flags]

GLOBAL FLAGS:
  --version              Show version and exit
  --db-path <path>       Database path (default: ~/.local/share/skiff/skiff.db)
  --init                 Initialize database and exit

COMMANDS:
  onboard                Sign in with Google and run first-time onboarding
  generate               Generate leads, template, and cadence for a campaign
    --campaign <id>        Campaign ID (required)
    --cta <text>           Call to action override
  recover                Silently restore the last signed-in session
  status                 Show session, import counts, and campaigns
  signout                Revoke the Google token and clear local session state
  serve                  Run the background daemon with the websocket bus
  mcp                    Start MCP server for host applications

EXAMPLES:
  # First run: sign in, answer the questionnaire, import sent mail
  skiff onboard

  # Generate assets for a campaign
  skiff generate --campaign 6f1c0f3a-8f4e-4f6a-9a2b-1d9c5e7b0a42

  # Check where things stand
  skiff status

  # Expose skiff to an MCP host
  skiff mcp

`, version)
}
