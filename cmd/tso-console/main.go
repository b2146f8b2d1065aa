// ABOUTME: Command-line console for the TSO backend: session, setup, and navigation checks
// ABOUTME: Keeps credentials in the configured store and evaluates routes through the gate

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
)

// Version is set at build time.
var version = "dev"

const banner = `
 _                                        _
| |_ ___  ___         ___ ___  _ __  ___  ___ | | ___
| __/ __|/ _ \ _____ / __/ _ \| '_ \/ __|/ _ \| |/ _ \
| |_\__ \ (_) |_____| (_| (_) | | | \__ \ (_) | |  __/
 \__|___/\___/       \___\___/|_| |_|___/\___/|_|\___|
`

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "help", "-h", "--help":
		printUsage()
		return
	case "version", "--version":
		fmt.Println(version)
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	switch cmd {
	case "login":
		err = a.cmdLogin(ctx, args)
	case "register":
		err = a.cmdRegister(ctx, args)
	case "logout":
		err = a.cmdLogout(ctx)
	case "whoami":
		err = a.cmdWhoami(ctx, args)
	case "status":
		err = a.cmdStatus(ctx)
	case "required":
		err = a.cmdRequired(ctx)
	case "setup":
		err = a.cmdSetup(ctx, args)
	case "set-config":
		err = a.cmdSetConfig(ctx, args)
	case "navigate":
		err = a.cmdNavigate(ctx, args)
	case "routes":
		err = a.cmdRoutes()
	case "lang":
		err = a.cmdLang(ctx, args)
	case "external":
		err = a.cmdExternal(ctx, args)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		a.Close()
		os.Exit(1)
	}

	if err != nil {
		color.Red("Error: %v\n", err)
		a.Close()
		os.Exit(1)
	}
}

func printUsage() {
	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)

	cyan.Print(banner)
	fmt.Println()
	fmt.Println("Usage: tso-console <command> [args]")
	fmt.Println()
	yellow.Println("Session:")
	fmt.Println("  login <user> <pass>         Log in and store the session")
	fmt.Println("  register <user> <pass>      Create an account (does not log in)")
	fmt.Println("  logout                      Clear the stored session")
	fmt.Println("  whoami [--refresh]          Show the stored session, optionally refreshed from the backend")
	fmt.Println()
	yellow.Println("System:")
	fmt.Println("  status                      Show whether the system is configured")
	fmt.Println("  required                    List configuration keys setup needs")
	fmt.Println("  setup [key=value...]        Initialize the system (prompts for missing keys)")
	fmt.Println("  set-config <key> <value>    Update one configuration value (admin)")
	fmt.Println()
	yellow.Println("Navigation:")
	fmt.Println("  navigate <path>...          Resolve where each path lands after the gate")
	fmt.Println("  routes                      List the route table")
	fmt.Println()
	yellow.Println("External platform:")
	fmt.Println("  external token <value>      Save a platform token")
	fmt.Println("  external info               Show token metadata")
	fmt.Println("  external check              Check the platform connection")
	fmt.Println("  external test               Test the connection and log the result")
	fmt.Println("  external logs               Show the connection log")
	fmt.Println("  external clear-logs         Clear the connection log")
	fmt.Println("  external refresh            Refresh the token if it expires within 24h")
	fmt.Println("  external watch              Keep refreshing on external.refresh_interval until interrupted")
	fmt.Println()
	yellow.Println("Other:")
	fmt.Println("  lang [tag]                  Show or set the display language")
	fmt.Println("  version                     Print the version")
	fmt.Println()
	yellow.Println("Environment:")
	fmt.Println("  TSO_CONFIG                  Config file (default: ~/.config/tso/console.yaml)")
	fmt.Println("  LANG, LC_ALL                Locale used when no language is saved")
	fmt.Println()
	yellow.Println("Examples:")
	fmt.Println("  tso-console setup site_name=TSO external_platform_url=https://ext.example")
	fmt.Println("  tso-console login admin secret")
	fmt.Println("  tso-console navigate / /admin/settings /login")
	fmt.Println()
}
