package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/illarion/passvault/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "init":
		runInit(ctx, os.Args[2:])
	case "set":
		runSet(ctx, os.Args[2:])
	case "get":
		runGet(ctx, os.Args[2:])
	case "rm":
		runRm(ctx, os.Args[2:])
	case "ls":
		runLs(ctx, os.Args[2:])
	case "status":
		runStatus(ctx, os.Args[2:])
	case "serve":
		runServe(ctx, os.Args[2:])
	case "sync":
		runSync(ctx, os.Args[2:])
	case "diff":
		runDiff(ctx, os.Args[2:])
	case "passwd":
		runPasswd(ctx, os.Args[2:])
	case "compact":
		runCompact(ctx, os.Args[2:])
	case "keyring":
		runKeyring(ctx, os.Args[2:])
	case "completion":
		runCompletion(ctx, os.Args[2:])
	case "help", "-h", "--help":
		if len(os.Args) <= 2 {
			printUsage()
			return
		}
		printCommandHelp(os.Args[2])
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func parseFlags(fs *flag.FlagSet, args []string) {
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func runInit(_ context.Context, args []string) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	parseFlags(fs, args)

	cmd.Init()
}

func runSet(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("set", flag.ExitOnError)
	stdin := fs.Bool("stdin", false, "Read the value from stdin")
	parseFlags(fs, args)

	switch fs.NArg() {
	case 1:
		cmd.Set(ctx, fs.Arg(0), nil, *stdin)
	case 2:
		value := fs.Arg(1)
		cmd.Set(ctx, fs.Arg(0), &value, false)
	default:
		fmt.Fprintln(os.Stderr, "Usage: passvault set [-stdin] <name> [value]")
		os.Exit(1)
	}
}

func runGet(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("get", flag.ExitOnError)
	parseFlags(fs, args)

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: passvault get <name>")
		os.Exit(1)
	}
	cmd.Get(ctx, fs.Arg(0))
}

func runRm(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("rm", flag.ExitOnError)
	parseFlags(fs, args)

	cmd.Remove(ctx, fs.Args())
}

func runLs(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("ls", flag.ExitOnError)
	parseFlags(fs, args)

	cmd.List(ctx)
}

func runStatus(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	parseFlags(fs, args)

	cmd.Status(ctx)
}

func runServe(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	host := fs.String("host", "", "Address to listen on (default all interfaces)")
	port := fs.Int("port", 0, "Port to listen on (default from config, 2000)")
	parseFlags(fs, args)

	cmd.Serve(ctx, *host, *port)
}

func syncFlags(name string) (*flag.FlagSet, *cmd.SyncOptions) {
	opts := &cmd.SyncOptions{}
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.StringVar(&opts.Host, "host", "", "Peer host (default from config)")
	fs.IntVar(&opts.Port, "port", 0, "Peer port (default from config, 2000)")
	fs.BoolVar(&opts.RemotePassword, "remote-password", false, "Prompt for a separate peer password")
	return fs, opts
}

func runSync(ctx context.Context, args []string) {
	fs, opts := syncFlags("sync")
	fs.BoolVar(&opts.KeepLocal, "keep-local", false, "Keep local values on every conflict")
	fs.BoolVar(&opts.UseRemote, "use-remote", false, "Use remote values on every conflict")
	fs.BoolVar(&opts.Abort, "abort", false, "Abort on the first conflict")
	parseFlags(fs, args)

	cmd.Sync(ctx, *opts)
}

func runDiff(ctx context.Context, args []string) {
	fs, opts := syncFlags("diff")
	fs.BoolVar(&opts.ShowValues, "values", false, "Show value diffs for modified entries")
	parseFlags(fs, args)

	cmd.Diff(ctx, *opts)
}

func runPasswd(_ context.Context, args []string) {
	fs := flag.NewFlagSet("passwd", flag.ExitOnError)
	parseFlags(fs, args)

	cmd.Passwd()
}

func runCompact(_ context.Context, args []string) {
	fs := flag.NewFlagSet("compact", flag.ExitOnError)
	parseFlags(fs, args)

	cmd.Compact()
}

func runKeyring(_ context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: passvault keyring <save|delete|status>")
		os.Exit(1)
	}

	switch args[0] {
	case "save":
		cmd.KeyringSave()
	case "delete":
		cmd.KeyringDelete()
	case "status":
		cmd.KeyringStatus()
	default:
		fmt.Fprintf(os.Stderr, "Unknown keyring command: %s\n", args[0])
		os.Exit(1)
	}
}

func runCompletion(_ context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: passvault completion <bash|zsh|fish>")
		os.Exit(1)
	}
	cmd.Completion(args[0])
}

func printUsage() {
	fmt.Println("passvault - Encrypted password vault with peer sync")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  passvault <command> [arguments]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  init        Create a new vault")
	fmt.Println("  set         Store an entry")
	fmt.Println("  get         Print an entry")
	fmt.Println("  rm          Remove entries")
	fmt.Println("  ls          List entry names")
	fmt.Println("  status      Show vault metadata")
	fmt.Println("  serve       Serve the encrypted vault to sync peers")
	fmt.Println("  sync        Merge a peer's vault into the local vault")
	fmt.Println("  diff        Compare the local vault with a peer's vault")
	fmt.Println("  passwd      Change master password")
	fmt.Println("  compact     Compact vault to reclaim disk space")
	fmt.Println("  keyring     Manage password in OS keyring")
	fmt.Println("  completion  Generate shell completions")
	fmt.Println("  help        Show help for a command")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  passvault init                  # Create new vault")
	fmt.Println("  passvault set email             # Store an entry (prompts for value)")
	fmt.Println("  passvault serve                 # Serve on port 2000")
	fmt.Println("  passvault sync -host laptop     # Merge the vault served by laptop")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  PASSVAULT_CONFIG    Config file (default ~/.config/passvault/config.yaml)")
	fmt.Println("  PASSVAULT_FILE      Vault location (default ~/.passvault)")
	fmt.Println("  PASSVAULT_BACKEND   Storage backend: file or bolt")
	fmt.Println("  PASSVAULT_PORT      Sync port (default 2000)")
	fmt.Println("  PASSVAULT_PASSWORD  Master password (skips the prompt)")
	fmt.Println("  PASSVAULT_DEBUG     Log per-field diagnostics (never values)")
	fmt.Println()
	fmt.Println("Use 'passvault help <command>' for more information about a command.")
}

func printCommandHelp(command string) {
	switch command {
	case "init":
		fmt.Println("passvault init")
		fmt.Println()
		fmt.Println("Creates an empty vault at the configured location.")
		fmt.Println("Prompts for a master password that will be used for encryption.")
		fmt.Println("The password is not stored anywhere - you must remember it.")
	case "set":
		fmt.Println("passvault set [-stdin] <name> [value]")
		fmt.Println()
		fmt.Println("Stores an entry, replacing any previous value.")
		fmt.Println("Without a value argument the value is prompted for without echo.")
		fmt.Println("Reserved names (iv, description, cipher, keygen, version, salt_length)")
		fmt.Println("are rejected.")
		fmt.Println()
		fmt.Println("Flags:")
		fmt.Println("  -stdin    Read the value from the first line of stdin")
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println("  passvault set email")
		fmt.Println("  echo hunter2 | passvault set -stdin bank")
	case "get":
		fmt.Println("passvault get <name>")
		fmt.Println()
		fmt.Println("Prints the value of an entry.")
	case "rm":
		fmt.Println("passvault rm <name> [name...]")
		fmt.Println()
		fmt.Println("Removes entries from the vault. Nothing is removed if any name is missing.")
	case "ls":
		fmt.Println("passvault ls")
		fmt.Println()
		fmt.Println("Lists entry names. Names are stored in clear; no password is needed.")
	case "status":
		fmt.Println("passvault status")
		fmt.Println()
		fmt.Println("Shows vault metadata:")
		fmt.Println("  - Location, backend and size")
		fmt.Println("  - Format version, cipher, key generation and salt length")
		fmt.Println("  - Keyring state and entry names")
		fmt.Println()
		fmt.Println("Does not require a password.")
	case "serve":
		fmt.Println("passvault serve [-host addr] [-port n]")
		fmt.Println()
		fmt.Println("Serves the encrypted vault over plain TCP until interrupted.")
		fmt.Println("Each client receives the document and is disconnected.")
		fmt.Println("Clients are served one at a time. There is no authentication:")
		fmt.Println("anyone who can connect receives the encrypted document.")
	case "sync":
		fmt.Println("passvault sync [-host h] [-port n] [-remote-password] [--keep-local|--use-remote|--abort]")
		fmt.Println()
		fmt.Println("Fetches the vault served by a peer and merges it into the local vault.")
		fmt.Println("Entries only on the peer are imported; local-only entries are kept.")
		fmt.Println()
		fmt.Println("Flags:")
		fmt.Println("  -remote-password  Prompt for the peer's password when it differs")
		fmt.Println("  --keep-local      Keep local values on every conflict")
		fmt.Println("  --use-remote      Use remote values on every conflict")
		fmt.Println("  --abort           Abort on the first conflict")
		fmt.Println()
		fmt.Println("Interactive mode (default), for each conflict:")
		fmt.Println("    [l] Keep local value")
		fmt.Println("    [r] Use remote value (overwrite local)")
		fmt.Println("    [d] Show diff of the two values")
		fmt.Println("    [x] Abort sync")
	case "diff":
		fmt.Println("passvault diff [-host h] [-port n] [-remote-password] [-values]")
		fmt.Println()
		fmt.Println("Compares the local vault with the vault served by a peer.")
		fmt.Println("Values are only printed with -values.")
	case "passwd":
		fmt.Println("passvault passwd")
		fmt.Println()
		fmt.Println("Changes the master password.")
		fmt.Println("Requires both the current and new passwords.")
		fmt.Println("Re-encrypts all entries with the new password.")
	case "compact":
		fmt.Println("passvault compact")
		fmt.Println()
		fmt.Println("Compacts the bolt vault database to reclaim unused disk space.")
		fmt.Println("This is automatically done after 'rm' and 'passwd' commands.")
		fmt.Println()
		fmt.Println("Does not require a password.")
	case "keyring":
		fmt.Println("passvault keyring <save|delete|status>")
		fmt.Println()
		fmt.Println("Manages the master password cached in the OS keyring.")
	case "completion":
		fmt.Println("passvault completion <bash|zsh|fish>")
		fmt.Println()
		fmt.Println("Outputs shell completion script for the specified shell.")
		fmt.Println()
		fmt.Println("Setup:")
		fmt.Println("  # Bash - add to ~/.bashrc")
		fmt.Println("  eval \"$(passvault completion bash)\"")
		fmt.Println()
		fmt.Println("  # Zsh - add to ~/.zshrc")
		fmt.Println("  eval \"$(passvault completion zsh)\"")
		fmt.Println()
		fmt.Println("  # Fish - add to ~/.config/fish/config.fish")
		fmt.Println("  passvault completion fish | source")
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
	}
}
