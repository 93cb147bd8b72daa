// Command kvctl opens a store directory and either runs a single command
// or drops into an interactive REPL, in the spirit of the original
// multi-version kv-store CLI this package grew out of.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/gtarraga/kvengine"
)

func main() {
	dir := flag.String("dir", "./kvdata", "store directory")
	fsync := flag.Bool("fsync", false, "fsync every write")
	threshold := flag.Int64("compaction-threshold", 0, "stale-byte threshold before compaction runs (0 = default)")
	verbose := flag.Bool("verbose", false, "enable info-level logging")
	flag.Parse()

	logger := zap.NewNop()
	if *verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		logger = l
	}
	defer logger.Sync()

	opts := []kvengine.Option{kvengine.WithLogger(logger), kvengine.WithFsync(*fsync)}
	if *threshold > 0 {
		opts = append(opts, kvengine.WithCompactionThreshold(*threshold))
	}

	store, err := kvengine.Open(*dir, opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	args := flag.Args()
	if len(args) == 0 {
		runInteractive(store)
		return
	}
	if err := executeCommand(store, args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func executeCommand(store *kvengine.Store, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("no command provided")
	}

	switch strings.ToLower(args[0]) {
	case "set":
		if len(args) != 3 {
			return fmt.Errorf("usage: set <key> <value>")
		}
		return store.Set(args[1], args[2])

	case "get":
		if len(args) != 2 {
			return fmt.Errorf("usage: get <key>")
		}
		value, ok, err := store.Get(args[1])
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("key %q not found", args[1])
		}
		fmt.Println(value)
		return nil

	case "delete", "remove", "del":
		if len(args) != 2 {
			return fmt.Errorf("usage: delete <key>")
		}
		return store.Remove(args[1])

	default:
		return fmt.Errorf("unknown command %q. Available commands: set, get, delete", args[0])
	}
}

func runInteractive(store *kvengine.Store) {
	fmt.Println("kvengine - Interactive Mode")
	fmt.Println("Commands: set <key> <value> | get <key> | delete <key> | exit | help")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("kv> ")
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		switch strings.ToLower(fields[0]) {
		case "exit", "quit":
			return
		case "help":
			printHelp()
			continue
		}

		if err := executeCommand(store, fields); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
	}

	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "error reading input: %v\n", err)
	}
}

func printHelp() {
	fmt.Println("Available Commands:")
	fmt.Println("  set <key> <value>   - store a value under key")
	fmt.Println("  get <key>           - read the value stored under key")
	fmt.Println("  delete <key>        - remove key")
	fmt.Println("  help                - show this help message")
	fmt.Println("  exit                - exit interactive mode")
}
