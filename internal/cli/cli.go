// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing and command handlers for ember.
package cli

import (
	"fmt"
	"os"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdAsk
	CmdChat
	CmdSessions
	CmdConfig
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Provider string
	Search   bool
	Think    bool
	Quiet    bool

	// Command-specific
	Query      string
	Files      []string
	Subcommand string

	// Raw args remaining after flag parsing
	Raw []string
}

const usageText = `ember - a streaming AI chat client for the terminal

Ember talks to Gemini and Pollinations, with live streaming replies,
visible model reasoning, web-search grounding and file attachments.

Usage:
  ember                      Start the TUI (default)
  ember ask "question"       Ask a single question and exit
  ember chat                 Interactive chat in the plain terminal
  ember sessions [list|export|clear] Stored session management
  ember config [path|show]   Configuration
  ember version              Show version
  ember help                 Show this help

Flags:
  --provider <name>   Backend to use: gemini or pollinations
  --search            Enable web-search grounding for this run
  --think             Enable deep thinking for this run
  --file <path>       Attach a file (repeatable, ask only)
  --quiet             Suppress decoration, print the reply only

Examples:
  ember ask "Explain io.Reader in two sentences"
  ember ask --think "Why does this deadlock?" --file main.go
  ember ask --search "What changed in the latest Go release?"
  ember chat --provider pollinations

Environment:
  EMBER_GEMINI_KEY / GEMINI_API_KEY   Gemini API key
  EMBER_POLLINATIONS_KEY              Pollinations API key (optional)
  EMBER_PROVIDER                      Default provider override

Config file: ~/.ember/config.toml
`

// Parse parses os.Args into a command and its arguments.
func Parse() (Command, Args) {
	return parseArgs(os.Args[1:])
}

func parseArgs(argv []string) (Command, Args) {
	var args Args
	var remaining []string

	for i := 0; i < len(argv); i++ {
		arg := argv[i]
		switch arg {
		case "--provider", "-p":
			if i+1 < len(argv) {
				i++
				args.Provider = argv[i]
			}
		case "--search", "-s":
			args.Search = true
		case "--think", "-t":
			args.Think = true
		case "--file", "-f":
			if i+1 < len(argv) {
				i++
				args.Files = append(args.Files, argv[i])
			}
		case "--quiet", "-q":
			args.Quiet = true
		case "--help", "-h":
			return CmdHelp, args
		case "--version", "-v":
			return CmdVersion, args
		default:
			remaining = append(remaining, arg)
		}
	}

	if len(remaining) == 0 {
		return CmdTUI, args
	}

	first := remaining[0]
	cmd := strings.ToLower(first)
	remaining = remaining[1:]
	if len(remaining) == 0 {
		remaining = nil
	}
	args.Raw = remaining

	switch cmd {
	case "tui":
		return CmdTUI, args
	case "ask":
		args.Query = strings.Join(remaining, " ")
		return CmdAsk, args
	case "chat":
		return CmdChat, args
	case "session", "sessions":
		if len(remaining) > 0 {
			args.Subcommand = remaining[0]
		}
		return CmdSessions, args
	case "config":
		if len(remaining) > 0 {
			args.Subcommand = remaining[0]
		}
		return CmdConfig, args
	case "version":
		return CmdVersion, args
	case "help":
		return CmdHelp, args
	default:
		// Bare words are treated as an ask query.
		args.Query = strings.Join(append([]string{first}, remaining...), " ")
		return CmdAsk, args
	}
}

// PrintUsage prints the usage text.
func PrintUsage() {
	fmt.Print(usageText)
}

// PrintVersion prints build information.
func PrintVersion() {
	fmt.Printf("ember %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
}
