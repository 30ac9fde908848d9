// ember - a streaming AI chat client for the terminal.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/ember-tui/internal/cli"
	"github.com/jeranaias/ember-tui/internal/config"
	"github.com/jeranaias/ember-tui/internal/model"
	"github.com/jeranaias/ember-tui/internal/storage"
	"github.com/jeranaias/ember-tui/internal/ui/chat"
	"github.com/jeranaias/ember-tui/internal/ui/styles"
)

// Program reference for delivering engine callbacks from stream goroutines.
var (
	programMu  sync.Mutex
	programRef *tea.Program
)

func sendToProgram(msg tea.Msg) {
	programMu.Lock()
	p := programRef
	programMu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

func main() {
	command, args := cli.Parse()

	var err error
	switch command {
	case cli.CmdAsk:
		err = cli.HandleAskCommand(args)
	case cli.CmdChat:
		err = cli.HandleChatCommand(args)
	case cli.CmdSessions:
		err = cli.HandleSessionsCommand(args)
	case cli.CmdConfig:
		err = cli.HandleConfigCommand(args)
	case cli.CmdVersion:
		cli.PrintVersion()
	case cli.CmdHelp:
		cli.PrintUsage()
	default:
		err = runTUI(args)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "ember: %v\n", err)
		os.Exit(1)
	}
}

// runTUI starts the full-screen interface.
func runTUI(args cli.Args) error {
	if !cli.IsTTY() {
		return fmt.Errorf("not a terminal (try `ember ask` for piped use)")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	config.SetGlobal(cfg)

	// Stdout belongs to the alt screen; debug logging goes to a file.
	if os.Getenv("EMBER_DEBUG") != "" {
		if dir, dirErr := config.ConfigDir(); dirErr == nil {
			f, logErr := tea.LogToFile(filepath.Join(dir, "debug.log"), "debug")
			if logErr == nil {
				defer f.Close()
			}
		}
	}

	sessionsPath, err := cfg.SessionsPath()
	if err != nil {
		return err
	}
	store, err := storage.NewFileStoreWithPath(sessionsPath)
	if err != nil {
		return err
	}
	if cfg.Storage.MaxSessions > 0 {
		store.MaxSessions = cfg.Storage.MaxSessions
	}

	eng, err := cli.BuildEngine(cfg, args.Provider,
		func(messageID string) {
			sendToProgram(chat.StreamUpdateMsg{MessageID: messageID})
		},
		func(sess *model.ChatSession) {
			store.Save(sess)
		},
	)
	if err != nil {
		return err
	}

	theme := styles.NewTheme(cfg.UI.Theme == "dark")
	m := chat.New(cfg, eng, store, theme)
	if args.Search {
		m.SetSearch(true)
	}
	if args.Think {
		m.SetThink(true)
	}

	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	programMu.Lock()
	programRef = p
	programMu.Unlock()

	// Live-reload the theme and defaults when the config file changes.
	configPath, err := config.ConfigPath()
	if err == nil {
		watcher, watchErr := config.NewWatcher(configPath, func(next *config.Config) {
			config.SetGlobal(next)
			sendToProgram(chat.ConfigReloadedMsg{Theme: next.UI.Theme})
		})
		if watchErr == nil {
			defer watcher.Close()
		}
	}

	defer eng.CancelAll()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running ember: %w", err)
	}
	return nil
}
