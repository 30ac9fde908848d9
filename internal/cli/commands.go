// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// commands.go - ember sessions and config subcommands.
package cli

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/ember-tui/internal/config"
	"github.com/jeranaias/ember-tui/internal/export"
	"github.com/jeranaias/ember-tui/internal/storage"
	"github.com/jeranaias/ember-tui/internal/util"
)

// =============================================================================
// SESSIONS COMMAND
// =============================================================================

// HandleSessionsCommand lists or clears stored sessions.
func HandleSessionsCommand(args Args) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	sessionsPath, err := cfg.SessionsPath()
	if err != nil {
		return err
	}
	store, err := storage.NewFileStoreWithPath(sessionsPath)
	if err != nil {
		return err
	}

	switch args.Subcommand {
	case "", "list":
		sessions, err := store.Load()
		if err != nil {
			return err
		}
		if len(sessions) == 0 {
			fmt.Println("no stored sessions")
			return nil
		}
		for _, s := range sessions {
			fmt.Printf("%s  %-40s  %d messages  %s\n",
				s.UpdatedAt.Format("2006-01-02 15:04"),
				util.TruncateRunes(s.DisplayTitle(), 40),
				len(s.Messages),
				s.ID)
		}
		return nil

	case "clear":
		if IsTTY() {
			fmt.Print("delete ALL stored sessions? type yes to confirm: ")
			var answer string
			fmt.Scanln(&answer)
			if answer != "yes" {
				fmt.Println("aborted")
				return nil
			}
		}
		if err := store.DeleteAll(); err != nil {
			return err
		}
		fmt.Println("all sessions deleted")
		return nil

	case "export":
		if len(args.Raw) < 2 {
			return fmt.Errorf("usage: ember sessions export <id> [md|json]")
		}
		sess, err := store.LoadByID(args.Raw[1])
		if err != nil {
			return err
		}
		var exporter export.Exporter = export.NewMarkdownExporter(nil)
		if len(args.Raw) > 2 && args.Raw[2] == "json" {
			exporter = export.NewJSONExporter()
		}
		path, err := export.ToFile(sess, exporter, nil)
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil

	default:
		return fmt.Errorf("unknown sessions subcommand %q (try list, export or clear)", args.Subcommand)
	}
}

// =============================================================================
// CONFIG COMMAND
// =============================================================================

// HandleConfigCommand shows configuration details.
func HandleConfigCommand(args Args) error {
	switch args.Subcommand {
	case "path":
		path, err := config.ConfigPath()
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil

	case "", "show":
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		return toml.NewEncoder(os.Stdout).Encode(cfg)

	case "init":
		path, err := config.ConfigPath()
		if err != nil {
			return err
		}
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists at %s", path)
		}
		if err := config.Save(config.Default()); err != nil {
			return err
		}
		fmt.Printf("wrote default config to %s\n", path)
		return nil

	default:
		return fmt.Errorf("unknown config subcommand %q (try path, show or init)", args.Subcommand)
	}
}
