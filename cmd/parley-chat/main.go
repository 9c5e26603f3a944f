// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

// parley-chat is the interactive terminal client for Parley. It
// connects to a gateway over HTTP for outbound sends and a websocket
// stream for inbound notifications, and renders conversations with
// optimistic delivery status in a full-screen TUI.
//
// Configuration comes from a single YAML file, named by --config or
// the PARLEY_CONFIG environment variable. See lib/config for the
// schema.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"

	"github.com/parleyhq/parley/chat"
	"github.com/parleyhq/parley/gateway"
	"github.com/parleyhq/parley/lib/chatui"
	"github.com/parleyhq/parley/lib/config"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath string
	var logOutput string

	flagSet := pflag.NewFlagSet("parley-chat", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to YAML config file (default: $"+config.EnvVar+")")
	flagSet.StringVar(&logOutput, "log-output", "", "write JSON log records to this file")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}
	if args := flagSet.Args(); len(args) > 0 {
		return fmt.Errorf("unexpected argument: %s", args[0])
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, closeLog, err := buildLogger(logOutput)
	if err != nil {
		return err
	}
	defer closeLog()

	client, err := gateway.NewClient(gateway.ClientConfig{
		BaseURL: cfg.GatewayURL,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	engine, err := chat.NewEngine(chat.Options{
		LocalAgent:    cfg.AgentID,
		Transport:     client,
		Logger:        logger,
		DedupWindow:   cfg.DedupWindow(),
		AdoptSelfEcho: cfg.AdoptSelfEcho,
	})
	if err != nil {
		return err
	}

	if cfg.SnapshotPath != "" {
		if err := engine.LoadSnapshot(cfg.SnapshotPath); err != nil {
			// A missing snapshot is a first run, not a failure.
			if !errors.Is(err, fs.ErrNotExist) {
				logger.Warn("snapshot load failed", "path", cfg.SnapshotPath, "error", err)
			}
		}
	}

	streamURL, err := cfg.ResolvedStreamURL()
	if err != nil {
		return err
	}

	program := tea.NewProgram(chatui.NewModel(engine), tea.WithAltScreen())

	stream, err := gateway.NewStream(gateway.StreamConfig{
		URL:    streamURL,
		Logger: logger,
		Handler: func(notification chat.Notification) {
			engine.HandleNotification(notification)
			program.Send(chatui.RefreshMsg{})
		},
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		if err := stream.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("notification stream stopped", "error", err)
		}
	}()
	defer stream.Close()

	// Prime the conversation list and refresh history for every
	// conversation the snapshot already knows. Responses land on the
	// notification stream and reconcile like any other traffic.
	go func() {
		requestCtx, done := context.WithTimeout(ctx, 15*time.Second)
		defer done()
		engine.RequestChannelList(requestCtx)
		for _, key := range engine.Conversations() {
			if key.IsDirect() {
				engine.RequestDirectHistory(requestCtx, key.Peer)
			} else {
				engine.RequestChannelHistory(requestCtx, key.Channel)
			}
		}
	}()

	_, runErr := program.Run()

	if cfg.SnapshotPath != "" {
		if err := engine.SaveSnapshot(cfg.SnapshotPath); err != nil {
			logger.Warn("snapshot save failed", "path", cfg.SnapshotPath, "error", err)
		}
	}
	return runErr
}

// buildLogger returns a logger writing JSON records to path, or a
// discard logger when path is empty, since stderr would corrupt the
// alt-screen display.
func buildLogger(path string) (*slog.Logger, func(), error) {
	if path == "" {
		return slog.New(slog.NewTextHandler(io.Discard, nil)), func() {}, nil
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log output %s: %w", path, err)
	}
	logger := slog.New(slog.NewJSONHandler(file, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return logger, func() { file.Close() }, nil
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `Parley chat, an interactive terminal client.

Reads its configuration from the YAML file named by --config or the
%s environment variable. The config names the gateway URL, the
local agent identity, and optional snapshot and dedup settings.

Usage:
  parley-chat [flags]

Examples:
  # Connect using the config from the environment
  PARLEY_CONFIG=~/.config/parley/config.yaml parley-chat

  # Explicit config path with a debug log
  parley-chat --config ./parley.yaml --log-output /tmp/parley.log

Flags:
`, config.EnvVar)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
