package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wilhg/adformats/internal/config"
	"github.com/wilhg/adformats/internal/mcptools"
	"github.com/wilhg/adformats/pkg/adformat"
)

func newRootCmd() *cobra.Command {
	var cfgPath string
	var a *app

	root := &cobra.Command{
		Use:     "adformats",
		Short:   "Ad format data-access service",
		Long:    "adformats serves ad format records and their interaction event labels over HTTP, MCP or the command line.",
		Version: fmt.Sprintf("%s (commit=%s, date=%s)", version, commit, date),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Addr, _ = cmd.Flags().GetString("addr")
			}
			a, err = newApp(cmd.Context(), cfg)
			return err
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a == nil {
				return nil
			}
			return a.Close()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", getEnv("ADFORMATS_CONFIG", "adformats.yaml"), "path to the YAML config file")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}
	serveCmd.Flags().String("addr", ":8080", "http listen address (overrides config)")

	mcpCmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve MCP tools on stdin/stdout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return mcptools.ServeStdio(cmd.Context(), a.store, version, a.logger.Named("mcp"))
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Print every ad format as a JSON envelope",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := a.store.List(cmd.Context())
			if err := printJSON(cmd.OutOrStdout(), out); err != nil {
				return err
			}
			if out.Error != nil {
				return out.Error
			}
			return nil
		},
	}

	var events []string
	updateCmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Replace an ad format's event labels",
		Example: "  adformats update 2 --event click=點擊 --event long_press=長按\n" +
			"  adformats update 2            # clears every label",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid id %q: %w", args[0], err)
			}
			labels, err := parseEvents(events)
			if err != nil {
				return err
			}
			out := a.store.UpdateEvents(cmd.Context(), id, labels)
			if err := printJSON(cmd.OutOrStdout(), out); err != nil {
				return err
			}
			if out.Error != nil {
				return out.Error
			}
			return nil
		},
	}
	updateCmd.Flags().StringArrayVarP(&events, "event", "e", nil, "event label as code=label; repeatable")

	root.AddCommand(serveCmd, mcpCmd, listCmd, updateCmd)
	return root
}

func parseEvents(raw []string) ([]adformat.EventLabel, error) {
	labels := make([]adformat.EventLabel, 0, len(raw))
	for _, r := range raw {
		code, label, ok := strings.Cut(r, "=")
		if !ok {
			return nil, fmt.Errorf("invalid event %q: want code=label", r)
		}
		labels = append(labels, adformat.EventLabel{Code: adformat.EventCode(strings.TrimSpace(code)), Label: label})
	}
	return labels, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
