package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cuemby/dwn/pkg/node"
	"github.com/cuemby/dwn/pkg/types"
	"github.com/spf13/cobra"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect a node's event log",
}

var eventsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List event-log entries matching a filter",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		owner, err := ownerOf(cfg)
		if err != nil {
			return err
		}

		iface, _ := cmd.Flags().GetString("interface")
		method, _ := cmd.Flags().GetString("method")
		protocol, _ := cmd.Flags().GetString("protocol")
		author, _ := cmd.Flags().GetString("author")
		limit, _ := cmd.Flags().GetInt("limit")

		n, err := node.Open(cfg)
		if err != nil {
			return fmt.Errorf("open node: %w", err)
		}
		defer n.Close()

		filter := types.MessagesFilter{
			Interface: types.Interface(iface),
			Method:    types.Method(method),
			Protocol:  protocol,
			Author:    author,
		}
		entries, _, err := n.Provider.Events.Query(context.Background(), owner, filter, types.Pagination{Limit: limit})
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}

		for _, e := range entries {
			line, err := json.Marshal(e)
			if err != nil {
				return fmt.Errorf("render entry: %w", err)
			}
			fmt.Println(string(line))
		}
		return nil
	},
}

var eventsSubscribeCmd = &cobra.Command{
	Use:   "subscribe",
	Short: "Stream event-log entries matching a filter as they arrive",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		owner, err := ownerOf(cfg)
		if err != nil {
			return err
		}

		iface, _ := cmd.Flags().GetString("interface")
		method, _ := cmd.Flags().GetString("method")
		protocol, _ := cmd.Flags().GetString("protocol")

		n, err := node.Open(cfg)
		if err != nil {
			return fmt.Errorf("open node: %w", err)
		}
		defer n.Close()

		filter := types.MessagesFilter{
			Interface: types.Interface(iface),
			Method:    types.Method(method),
			Protocol:  protocol,
		}
		sub, err := n.Provider.Stream.Subscribe(cmd.Context(), owner, filter)
		if err != nil {
			return fmt.Errorf("subscribe: %w", err)
		}
		defer sub.Close()

		fmt.Fprintln(cmd.OutOrStdout(), "watching for events, press Ctrl+C to stop")
		for entry := range sub.Events() {
			line, err := json.Marshal(entry)
			if err != nil {
				return fmt.Errorf("render entry: %w", err)
			}
			fmt.Println(string(line))
		}
		return nil
	},
}

func init() {
	eventsCmd.AddCommand(eventsListCmd)
	eventsCmd.AddCommand(eventsSubscribeCmd)

	for _, cmd := range []*cobra.Command{eventsListCmd, eventsSubscribeCmd} {
		cmd.Flags().String("interface", "", "Filter by Descriptor.Interface (Records, Protocols, Messages)")
		cmd.Flags().String("method", "", "Filter by Descriptor.Method")
		cmd.Flags().String("protocol", "", "Filter by protocol URI")
	}
	eventsListCmd.Flags().String("author", "", "Filter by message author")
	eventsListCmd.Flags().Int("limit", 50, "Maximum number of entries to return")
}
