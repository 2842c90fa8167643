package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/cuemby/dwn/pkg/dwn"
	"github.com/cuemby/dwn/pkg/node"
	"github.com/cuemby/dwn/pkg/types"
	"github.com/spf13/cobra"
)

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a pre-signed message from a file",
	Long: `Reads a JSON-encoded, already-signed types.Message from --file and
dispatches it through dwn.Handle against the node at --data-dir, the way
an HTTP POST to /dwn would. --data, if given, is the message's raw
payload (used for a RecordsWrite).

The bundled DID resolver is registry-based (see pkg/security), so this
only verifies against a keyring this node's KeyStore already knows
about for --owner; it cannot resolve an arbitrary external signer.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		owner, err := ownerOf(cfg)
		if err != nil {
			return err
		}
		cfg.DefaultOwner = owner

		messagePath, _ := cmd.Flags().GetString("file")
		if messagePath == "" {
			return fmt.Errorf("--file is required")
		}
		messageJSON, err := os.ReadFile(messagePath)
		if err != nil {
			return fmt.Errorf("read message file: %w", err)
		}
		var msg types.Message
		if err := json.Unmarshal(messageJSON, &msg); err != nil {
			return fmt.Errorf("parse message: %w", err)
		}

		var data []byte
		if dataPath, _ := cmd.Flags().GetString("data"); dataPath != "" {
			data, err = os.ReadFile(dataPath)
			if err != nil {
				return fmt.Errorf("read data file: %w", err)
			}
		}

		n, err := node.Open(cfg)
		if err != nil {
			return fmt.Errorf("open node: %w", err)
		}
		defer n.Close()

		reply, err := dwn.Handle(context.Background(), owner, msg, bytes.NewReader(data), cfg, n.Provider)
		if err != nil {
			return fmt.Errorf("handle: %w", err)
		}

		out, err := json.MarshalIndent(struct {
			Status dwn.Status `json:"status"`
			Body   any        `json:"body,omitempty"`
		}{Status: reply.Status, Body: reply.Body}, "", "  ")
		if err != nil {
			return fmt.Errorf("render reply: %w", err)
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	submitCmd.Flags().String("file", "", "Path to a JSON-encoded, signed message (required)")
	submitCmd.Flags().String("data", "", "Path to the message's raw payload, for a RecordsWrite")
	submitCmd.MarkFlagRequired("file")
}
