package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/cuemby/dwn/pkg/dwn"
	"github.com/cuemby/dwn/pkg/node"
	"github.com/cuemby/dwn/pkg/types"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var protocolCmd = &cobra.Command{
	Use:   "protocol",
	Short: "Manage protocol definitions",
}

var protocolApplyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Configure a protocol definition from a file",
	Long: `Reads a ProtocolDefinition from --file (YAML or JSON), signs a
ProtocolsConfigure message as --owner using that owner's keyring, and
dispatches it through dwn.Handle.`,
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

		path, _ := cmd.Flags().GetString("file")
		if path == "" {
			return fmt.Errorf("--file is required")
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read definition file: %w", err)
		}

		// yaml.v3 reads both YAML and JSON; the document is re-encoded as
		// JSON so its wire-format keys (including RuleSet's $-prefixed
		// ones) go through the types' JSON decoding.
		var doc any
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return fmt.Errorf("parse definition: %w", err)
		}
		asJSON, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("parse definition: %w", err)
		}
		var def types.ProtocolDefinition
		if err := json.Unmarshal(asJSON, &def); err != nil {
			return fmt.Errorf("parse definition: %w", err)
		}

		n, err := node.Open(cfg)
		if err != nil {
			return fmt.Errorf("open node: %w", err)
		}
		defer n.Close()

		ctx := context.Background()
		kr, err := n.Provider.Keys.Keyring(ctx, owner)
		if err != nil {
			return fmt.Errorf("load owner keyring: %w", err)
		}

		msg := types.Message{
			Descriptor: types.Descriptor{
				Interface:        types.InterfaceProtocols,
				Method:           types.MethodConfigure,
				MessageTimestamp: time.Now().UTC(),
			},
			ProtocolsConfigure: &types.ProtocolConfigure{Definition: def},
		}
		if err := signMessage(ctx, kr, &msg); err != nil {
			return fmt.Errorf("sign message: %w", err)
		}

		reply, err := dwn.Handle(ctx, owner, msg, nil, cfg, n.Provider)
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
	protocolCmd.AddCommand(protocolApplyCmd)
	protocolApplyCmd.Flags().String("file", "", "Path to a YAML or JSON ProtocolDefinition (required)")
	protocolApplyCmd.MarkFlagRequired("file")
}
