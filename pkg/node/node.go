/*
Package node wires a provider.Provider from a config.Config: it opens
every bolt-backed store under the configured data directory, starts the
in-memory event broker, and constructs the DID resolver and keystore a
running node needs. cmd/dwn uses it to stand up the provider.Provider
every handler in pkg/dwn, pkg/records, pkg/protocols and pkg/messages
is written against.
*/
package node

import (
	"context"
	"fmt"
	"os"

	"github.com/cuemby/dwn/pkg/config"
	"github.com/cuemby/dwn/pkg/events"
	"github.com/cuemby/dwn/pkg/provider"
	"github.com/cuemby/dwn/pkg/security"
	"github.com/cuemby/dwn/pkg/storage"
)

// Node owns every store a provider.Provider needs and the underlying
// bolt handles that back them.
type Node struct {
	Provider provider.Provider

	blocks   *storage.BlockStore
	data     *storage.DataStore
	messages *storage.MessageStore
	tasks    *storage.TaskStore
	eventLog *events.Log
	recovery *recoverySweeper
}

// Open creates (or reopens) every bolt-backed store under cfg.DataDir,
// starts the background prune-task recovery sweep (spec.md §4.8), and
// returns a Node whose Provider field is ready to pass to dwn.Handle.
// Callers must Close the Node when done.
func Open(cfg config.Config) (*Node, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("node: create data dir %s: %w", cfg.DataDir, err)
	}

	blocks, err := storage.NewBlockStore(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("node: open block store: %w", err)
	}
	data, err := storage.NewDataStore(cfg.DataDir)
	if err != nil {
		blocks.Close()
		return nil, fmt.Errorf("node: open data store: %w", err)
	}
	messageStore, err := storage.NewMessageStore(cfg.DataDir)
	if err != nil {
		blocks.Close()
		data.Close()
		return nil, fmt.Errorf("node: open message store: %w", err)
	}
	tasks, err := storage.NewTaskStore(cfg.DataDir)
	if err != nil {
		blocks.Close()
		data.Close()
		messageStore.Close()
		return nil, fmt.Errorf("node: open task store: %w", err)
	}
	eventLog, err := events.NewLog(cfg.DataDir)
	if err != nil {
		blocks.Close()
		data.Close()
		messageStore.Close()
		tasks.Close()
		return nil, fmt.Errorf("node: open event log: %w", err)
	}

	n := &Node{
		blocks:   blocks,
		data:     data,
		messages: messageStore,
		tasks:    tasks,
		eventLog: eventLog,
	}
	resolver := security.NewDidResolver()
	keys := security.NewKeyStore()
	n.Provider = provider.Provider{
		Blocks:   blocks,
		Messages: messageStore,
		Data:     data,
		Events:   eventLog,
		Stream:   events.NewBroker(),
		Tasks:    tasks,
		DIDs:     resolver,
		Keys:     keys,
	}

	if cfg.DefaultOwner != "" {
		kr, err := keys.Keyring(context.Background(), cfg.DefaultOwner)
		if err != nil {
			n.Close()
			return nil, fmt.Errorf("node: provision default owner keyring: %w", err)
		}
		resolver.Register(&provider.DidDocument{
			ID: cfg.DefaultOwner,
			VerificationMethods: []provider.VerificationMethod{{
				ID:        kr.VerificationMethod(),
				Type:      string(kr.Algorithm()),
				PublicKey: kr.PublicKey(),
			}},
		})
	}

	n.recovery = newRecoverySweeper(n.Provider)
	n.recovery.start()

	return n, nil
}

// Close closes every bolt handle the Node opened. Errors from the
// individual stores are joined so a caller sees every failure, not just
// the first.
func (n *Node) Close() error {
	if n.recovery != nil {
		n.recovery.stop()
	}

	var errs []error
	if err := n.blocks.Close(); err != nil {
		errs = append(errs, fmt.Errorf("block store: %w", err))
	}
	if err := n.data.Close(); err != nil {
		errs = append(errs, fmt.Errorf("data store: %w", err))
	}
	if err := n.messages.Close(); err != nil {
		errs = append(errs, fmt.Errorf("message store: %w", err))
	}
	if err := n.tasks.Close(); err != nil {
		errs = append(errs, fmt.Errorf("task store: %w", err))
	}
	if err := n.eventLog.Close(); err != nil {
		errs = append(errs, fmt.Errorf("event log: %w", err))
	}
	if len(errs) == 0 {
		return nil
	}
	msg := errs[0].Error()
	for _, e := range errs[1:] {
		msg += "; " + e.Error()
	}
	return fmt.Errorf("node: close: %s", msg)
}
