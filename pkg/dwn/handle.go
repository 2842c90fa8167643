package dwn

import (
	"context"
	"io"

	"github.com/cuemby/dwn/pkg/config"
	"github.com/cuemby/dwn/pkg/dwnerr"
	"github.com/cuemby/dwn/pkg/messages"
	"github.com/cuemby/dwn/pkg/provider"
	"github.com/cuemby/dwn/pkg/protocols"
	"github.com/cuemby/dwn/pkg/records"
	"github.com/cuemby/dwn/pkg/types"
)

// Handle dispatches msg on its descriptor's (interface, method) pair to
// the matching handler. data is the raw payload stream for a
// RecordsWrite; every other method ignores it and nil is fine to pass.
func Handle(ctx context.Context, owner string, msg types.Message, data io.Reader, cfg config.Config, p provider.Provider) (*Reply, error) {
	switch msg.Descriptor.Interface {
	case types.InterfaceRecords:
		return handleRecords(ctx, owner, msg, data, cfg, p)
	case types.InterfaceProtocols:
		return handleProtocols(ctx, owner, msg, p)
	case types.InterfaceMessages:
		return handleMessages(ctx, owner, msg, p)
	default:
		return nil, dwnerr.BadRequestf("dwn: unknown interface %q", msg.Descriptor.Interface)
	}
}

func handleRecords(ctx context.Context, owner string, msg types.Message, data io.Reader, cfg config.Config, p provider.Provider) (*Reply, error) {
	switch msg.Descriptor.Method {
	case types.MethodWrite:
		entry, err := records.Write(ctx, owner, msg, data, cfg, p)
		if err != nil {
			return nil, err
		}
		code := 202
		if entry.Message.RecordsWrite != nil && entry.Message.RecordsWrite.DataCID == "" {
			code = 204
		}
		return &Reply{Status: Status{Code: code}, Body: entry}, nil
	case types.MethodDelete:
		entry, err := records.Delete(ctx, owner, msg, p)
		if err != nil {
			return nil, err
		}
		return &Reply{Status: Status{Code: 202}, Body: entry}, nil
	case types.MethodRead:
		result, err := records.Read(ctx, owner, msg, p)
		if err != nil {
			return nil, err
		}
		return &Reply{Status: Status{Code: 200}, Body: result}, nil
	case types.MethodQuery:
		result, err := records.Query(ctx, owner, msg, p)
		if err != nil {
			return nil, err
		}
		return &Reply{Status: Status{Code: 200}, Body: result}, nil
	case types.MethodSubscribe:
		sub, err := records.Subscribe(ctx, owner, msg, p)
		if err != nil {
			return nil, err
		}
		return &Reply{Status: Status{Code: 200}, Body: sub}, nil
	default:
		return nil, dwnerr.BadRequestf("dwn: unknown records method %q", msg.Descriptor.Method)
	}
}

func handleProtocols(ctx context.Context, owner string, msg types.Message, p provider.Provider) (*Reply, error) {
	switch msg.Descriptor.Method {
	case types.MethodConfigure:
		entry, err := protocols.Configure(ctx, owner, msg, p)
		if err != nil {
			return nil, err
		}
		return &Reply{Status: Status{Code: 202}, Body: entry}, nil
	case types.MethodQuery:
		entries, err := protocols.Query(ctx, owner, msg, p)
		if err != nil {
			return nil, err
		}
		return &Reply{Status: Status{Code: 200}, Body: entries}, nil
	default:
		return nil, dwnerr.BadRequestf("dwn: unknown protocols method %q", msg.Descriptor.Method)
	}
}

func handleMessages(ctx context.Context, owner string, msg types.Message, p provider.Provider) (*Reply, error) {
	switch msg.Descriptor.Method {
	case types.MethodQuery:
		result, err := messages.Query(ctx, owner, msg, p)
		if err != nil {
			return nil, err
		}
		return &Reply{Status: Status{Code: 200}, Body: result}, nil
	case types.MethodRead:
		result, err := messages.Read(ctx, owner, msg, p)
		if err != nil {
			return nil, err
		}
		return &Reply{Status: Status{Code: 200}, Body: result}, nil
	case types.MethodSubscribe:
		sub, err := messages.Subscribe(ctx, owner, msg, p)
		if err != nil {
			return nil, err
		}
		return &Reply{Status: Status{Code: 200}, Body: sub}, nil
	default:
		return nil, dwnerr.BadRequestf("dwn: unknown messages method %q", msg.Descriptor.Method)
	}
}
