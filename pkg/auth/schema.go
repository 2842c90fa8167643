package auth

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/cuemby/dwn/pkg/cid"
	"github.com/cuemby/dwn/pkg/dwnerr"
	"github.com/cuemby/dwn/pkg/types"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// schemaCache compiles and caches one jsonschema.Schema per
// {interface}-{method} pair, mirroring the teacher's CertAuthority
// cert-cache shape: a mutex-guarded map filled lazily on first use, so
// the one package-level kernel each handler package keeps can serve
// concurrent requests.
type schemaCache struct {
	mu      sync.Mutex
	schemas map[string]*jsonschema.Schema
}

func newSchemaCache() *schemaCache {
	return &schemaCache{schemas: make(map[string]*jsonschema.Schema)}
}

func schemaKey(iface types.Interface, method types.Method) string {
	return fmt.Sprintf("%s-%s", iface, method)
}

func (c *schemaCache) compile(key string) (*jsonschema.Schema, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.schemas[key]; ok {
		return s, nil
	}
	raw, ok := descriptorSchemas[key]
	if !ok {
		return nil, fmt.Errorf("no schema registered for %s", key)
	}
	url := "mem://dwn/" + key + ".json"
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(url, bytes.NewReader([]byte(raw))); err != nil {
		return nil, fmt.Errorf("add schema resource %s: %w", key, err)
	}
	schema, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", key, err)
	}
	c.schemas[key] = schema
	return schema, nil
}

// validate checks msg's flattened descriptor view against the schema
// for its {interface}-{method} pair.
func (c *schemaCache) validate(msg types.Message) error {
	key := schemaKey(msg.Descriptor.Interface, msg.Descriptor.Method)
	schema, err := c.compile(key)
	if err != nil {
		return dwnerr.BadRequestf("auth: %v", err)
	}
	view, err := descriptorView(msg)
	if err != nil {
		return dwnerr.BadRequestf("auth: build schema view: %v", err)
	}
	var doc any
	if err := json.Unmarshal(view, &doc); err != nil {
		return dwnerr.BadRequestf("auth: decode schema view: %v", err)
	}
	if err := schema.Validate(doc); err != nil {
		return dwnerr.BadRequestf("auth: schema validation failed for %s: %v", key, err)
	}
	return nil
}

// descriptorView flattens msg's descriptor plus its one populated
// method-specific payload into a single JSON object, the shape the
// schemas below describe. Message keeps the payload in a typed sibling
// field rather than nested in Descriptor for ergonomic Go access; this
// is the seam where that internal shape is translated back to the
// wire shape the schema speaks.
func descriptorView(msg types.Message) ([]byte, error) {
	base := map[string]any{
		"interface":        string(msg.Descriptor.Interface),
		"method":           string(msg.Descriptor.Method),
		"messageTimestamp": msg.Descriptor.MessageTimestamp,
	}
	var payload any
	switch {
	case msg.RecordsWrite != nil:
		payload = msg.RecordsWrite
	case msg.RecordsDelete != nil:
		payload = msg.RecordsDelete
	case msg.RecordsRead != nil:
		payload = msg.RecordsRead
	case msg.RecordsQuery != nil:
		payload = msg.RecordsQuery
	case msg.RecordsSubscribe != nil:
		payload = msg.RecordsSubscribe
	case msg.ProtocolsConfigure != nil:
		payload = msg.ProtocolsConfigure
	case msg.ProtocolsQuery != nil:
		payload = msg.ProtocolsQuery
	case msg.MessagesQuery != nil:
		payload = msg.MessagesQuery
	case msg.MessagesRead != nil:
		payload = msg.MessagesRead
	case msg.MessagesSubscribe != nil:
		payload = msg.MessagesSubscribe
	}
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		var fields map[string]any
		if err := json.Unmarshal(b, &fields); err != nil {
			return nil, err
		}
		for k, v := range fields {
			base[k] = v
		}
	}
	return json.Marshal(base)
}

// DescriptorCID computes the CID a message's signature binds and the
// message store keys its entries by: the canonical CBOR encoding of
// the same flattened descriptor view schema validation checks. Folding
// the payload's own fields (data_cid, record_id, parent_id and the
// rest) into that CID, rather than hashing only
// interface/method/messageTimestamp, means a signature can't be
// replayed over a payload it was never made against.
func DescriptorCID(msg types.Message) (cid.CID, error) {
	view, err := descriptorView(msg)
	if err != nil {
		return cid.Undef, err
	}
	var doc map[string]any
	if err := json.Unmarshal(view, &doc); err != nil {
		return cid.Undef, err
	}
	return cid.Of(doc)
}
