package types

import "encoding/json"

// wireMessage is Message's flat, lowerCamel JSON shape: descriptor and
// authorization travel as-is, and whichever method-specific payload is
// populated travels under its own field, named after the Go field that
// holds it (protocolsConfigure, recordsWrite, and so on). Every non-nil
// payload field is present on the wire; nil ones are omitted.
type wireMessage struct {
	Descriptor    Descriptor     `json:"descriptor"`
	Authorization *Authorization `json:"authorization,omitempty"`

	ProtocolsConfigure *ProtocolConfigure `json:"protocolsConfigure,omitempty"`
	ProtocolsQuery     *ProtocolsQuery    `json:"protocolsQuery,omitempty"`
	RecordsWrite       *Write             `json:"recordsWrite,omitempty"`
	RecordsDelete      *Delete            `json:"recordsDelete,omitempty"`
	RecordsRead        *RecordsRead       `json:"recordsRead,omitempty"`
	RecordsQuery       *RecordsQuery      `json:"recordsQuery,omitempty"`
	RecordsSubscribe   *RecordsSubscribe  `json:"recordsSubscribe,omitempty"`
	MessagesQuery      *MessagesQuery     `json:"messagesQuery,omitempty"`
	MessagesRead       *MessagesRead      `json:"messagesRead,omitempty"`
	MessagesSubscribe  *MessagesSubscribe `json:"messagesSubscribe,omitempty"`
}

// MarshalJSON renders m as a flat object: descriptor, authorization,
// and every payload field that is non-nil. It does not consult
// Descriptor.{Interface,Method} to choose among them.
func (m Message) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireMessage{
		Descriptor:         m.Descriptor,
		Authorization:      m.Authorization,
		ProtocolsConfigure: m.ProtocolsConfigure,
		ProtocolsQuery:     m.ProtocolsQuery,
		RecordsWrite:       m.RecordsWrite,
		RecordsDelete:      m.RecordsDelete,
		RecordsRead:        m.RecordsRead,
		RecordsQuery:       m.RecordsQuery,
		RecordsSubscribe:   m.RecordsSubscribe,
		MessagesQuery:      m.MessagesQuery,
		MessagesRead:       m.MessagesRead,
		MessagesSubscribe:  m.MessagesSubscribe,
	})
}

// UnmarshalJSON parses m's flat wire object back into Message, copying
// every payload field present. It does not check how many payload
// fields are present or whether they match Descriptor.{Interface,Method};
// the handlers reject a message whose expected payload field is nil.
func (m *Message) UnmarshalJSON(data []byte) error {
	var w wireMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*m = Message{
		Descriptor:         w.Descriptor,
		Authorization:      w.Authorization,
		ProtocolsConfigure: w.ProtocolsConfigure,
		ProtocolsQuery:     w.ProtocolsQuery,
		RecordsWrite:       w.RecordsWrite,
		RecordsDelete:      w.RecordsDelete,
		RecordsRead:        w.RecordsRead,
		RecordsQuery:       w.RecordsQuery,
		RecordsSubscribe:   w.RecordsSubscribe,
		MessagesQuery:      w.MessagesQuery,
		MessagesRead:       w.MessagesRead,
		MessagesSubscribe:  w.MessagesSubscribe,
	}
	return nil
}
