package index

import "github.com/cuemby/dwn/pkg/types"

// Fields builds the flat field-name -> scalar map an Entry is indexed
// by, from its message and author, the canonical form both pkg/storage
// (bolt-backed) and pkg/provider/memory key their index rows on. Only
// a RecordsWrite or RecordsDelete carries indexable fields of its own;
// for any other message Fields returns only author, method and initial
// (pkg/protocols builds the index map of the ProtocolsConfigure entries
// it puts into the message store itself).
func Fields(e types.Entry) map[string]string {
	idx := map[string]string{
		"author": e.Author,
		"method": string(e.Message.Descriptor.Method),
	}
	if e.Archived {
		idx["initial"] = "true"
	} else {
		idx["initial"] = "false"
	}

	switch {
	case e.Message.RecordsWrite != nil:
		w := e.Message.RecordsWrite
		idx["record_id"] = w.RecordID
		idx["parent_id"] = w.ParentID
		idx["recipient"] = w.Recipient
		idx["context_id"] = w.ContextID
		idx["protocol_path"] = w.ProtocolPath
		idx["schema"] = w.Schema
		idx["protocol"] = w.Protocol
		idx["data_cid"] = w.DataCID
		idx["data_size"] = PadInt64(w.DataSize)
		idx["date_created"] = PadTime(w.DateCreated)
		idx["date_updated"] = PadTime(e.Message.Descriptor.MessageTimestamp)
		idx["data_format"] = w.DataFormat
		if w.Published {
			idx["published"] = "true"
		} else {
			idx["published"] = "false"
		}
		if w.DatePublished != nil {
			idx["date_published"] = PadTime(*w.DatePublished)
		}
		for name, value := range w.Tags {
			if s, ok := value.(string); ok {
				idx["tag."+name] = s
			}
		}
	case e.Message.RecordsDelete != nil:
		idx["record_id"] = e.Message.RecordsDelete.RecordID
	}
	return idx
}
