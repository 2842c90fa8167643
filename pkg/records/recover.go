package records

import (
	"context"
	"encoding/json"

	"github.com/cuemby/dwn/pkg/dwnerr"
	"github.com/cuemby/dwn/pkg/provider"
)

// RecoverPruneTasks grabs up to n prune tasks whose lease has expired
// across every owner and resumes each from scratch. A task only
// outlives its lease this way when Delete's own register-prune-complete
// sequence (pkg/records/delete.go) was interrupted by a crash before it
// reached Tasks.Delete; prune is idempotent (every step is a
// delete-if-present), so resuming a task whose purge actually finished
// before the crash is a no-op. It returns how many tasks it resumed.
func RecoverPruneTasks(ctx context.Context, p provider.Provider, n int) (int, error) {
	tasks, err := p.Tasks.Sweep(ctx, n, pruneTaskTimeout)
	if err != nil {
		return 0, dwnerr.Unexpectedf("records: sweep prune tasks: %v", err)
	}

	resumed := 0
	for _, task := range tasks {
		if task.Kind != pruneTaskKind {
			continue
		}
		var payload pruneTaskPayload
		if err := json.Unmarshal(task.Payload, &payload); err != nil {
			return resumed, dwnerr.Unexpectedf("records: decode prune task %s: %v", task.ID, err)
		}
		if err := prune(ctx, task.Owner, payload.RecordID, p); err != nil {
			return resumed, err
		}
		if err := p.Tasks.Delete(ctx, task.Owner, task.ID); err != nil {
			return resumed, dwnerr.Unexpectedf("records: complete resumed prune task %s: %v", task.ID, err)
		}
		resumed++
	}
	return resumed, nil
}
