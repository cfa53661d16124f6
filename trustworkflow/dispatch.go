package trustworkflow

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/contenox/pkgbot/libbus"
)

// SubjectTrustRun carries TrustJob messages to workers.
const SubjectTrustRun = "pkgbot.trust.run"

type busDispatcher struct {
	bus libbus.Messenger
}

// NewBusDispatcher publishes jobs on SubjectTrustRun.
func NewBusDispatcher(bus libbus.Messenger) Dispatcher {
	return &busDispatcher{bus: bus}
}

func (d *busDispatcher) Dispatch(ctx context.Context, job TrustJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to encode trust job: %w", err)
	}
	if err := d.bus.Publish(ctx, SubjectTrustRun, data); err != nil {
		return fmt.Errorf("failed to dispatch trust job: %w", err)
	}
	return nil
}

// DecodeJob parses a message received on SubjectTrustRun.
func DecodeJob(data []byte) (TrustJob, error) {
	var job TrustJob
	if err := json.Unmarshal(data, &job); err != nil {
		return job, fmt.Errorf("failed to decode trust job: %w", err)
	}
	if job.RecipeID == "" || job.ErrorID == 0 {
		return job, fmt.Errorf("trust job is missing recipe_id or error_id")
	}
	return job, nil
}
