package instance

import "github.com/angelmondragon/palletflow/pkg/env"

const defaultID = "local"

// GetID identifies this process in logs and lock ownership. An explicit
// PALLETFLOW_INSTANCE_ID wins over platform-provided names.
func GetID() string {
	if id := env.First("PALLETFLOW_INSTANCE_ID", "WORKER_ID", "DYNO", "HOSTNAME"); id != "" {
		return id
	}
	return defaultID
}
