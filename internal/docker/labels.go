package docker

import (
	"fmt"

	"github.com/docker/docker/api/types/filters"
	"github.com/google/uuid"
)

// Label keys used for Cantas resources
const (
	LabelProject       = "cantas.project"
	LabelInstanceName  = "cantas.instance.name"
	LabelInstanceRunID = "cantas.instance.run_id"
	LabelComponent     = "cantas.component"
	LabelRedisPort     = "cantas.redis.port"
)

// ComponentRedis is the component label of the document store container.
const ComponentRedis = "redis"

// BuildLabels creates the standard label set for all Cantas resources.
// component is optional; the network carries no component label.
func BuildLabels(instanceName, runID, component string) map[string]string {
	labels := map[string]string{
		LabelProject:       "true",
		LabelInstanceName:  instanceName,
		LabelInstanceRunID: runID,
	}

	if component != "" {
		labels[LabelComponent] = component
	}

	return labels
}

// GenerateRunID creates a new UUID for an instance run.
// Each invocation of `cantas up` gets a unique run ID.
func GenerateRunID() string {
	return uuid.New().String()
}

// ProjectFilter selects every Cantas resource.
func ProjectFilter() filters.Args {
	return filters.NewArgs(filters.Arg("label", fmt.Sprintf("%s=true", LabelProject)))
}

// InstanceFilter selects the resources of one instance.
func InstanceFilter(instanceName string) filters.Args {
	return filters.NewArgs(filters.Arg("label", fmt.Sprintf("%s=%s", LabelInstanceName, instanceName)))
}

// NetworkName returns the Docker network name for an instance
func NetworkName(instanceName string) string {
	return fmt.Sprintf("cantas-network-%s", instanceName)
}

// RedisContainerName returns the Redis container name for an instance
func RedisContainerName(instanceName string) string {
	return fmt.Sprintf("cantas-redis-%s", instanceName)
}
