package board

import "fmt"

// Redis key pattern helpers
//
// All Redis keys and Pub/Sub channels are namespaced by instance name so that
// several Cantas deployments can share one Redis server.
//
// Key pattern: cantas:{instance_name}:{type}:doc:{id}
// Index pattern: cantas:{instance_name}:{type}:ids
// Channel pattern: cantas:{instance_name}:broadcasts

const (
	// IDKey is the wire and storage name of a document's identifier.
	IDKey = "_id"

	// TypeKey is the storage-only type discriminator. It never appears on the wire.
	TypeKey = "_type"
)

// DocumentKey returns the Redis key for a document hash.
// Pattern: cantas:{instance_name}:{type}:doc:{id}
// The doc segment keeps client-supplied ids out of the index key space.
func DocumentKey(instanceName, typeName, id string) string {
	return fmt.Sprintf("cantas:%s:%s:doc:%s", instanceName, typeName, id)
}

// IndexKey returns the Redis key for a type's identifier index.
// Pattern: cantas:{instance_name}:{type}:ids
func IndexKey(instanceName, typeName string) string {
	return fmt.Sprintf("cantas:%s:%s:ids", instanceName, typeName)
}

// BroadcastsChannel returns the Pub/Sub channel carrying broadcasts for every connection.
// Pattern: cantas:{instance_name}:broadcasts
func BroadcastsChannel(instanceName string) string {
	return fmt.Sprintf("cantas:%s:broadcasts", instanceName)
}
