// Package protocol defines the message vocabulary between robots and the
// station. Reports travel robot -> station on one shared channel;
// broadcasts travel station -> robot on one channel per robot. All values
// are immutable once sent. The wire encoding is a self-describing JSON
// envelope used by the event logs and the schema tests; in-process
// delivery passes the typed values directly.
package protocol

const Version = "1.0"

// Wire type tags, one per variant.
const (
	TypeResourceDiscovered = "RESOURCE_DISCOVERED"
	TypeResourceConsumed   = "RESOURCE_CONSUMED"
	TypeStateRequest       = "STATE_REQUEST"
	TypeKnowledgeSync      = "KNOWLEDGE_SYNC"

	TypeSnapshot       = "SNAPSHOT"
	TypeResourceUpdate = "RESOURCE_UPDATE"
	TypeAck            = "ACK"
)
