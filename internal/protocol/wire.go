package protocol

import (
	"encoding/json"
	"fmt"
)

// wireFrame is the self-describing envelope: a stable type tag, the
// protocol version, the sender for reports, and the variant payload.
type wireFrame struct {
	Type            string          `json:"type"`
	ProtocolVersion string          `json:"protocol_version"`
	RobotID         string          `json:"robot_id,omitempty"`
	Payload         json.RawMessage `json:"payload,omitempty"`
}

// EncodeReport wraps a report in the wire envelope.
func EncodeReport(robotID string, r Report) ([]byte, error) {
	payload, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return json.Marshal(wireFrame{
		Type:            r.ReportType(),
		ProtocolVersion: Version,
		RobotID:         robotID,
		Payload:         payload,
	})
}

// DecodeReport parses a wire envelope back into a typed report.
func DecodeReport(b []byte) (robotID string, r Report, err error) {
	var frame wireFrame
	if err := json.Unmarshal(b, &frame); err != nil {
		return "", nil, err
	}
	switch frame.Type {
	case TypeResourceDiscovered:
		var msg ResourceDiscovered
		err = json.Unmarshal(frame.Payload, &msg)
		r = msg
	case TypeResourceConsumed:
		var msg ResourceConsumed
		err = json.Unmarshal(frame.Payload, &msg)
		r = msg
	case TypeStateRequest:
		r = StateRequest{}
	case TypeKnowledgeSync:
		var msg KnowledgeSync
		err = json.Unmarshal(frame.Payload, &msg)
		r = msg
	default:
		return "", nil, fmt.Errorf("unknown report type %q", frame.Type)
	}
	if err != nil {
		return "", nil, fmt.Errorf("decode %s: %w", frame.Type, err)
	}
	return frame.RobotID, r, nil
}

// EncodeBroadcast wraps a broadcast in the wire envelope.
func EncodeBroadcast(b Broadcast) ([]byte, error) {
	payload, err := json.Marshal(b)
	if err != nil {
		return nil, err
	}
	return json.Marshal(wireFrame{
		Type:            b.BroadcastType(),
		ProtocolVersion: Version,
		Payload:         payload,
	})
}

// DecodeBroadcast parses a wire envelope back into a typed broadcast.
func DecodeBroadcast(b []byte) (Broadcast, error) {
	var frame wireFrame
	if err := json.Unmarshal(b, &frame); err != nil {
		return nil, err
	}
	var (
		out Broadcast
		err error
	)
	switch frame.Type {
	case TypeSnapshot:
		var msg Snapshot
		err = json.Unmarshal(frame.Payload, &msg)
		out = msg
	case TypeResourceUpdate:
		var msg ResourceUpdate
		err = json.Unmarshal(frame.Payload, &msg)
		out = msg
	case TypeAck:
		var msg Ack
		err = json.Unmarshal(frame.Payload, &msg)
		out = msg
	default:
		return nil, fmt.Errorf("unknown broadcast type %q", frame.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", frame.Type, err)
	}
	return out, nil
}
