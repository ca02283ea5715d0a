package wire

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/buger/jsonparser"
)

var (
	ErrMalformed   = errors.New("wire: malformed envelope")
	ErrUnknownKind = errors.New("wire: unknown envelope type")
)

// Encode renders msg as a flat JSON object carrying its type and a timestamp.
func Encode(msg Outbound, at time.Time) ([]byte, error) {
	return frame(msg.Kind(), msg, at.UTC().Format(time.RFC3339Nano))
}

// EncodeReply renders a service reply. Replies carry no timestamp.
func EncodeReply(msg Inbound) ([]byte, error) {
	return frame(msg.Kind(), msg, "")
}

func frame(kind Kind, payload any, timestamp string) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", kind, err)
	}
	if len(body) < 2 || body[0] != '{' {
		return nil, fmt.Errorf("marshal %s: payload is not an object", kind)
	}

	header, err := json.Marshal(struct {
		Type      Kind   `json:"type"`
		Timestamp string `json:"timestamp,omitempty"`
	}{kind, timestamp})
	if err != nil {
		return nil, fmt.Errorf("marshal %s header: %w", kind, err)
	}

	// Splice the payload fields after the header fields.
	if len(body) == 2 {
		return header, nil
	}
	out := make([]byte, 0, len(header)+len(body))
	out = append(out, header[:len(header)-1]...)
	out = append(out, ',')
	out = append(out, body[1:]...)
	return out, nil
}

// Decode parses one inbound frame into its typed message.
func Decode(data []byte) (Inbound, error) {
	typ, err := jsonparser.GetString(data, "type")
	if err != nil {
		return nil, fmt.Errorf("%w: type: %v", ErrMalformed, err)
	}

	var msg Inbound
	switch Kind(typ) {
	case KindCodeAnalysis:
		msg, err = decodeAs[CodeAnalysis](data)
	case KindChatMessage:
		msg, err = decodeAs[ChatMessage](data)
	case KindHintResponse:
		msg, err = decodeAs[HintResponse](data)
	case KindFollowUpQuestion:
		msg, err = decodeAs[FollowUpQuestion](data)
	case KindPerformanceReport:
		msg, err = decodeAs[PerformanceReport](data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, typ)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, typ, err)
	}
	return msg, nil
}

func decodeAs[T Inbound](data []byte) (Inbound, error) {
	var m T
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// DecodeRequest parses one client frame, as the service side sees it.
func DecodeRequest(data []byte) (Outbound, error) {
	typ, err := jsonparser.GetString(data, "type")
	if err != nil {
		return nil, fmt.Errorf("%w: type: %v", ErrMalformed, err)
	}

	var msg Outbound
	switch Kind(typ) {
	case KindAnalyzeCode:
		msg, err = decodeRequestAs[AnalyzeCode](data)
	case KindSendMessage:
		msg, err = decodeRequestAs[SendMessage](data)
	case KindRequestHint:
		msg, err = decodeRequestAs[RequestHint](data)
	case KindRequestFollowUp:
		msg, err = decodeRequestAs[RequestFollowUp](data)
	case KindGenerateReport:
		msg = GenerateReport{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, typ)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, typ, err)
	}
	return msg, nil
}

func decodeRequestAs[T Outbound](data []byte) (Outbound, error) {
	var m T
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}
