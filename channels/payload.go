package channels

import (
	"encoding/base64"
	"encoding/json"

	"github.com/streadway/amqp"
)

// ContentTypeJSON and ContentTypeText are the values carried in the
// message metadata under MetaContentType.
const (
	ContentTypeJSON = "application/json"
	ContentTypeText = "str"
)

// Metadata keys injected into every actor message.
const (
	MetaContentType   = "_abaco_Content-Type"
	MetaUsername      = "_abaco_username"
	MetaAPIServer     = "_abaco_api_server"
	MetaJWTHeaderName = "_abaco_jwt_header_name"
	MetaExecutionID   = "_abaco_execution_id"
)

type payloadKind int

const (
	payloadText payloadKind = iota
	payloadJSON
	payloadBytes
)

// MessagePayload is the tagged sum of the shapes a user message can take:
// plain text, arbitrary JSON, or opaque bytes. The tag travels in the
// message metadata as MetaContentType.
type MessagePayload struct {
	kind  payloadKind
	text  string
	raw   json.RawMessage
	bytes []byte
}

// TextPayload wraps a plain string message.
func TextPayload(s string) MessagePayload {
	return MessagePayload{kind: payloadText, text: s}
}

// JSONPayload wraps an already-parsed JSON body.
func JSONPayload(raw json.RawMessage) MessagePayload {
	return MessagePayload{kind: payloadJSON, raw: raw}
}

// BytesPayload wraps an opaque binary body.
func BytesPayload(b []byte) MessagePayload {
	return MessagePayload{kind: payloadBytes, bytes: b}
}

// ContentType returns the metadata tag for the payload shape.
func (p MessagePayload) ContentType() string {
	if p.kind == payloadJSON {
		return ContentTypeJSON
	}
	return ContentTypeText
}

// MarshalJSON encodes the payload for the wire: JSON passes through
// verbatim, text as a JSON string, bytes base64-encoded.
func (p MessagePayload) MarshalJSON() ([]byte, error) {
	switch p.kind {
	case payloadJSON:
		return p.raw, nil
	case payloadBytes:
		return json.Marshal(base64.StdEncoding.EncodeToString(p.bytes))
	default:
		return json.Marshal(p.text)
	}
}

// Raw returns the payload exactly as it will appear in the message field.
func (p MessagePayload) Raw() (json.RawMessage, error) {
	return p.MarshalJSON()
}

func publishing(body []byte) amqp.Publishing {
	return amqp.Publishing{
		ContentType:  ContentTypeJSON,
		DeliveryMode: amqp.Persistent,
		Body:         body,
	}
}
