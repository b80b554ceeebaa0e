/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package dap

import (
	"encoding/json"
	"fmt"

	"github.com/google/go-dap"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/stanislavfor/vscode-chrome-debug/internal/pathmap"
)

// GlobalObjectClearedEventName is the event a target sends when its execution context is torn
// down (for example on page reload). Scripts loaded before the event are no longer valid.
const GlobalObjectClearedEventName = "globalObjectCleared"

// GlobalObjectClearedEvent is a non-standard event announcing that the target discarded all scripts.
type GlobalObjectClearedEvent struct {
	dap.Event
}

// NewGlobalObjectClearedEvent creates a globalObjectCleared event.
func NewGlobalObjectClearedEvent(seq int) *GlobalObjectClearedEvent {
	return &GlobalObjectClearedEvent{
		Event: dap.Event{
			ProtocolMessage: dap.ProtocolMessage{Seq: seq, Type: "event"},
			Event:           GlobalObjectClearedEventName,
		},
	}
}

// RawMessage carries a DAP message the codec has no type for. It is forwarded verbatim,
// except for the sequence fields the proxy rewrites.
type RawMessage struct {
	Data []byte
}

func (m *RawMessage) GetSeq() int {
	return int(gjson.GetBytes(m.Data, "seq").Int())
}

// MarshalJSON returns the raw message bytes so that go-dap writes them unchanged.
func (m *RawMessage) MarshalJSON() ([]byte, error) {
	return m.Data, nil
}

// Type returns the protocol message type ("request", "response" or "event").
func (m *RawMessage) Type() string {
	return gjson.GetBytes(m.Data, "type").String()
}

// Name returns the command of a request or response, or the event name of an event.
func (m *RawMessage) Name() string {
	if m.Type() == "event" {
		return gjson.GetBytes(m.Data, "event").String()
	}
	return gjson.GetBytes(m.Data, "command").String()
}

func (m *RawMessage) setInt(field string, value int) error {
	updated, setErr := sjson.SetBytes(m.Data, field, value)
	if setErr != nil {
		return fmt.Errorf("failed to set %s on raw message: %w", field, setErr)
	}
	m.Data = updated
	return nil
}

// DecodeMessage decodes the content of a DAP base message. Standard messages decode into
// go-dap types, known non-standard events into the types of this package and pathmap, and
// any other well-formed message into a RawMessage.
func DecodeMessage(data []byte) (dap.Message, error) {
	msg, decodeErr := dap.DecodeProtocolMessage(data)
	if decodeErr == nil {
		return msg, nil
	}

	if !gjson.ValidBytes(data) || !gjson.GetBytes(data, "type").Exists() {
		return nil, fmt.Errorf("failed to decode DAP message: %w", decodeErr)
	}

	if gjson.GetBytes(data, "type").String() == "event" {
		switch gjson.GetBytes(data, "event").String() {
		case pathmap.ScriptParsedEventName:
			var event pathmap.ScriptParsedEvent
			if unmarshalErr := json.Unmarshal(data, &event); unmarshalErr != nil {
				return nil, fmt.Errorf("failed to decode %s event: %w", pathmap.ScriptParsedEventName, unmarshalErr)
			}
			return &event, nil

		case GlobalObjectClearedEventName:
			var event GlobalObjectClearedEvent
			if unmarshalErr := json.Unmarshal(data, &event); unmarshalErr != nil {
				return nil, fmt.Errorf("failed to decode %s event: %w", GlobalObjectClearedEventName, unmarshalErr)
			}
			return &event, nil
		}
	}

	return &RawMessage{Data: append([]byte(nil), data...)}, nil
}

// isRequest reports whether msg is a request and returns its command.
func isRequest(msg dap.Message) (string, bool) {
	switch m := msg.(type) {
	case *RawMessage:
		return m.Name(), m.Type() == "request"
	case dap.RequestMessage:
		return m.GetRequest().Command, true
	default:
		return "", false
	}
}

// isResponse reports whether msg is a response and returns its request_seq.
func isResponse(msg dap.Message) (int, bool) {
	switch m := msg.(type) {
	case *RawMessage:
		return int(gjson.GetBytes(m.Data, "request_seq").Int()), m.Type() == "response"
	case dap.ResponseMessage:
		return m.GetResponse().RequestSeq, true
	default:
		return 0, false
	}
}

// eventName reports whether msg is an event and returns its name.
func eventName(msg dap.Message) (string, bool) {
	switch m := msg.(type) {
	case *RawMessage:
		return m.Name(), m.Type() == "event"
	case dap.EventMessage:
		return m.GetEvent().Event, true
	default:
		return "", false
	}
}

func setSeq(msg dap.Message, seq int) error {
	switch m := msg.(type) {
	case *RawMessage:
		return m.setInt("seq", seq)
	case dap.RequestMessage:
		m.GetRequest().Seq = seq
	case dap.ResponseMessage:
		m.GetResponse().Seq = seq
	case dap.EventMessage:
		m.GetEvent().Seq = seq
	default:
		return fmt.Errorf("cannot set sequence number on %T", msg)
	}
	return nil
}

func setRequestSeq(msg dap.Message, requestSeq int) error {
	switch m := msg.(type) {
	case *RawMessage:
		return m.setInt("request_seq", requestSeq)
	case dap.ResponseMessage:
		m.GetResponse().RequestSeq = requestSeq
	default:
		return fmt.Errorf("cannot set request_seq on %T", msg)
	}
	return nil
}

// describe returns a short description of msg for logging.
func describe(msg dap.Message) string {
	if command, ok := isRequest(msg); ok {
		return "request:" + command
	}
	if name, ok := eventName(msg); ok {
		return "event:" + name
	}
	if m, ok := msg.(*RawMessage); ok {
		return m.Type() + ":" + m.Name()
	}
	if m, ok := msg.(dap.ResponseMessage); ok {
		return "response:" + m.GetResponse().Command
	}
	return fmt.Sprintf("%T", msg)
}
