/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package pathmap

import (
	"github.com/google/go-dap"
)

// ScriptParsedEventName is the event a target sends when it has loaded a script.
const ScriptParsedEventName = "scriptParsed"

// ScriptParsedEvent announces a script loaded by the debug target. It is not part of the
// standard Debug Adapter Protocol.
type ScriptParsedEvent struct {
	dap.Event

	Body ScriptParsedEventBody `json:"body"`
}

type ScriptParsedEventBody struct {
	ScriptId  string `json:"scriptId,omitempty"`
	ScriptUrl string `json:"scriptUrl"`
}

// NewScriptParsedEvent creates a scriptParsed event for the given target URL.
func NewScriptParsedEvent(seq int, scriptURL string) *ScriptParsedEvent {
	return &ScriptParsedEvent{
		Event: dap.Event{
			ProtocolMessage: dap.ProtocolMessage{
				Seq:  seq,
				Type: "event",
			},
			Event: ScriptParsedEventName,
		},
		Body: ScriptParsedEventBody{
			ScriptUrl: scriptURL,
		},
	}
}
