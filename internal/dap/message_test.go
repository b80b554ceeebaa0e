/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

package dap

import (
	"testing"

	"github.com/google/go-dap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequenceCounter(t *testing.T) {
	t.Parallel()

	counter := newSequenceCounter()

	assert.Equal(t, 0, counter.Current(), "initial value should be 0")

	assert.Equal(t, 1, counter.Next(), "first Next() should return 1")
	assert.Equal(t, 1, counter.Current(), "Current() should return 1 after first Next()")

	assert.Equal(t, 2, counter.Next(), "second Next() should return 2")
	assert.Equal(t, 3, counter.Next(), "third Next() should return 3")
	assert.Equal(t, 3, counter.Current(), "Current() should return 3")
}

func TestPendingRequestMap(t *testing.T) {
	t.Parallel()

	m := newPendingRequestMap()

	assert.Equal(t, 0, m.Len(), "initial map should be empty")

	// Add requests
	req1 := &pendingRequest{originalSeq: 1, command: "continue"}
	req2 := &pendingRequest{originalSeq: 7, command: "threads"}

	m.Add(10, req1)
	m.Add(11, req2)

	assert.Equal(t, 2, m.Len(), "map should have 2 entries")

	// Get request
	got := m.Get(10)
	require.NotNil(t, got, "should get request for seq 10")
	assert.Equal(t, req1, got)
	assert.Equal(t, 1, m.Len(), "map should have 1 entry after Get")

	// Get same request again should return nil
	got = m.Get(10)
	assert.Nil(t, got, "second Get for same seq should return nil")

	// Get unknown request
	got = m.Get(999)
	assert.Nil(t, got, "Get for unknown seq should return nil")

	// Get remaining request
	got = m.Get(11)
	require.NotNil(t, got, "should get request for seq 11")
	assert.Equal(t, req2, got)
	assert.Equal(t, 0, m.Len(), "map should be empty")
}

func TestPendingRequestMap_Clear(t *testing.T) {
	t.Parallel()

	m := newPendingRequestMap()
	m.Add(10, &pendingRequest{originalSeq: 1, command: "stackTrace"})
	m.Add(11, &pendingRequest{originalSeq: 2, command: "scopes"})

	assert.Equal(t, 2, m.Len())

	m.Clear()

	assert.Equal(t, 0, m.Len(), "map should be empty after clear")
	assert.Nil(t, m.Get(10))
}

func TestDirection_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "upstream", Upstream.String())
	assert.Equal(t, "downstream", Downstream.String())
	assert.Equal(t, "unknown", Direction(99).String())
}

func TestComposeHandlers(t *testing.T) {
	t.Parallel()

	callOrder := []string{}

	h1 := func(msg dap.Message, dir Direction) (dap.Message, bool) {
		callOrder = append(callOrder, "h1")
		return msg, true
	}

	h2 := func(msg dap.Message, dir Direction) (dap.Message, bool) {
		callOrder = append(callOrder, "h2")
		return msg, true
	}

	composed := ComposeHandlers(h1, h2)
	msg := &dap.InitializeRequest{}

	_, forward := composed(msg, Upstream)

	assert.True(t, forward)
	assert.Equal(t, []string{"h1", "h2"}, callOrder)
}

func TestComposeHandlers_StopsOnForwardFalse(t *testing.T) {
	t.Parallel()

	callOrder := []string{}

	h1 := func(msg dap.Message, dir Direction) (dap.Message, bool) {
		callOrder = append(callOrder, "h1")
		return nil, false // Stop forwarding
	}

	h2 := func(msg dap.Message, dir Direction) (dap.Message, bool) {
		callOrder = append(callOrder, "h2")
		return msg, true
	}

	composed := ComposeHandlers(h1, h2)
	msg := &dap.InitializeRequest{}

	_, forward := composed(msg, Upstream)

	assert.False(t, forward)
	assert.Equal(t, []string{"h1"}, callOrder, "h2 should not be called")
}

func TestComposeHandlers_PassesModifiedMessage(t *testing.T) {
	t.Parallel()

	h1 := func(msg dap.Message, dir Direction) (dap.Message, bool) {
		// Modify the message
		return &dap.ContinueRequest{}, true
	}

	h2 := func(msg dap.Message, dir Direction) (dap.Message, bool) {
		// Check that we received the modified message
		_, ok := msg.(*dap.ContinueRequest)
		assert.True(t, ok, "h2 should receive modified message")
		return msg, true
	}

	composed := ComposeHandlers(h1, h2)
	msg := &dap.InitializeRequest{}

	result, forward := composed(msg, Upstream)

	assert.True(t, forward)
	_, ok := result.(*dap.ContinueRequest)
	assert.True(t, ok, "result should be modified message")
}
