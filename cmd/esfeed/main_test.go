package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/tahoelimited/eventstore-client-go/eventstoretest"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand("test", "abc123")
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestWriteAndRead(t *testing.T) {
	server := eventstoretest.NewServer()
	defer server.Close()

	out, err := runCommand(t, "--url", server.URL(), "write", "orders-1", "OrderCreated", `{"id":1}`,
		"--metadata", `{"user":"alice"}`)
	require.NoError(t, err)

	var status statusView
	require.NoError(t, json.Unmarshal([]byte(out), &status))
	assert.Equal(t, "orders-1", status.Stream)
	assert.Equal(t, 201, status.Status)
	assert.Equal(t, server.URL()+"/streams/orders-1/0", status.Location)

	events := server.Events("orders-1")
	require.Len(t, events, 1)
	assert.NotEmpty(t, events[0].ID)
	assert.JSONEq(t, `{"user":"alice"}`, string(events[0].Metadata))

	out, err = runCommand(t, "--url", server.URL(), "read", "orders-1", "--embed", "body")
	require.NoError(t, err)

	var feed feedView
	require.NoError(t, json.Unmarshal([]byte(out), &feed))
	assert.Equal(t, "orders-1", feed.Stream)
	assert.Equal(t, "body", feed.EmbedMode)
	assert.True(t, feed.HeadOfStream)
	assert.Contains(t, feed.Links, "self")
	require.Len(t, feed.Entries, 1)
	require.NotNil(t, feed.Entries[0].Event)
	assert.Equal(t, "OrderCreated", feed.Entries[0].Event.Type)
	assert.Equal(t, map[string]any{"id": float64(1)}, feed.Entries[0].Event.Data)
}

func TestWriteWithExplicitID(t *testing.T) {
	server := eventstoretest.NewServer()
	defer server.Close()

	_, err := runCommand(t, "--url", server.URL(), "write", "orders-1", "OrderCreated", `{}`,
		"--id", "fbf4a1a1-b4a3-4dfe-a01f-ec52c34e16e4")
	require.NoError(t, err)

	events := server.Events("orders-1")
	require.Len(t, events, 1)
	assert.Equal(t, "fbf4a1a1-b4a3-4dfe-a01f-ec52c34e16e4", events[0].ID)

	_, err = runCommand(t, "--url", server.URL(), "write", "orders-1", "OrderCreated", `{}`, "--id", "nope")
	assert.Error(t, err)
	_, err = runCommand(t, "--url", server.URL(), "write", "orders-1", "OrderCreated", `not json`)
	assert.Error(t, err)
}

func TestReadYAML(t *testing.T) {
	server := eventstoretest.NewServer()
	defer server.Close()
	_, err := runCommand(t, "--url", server.URL(), "write", "orders-1", "OrderCreated", `{"id":1}`)
	require.NoError(t, err)

	out, err := runCommand(t, "--url", server.URL(), "-o", "yaml", "read", "orders-1", "--embed", "rich")
	require.NoError(t, err)

	var feed map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &feed))
	assert.Equal(t, "orders-1", feed["stream"])
	assert.Equal(t, "rich", feed["embed"])
	entries, ok := feed["entries"].([]any)
	require.True(t, ok)
	require.Len(t, entries, 1)
}

func TestReadMissingStream(t *testing.T) {
	server := eventstoretest.NewServer()
	defer server.Close()

	_, err := runCommand(t, "--url", server.URL(), "read", "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestWalk(t *testing.T) {
	server := eventstoretest.NewServer(eventstoretest.WithPageSize(2))
	defer server.Close()
	for i := 0; i < 5; i++ {
		_, err := runCommand(t, "--url", server.URL(), "write", "orders-1", "Numbered", `{}`)
		require.NoError(t, err)
	}

	out, err := runCommand(t, "--url", server.URL(), "walk", "orders-1", "--embed", "rich")
	require.NoError(t, err)

	var pages []feedView
	require.NoError(t, json.Unmarshal([]byte(out), &pages))
	require.Len(t, pages, 3)
	var numbers []int64
	for _, p := range pages {
		for _, e := range p.Entries {
			numbers = append(numbers, e.Event.Number)
		}
	}
	assert.Equal(t, []int64{4, 3, 2, 1, 0}, numbers)

	out, err = runCommand(t, "--url", server.URL(), "walk", "orders-1", "--max-pages", "2")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &pages))
	assert.Len(t, pages, 2)

	_, err = runCommand(t, "--url", server.URL(), "walk", "orders-1", "--relation", "sideways")
	assert.Error(t, err)
}

func TestDeleteMany(t *testing.T) {
	server := eventstoretest.NewServer()
	defer server.Close()
	for _, stream := range []string{"a", "b", "c"} {
		_, err := runCommand(t, "--url", server.URL(), "write", stream, "Created", `{}`)
		require.NoError(t, err)
	}

	out, err := runCommand(t, "--url", server.URL(), "delete", "a", "b", "c", "--hard", "--concurrency", "2")
	require.NoError(t, err)

	var results []statusView
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 3)
	for i, stream := range []string{"a", "b", "c"} {
		assert.Equal(t, stream, results[i].Stream)
		assert.Equal(t, 204, results[i].Status)
	}

	for _, req := range server.Requests() {
		if req.Method == "DELETE" {
			assert.Equal(t, "true", req.Header.Get("ES-HardDelete"))
		}
	}

	_, err = runCommand(t, "--url", server.URL(), "delete", "a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "410")
}

func TestEventCommand(t *testing.T) {
	server := eventstoretest.NewServer()
	defer server.Close()
	_, err := runCommand(t, "--url", server.URL(), "write", "orders-1", "OrderCreated", `{"id":7}`)
	require.NoError(t, err)

	out, err := runCommand(t, "--url", server.URL(), "event", server.URL()+"/streams/orders-1/0")
	require.NoError(t, err)

	var ev eventView
	require.NoError(t, json.Unmarshal([]byte(out), &ev))
	assert.Equal(t, "OrderCreated", ev.Type)
	assert.Equal(t, "orders-1", ev.Stream)
	assert.Equal(t, map[string]any{"id": float64(7)}, ev.Data)
}

func TestCacheDir(t *testing.T) {
	server := eventstoretest.NewServer(eventstoretest.WithPageSize(1))
	defer server.Close()
	dir := t.TempDir()
	for i := 0; i < 3; i++ {
		_, err := runCommand(t, "--url", server.URL(), "write", "orders-1", "Numbered", `{}`)
		require.NoError(t, err)
	}

	_, err := runCommand(t, "--url", server.URL(), "--cache-dir", dir, "walk", "orders-1")
	require.NoError(t, err)
	before := len(server.Requests())

	_, err = runCommand(t, "--url", server.URL(), "--cache-dir", dir, "walk", "orders-1")
	require.NoError(t, err)

	// Only the probe and the head page go to the server the second time.
	assert.Equal(t, before+2, len(server.Requests()))
}

func TestGlobalFlagValidation(t *testing.T) {
	t.Setenv(envURL, "")

	_, err := runCommand(t, "read", "orders-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), envURL)

	_, err = runCommand(t, "--url", "http://127.0.0.1:1", "-o", "xml", "read", "orders-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "xml")
}

func TestURLFromEnvironment(t *testing.T) {
	server := eventstoretest.NewServer()
	defer server.Close()
	t.Setenv(envURL, server.URL())

	_, err := runCommand(t, "write", "orders-1", "OrderCreated", `{}`)
	require.NoError(t, err)
	assert.Len(t, server.Events("orders-1"), 1)
}
