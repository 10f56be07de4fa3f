package server

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/vango-dev/locsync/pkg/location"
	"github.com/vango-dev/locsync/pkg/protocol"
)

func mustURL(t *testing.T, raw string) location.URL {
	t.Helper()
	u, err := location.ParseURL(raw)
	if err != nil {
		t.Fatalf("ParseURL(%q) error = %v", raw, err)
	}
	return u
}

func TestRemoteBrowserPushResolves(t *testing.T) {
	b := NewRemoteBrowser(mustURL(t, "https://example.com:8443/a/b?x=1"), quietLogger())

	b.PushState("c?y=2")
	if got := b.Location().Href; got != "https://example.com:8443/a/c?y=2" {
		t.Errorf("Href after push = %q", got)
	}
	b.ReplaceState("/root#h")
	if got := b.Location().Href; got != "https://example.com:8443/root#h" {
		t.Errorf("Href after replace = %q", got)
	}

	cmds := b.Drain()
	if got := commandStrings(cmds); got != "PushState(c?y=2) ReplaceState(/root#h)" {
		t.Errorf("Drain() = %s", got)
	}
	if b.Pending() != 0 {
		t.Errorf("Pending() after Drain = %d", b.Pending())
	}
}

func TestRemoteBrowserSetHrefKeepsLocation(t *testing.T) {
	b := NewRemoteBrowser(mustURL(t, "http://example.com/a"), quietLogger())
	b.SetHref("/b")
	b.Reload()

	if got := b.Location().Pathname; got != "/a" {
		t.Errorf("Pathname = %q, want /a", got)
	}
	cmds := b.Drain()
	if len(cmds) != 2 || cmds[0].Op != protocol.CmdSetHref || cmds[1].Op != protocol.CmdReload {
		t.Errorf("Drain() = %s", commandStrings(cmds))
	}
}

func TestRemoteBrowserSetHash(t *testing.T) {
	b := NewRemoteBrowser(mustURL(t, "http://example.com/a#one"), quietLogger())

	b.SetHash("#one")
	if b.Pending() != 0 {
		t.Errorf("SetHash(current) queued %d commands", b.Pending())
	}

	b.SetHash("two")
	if got := b.Location().Hash; got != "#two" {
		t.Errorf("Hash = %q, want #two", got)
	}
	if got := commandStrings(b.Drain()); got != "SetHash(#two)" {
		t.Errorf("Drain() = %s", got)
	}
}

func TestRemoteBrowserHashChangeListeners(t *testing.T) {
	b := NewRemoteBrowser(mustURL(t, "http://example.com/"), quietLogger())

	var first, second []string
	removeFirst := b.OnHashChange(func(h string) { first = append(first, h) })
	b.OnHashChange(func(h string) { second = append(second, h) })

	b.HandleHashChange("#x")
	removeFirst()
	b.HandleHashChange("y")

	if len(first) != 1 || first[0] != "#x" {
		t.Errorf("first listener saw %v", first)
	}
	if len(second) != 2 || second[1] != "#y" {
		t.Errorf("second listener saw %v", second)
	}
	if got := b.Location().Hash; got != "#y" {
		t.Errorf("Hash = %q, want #y", got)
	}
	if b.Pending() != 0 {
		t.Error("hashchange from the client queued commands")
	}
}

func TestRemoteDocument(t *testing.T) {
	d := newRemoteDocument(false)
	calls := 0
	d.OnIdle(func() { calls++ })

	if d.IsIdle() {
		t.Fatal("IsIdle() = true")
	}
	if !d.markIdle() {
		t.Error("first markIdle() = false")
	}
	if d.markIdle() {
		t.Error("second markIdle() = true")
	}
	if calls != 1 {
		t.Errorf("callbacks ran %d times, want 1", calls)
	}
	if !d.IsIdle() {
		t.Error("IsIdle() = false after markIdle")
	}
}

func TestRemoteBrowserUnresolvableURLLogs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	b := NewRemoteBrowser(mustURL(t, "http://example.com/a"), logger)

	b.PushState("/bad%zz")

	if got := b.Location().Pathname; got != "/a" {
		t.Errorf("Pathname = %q, want /a", got)
	}
	if got := commandStrings(b.Drain()); got != "PushState(/bad%zz)" {
		t.Errorf("Drain() = %s", got)
	}
	if !strings.Contains(buf.String(), "cannot resolve navigation") {
		t.Errorf("log = %q, want a resolve warning", buf.String())
	}
}
