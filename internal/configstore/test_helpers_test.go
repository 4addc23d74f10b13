package configstore

import (
	"context"
	"os"
	"runtime"
	"sync"
	"testing"

	"github.com/strongdm/devshell/internal/discovery"
)

var envMu sync.Mutex

func lockEnv(t *testing.T) {
	t.Helper()
	envMu.Lock()
	t.Cleanup(func() {
		envMu.Unlock()
	})
}

func testSetEnv(t *testing.T, key, value string) {
	t.Helper()
	prev, existed := os.LookupEnv(key)
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("set env %s: %v", key, err)
	}
	t.Cleanup(func() {
		if !existed {
			_ = os.Unsetenv(key)
			return
		}
		if err := os.Setenv(key, prev); err != nil {
			t.Fatalf("restore env %s: %v", key, err)
		}
	})
}

func setHome(t *testing.T, dir string) {
	t.Helper()
	switch runtime.GOOS {
	case "windows":
		testSetEnv(t, "USERPROFILE", dir)
		testSetEnv(t, "HOMEDRIVE", "")
		testSetEnv(t, "HOMEPATH", "")
	default:
		testSetEnv(t, "HOME", dir)
	}
}

func unsetHome(t *testing.T) {
	t.Helper()
	switch runtime.GOOS {
	case "windows":
		testSetEnv(t, "USERPROFILE", "")
	default:
		testSetEnv(t, "HOME", "")
	}
}

func mustWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

type askCall struct {
	question string
	def      string
}

// fakePrompter answers Ask with queued answers; an empty queue accepts the
// default. Confirm works the same way with confirmAnswers. failOnAsk makes
// the n-th Ask (1-based) return err.
type fakePrompter struct {
	answers        []string
	confirmAnswers []bool
	asks           []askCall
	confirms       []string
	failOnAsk      int
	err            error
}

func (f *fakePrompter) Ask(_ context.Context, question, defaultValue string) (string, error) {
	f.asks = append(f.asks, askCall{question: question, def: defaultValue})
	if f.err != nil && (f.failOnAsk == 0 || f.failOnAsk == len(f.asks)) {
		return "", f.err
	}
	if len(f.answers) == 0 {
		return defaultValue, nil
	}
	next := f.answers[0]
	f.answers = f.answers[1:]
	if next == "" {
		return defaultValue, nil
	}
	return next, nil
}

func (f *fakePrompter) Confirm(_ context.Context, question string, defaultYes bool) (bool, error) {
	f.confirms = append(f.confirms, question)
	if len(f.confirmAnswers) == 0 {
		return defaultYes, nil
	}
	next := f.confirmAnswers[0]
	f.confirmAnswers = f.confirmAnswers[1:]
	return next, nil
}

type fakeDiscovery struct {
	socket      discovery.SocketResult
	socketOK    bool
	address     string
	addressOK   bool
	inUse       map[string]bool
	sshDir      string
	sshOK       bool
	socketCalls int
	addrCalls   int
	pings       []string
}

func (f *fakeDiscovery) FindSocket(context.Context) (discovery.SocketResult, bool) {
	f.socketCalls++
	return f.socket, f.socketOK
}

func (f *fakeDiscovery) ExternalAddress(context.Context) (string, bool) {
	f.addrCalls++
	return f.address, f.addressOK
}

func (f *fakeDiscovery) AddressAvailable(_ context.Context, ip string) bool {
	f.pings = append(f.pings, ip)
	if !discovery.ValidIPv4(ip) {
		return false
	}
	return !f.inUse[ip]
}

func (f *fakeDiscovery) SSHDir() (string, bool) {
	return f.sshDir, f.sshOK
}
