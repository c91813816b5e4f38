//go:build linux

package runner

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"
)

// alive reports whether pid exists and is not a zombie.
func alive(t *testing.T, pid int) bool {
	t.Helper()
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/stat", pid))
	if os.IsNotExist(err) {
		return false
	}
	if err != nil {
		t.Fatalf("reading /proc/%d/stat: %v", pid, err)
	}
	// pid (comm) state ...; comm may contain spaces.
	rest := string(data[strings.LastIndexByte(string(data), ')')+1:])
	fields := strings.Fields(rest)
	return len(fields) > 0 && fields[0] != "Z"
}

func TestRun_BackgroundChildKilled(t *testing.T) {
	r := newTestRunner(t)
	r.Timeout = 0

	start := time.Now()
	res, err := r.Run(context.Background(), "sleep 30 & echo $!")
	elapsed := time.Since(start)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Outcome != Completed {
		t.Errorf("Outcome = %s, want completed", res.Outcome)
	}
	if code, _ := res.Code(); code != 0 {
		t.Errorf("ExitCode = %d, want 0", code)
	}
	if elapsed > waitDelay+3*time.Second {
		t.Errorf("Run took %v, want at most about %v", elapsed, waitDelay)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(res.Stdout))
	if err != nil {
		t.Fatalf("Stdout = %q, want the background pid", res.Stdout)
	}

	// SIGKILL delivery is asynchronous; allow the kernel a moment.
	deadline := time.Now().Add(2 * time.Second)
	for alive(t, pid) {
		if time.Now().After(deadline) {
			t.Fatalf("background process %d still running after Run returned", pid)
		}
		time.Sleep(20 * time.Millisecond)
	}
}
