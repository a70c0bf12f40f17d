package testutil

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"time"
)

// HelperEnv marks a test binary invocation as a stub tool server
const HelperEnv = "GO_WANT_HELPER_PROCESS"

// Stub server behaviours selected by HelperCommand's mode argument.
const (
	// ModeEcho answers initialize and tools/call. The tools/call text is the
	// first extra argument, or "4 usages found".
	ModeEcho = "echo"
	// ModeNoise behaves like ModeEcho but surrounds the answers with log
	// lines, malformed JSON and a stale duplicate of the target id.
	ModeNoise = "noise"
	// ModeToolError answers tools/call with isError set.
	ModeToolError = "tool-error"
	// ModeSilent reads its input and writes nothing to stdout.
	ModeSilent = "silent"
	// ModeHang never exits.
	ModeHang = "hang"
	// ModeExit answers like ModeEcho, then exits with the status given as
	// the first extra argument.
	ModeExit = "exit"
	// ModeNoRead exits immediately without reading stdin.
	ModeNoRead = "no-read"
	// ModeStdin copies its stdin to stdout verbatim.
	ModeStdin = "stdin"
	// ModeSpawn starts a hanging child that shares its stdout, prints the
	// child's pid, then hangs itself.
	ModeSpawn = "spawn"
)

// DefaultStubText is what the stub server returns for tools/call
const DefaultStubText = "4 usages found"

// HelperCommand returns the command, arguments and extra environment that
// re-run the current test binary as a stub server. The calling package must
// define
//
//	func TestHelperProcess(t *testing.T) { testutil.RunHelperProcess() }
func HelperCommand(mode string, extra ...string) (string, []string, []string) {
	args := append([]string{"-test.run=TestHelperProcess", "--", mode}, extra...)
	return os.Args[0], args, []string{HelperEnv + "=1"}
}

// RunHelperProcess acts as the stub server when the process was launched by
// HelperCommand, and returns immediately otherwise. It never returns in
// helper mode.
func RunHelperProcess() {
	if os.Getenv(HelperEnv) != "1" {
		return
	}

	args := os.Args
	for len(args) > 0 {
		if args[0] == "--" {
			args = args[1:]
			break
		}
		args = args[1:]
	}
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "helper: no mode")
		os.Exit(2)
	}

	os.Exit(serve(args[0], args[1:]))
}

type stubRequest struct {
	ID     json.RawMessage `json:"id,omitempty"`
	Method string          `json:"method"`
}

func serve(mode string, extra []string) int {
	switch mode {
	case ModeHang:
		time.Sleep(time.Hour)
		return 0
	case ModeSpawn:
		child := exec.Command(os.Args[0], "-test.run=TestHelperProcess", "--", ModeHang)
		child.Stdout = os.Stdout
		child.Stderr = os.Stderr
		if err := child.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "helper: spawn: %v\n", err)
			return 1
		}
		fmt.Fprintf(os.Stdout, "spawned %d\n", child.Process.Pid)
		time.Sleep(time.Hour)
		return 0
	case ModeNoRead:
		fmt.Fprintln(os.Stdout, "bye")
		return 0
	case ModeStdin:
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			fmt.Fprintln(os.Stdout, scanner.Text())
		}
		return 0
	}

	text := DefaultStubText
	if mode == ModeEcho && len(extra) > 0 {
		text = extra[0]
	}

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	fmt.Fprintln(os.Stderr, "stub server starting")
	if mode == ModeNoise {
		fmt.Fprintln(out, "{not json")
		fmt.Fprintln(out, `{"jsonrpc":"2.0","id":3,"result":{"content":[{"type":"text","text":"stale"}]}}`)
	}

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		var req stubRequest
		if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
			fmt.Fprintf(os.Stderr, "stub: bad request: %v\n", err)
			continue
		}
		if len(req.ID) == 0 {
			continue
		}

		switch req.Method {
		case "initialize":
			fmt.Fprintf(out, `{"jsonrpc":"2.0","id":%s,"result":{"protocolVersion":"2024-11-05","serverInfo":{"name":"stub","version":"0"}}}`+"\n", req.ID)
		case "tools/call":
			if mode == ModeSilent {
				continue
			}
			if mode == ModeNoise {
				fmt.Fprintln(out, "INFO handling tools/call")
			}
			result := map[string]interface{}{
				"content": []map[string]string{{"type": "text", "text": text}},
			}
			if mode == ModeToolError {
				result["content"] = []map[string]string{{"type": "text", "text": "repoPath is required"}}
				result["isError"] = true
			}
			payload, _ := json.Marshal(map[string]interface{}{
				"jsonrpc": "2.0",
				"id":      json.RawMessage(req.ID),
				"result":  result,
			})
			fmt.Fprintln(out, string(payload))
		}
	}
	if mode == ModeNoise {
		fmt.Fprintln(out, "shutting down")
	}

	if mode == ModeExit && len(extra) > 0 {
		code, err := strconv.Atoi(extra[0])
		if err == nil {
			out.Flush()
			return code
		}
	}
	return 0
}
