package protocol

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"testing"
)

func TestReaderNext_ParsesCommandAndArgs(t *testing.T) {
	line := `{"cmd":"send_message","request_id":"r1","nostr_group_id":"g1","content":"hello"}` + "\n"
	r := NewReader(strings.NewReader(line))

	cmd, err := r.Next()
	if err != nil {
		t.Fatalf("Next error: %v", err)
	}
	if cmd.Cmd != "send_message" || cmd.RequestID != "r1" {
		t.Fatalf("got %+v", cmd)
	}

	var args SendMessageArgs
	if err := cmd.Decode(&args); err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if args.NostrGroupID != "g1" || args.Content != "hello" {
		t.Errorf("got %+v", args)
	}
}

func TestReaderNext_SkipsBlankLines(t *testing.T) {
	r := NewReader(strings.NewReader("\n\n{\"cmd\":\"shutdown\"}\n"))
	cmd, err := r.Next()
	if err != nil {
		t.Fatalf("Next error: %v", err)
	}
	if cmd.Cmd != "shutdown" {
		t.Errorf("cmd = %q, want shutdown", cmd.Cmd)
	}
}

func TestReaderNext_EOF(t *testing.T) {
	r := NewReader(strings.NewReader(""))
	_, err := r.Next()
	if err != io.EOF {
		t.Errorf("err = %v, want io.EOF", err)
	}
}

func TestReaderNext_Malformed(t *testing.T) {
	r := NewReader(strings.NewReader("not json\n"))
	_, err := r.Next()
	var merr *ErrMalformed
	if err == nil {
		t.Fatal("expected error")
	}
	if !asMalformed(err, &merr) {
		t.Errorf("err = %v, want *ErrMalformed", err)
	}
}

func asMalformed(err error, target **ErrMalformed) bool {
	if e, ok := err.(*ErrMalformed); ok {
		*target = e
		return true
	}
	return false
}

func TestWriter_WriteLine(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	if err := w.WriteLine(OK("r1", map[string]string{"event_id": "abc"})); err != nil {
		t.Fatalf("WriteLine error: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(bytes.TrimRight(buf.Bytes(), "\n"), &got); err != nil {
		t.Fatalf("unmarshal output: %v", err)
	}
	if got["event"] != "ok" || got["request_id"] != "r1" {
		t.Errorf("got %v", got)
	}
	if !bytes.HasSuffix(buf.Bytes(), []byte("\n")) {
		t.Error("expected trailing newline")
	}
}

func TestErr_BuildsErrorCode(t *testing.T) {
	e := Err("r2", ErrBusy, "a call is already active")
	if e.Code != "busy" || e.Event != "error" {
		t.Errorf("got %+v", e)
	}
}
