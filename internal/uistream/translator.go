// Package uistream re-frames the provider's incremental SSE delta stream into
// the UI message stream protocol consumed by the browser chat widget.
package uistream

import (
	"bufio"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

const (
	doneSentinel = "[DONE]"

	// SSE data lines carry one JSON chunk each; a megabyte leaves generous
	// headroom over anything the provider emits.
	maxLineBytes = 1 << 20
)

// newMessageID is injectable so tests can assert exact output.
var newMessageID = func() string {
	return "msg_" + uuid.NewString()
}

// event is one UI message stream frame.
type event struct {
	Type         string `json:"type"`
	MessageID    string `json:"messageId,omitempty"`
	ID           string `json:"id,omitempty"`
	Delta        string `json:"delta,omitempty"`
	FinishReason string `json:"finishReason,omitempty"`
	ErrorText    string `json:"errorText,omitempty"`
}

// providerChunk is the subset of the provider's delta payload we consume.
type providerChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// translator walks the not-started -> streaming -> ended state machine.
// start, text-end, finish, error, and the [DONE] sentinel are each emitted at
// most once no matter how many terminal conditions overlap.
type translator struct {
	w         io.Writer
	flusher   http.Flusher
	messageID string

	started   bool
	ended     bool
	doneSent  bool
	errorSent bool
}

// Pipe consumes the provider SSE byte stream from upstream and writes the
// translated event stream to w, flushing per frame when w supports it. It
// always terminates the outgoing stream properly; the returned error reports
// an upstream read failure for logging only.
func Pipe(w io.Writer, upstream io.Reader) error {
	t := &translator{w: w, messageID: newMessageID()}
	if f, ok := w.(http.Flusher); ok {
		t.flusher = f
	}

	counted := &countingReader{r: upstream}
	scanner := bufio.NewScanner(counted)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	stopped := false
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimLeft(line[len("data:"):], " \t")
		if t.handleData(data) {
			stopped = true
			break
		}
	}

	err := scanner.Err()
	if err != nil && !stopped && !t.ended {
		t.sendError(err.Error())
	}

	if counted.n == 0 && !t.errorSent {
		t.sendError("No response from the model.")
	}
	t.endMessage()
	t.sendDone()
	return err
}

// handleData processes one SSE data payload and reports whether reading
// should stop.
func (t *translator) handleData(data string) bool {
	if data == "" {
		return false
	}
	if data == doneSentinel {
		t.endMessage()
		t.sendDone()
		return true
	}

	var chunk providerChunk
	// Malformed payloads are dropped, not fatal: the provider occasionally
	// interleaves comments and keep-alives we don't model.
	if err := json.Unmarshal([]byte(data), &chunk); err != nil {
		return false
	}
	if len(chunk.Choices) == 0 {
		return false
	}
	choice := chunk.Choices[0]

	if choice.Delta.Content != "" {
		t.ensureStarted()
		t.emitJSON(event{Type: "text-delta", ID: t.messageID, Delta: choice.Delta.Content})
	}
	if choice.FinishReason != "" {
		t.endMessage()
	}
	return false
}

func (t *translator) ensureStarted() {
	if t.started {
		return
	}
	t.started = true
	t.emitJSON(event{Type: "start", MessageID: t.messageID})
	t.emitJSON(event{Type: "text-start", ID: t.messageID})
}

func (t *translator) endMessage() {
	if t.ended {
		return
	}
	t.ended = true
	if !t.started {
		return
	}
	t.emitJSON(event{Type: "text-end", ID: t.messageID})
	t.emitJSON(event{Type: "finish", FinishReason: "stop"})
}

func (t *translator) sendDone() {
	if t.doneSent {
		return
	}
	t.doneSent = true
	t.emit(doneSentinel)
}

func (t *translator) sendError(message string) {
	if t.errorSent {
		return
	}
	t.errorSent = true
	t.emitJSON(event{Type: "error", ErrorText: message})
}

func (t *translator) emitJSON(e event) {
	payload, err := json.Marshal(e)
	if err != nil {
		return
	}
	t.emit(string(payload))
}

func (t *translator) emit(payload string) {
	if _, err := io.WriteString(t.w, "data: "+payload+"\n\n"); err != nil {
		return
	}
	if t.flusher != nil {
		t.flusher.Flush()
	}
}

// countingReader tracks whether the upstream delivered any bytes at all, so
// an empty stream can be reported as an in-band error.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
