// Package serialfeed adapts a line-delimited JSON stream from a hardware
// buzzer controller into core press events. The transport is just an
// io.Reader, so a serial device file, a TCP stream, or stdin (simulation
// mode) all work the same way.
package serialfeed

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log"
	"strconv"
	"strings"
	"time"
)

// Sink is the slice of the quiz core the controller feed drives.
type Sink interface {
	PressButton(sessionID string, playerID int, timestamp int64) error
	EndQuiz(sessionID string)
}

// controllerMessage is the wire format emitted by the button controller.
type controllerMessage struct {
	DataType  string `json:"dataType"`
	PlayerID  int    `json:"playerId"`
	Timestamp int64  `json:"timestamp"`
}

// Feed consumes controller lines and forwards them to one session.
type Feed struct {
	sessionID string
	sink      Sink
	now       func() time.Time
}

func New(sessionID string, sink Sink) *Feed {
	return &Feed{sessionID: sessionID, sink: sink, now: time.Now}
}

// Run reads lines until the reader is exhausted or ctx is canceled. A line is
// either the literal RESET, a bare player number (simulation mode), or a JSON
// controllerMessage. Malformed lines are logged and skipped; the feed never
// takes the session down.
func (f *Feed) Run(ctx context.Context, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		f.handleLine(scanner.Text())
	}
	return scanner.Err()
}

func (f *Feed) handleLine(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}

	if line == "RESET" {
		// Legacy controllers send a bare RESET to clear press state.
		f.sink.EndQuiz(f.sessionID)
		return
	}

	if playerID, err := strconv.Atoi(line); err == nil {
		f.press(playerID, f.now().UnixMilli())
		return
	}

	var msg controllerMessage
	if err := json.Unmarshal([]byte(line), &msg); err != nil {
		log.Printf("serialfeed: unparseable line %q: %v", line, err)
		return
	}
	if msg.DataType != "buttonPress" || msg.PlayerID == 0 {
		log.Printf("serialfeed: ignoring message type %q", msg.DataType)
		return
	}
	ts := msg.Timestamp
	if ts == 0 {
		ts = f.now().UnixMilli()
	}
	f.press(msg.PlayerID, ts)
}

func (f *Feed) press(playerID int, timestamp int64) {
	if err := f.sink.PressButton(f.sessionID, playerID, timestamp); err != nil {
		log.Printf("serialfeed: press from player %d dropped: %v", playerID, err)
	}
}
