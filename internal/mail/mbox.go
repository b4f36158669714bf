package mail

import (
	"fmt"
	"io"

	"github.com/emersion/go-mbox"
)

// WalkMbox reads mbox-formatted input and calls fn with the raw bytes of
// each message in file order. Errors from fn abort the walk. Callers that
// want to tolerate individual broken messages parse inside fn and decide
// there.
func WalkMbox(r io.Reader, fn func(raw []byte) error) error {
	mr := mbox.NewReader(r)
	for {
		msgReader, err := mr.NextMessage()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading mbox message: %w", err)
		}

		raw, err := io.ReadAll(io.LimitReader(msgReader, maxBodyBytes))
		if err != nil {
			return fmt.Errorf("reading mbox message: %w", err)
		}
		if err := fn(raw); err != nil {
			return err
		}
	}
	return nil
}

// ReadMbox parses every message in mbox-formatted input. The first message
// that fails to parse fails the whole read.
func ReadMbox(r io.Reader) ([]*Message, error) {
	var msgs []*Message
	err := WalkMbox(r, func(raw []byte) error {
		msg, err := ParseMessage(raw)
		if err != nil {
			return fmt.Errorf("parsing mbox message %d: %w", len(msgs)+1, err)
		}
		msgs = append(msgs, msg)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return msgs, nil
}
