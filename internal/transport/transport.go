// Package transport frames protocol messages on a byte stream.
package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sourcegraph/jsonrpc2"
)

// Framing selects how messages are delimited on the stream.
type Framing string

const (
	// FramingHeader uses LSP Content-Length headers.
	FramingHeader Framing = "header"

	// FramingPlain sends bare JSON values back to back.
	FramingPlain Framing = "plain"
)

// ParseFraming validates a framing name.
func ParseFraming(name string) (Framing, error) {
	switch Framing(name) {
	case FramingHeader, FramingPlain:
		return Framing(name), nil
	case "":
		return FramingHeader, nil
	default:
		return "", fmt.Errorf("unknown framing %q (want %q or %q)", name, FramingHeader, FramingPlain)
	}
}

// ErrCorruptStream is returned by ReadMessage when the stream can no longer
// be split into messages. The connection must be closed after reporting it.
var ErrCorruptStream = errors.New("corrupt message stream")

// Conn reads and writes whole messages.
type Conn interface {
	// ReadMessage blocks until a complete message arrives.
	// It returns io.EOF when the peer closes the stream cleanly.
	ReadMessage() ([]byte, error)

	// WriteMessage sends one message.
	WriteMessage(data []byte) error

	Close() error
}

type streamConn struct {
	stream jsonrpc2.ObjectStream
}

// New wraps rwc in a message connection using framing.
func New(rwc io.ReadWriteCloser, framing Framing) Conn {
	var codec jsonrpc2.ObjectCodec

	switch framing {
	case FramingPlain:
		codec = &plainCodec{}
	default:
		codec = headerCodec{}
	}

	return &streamConn{stream: jsonrpc2.NewBufferedStream(rwc, codec)}
}

func (c *streamConn) ReadMessage() ([]byte, error) {
	var raw json.RawMessage
	if err := c.stream.ReadObject(&raw); err != nil {
		return nil, err
	}

	return raw, nil
}

func (c *streamConn) WriteMessage(data []byte) error {
	if err := c.stream.WriteObject(json.RawMessage(data)); err != nil {
		return fmt.Errorf("write message: %w", err)
	}

	return nil
}

func (c *streamConn) Close() error {
	return c.stream.Close()
}

type stdio struct {
	in  io.ReadCloser
	out io.WriteCloser
}

// Stdio returns a stream over the process's standard input and output.
func Stdio() io.ReadWriteCloser {
	return stdio{in: os.Stdin, out: os.Stdout}
}

func (s stdio) Read(p []byte) (int, error) {
	return s.in.Read(p)
}

func (s stdio) Write(p []byte) (int, error) {
	return s.out.Write(p)
}

func (s stdio) Close() error {
	return errors.Join(s.in.Close(), s.out.Close())
}
