package transport

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/textproto"
	"strconv"

	"github.com/sourcegraph/jsonrpc2"
)

// maxContentLength bounds a single frame.
const maxContentLength = 16 << 20

// headerCodec reads LSP frames whole before decoding, so a body that is not
// valid JSON still leaves the stream positioned at the next frame.
// Writing is delegated to jsonrpc2.VSCodeObjectCodec.
type headerCodec struct {
	jsonrpc2.VSCodeObjectCodec
}

func (headerCodec) ReadObject(stream *bufio.Reader, v any) error {
	header, err := textproto.NewReader(stream).ReadMIMEHeader()
	if err != nil {
		if errors.Is(err, io.EOF) && len(header) == 0 {
			return io.EOF
		}

		return fmt.Errorf("%w: read header: %w", ErrCorruptStream, err)
	}

	value := header.Get("Content-Length")
	if value == "" {
		return fmt.Errorf("%w: missing Content-Length header", ErrCorruptStream)
	}

	length, err := strconv.ParseInt(value, 10, 64)
	if err != nil || length < 0 || length > maxContentLength {
		return fmt.Errorf("%w: invalid Content-Length %q", ErrCorruptStream, value)
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(stream, body); err != nil {
		return fmt.Errorf("%w: read body: %w", ErrCorruptStream, err)
	}

	if raw, ok := v.(*json.RawMessage); ok {
		*raw = body
		return nil
	}

	return json.Unmarshal(body, v)
}

// plainCodec reads and writes bare JSON values. Values may follow each other
// directly or be separated by whitespace. Input that is not JSON is delivered
// up to the end of its line, and reading resumes on the next line.
type plainCodec struct {
	src io.Reader
	dec *json.Decoder
}

func (c *plainCodec) ReadObject(stream *bufio.Reader, v any) error {
	if c.dec == nil {
		c.src = stream
		c.dec = json.NewDecoder(stream)
	}

	var raw json.RawMessage

	err := c.dec.Decode(&raw)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return io.EOF
		}

		var syntaxErr *json.SyntaxError
		if !errors.As(err, &syntaxErr) && !errors.Is(err, io.ErrUnexpectedEOF) {
			return err
		}

		raw, err = c.skipLine()
		if err != nil {
			return err
		}
	}

	if target, ok := v.(*json.RawMessage); ok {
		*target = raw
		return nil
	}

	return json.Unmarshal(raw, v)
}

// skipLine returns the rest of the first non-blank line of unread input and
// restarts decoding after it, since a json.Decoder stays failed after an error.
func (c *plainCodec) skipLine() (json.RawMessage, error) {
	rest := io.MultiReader(c.dec.Buffered(), c.src)
	c.src = rest
	c.dec = json.NewDecoder(rest)

	var (
		line []byte
		b    [1]byte
	)

	for {
		n, err := rest.Read(b[:])
		if n == 1 {
			if b[0] != '\n' {
				line = append(line, b[0])
				continue
			}

			if len(bytes.TrimSpace(line)) > 0 {
				return bytes.TrimSpace(line), nil
			}

			line = line[:0]
		}

		if err != nil {
			if !errors.Is(err, io.EOF) {
				return nil, err
			}

			if len(bytes.TrimSpace(line)) == 0 {
				return nil, io.EOF
			}

			return bytes.TrimSpace(line), nil
		}
	}
}

func (c *plainCodec) WriteObject(stream io.Writer, obj any) error {
	data, err := json.Marshal(obj)
	if err != nil {
		return err
	}

	data = append(data, '\n')
	_, err = stream.Write(data)

	return err
}
