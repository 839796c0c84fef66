// Command ada-lsp-client sends a short request sequence to a go-ada-lsp server
// listening on TCP and prints the responses.
package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"os"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/CWBudde/go-ada-lsp/internal/completion"
	"github.com/CWBudde/go-ada-lsp/internal/jsonrpc"
	"github.com/CWBudde/go-ada-lsp/internal/transport"
)

type options struct {
	uri       string
	partial   string
	text      string
	line      uint
	character uint
	shutdown  bool
}

func main() {
	var (
		addr    = flag.String("addr", "127.0.0.1:8765", "server address")
		framing = flag.String("framing", "header", "message framing: header or plain")
		opts    options
	)

	flag.StringVar(&opts.uri, "uri", "file:///test.adb", "document URI sent with the completion request")
	flag.StringVar(&opts.partial, "partial", "", "partial name to complete")
	flag.StringVar(&opts.text, "text", "", "document text; the name at -line/-character is completed")
	flag.UintVar(&opts.line, "line", 0, "zero-based cursor line")
	flag.UintVar(&opts.character, "character", 0, "zero-based cursor character (UTF-16)")
	flag.BoolVar(&opts.shutdown, "shutdown", true, "send shutdown and exit after the completion")
	flag.Parse()

	msgFraming, err := transport.ParseFraming(*framing)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ada-lsp-client: %v\n", err)
		os.Exit(2)
	}

	c, err := net.Dial("tcp", *addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ada-lsp-client: %v\n", err)
		os.Exit(1)
	}

	conn := transport.New(c, msgFraming)
	defer conn.Close()

	if err := run(conn, opts, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "ada-lsp-client: %v\n", err)
		os.Exit(1)
	}
}

// run performs initialize, completion and optionally shutdown and exit on conn.
func run(conn transport.Conn, opts options, out io.Writer) error {
	c := &client{conn: conn, out: out}

	resp, err := c.call("initialize", protocol.InitializeParams{
		ClientInfo: &struct {
			Name    string  `json:"name"`
			Version *string `json:"version,omitempty"`
		}{
			Name: "ada-lsp-client",
		},
	})
	if err != nil {
		return err
	}

	if resp.Error != nil {
		fmt.Fprintf(out, "Error in response: %d %s\n", resp.Error.Code, resp.Error.Message)
		return fmt.Errorf("initialize failed: %s", resp.Error.Message)
	}

	fmt.Fprintln(out, "Server initialized.")

	resp, err = c.call("textDocument/completion", completionParams(opts))
	if err != nil {
		return err
	}

	if resp.Error != nil {
		fmt.Fprintf(out, "Error in response: %d %s\n", resp.Error.Code, resp.Error.Message)
	} else {
		var list protocol.CompletionList
		if err := json.Unmarshal(resp.Result, &list); err != nil {
			return fmt.Errorf("decode completion result: %w", err)
		}

		fmt.Fprintln(out, "\nCompletion items:")

		for _, item := range list.Items {
			detail := ""
			if item.Detail != nil {
				detail = *item.Detail
			}

			fmt.Fprintf(out, "- %s\t%s\n", item.Label, detail)
		}
	}

	if !opts.shutdown {
		return nil
	}

	if _, err := c.call("shutdown", nil); err != nil {
		return err
	}

	return c.notify("exit")
}

func completionParams(opts options) completion.Params {
	params := completion.Params{
		TextDocument: &protocol.TextDocumentIdentifier{URI: opts.uri},
		Position: &protocol.Position{
			Line:      protocol.UInteger(opts.line),
			Character: protocol.UInteger(opts.character),
		},
		Context: &protocol.CompletionContext{TriggerKind: protocol.CompletionTriggerKindInvoked},
	}

	switch {
	case opts.partial != "":
		params.PartialText = &opts.partial
	case opts.text != "":
		params.Text = &opts.text
	default:
		empty := ""
		params.PartialText = &empty
	}

	return params
}

type client struct {
	conn   transport.Conn
	out    io.Writer
	nextID int64
}

func (c *client) call(method string, params any) (*jsonrpc.Response, error) {
	c.nextID++
	id := jsonrpc.NumberID(c.nextID)

	data, err := jsonrpc.EncodeRequest(id, method, params)
	if err != nil {
		return nil, err
	}

	c.print("Sent request", data)

	if err := c.conn.WriteMessage(data); err != nil {
		return nil, err
	}

	raw, err := c.conn.ReadMessage()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%s: empty response from server", method)
		}

		return nil, fmt.Errorf("%s: %w", method, err)
	}

	c.print("Received response", raw)

	resp, err := jsonrpc.DecodeResponse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}

	return resp, nil
}

func (c *client) notify(method string) error {
	data, err := jsonrpc.EncodeRequest(nil, method, nil)
	if err != nil {
		return err
	}

	c.print("Sent notification", data)

	return c.conn.WriteMessage(data)
}

func (c *client) print(label string, data []byte) {
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, data, "", "  "); err != nil {
		fmt.Fprintf(c.out, "%s: %s\n", label, data)
		return
	}

	fmt.Fprintf(c.out, "%s: %s\n", label, pretty.String())
}
