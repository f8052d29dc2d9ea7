package formatter

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/url"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/encoding/prototext"
	"google.golang.org/protobuf/proto"

	"github.com/rmacdonaldsmith/wsgateway/pkg/message"
)

// Formatter writes the textual wire form of a message
type Formatter interface {
	Format(w io.Writer, msg *message.Message) error
}

// FormatterFunc adapts a function to Formatter
type FormatterFunc func(w io.Writer, msg *message.Message) error

// Format calls f(w, msg)
func (f FormatterFunc) Format(w io.Writer, msg *message.Message) error {
	return f(w, msg)
}

// JSON renders bodies as JSON. Pre-encoded bodies ([]byte, json.RawMessage, string)
// are validated and written unchanged; proto messages go through protojson.
var JSON Formatter = FormatterFunc(formatJSON)

// XML renders bodies as XML. Pre-encoded bodies are checked for well-formedness.
var XML Formatter = FormatterFunc(formatXML)

// Text renders string, []byte and fmt.Stringer bodies verbatim.
var Text Formatter = FormatterFunc(formatText)

// ProtoText renders proto messages in the protobuf text format.
var ProtoText Formatter = FormatterFunc(formatProtoText)

// Form renders url.Values and map[string]string bodies as application/x-www-form-urlencoded.
var Form Formatter = FormatterFunc(formatForm)

func formatJSON(w io.Writer, msg *message.Message) error {
	var out []byte

	switch body := msg.Body.(type) {
	case nil:
		out = []byte("null")
	case json.RawMessage:
		out = body
	case []byte:
		out = body
	case string:
		out = []byte(body)
	case proto.Message:
		encoded, err := protojson.Marshal(body)
		if err != nil {
			return fmt.Errorf("protojson: %w", err)
		}
		out = encoded
	default:
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("json: %w", err)
		}
		_, err = w.Write(encoded)
		return err
	}

	if !json.Valid(out) {
		return fmt.Errorf("%w: invalid JSON", ErrMalformed)
	}
	_, err := w.Write(out)
	return err
}

func formatXML(w io.Writer, msg *message.Message) error {
	var raw []byte

	switch body := msg.Body.(type) {
	case nil:
		return fmt.Errorf("%w: empty XML document", ErrMalformed)
	case []byte:
		raw = body
	case string:
		raw = []byte(body)
	default:
		encoded, err := xml.Marshal(body)
		if err != nil {
			return fmt.Errorf("xml: %w", err)
		}
		_, err = w.Write(encoded)
		return err
	}

	if err := checkWellFormed(raw); err != nil {
		return err
	}
	_, err := w.Write(raw)
	return err
}

func checkWellFormed(raw []byte) error {
	decoder := xml.NewDecoder(bytes.NewReader(raw))
	elements := 0
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if _, ok := tok.(xml.StartElement); ok {
			elements++
		}
	}
	if elements == 0 {
		return fmt.Errorf("%w: no root element", ErrMalformed)
	}
	return nil
}

func formatText(w io.Writer, msg *message.Message) error {
	var err error

	switch body := msg.Body.(type) {
	case nil:
	case string:
		_, err = io.WriteString(w, body)
	case []byte:
		_, err = w.Write(body)
	case fmt.Stringer:
		_, err = io.WriteString(w, body.String())
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedBody, msg.Body)
	}

	return err
}

func formatProtoText(w io.Writer, msg *message.Message) error {
	body, ok := msg.Body.(proto.Message)
	if !ok {
		return fmt.Errorf("%w: %T is not a proto message", ErrUnsupportedBody, msg.Body)
	}

	encoded, err := prototext.Marshal(body)
	if err != nil {
		return fmt.Errorf("prototext: %w", err)
	}
	_, err = w.Write(encoded)
	return err
}

func formatForm(w io.Writer, msg *message.Message) error {
	var values url.Values

	switch body := msg.Body.(type) {
	case nil:
		values = url.Values{}
	case url.Values:
		values = body
	case map[string]string:
		values = make(url.Values, len(body))
		for k, v := range body {
			values.Set(k, v)
		}
	case map[string][]string:
		values = url.Values(body)
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedBody, msg.Body)
	}

	_, err := io.WriteString(w, values.Encode())
	return err
}
