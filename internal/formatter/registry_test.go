package formatter

import (
	"encoding/json"
	"encoding/xml"
	"errors"
	"io"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/rmacdonaldsmith/wsgateway/pkg/message"
)

type order struct {
	XMLName xml.Name `xml:"order" json:"-"`
	ID      string   `xml:"id" json:"id"`
	Qty     int      `xml:"qty" json:"qty"`
}

type named string

func (n named) String() string { return "name=" + string(n) }

func TestRegistry_Serialize_JSON(t *testing.T) {
	r := NewRegistry("")

	t.Run("struct_body", func(t *testing.T) {
		out, err := r.Serialize(message.NewMessage("application/json", order{ID: "o-1", Qty: 2}))
		require.NoError(t, err)
		assert.JSONEq(t, `{"id":"o-1","qty":2}`, out)
	})

	t.Run("raw_body_unchanged", func(t *testing.T) {
		out, err := r.Serialize(message.NewMessage("application/json", json.RawMessage(`{"a": 1}`)))
		require.NoError(t, err)
		assert.Equal(t, `{"a": 1}`, out)
	})

	t.Run("malformed_raw_body", func(t *testing.T) {
		_, err := r.Serialize(message.NewMessage("application/json", `{"a":`))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMalformed)
	})

	t.Run("proto_body", func(t *testing.T) {
		body, err := structpb.NewStruct(map[string]any{"symbol": "ACME", "price": 12.5})
		require.NoError(t, err)

		out, err := r.Serialize(message.NewMessage("application/json", body))
		require.NoError(t, err)
		assert.JSONEq(t, `{"symbol":"ACME","price":12.5}`, out)
	})

	t.Run("nil_body", func(t *testing.T) {
		out, err := r.Serialize(message.NewMessage("application/json", nil))
		require.NoError(t, err)
		assert.Equal(t, "null", out)
	})

	t.Run("unmarshalable_body", func(t *testing.T) {
		_, err := r.Serialize(message.NewMessage("application/json", make(chan int)))
		var serr *SerializationError
		require.True(t, errors.As(err, &serr))
		assert.Equal(t, "application/json", serr.ContentType)
	})
}

func TestRegistry_Serialize_XML(t *testing.T) {
	r := NewRegistry("")

	t.Run("struct_body", func(t *testing.T) {
		out, err := r.Serialize(message.NewMessage("application/xml", order{ID: "o-1", Qty: 2}))
		require.NoError(t, err)
		assert.Equal(t, `<order><id>o-1</id><qty>2</qty></order>`, out)
	})

	t.Run("well_formed_string", func(t *testing.T) {
		doc := `<?xml version="1.0"?><ping seq="1"/>`
		out, err := r.Serialize(message.NewMessage("text/xml; charset=UTF-8", doc))
		require.NoError(t, err)
		assert.Equal(t, doc, out)
	})

	t.Run("malformed_string", func(t *testing.T) {
		_, err := r.Serialize(message.NewMessage("application/xml", "<open><unclosed></open>"))
		assert.ErrorIs(t, err, ErrMalformed)

		var serr *SerializationError
		require.True(t, errors.As(err, &serr))
		assert.Contains(t, serr.Error(), "application/xml")
	})

	t.Run("no_root_element", func(t *testing.T) {
		_, err := r.Serialize(message.NewMessage("application/xml", "just text"))
		assert.ErrorIs(t, err, ErrMalformed)
	})

	t.Run("soap_suffix", func(t *testing.T) {
		out, err := r.Serialize(message.NewMessage("application/soap+xml", "<Envelope/>"))
		require.NoError(t, err)
		assert.Equal(t, "<Envelope/>", out)
	})
}

func TestRegistry_Serialize_Text(t *testing.T) {
	r := NewRegistry("")

	out, err := r.Serialize(message.NewMessage("text/plain", "hello"))
	require.NoError(t, err)
	assert.Equal(t, "hello", out)

	out, err = r.Serialize(message.NewMessage("text/plain", named("ada")))
	require.NoError(t, err)
	assert.Equal(t, "name=ada", out)

	_, err = r.Serialize(message.NewMessage("text/plain", 42))
	assert.ErrorIs(t, err, ErrUnsupportedBody)

	_, err = r.Serialize(message.NewMessage("text/plain", []byte{0xff, 0xfe}))
	assert.ErrorIs(t, err, ErrInvalidUTF8)
}

func TestRegistry_Serialize_ProtoText(t *testing.T) {
	r := NewRegistry("")

	out, err := r.Serialize(message.NewMessage("application/x-protobuf", wrapperspb.String("hi")))
	require.NoError(t, err)
	assert.Contains(t, out, `value:`)
	assert.Contains(t, out, `"hi"`)

	_, err = r.Serialize(message.NewMessage("application/x-protobuf", "not proto"))
	assert.ErrorIs(t, err, ErrUnsupportedBody)
}

func TestRegistry_Serialize_Form(t *testing.T) {
	r := NewRegistry("")

	out, err := r.Serialize(message.NewMessage("application/x-www-form-urlencoded", map[string]string{"b": "2", "a": "1 1"}))
	require.NoError(t, err)
	assert.Equal(t, "a=1+1&b=2", out)

	out, err = r.Serialize(message.NewMessage("application/x-www-form-urlencoded", url.Values{"k": {"v1", "v2"}}))
	require.NoError(t, err)
	assert.Equal(t, "k=v1&k=v2", out)
}

func TestRegistry_Lookup(t *testing.T) {
	r := NewRegistry("text/plain")

	tests := []struct {
		name        string
		contentType string
		wantType    string
		wantErr     error
	}{
		{name: "exact", contentType: "application/json", wantType: "application/json"},
		{name: "parameters and case", contentType: "Application/JSON; charset=utf-8", wantType: "application/json"},
		{name: "json suffix", contentType: "application/vnd.acme.order+json", wantType: "application/vnd.acme.order+json"},
		{name: "empty uses default", contentType: "", wantType: "text/plain"},
		{name: "unsupported", contentType: "image/png", wantErr: ErrUnsupportedContentType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, mediaType, err := r.Lookup(tt.contentType)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, f)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, f)
			assert.Equal(t, tt.wantType, mediaType)
		})
	}

	t.Run("unparseable", func(t *testing.T) {
		_, _, err := r.Lookup("; ;")
		assert.Error(t, err)
	})
}

func TestRegistry_Register_Override(t *testing.T) {
	r := NewRegistry("")
	r.Register("application/json", FormatterFunc(func(w io.Writer, msg *message.Message) error {
		_, err := io.WriteString(w, "custom")
		return err
	}))

	out, err := r.Serialize(message.NewMessage("application/json", map[string]int{"a": 1}))
	require.NoError(t, err)
	assert.Equal(t, "custom", out)
}

func TestRegistry_Serialize_Errors(t *testing.T) {
	r := NewRegistry("")

	t.Run("nil_message", func(t *testing.T) {
		_, err := r.Serialize(nil)
		assert.ErrorIs(t, err, ErrNilMessage)
	})

	t.Run("unsupported_type", func(t *testing.T) {
		_, err := r.Serialize(message.NewMessage("image/png", []byte{1}))
		assert.ErrorIs(t, err, ErrUnsupportedContentType)
	})

	t.Run("writer_failure_wrapped", func(t *testing.T) {
		r.Register("application/x-broken", FormatterFunc(func(w io.Writer, msg *message.Message) error {
			return io.ErrShortWrite
		}))
		_, err := r.Serialize(message.NewMessage("application/x-broken", nil))
		assert.ErrorIs(t, err, io.ErrShortWrite)
		assert.True(t, strings.HasPrefix(err.Error(), "serialize application/x-broken message"))
	})
}
