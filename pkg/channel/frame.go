package channel

// FrameType identifies the WebSocket data frame opcode
type FrameType int

const (
	// FrameText is a UTF-8 text frame
	FrameText FrameType = iota + 1

	// FrameBinary is a binary frame
	FrameBinary
)

// String returns the frame type name
func (t FrameType) String() string {
	switch t {
	case FrameText:
		return "text"
	case FrameBinary:
		return "binary"
	default:
		return "unknown"
	}
}

// Frame is a complete outbound data frame.
type Frame struct {
	Type FrameType
	Data []byte
}

// NewTextFrame creates a text frame from s.
func NewTextFrame(s string) Frame {
	return Frame{Type: FrameText, Data: []byte(s)}
}

// NewBinaryFrame creates a binary frame holding a copy of data.
func NewBinaryFrame(data []byte) Frame {
	dataCopy := make([]byte, len(data))
	copy(dataCopy, data)
	return Frame{Type: FrameBinary, Data: dataCopy}
}

// Text returns the frame payload as a string.
func (f Frame) Text() string {
	return string(f.Data)
}
