package proto

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

// MaxPayloadLen is the largest body a length-prefixed shape can carry: the
// length prefix is an unsigned 8-bit byte.
const MaxPayloadLen = 255

// ErrPayloadTooLarge is returned by encoders when a String/Bytes/StringList
// entry would not fit in an 8-bit length prefix.
var ErrPayloadTooLarge = errors.New("proto: payload exceeds 255 bytes")

// ErrUnknownOpcode is returned by the decoder when a tag byte does not map
// to any opcode in the catalog.
var ErrUnknownOpcode = errors.New("proto: unknown opcode tag")

// ErrShortRead is returned when a length-prefixed body is truncated.
var ErrShortRead = errors.New("proto: short read")

// Command is a decoded control-channel frame: an opcode plus its typed
// payload. Exactly one of the payload fields is meaningful, selected by
// Op.shape().
type Command struct {
	Op         Opcode
	Str        string   // shapeString
	Bytes      []byte   // shapeBytes
	StringList []string // shapeStringList
}

// Simple constructs a Command with no payload.
func Simple(op Opcode) Command { return Command{Op: op} }

// WithString constructs a Command carrying a String payload.
func WithString(op Opcode, s string) Command { return Command{Op: op, Str: s} }

// WithBytes constructs a Command carrying a Bytes payload.
func WithBytes(op Opcode, b []byte) Command { return Command{Op: op, Bytes: b} }

// WithStringList constructs a Command carrying a StringList payload.
func WithStringList(op Opcode, items []string) Command {
	return Command{Op: op, StringList: items}
}

// MarshalBinary encodes the command as tag(1) || body, per its opcode's
// payload shape. It returns ErrPayloadTooLarge if any length-prefixed
// component would not fit in a byte.
func (c Command) MarshalBinary() ([]byte, error) {
	buf := []byte{c.Op.tag()}
	switch c.Op.shape() {
	case shapeSimple:
		// no body
	case shapeString:
		b, err := appendLenPrefixed(buf, []byte(c.Str))
		if err != nil {
			return nil, err
		}
		buf = b
	case shapeBytes:
		b, err := appendLenPrefixed(buf, c.Bytes)
		if err != nil {
			return nil, err
		}
		buf = b
	case shapeStringList:
		if len(c.StringList) > MaxPayloadLen {
			return nil, ErrPayloadTooLarge
		}
		buf = append(buf, byte(len(c.StringList)))
		for _, s := range c.StringList {
			b, err := appendLenPrefixed(buf, []byte(s))
			if err != nil {
				return nil, err
			}
			buf = b
		}
	}
	return buf, nil
}

func appendLenPrefixed(buf []byte, body []byte) ([]byte, error) {
	if len(body) > MaxPayloadLen {
		return nil, ErrPayloadTooLarge
	}
	buf = append(buf, byte(len(body)))
	return append(buf, body...), nil
}

// WriteTo writes the marshaled command to w.
func (c Command) WriteTo(w io.Writer) (int64, error) {
	b, err := c.MarshalBinary()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(b)
	return int64(n), err
}

// ReadCommand reads one frame from r.
//
// A zero-byte first read (the tag byte) signals orderly EOF and is
// reported as io.EOF, not wrapped as a protocol error. Any other short
// read of a length-prefixed body is a hard error.
func ReadCommand(r *bufio.Reader) (Command, error) {
	tagByte, err := r.ReadByte()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Command{}, io.EOF
		}
		return Command{}, fmt.Errorf("proto: read tag: %w", err)
	}

	op, ok := opcodeFromTag(tagByte)
	if !ok {
		return Command{}, fmt.Errorf("%w: 0x%02x", ErrUnknownOpcode, tagByte)
	}

	cmd := Command{Op: op}
	switch op.shape() {
	case shapeSimple:
		// no body
	case shapeString:
		body, err := readLenPrefixed(r)
		if err != nil {
			return Command{}, err
		}
		cmd.Str = string(body)
	case shapeBytes:
		body, err := readLenPrefixed(r)
		if err != nil {
			return Command{}, err
		}
		cmd.Bytes = body
	case shapeStringList:
		count, err := r.ReadByte()
		if err != nil {
			return Command{}, fmt.Errorf("%w: string list count: %v", ErrShortRead, err)
		}
		items := make([]string, 0, count)
		for i := 0; i < int(count); i++ {
			body, err := readLenPrefixed(r)
			if err != nil {
				return Command{}, err
			}
			items = append(items, string(body))
		}
		cmd.StringList = items
	}
	return cmd, nil
}

func readLenPrefixed(r *bufio.Reader) ([]byte, error) {
	n, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("%w: length byte: %v", ErrShortRead, err)
	}
	body := make([]byte, n)
	if n > 0 {
		if _, err := io.ReadFull(r, body); err != nil {
			return nil, fmt.Errorf("%w: body: %v", ErrShortRead, err)
		}
	}
	return body, nil
}
