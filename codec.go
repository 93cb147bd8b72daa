package kvengine

import (
	"encoding/json"
	"io"
)

// Command is the tagged union persisted to a segment file: either a Set or
// a Remove. It has exactly two implementations; no further variants are
// planned, so this stays a plain interface rather than a richer dispatch
// mechanism.
type Command interface {
	isCommand()
}

// SetCommand records that Key's value became Value.
type SetCommand struct {
	Key   string
	Value string
}

func (SetCommand) isCommand() {}

// RemoveCommand records that Key was deleted.
type RemoveCommand struct {
	Key string
}

func (RemoveCommand) isCommand() {}

// wireCommand is the canonical on-disk shape from spec §6:
//
//	{"Set":["<key>","<value>"]}
//	{"Remove":"<key>"}
type wireCommand struct {
	Set    *[2]string `json:"Set,omitempty"`
	Remove *string    `json:"Remove,omitempty"`
}

// Encode serializes cmd to its canonical JSON wire form.
func Encode(cmd Command) ([]byte, error) {
	var w wireCommand
	switch c := cmd.(type) {
	case SetCommand:
		w.Set = &[2]string{c.Key, c.Value}
	case RemoveCommand:
		w.Remove = &c.Key
	default:
		return nil, codecErr("Encode", errUnknownCommand)
	}
	b, err := json.Marshal(w)
	if err != nil {
		return nil, codecErr("Encode", err)
	}
	return b, nil
}

var errUnknownCommand = &Error{Kind: KindCodec, Msg: "unknown command type"}

func decodeWire(w wireCommand) (Command, error) {
	switch {
	case w.Set != nil && w.Remove == nil:
		return SetCommand{Key: w.Set[0], Value: w.Set[1]}, nil
	case w.Remove != nil && w.Set == nil:
		return RemoveCommand{Key: *w.Remove}, nil
	default:
		return nil, codecErr("Decode", &Error{Kind: KindCodec, Msg: "command has neither or both of Set/Remove"})
	}
}

// Decoded is one (command, byteOffset, length) triple yielded while
// scanning a segment's command stream.
type Decoded struct {
	Command Command
	Offset  int64
	Length  int64
}

// decoder streams commands out of a segment's JSON concatenation, tracking
// byte offsets via (*json.Decoder).InputOffset so a linear scan yields
// self-delimited (command, offset, length) triples with no header or
// separator, as spec §4.5/§6 requires.
type decoder struct {
	dec    *json.Decoder
	offset int64
}

func newDecoder(r io.Reader) *decoder {
	return &decoder{dec: json.NewDecoder(r)}
}

// next returns the next decoded command, or io.EOF when the stream is
// exhausted cleanly at a command boundary. Any other error (including EOF
// in the middle of a value) is a corrupt-log condition for the caller to
// classify.
func (d *decoder) next() (Decoded, error) {
	var w wireCommand
	if err := d.dec.Decode(&w); err != nil {
		if err == io.EOF {
			return Decoded{}, io.EOF
		}
		return Decoded{}, err
	}

	next := d.dec.InputOffset()
	start := d.offset
	length := next - start
	if length < 0 {
		panic("kvengine: codec: negative command length")
	}
	d.offset = next

	cmd, err := decodeWire(w)
	if err != nil {
		return Decoded{}, err
	}

	return Decoded{Command: cmd, Offset: start, Length: length}, nil
}
