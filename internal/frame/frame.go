// Package frame decodes tic2json dictionary-mode frames.
// One frame is a JSON object mapping field labels to
// { "data": <number|string>, "horodate": "..." } objects, plus a
// bare "_tvalide" integer carrying the frame checksum verdict.
package frame

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ValidityMarker is the label of the frame integrity flag emitted by
// the decoder upstream of this process.
const ValidityMarker = "_tvalide"

// Field is one decoded meter field. Data is either numeric or textual
// depending on the field; exactly one of Num/Str is meaningful,
// selected by IsNum.
type Field struct {
	Num      int64
	Str      string
	IsNum    bool
	Horodate string
}

// Frame is one decoded telemetry frame. Frames are sparse: not every
// tick carries every field. A Frame is never mutated after Decode.
type Frame struct {
	valid  bool
	fields map[string]Field
}

// rawField mirrors the wire shape of a single field entry.
// "desc" and "unit" keys, when present, are ignored.
type rawField struct {
	Data     json.RawMessage `json:"data"`
	Horodate string          `json:"horodate"`
}

// Decode parses one frame line. It returns an error for lines that are
// not a JSON object of the expected shape; a well-formed frame with a
// zero or missing validity marker decodes fine but reports !Valid().
// A field whose data is neither an integer nor a string (a nested
// object, an array, a fractional number) is dropped from the frame;
// its siblings are unaffected.
func Decode(line []byte) (Frame, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(line, &raw); err != nil {
		return Frame{}, fmt.Errorf("decode frame: %w", err)
	}

	f := Frame{fields: make(map[string]Field, len(raw))}

	for label, msg := range raw {
		if label == ValidityMarker {
			var v int
			if err := json.Unmarshal(msg, &v); err != nil {
				return Frame{}, fmt.Errorf("decode %s: %w", ValidityMarker, err)
			}
			f.valid = v != 0
			continue
		}

		var rf rawField
		if err := json.Unmarshal(msg, &rf); err != nil {
			return Frame{}, fmt.Errorf("decode field %s: %w", label, err)
		}
		field := Field{Horodate: rf.Horodate}
		switch {
		case len(rf.Data) == 0 || bytes.Equal(rf.Data, []byte("null")):
			// data omitted or null: keep the field present but empty
		case rf.Data[0] == '"':
			if err := json.Unmarshal(rf.Data, &field.Str); err != nil {
				return Frame{}, fmt.Errorf("decode field %s: %w", label, err)
			}
		default:
			// Expanded decoder modes nest an object or emit fractional
			// numbers here. Skip just that field so the rest of the
			// frame stays usable.
			var n json.Number
			if err := json.Unmarshal(rf.Data, &n); err != nil {
				continue
			}
			i, err := n.Int64()
			if err != nil {
				continue
			}
			field.Num = i
			field.IsNum = true
		}
		f.fields[label] = field
	}

	return f, nil
}

// Valid reports whether the frame carries a truthy validity marker.
// Invalid frames must not drive any signal derivation.
func (f Frame) Valid() bool {
	return f.valid
}

// Field returns the named field, or ok=false when this frame does not
// carry it.
func (f Frame) Field(label string) (Field, bool) {
	fl, ok := f.fields[label]
	return fl, ok
}

// Int returns the named field's numeric data. ok is false when the
// field is absent or carries textual data.
func (f Frame) Int(label string) (int64, bool) {
	fl, ok := f.fields[label]
	if !ok || !fl.IsNum {
		return 0, false
	}
	return fl.Num, true
}

// Str returns the named field's textual data. ok is false when the
// field is absent or carries numeric data.
func (f Frame) Str(label string) (string, bool) {
	fl, ok := f.fields[label]
	if !ok || fl.IsNum {
		return "", false
	}
	return fl.Str, true
}
