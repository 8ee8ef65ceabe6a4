package domain

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"

	"github.com/bytedance/sonic"
)

// IDField is the only task field the server interprets.
const IDField = "id"

// Task is a single record held by the mock. ID is typed; every other top-level
// field is carried verbatim in Fields and never inspected.
type Task struct {
	ID     int64
	Fields map[string]json.RawMessage

	identified bool
}

// NewTask builds an identified task. An "id" key in fields is ignored in favour
// of the id argument.
func NewTask(id int64, fields map[string]json.RawMessage) Task {
	f := make(map[string]json.RawMessage, len(fields))
	for k, v := range fields {
		if k == IDField {
			continue
		}
		f[k] = v
	}
	return Task{ID: id, Fields: f, identified: true}
}

// HasID reports whether the task carries an identity. The zero Task does not.
func (t Task) HasID() bool { return t.identified }

// Clone returns a copy whose field map can be mutated independently. Raw field
// values are immutable once parsed and are shared.
func (t Task) Clone() Task {
	out := t
	if t.Fields != nil {
		out.Fields = make(map[string]json.RawMessage, len(t.Fields))
		for k, v := range t.Fields {
			out.Fields[k] = v
		}
	}
	return out
}

// ParseTask decodes a JSON object into a Task. The object must carry an
// integer "id"; anything else yields a *ValidationError.
func ParseTask(data []byte) (Task, error) {
	var raw map[string]json.RawMessage
	if err := sonic.ConfigStd.Unmarshal(data, &raw); err != nil || raw == nil {
		return Task{}, &ValidationError{Err: ErrNotObject}
	}

	rawID, ok := raw[IDField]
	if !ok {
		return Task{}, &ValidationError{Field: IDField, Err: ErrMissingID}
	}
	id, err := strconv.ParseInt(string(bytes.TrimSpace(rawID)), 10, 64)
	if err != nil {
		return Task{}, &ValidationError{Field: IDField, Err: ErrInvalidID}
	}

	fields := make(map[string]json.RawMessage, len(raw)-1)
	for k, v := range raw {
		if k == IDField {
			continue
		}
		fields[k] = append(json.RawMessage(nil), v...)
	}
	return Task{ID: id, Fields: fields, identified: true}, nil
}

// MarshalJSON writes the task as a flat object with "id" first and the
// remaining fields in key order.
func (t Task) MarshalJSON() ([]byte, error) {
	keys := make([]string, 0, len(t.Fields))
	for k := range t.Fields {
		if k != IDField {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.WriteString(`{"id":`)
	buf.WriteString(strconv.FormatInt(t.ID, 10))
	for _, k := range keys {
		name, err := sonic.ConfigStd.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.WriteByte(',')
		buf.Write(name)
		buf.WriteByte(':')
		if v := t.Fields[k]; len(v) > 0 {
			buf.Write(v)
		} else {
			buf.WriteString("null")
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (t *Task) UnmarshalJSON(data []byte) error {
	parsed, err := ParseTask(data)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
