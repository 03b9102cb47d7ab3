package survey

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

func (e *Entry) field(key string) *string {
	switch key {
	case KeyProgram:
		return &e.Program
	case KeyUniversity:
		return &e.University
	case KeyComments:
		return &e.Comments
	case KeyDateAdded:
		return &e.DateAdded
	case KeyURL:
		return &e.URL
	case KeyStatus:
		return &e.Status
	case KeyStatusDate:
		return &e.StatusDate
	case KeyTerm:
		return &e.Term
	case KeyOrigin:
		return &e.Origin
	case KeyGRE:
		return &e.GRE
	case KeyGREVerbal:
		return &e.GREVerbal
	case KeyGREWriting:
		return &e.GREWriting
	case KeyGPA:
		return &e.GPA
	case KeyDegree:
		return &e.Degree
	default:
		return nil
	}
}

// Get returns the value stored under key, or "" when the key is unset.
func (e Entry) Get(key string) string {
	if p := e.field(key); p != nil {
		return *p
	}
	return e.Extra[key]
}

// Set stores value under key, routing unknown keys to Extra.
func (e *Entry) Set(key, value string) {
	if p := e.field(key); p != nil {
		*p = value
		return
	}
	if e.Extra == nil {
		e.Extra = make(map[string]string)
	}
	e.Extra[key] = value
}

// MarshalJSON writes the canonical keys in fixed order followed by any extra keys
// sorted by name. HTML characters are left unescaped.
func (e Entry) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range CanonicalKeys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writePair(&buf, key, e.Get(key)); err != nil {
			return nil, err
		}
	}
	extraKeys := make([]string, 0, len(e.Extra))
	for k := range e.Extra {
		if e.field(k) != nil {
			continue
		}
		extraKeys = append(extraKeys, k)
	}
	sort.Strings(extraKeys)
	for _, key := range extraKeys {
		buf.WriteByte(',')
		if err := writePair(&buf, key, e.Extra[key]); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON accepts any JSON object. Missing canonical keys stay "", nulls become "",
// and non-string scalars are kept in their textual form.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode entry: %w", err)
	}
	*e = Entry{}
	for key, value := range raw {
		e.Set(key, scalarText(value))
	}
	return nil
}

func scalarText(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

func writePair(buf *bytes.Buffer, key, value string) error {
	if err := writeString(buf, key); err != nil {
		return err
	}
	buf.WriteByte(':')
	return writeString(buf, value)
}

func writeString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encode string: %w", err)
	}
	buf.Write(bytes.TrimRight(tmp.Bytes(), "\n"))
	return nil
}
