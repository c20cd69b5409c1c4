package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Records is the token dictionary produced by the resolver.
//
// Tasks live in an arena; the dictionary maps tokens to records, and
// aliases and exits refer to arena slots by index. Every token reaching a
// task therefore resolves to the same *Exercise or *Episode pointer.
// Iteration follows insertion order.
type Records struct {
	tasks   []Task
	order   []string
	entries map[string]Record
	primary map[string]int
}

// NewRecords returns an empty dictionary.
func NewRecords() *Records {
	return &Records{
		entries: make(map[string]Record),
		primary: make(map[string]int),
	}
}

func (r *Records) put(token string, rec Record) {
	if _, ok := r.entries[token]; !ok {
		r.order = append(r.order, token)
	}
	r.entries[token] = rec
}

// AddTask appends t to the arena and keys it by token.
func (r *Records) AddTask(token string, t Task) int {
	r.tasks = append(r.tasks, t)
	idx := len(r.tasks) - 1
	r.primary[token] = idx
	r.put(token, t)
	return idx
}

// AddAlias keys the task whose primary token is target under token too.
// A token already reaching the same task is left untouched.
func (r *Records) AddAlias(token, target string) error {
	idx, ok := r.primary[target]
	if !ok {
		return fmt.Errorf("alias %s: no task keyed by %s", token, target)
	}
	if cur, ok := r.slot(token); ok && cur == idx {
		return nil
	}
	r.put(token, Alias{Target: target, Index: idx})
	return nil
}

// AddExit keys the exercise entered by entry under an exit token.
// Existing keys win.
func (r *Records) AddExit(token, entry string) error {
	idx, ok := r.primary[entry]
	if !ok {
		return fmt.Errorf("exit %s: no task keyed by %s", token, entry)
	}
	if r.Has(token) {
		return nil
	}
	r.put(token, Exit{Entry: entry, Index: idx})
	return nil
}

// AddHint keys h by its own token.
func (r *Records) AddHint(token string, h *Hint) {
	r.put(token, h)
}

// Has reports whether token is a key.
func (r *Records) Has(token string) bool {
	_, ok := r.entries[token]
	return ok
}

// Len returns the number of keys.
func (r *Records) Len() int { return len(r.order) }

// Keys returns the tokens in insertion order.
func (r *Records) Keys() []string {
	return append([]string(nil), r.order...)
}

// Lookup returns the raw record stored under token.
func (r *Records) Lookup(token string) (Record, bool) {
	rec, ok := r.entries[token]
	return rec, ok
}

// Resolve follows aliases and exits to the task reached by token.
func (r *Records) Resolve(token string) (Task, bool) {
	idx, ok := r.slot(token)
	if !ok {
		return nil, false
	}
	return r.tasks[idx], true
}

func (r *Records) slot(token string) (int, bool) {
	switch rec := r.entries[token].(type) {
	case Task:
		idx, ok := r.primary[token]
		return idx, ok
	case Alias:
		return rec.Index, true
	case Exit:
		return rec.Index, true
	}
	return 0, false
}

// Tasks returns the arena in scan order.
func (r *Records) Tasks() []Task {
	return append([]Task(nil), r.tasks...)
}

// HintEntry pairs a hint with its token.
type HintEntry struct {
	Token string
	Hint  *Hint
}

// Hints returns the hint records in insertion order.
func (r *Records) Hints() []HintEntry {
	var out []HintEntry
	for _, token := range r.order {
		if h, ok := r.entries[token].(*Hint); ok {
			out = append(out, HintEntry{Token: token, Hint: h})
		}
	}
	return out
}

// PrimaryToken returns the token a task is keyed by.
func (r *Records) PrimaryToken(t Task) (string, bool) {
	for token, idx := range r.primary {
		if r.tasks[idx] == t && r.entries[token] == Record(t) {
			return token, true
		}
	}
	return "", false
}

// MarshalJSON writes the dictionary in insertion order. Aliases are the
// target token, exits are written out as the exercise they reach.
func (r *Records) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, token := range r.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := marshalNoEscape(token)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		val, err := r.EntryJSON(token)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// EntryJSON returns the value stored under token as MarshalJSON writes it.
func (r *Records) EntryJSON(token string) ([]byte, error) {
	var (
		val []byte
		err error
	)
	switch rec := r.entries[token].(type) {
	case nil:
		return nil, fmt.Errorf("no record for token %s", token)
	case Alias:
		val, err = marshalNoEscape(rec.Target)
	case Exit:
		val, err = marshalNoEscape(r.tasks[rec.Index])
	default:
		val, err = marshalNoEscape(rec)
	}
	if err != nil {
		return nil, fmt.Errorf("record %s: %w", token, err)
	}
	return val, nil
}

// UnmarshalJSON restores a dictionary written by MarshalJSON. An exercise
// stored under a key other than its salt is an exit.
func (r *Records) UnmarshalJSON(data []byte) error {
	*r = *NewRecords()

	type pending struct {
		token, target string
		exit          bool
	}
	var refs []pending

	dec := json.NewDecoder(bytes.NewReader(data))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return fmt.Errorf("records: expected object")
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("records: %w", err)
		}
		token := tok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("records[%s]: %w", token, err)
		}
		raw = bytes.TrimSpace(raw)
		if len(raw) > 0 && raw[0] == '"' {
			var target string
			if err := json.Unmarshal(raw, &target); err != nil {
				return fmt.Errorf("records[%s]: %w", token, err)
			}
			refs = append(refs, pending{token: token, target: target})
			r.order = append(r.order, token)
			continue
		}

		var head struct {
			Kind Kind   `json:"kind"`
			Salt string `json:"salt"`
		}
		if err := json.Unmarshal(raw, &head); err != nil {
			return fmt.Errorf("records[%s]: %w", token, err)
		}
		switch head.Kind {
		case KindExercise:
			if head.Salt != token {
				refs = append(refs, pending{token: token, target: head.Salt, exit: true})
				r.order = append(r.order, token)
				continue
			}
			var e Exercise
			if err := json.Unmarshal(raw, &e); err != nil {
				return fmt.Errorf("records[%s]: %w", token, err)
			}
			r.AddTask(token, &e)
		case KindEpisode:
			var e Episode
			if err := json.Unmarshal(raw, &e); err != nil {
				return fmt.Errorf("records[%s]: %w", token, err)
			}
			r.AddTask(token, &e)
		case KindHint:
			var h Hint
			if err := json.Unmarshal(raw, &h); err != nil {
				return fmt.Errorf("records[%s]: %w", token, err)
			}
			r.AddHint(token, &h)
		default:
			return fmt.Errorf("records[%s]: unknown kind %q", token, head.Kind)
		}
	}

	// References are placed in the order slot reserved above.
	for _, p := range refs {
		idx, ok := r.primary[p.target]
		if !ok {
			return fmt.Errorf("records[%s]: no task keyed by %s", p.token, p.target)
		}
		if p.exit {
			r.entries[p.token] = Exit{Entry: p.target, Index: idx}
		} else {
			r.entries[p.token] = Alias{Target: p.target, Index: idx}
		}
	}
	return nil
}

// ValueOf returns the canonical value of what token reaches: the task for
// aliases and exits, the record itself otherwise.
func (r *Records) ValueOf(token string) (Value, error) {
	rec, ok := r.entries[token]
	if !ok {
		return nil, fmt.Errorf("no record for token %s", token)
	}
	if t, ok := r.Resolve(token); ok {
		rec = t
	}
	return recordValue(rec)
}

// entryValue is the stored form used by Digest.
func (r *Records) entryValue(token string) (Value, error) {
	switch rec := r.entries[token].(type) {
	case Alias:
		return String(rec.Target), nil
	case Exit:
		return Object{"kind": String(KindExit), "entry": String(rec.Entry)}, nil
	case nil:
		return nil, fmt.Errorf("no record for token %s", token)
	default:
		return recordValue(rec)
	}
}

func recordValue(rec Record) (Value, error) {
	data, err := marshalNoEscape(rec)
	if err != nil {
		return nil, err
	}
	return ParseValue(data)
}

// ParseValue decodes JSON into a Value tree, rejecting floats and nulls.
func ParseValue(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	return toValue(raw)
}

func toValue(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return nil, fmt.Errorf("null is forbidden")
	case string:
		return String(val), nil
	case bool:
		return Bool(val), nil
	case json.Number:
		n, err := strconv.ParseInt(string(val), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("floats are forbidden: %s", val)
		}
		return Int(n), nil
	case []any:
		arr := make(Array, len(val))
		for i, elem := range val {
			ev, err := toValue(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			arr[i] = ev
		}
		return arr, nil
	case map[string]any:
		obj := make(Object, len(val))
		for k, elem := range val {
			ev, err := toValue(elem)
			if err != nil {
				return nil, fmt.Errorf("[%q]: %w", k, err)
			}
			obj[k] = ev
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}
