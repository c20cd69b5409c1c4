package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Kind discriminates the record variants.
type Kind string

const (
	KindExercise Kind = "exercise"
	KindEpisode  Kind = "episode"
	KindHint     Kind = "hint"
	KindAlias    Kind = "alias"
	KindExit     Kind = "exit"
)

// Record is a sealed sum type over the values stored in Records:
// *Exercise, *Episode, *Hint, Alias and Exit.
type Record interface {
	Kind() Kind
	record()
}

// Task is a record that owns an arena slot: *Exercise or *Episode.
type Task interface {
	Record
	Base() *TaskBase
}

// Section is one level of the heading hierarchy. It serializes as a
// [title, subtitle] pair.
type Section struct {
	Title    string
	Subtitle string
}

func (s Section) MarshalJSON() ([]byte, error) {
	return marshalNoEscape([2]string{s.Title, s.Subtitle})
}

func (s *Section) UnmarshalJSON(data []byte) error {
	var pair [2]string
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("section: %w", err)
	}
	s.Title, s.Subtitle = pair[0], pair[1]
	return nil
}

// Entry is one element of a solutions list: *Solution or Annotation.
type Entry interface {
	entry()
}

// Annotation is narrative interleaved between solutions.
type Annotation string

func (Annotation) entry() {}

// Solution is one accepted query of a task.
type Solution struct {
	Intro      string `json:"intro,omitempty"`
	Query      string `json:"query"`
	ResultHead string `json:"result_head"`
	Token      string `json:"token"`
}

func (*Solution) entry() {}

// Entries is an ordered solutions list. Annotations serialize as plain
// strings, solutions as objects.
type Entries []Entry

// Solutions returns the real solutions, skipping annotations.
func (es Entries) Solutions() []*Solution {
	var out []*Solution
	for _, e := range es {
		if s, ok := e.(*Solution); ok {
			out = append(out, s)
		}
	}
	return out
}

func (es Entries) MarshalJSON() ([]byte, error) {
	items := make([]any, len(es))
	for i, e := range es {
		items[i] = e
	}
	return marshalNoEscape(items)
}

func (es *Entries) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Entries, 0, len(raw))
	for i, item := range raw {
		item = bytes.TrimSpace(item)
		if len(item) > 0 && item[0] == '"' {
			var a string
			if err := json.Unmarshal(item, &a); err != nil {
				return fmt.Errorf("solutions[%d]: %w", i, err)
			}
			out = append(out, Annotation(a))
			continue
		}
		var s Solution
		if err := json.Unmarshal(item, &s); err != nil {
			return fmt.Errorf("solutions[%d]: %w", i, err)
		}
		out = append(out, &s)
	}
	*es = out
	return nil
}

// TaskBase carries the fields exercises and episodes have in common.
// PartNumber is 0 for exercises and the adventure number for episodes.
type TaskBase struct {
	PartNumber    int               `json:"part_number"`
	TaskNumber    int               `json:"task_number"`
	SectionPath   []Section         `json:"section_path"`
	Salt          string            `json:"salt"`
	Formula       string            `json:"formula,omitempty"`
	Tweak         string            `json:"tweak,omitempty"`
	TweakVariants map[string]string `json:"tweak_variants,omitempty"`
	Solutions     Entries           `json:"solutions"`
}

// Base gives access to the shared fields.
func (b *TaskBase) Base() *TaskBase { return b }

// Exercise is a standalone task, entered by its own salt.
type Exercise struct {
	TaskBase
	Statement string `json:"statement"`
}

func (*Exercise) Kind() Kind { return KindExercise }
func (*Exercise) record()    {}

func (e *Exercise) MarshalJSON() ([]byte, error) {
	type plain Exercise
	return marshalNoEscape(struct {
		Kind Kind `json:"kind"`
		*plain
	}{KindExercise, (*plain)(e)})
}

// Episode is one step of an adventure.
type Episode struct {
	TaskBase
	Context   string `json:"context"`
	Statement string `json:"statement"`
}

func (*Episode) Kind() Kind { return KindEpisode }
func (*Episode) record()    {}

// Terminal reports whether the episode ends its adventure.
func (e *Episode) Terminal() bool {
	return len(e.Solutions.Solutions()) == 0
}

func (e *Episode) MarshalJSON() ([]byte, error) {
	type plain Episode
	return marshalNoEscape(struct {
		Kind Kind `json:"kind"`
		*plain
	}{KindEpisode, (*plain)(e)})
}

// Hint is a wrong query hoisted out of its task. Salt names the owning
// task until the graph emitter has consumed it.
type Hint struct {
	PartNumber int    `json:"part_number"`
	TaskNumber int    `json:"task_number"`
	Text       string `json:"text"`
	Query      string `json:"query"`
	Salt       string `json:"salt,omitempty"`
}

func (*Hint) Kind() Kind { return KindHint }
func (*Hint) record()    {}

func (h *Hint) MarshalJSON() ([]byte, error) {
	type plain Hint
	return marshalNoEscape(struct {
		Kind Kind `json:"kind"`
		*plain
	}{KindHint, (*plain)(h)})
}

// Alias is a secondary token of a task. Index is the arena slot shared
// with the primary token Target.
type Alias struct {
	Target string
	Index  int
}

func (Alias) Kind() Kind { return KindAlias }
func (Alias) record()    {}

// Exit is the token produced by an exercise solution. It resolves to the
// exercise entered by Entry.
type Exit struct {
	Entry string
	Index int
}

func (Exit) Kind() Kind { return KindExit }
func (Exit) record()    {}

// marshalNoEscape is json.Marshal without HTML escaping. Result heads and
// annotations carry markup that must stay readable in records.json.
func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
