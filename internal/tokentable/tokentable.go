// Package tokentable lists every token a learner can submit, with the
// move it stands for: entering a task, moving to the next episode,
// getting a hint, or leaving.
package tokentable

import (
	"cmp"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/roach88/sqlab/internal/ir"
)

// Action is what submitting a token does.
type Action string

const (
	ActionEnter Action = "enter"
	ActionMove  Action = "move"
	ActionHint  Action = "hint"
	ActionExit  Action = "exit"
)

// NoSalt stands in for the salt of entry tokens and unsalted hints.
const NoSalt = "N/A"

// Header is the first row of the TSV form.
var Header = []string{"token", "activity", "source", "target", "action", "salt"}

// Item is one row of the table. Token is the record key, kept verbatim
// with its leading zeros. Activity is 0 for exercises and the adventure
// number for episodes; Source and Target are task numbers, 0 standing
// for outside any task.
type Item struct {
	Token    string `json:"token"`
	Activity int    `json:"activity"`
	Source   int    `json:"source"`
	Target   int    `json:"target"`
	Action   Action `json:"action"`
	Salt     string `json:"salt"`
}

type row struct {
	activity, source, target int
	salt, token              string
}

var hintSalt = regexp.MustCompile(`salt_(\d+)`)

// FromRecords derives the table. Variants producing the same token share
// one row.
func FromRecords(records *ir.Records) ([]Item, error) {
	rows := make(map[row]bool)
	epilogues := make(map[string]bool)

	for _, token := range records.Keys() {
		rec, _ := records.Lookup(token)
		switch rec.(type) {
		case ir.Exit:
			continue
		case ir.Alias:
			task, _ := records.Resolve(token)
			rec = task
		}

		switch rec := rec.(type) {
		case *ir.Exercise:
			rows[row{0, 0, rec.TaskNumber, NoSalt, token}] = true
			for _, sol := range rec.Solutions.Solutions() {
				rows[row{0, rec.TaskNumber, 0, rec.Salt, sol.Token}] = true
			}
		case *ir.Episode:
			if rec.TaskNumber == 1 {
				rows[row{rec.PartNumber, 0, 1, NoSalt, token}] = true
			} else if rec.Terminal() {
				epilogues[token] = true
			}
			for _, sol := range rec.Solutions.Solutions() {
				target := rec.TaskNumber + 1
				if next, ok := records.Resolve(sol.Token); ok {
					target = next.Base().TaskNumber
				}
				rows[row{rec.PartNumber, rec.TaskNumber, target, rec.Salt, sol.Token}] = true
			}
		case *ir.Hint:
			salt := NoSalt
			if m := hintSalt.FindStringSubmatch(rec.Query); m != nil {
				salt = m[1]
			}
			rows[row{rec.PartNumber, rec.TaskNumber, rec.TaskNumber, salt, token}] = true
		default:
			return nil, fmt.Errorf("token %s: unexpected record kind %q", token, rec.Kind())
		}
	}

	sorted := make([]row, 0, len(rows))
	for r := range rows {
		sorted = append(sorted, r)
	}
	slices.SortFunc(sorted, func(a, b row) int {
		return cmp.Or(
			cmp.Compare(a.activity, b.activity),
			cmp.Compare(max(a.source, a.target), max(b.source, b.target)),
			cmp.Compare(a.source, b.source),
			cmp.Compare(b.target, a.target),
			strings.Compare(a.salt, b.salt),
			strings.Compare(a.token, b.token),
		)
	})

	items := make([]Item, 0, len(sorted))
	for _, r := range sorted {
		if epilogues[r.token] {
			r.target = 0
		}
		action, err := classify(r.source, r.target)
		if err != nil {
			return nil, fmt.Errorf("token %s: %w", r.token, err)
		}
		items = append(items, Item{
			Token:    r.token,
			Activity: r.activity,
			Source:   r.source,
			Target:   r.target,
			Action:   action,
			Salt:     r.salt,
		})
	}
	return items, nil
}

func classify(source, target int) (Action, error) {
	switch {
	case source == target:
		return ActionHint, nil
	case source == 0:
		return ActionEnter, nil
	case target == 0:
		return ActionExit, nil
	case source < target:
		return ActionMove, nil
	}
	return "", fmt.Errorf("invalid move %d -> %d", source, target)
}

// WriteTSV writes the header and one tab-separated line per item.
func WriteTSV(w io.Writer, items []Item) error {
	tw := csv.NewWriter(w)
	tw.Comma = '\t'
	if err := tw.Write(Header); err != nil {
		return err
	}
	for _, it := range items {
		if err := tw.Write([]string{
			it.Token,
			strconv.Itoa(it.Activity),
			strconv.Itoa(it.Source),
			strconv.Itoa(it.Target),
			string(it.Action),
			it.Salt,
		}); err != nil {
			return err
		}
	}
	tw.Flush()
	return tw.Error()
}

// ReadTSV parses what WriteTSV wrote.
func ReadTSV(r io.Reader) ([]Item, error) {
	tr := csv.NewReader(r)
	tr.Comma = '\t'
	tr.FieldsPerRecord = len(Header)

	header, err := tr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("token table: missing header")
	}
	if err != nil {
		return nil, fmt.Errorf("token table: %w", err)
	}
	if !slices.Equal(header, Header) {
		return nil, fmt.Errorf("token table: unexpected header %v", header)
	}

	var items []Item
	for line := 2; ; line++ {
		fields, err := tr.Read()
		if errors.Is(err, io.EOF) {
			return items, nil
		}
		if err != nil {
			return nil, fmt.Errorf("token table: %w", err)
		}
		if !isDigits(fields[0]) {
			return nil, fmt.Errorf("token table line %d: token %q is not a number", line, fields[0])
		}
		var nums [3]int
		for i := range nums {
			if nums[i], err = strconv.Atoi(fields[i+1]); err != nil {
				return nil, fmt.Errorf("token table line %d: %s is not a number", line, Header[i+1])
			}
		}
		items = append(items, Item{
			Token:    fields[0],
			Activity: nums[0],
			Source:   nums[1],
			Target:   nums[2],
			Action:   Action(fields[4]),
			Salt:     fields[5],
		})
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Save writes the table to path.
func Save(path string, items []Item) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteTSV(f, items); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// Load reads a table saved by Save.
func Load(path string) ([]Item, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadTSV(f)
}
