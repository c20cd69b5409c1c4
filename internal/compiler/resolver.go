package compiler

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/sqlab/internal/ir"
)

// Resolve turns the scanned segments into the token dictionary.
//
// Pass 1 maps each redirection salt to the tokens leading into it, in scan
// order. Pass 2 numbers the adventures and episodes, keys every task by
// its salt or by the first token leading into it, aliases the other
// tokens, and hoists the hints. Segments are only read.
func Resolve(segments []*Segment) (*ir.Records, error) {
	tokensBySalt := redirections(segments)

	tasks := make([]ir.Task, len(segments))
	for i, seg := range segments {
		tasks[i] = finalize(seg)
	}
	numberEpisodes(tasks, tokensBySalt)

	records := ir.NewRecords()
	nonHint := make(map[string]bool)
	hintTokens := make(map[string]bool)

	for i, seg := range segments {
		task := tasks[i]
		base := task.Base()

		main := seg.Salt
		var variants []string
		if tokens := tokensBySalt[seg.Salt]; len(tokens) > 0 {
			main, variants = tokens[0], tokens[1:]
		}
		records.AddTask(main, task)
		nonHint[main] = true
		for _, token := range variants {
			if err := records.AddAlias(token, main); err != nil {
				return nil, fmt.Errorf("resolve %s: %w", seg.describe(), err)
			}
			nonHint[token] = true
		}
		for _, sol := range base.Solutions.Solutions() {
			nonHint[sol.Token] = true
		}

		for _, h := range seg.Hints {
			if rec, ok := records.Lookup(h.Token); ok {
				if rec.Kind() == ir.KindHint {
					return nil, newError(ErrDuplicateHint, -1, h.Query,
						"Two hint queries produce the same token %s.", h.Token)
				}
				return nil, newError(ErrHintCollision, -1, h.Query,
					"Hint tokens {%s} collide with other tokens.", h.Token)
			}
			hintTokens[h.Token] = true
			records.AddHint(h.Token, &ir.Hint{
				PartNumber: base.PartNumber,
				TaskNumber: base.TaskNumber,
				Text:       h.Text,
				Query:      h.Query,
				Salt:       seg.Salt,
			})
		}
	}

	if collisions := intersect(hintTokens, nonHint); len(collisions) > 0 {
		return nil, newError(ErrHintCollision, -1, "",
			"Hint tokens {%s} collide with other tokens.", strings.Join(collisions, ", "))
	}

	// An exercise is left through the tokens of its solutions.
	for i, seg := range segments {
		if seg.Kind != ir.KindExercise {
			continue
		}
		entry, ok := records.PrimaryToken(tasks[i])
		if !ok {
			continue
		}
		for _, sol := range tasks[i].Base().Solutions.Solutions() {
			if sol.Token == "" {
				continue
			}
			if err := records.AddExit(sol.Token, entry); err != nil {
				return nil, fmt.Errorf("resolve %s: %w", seg.describe(), err)
			}
		}
	}
	return records, nil
}

// redirections is pass 1: redirection salt -> tokens leading to it, for
// every episode solution having both.
func redirections(segments []*Segment) map[string][]string {
	tokensBySalt := make(map[string][]string)
	for _, seg := range segments {
		if seg.Kind != ir.KindEpisode {
			continue
		}
		for _, r := range seg.Redirects {
			if r.Token != "" && r.NextSalt != "" {
				tokensBySalt[r.NextSalt] = append(tokensBySalt[r.NextSalt], r.Token)
			}
		}
	}
	return tokensBySalt
}

// finalize copies a segment into its record, leaving behind the scan-only
// fields: defaults, redirection salts and hints.
func finalize(seg *Segment) ir.Task {
	base := ir.TaskBase{
		TaskNumber:    seg.TaskNumber,
		SectionPath:   slices.Clone(seg.SectionPath),
		Salt:          seg.Salt,
		Formula:       seg.Formula,
		Tweak:         seg.Tweak,
		TweakVariants: seg.TweakVariants,
		Solutions:     slices.Clone(seg.Solutions),
	}
	if base.SectionPath == nil {
		base.SectionPath = []ir.Section{}
	}
	if base.Solutions == nil {
		base.Solutions = ir.Entries{}
	}
	if seg.Kind == ir.KindExercise {
		return &ir.Exercise{TaskBase: base, Statement: seg.Statement}
	}
	return &ir.Episode{TaskBase: base, Context: seg.Context, Statement: seg.Statement}
}

// numberEpisodes assigns adventure and episode numbers. An episode nothing
// redirects into starts a new adventure.
func numberEpisodes(tasks []ir.Task, tokensBySalt map[string][]string) {
	adventure, episode := 0, 0
	for _, task := range tasks {
		if task.Kind() != ir.KindEpisode {
			continue
		}
		base := task.Base()
		if _, ok := tokensBySalt[base.Salt]; !ok {
			adventure++
			episode = 0
		}
		episode++
		base.PartNumber = adventure
		base.TaskNumber = episode
	}
}

func intersect(a, b map[string]bool) []string {
	var out []string
	for k := range a {
		if b[k] {
			out = append(out, k)
		}
	}
	slices.Sort(out)
	return out
}
