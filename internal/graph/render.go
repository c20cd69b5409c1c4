package graph

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"os/exec"
	"slices"
	"strings"
	"text/template"

	"golang.org/x/sync/errgroup"
)

var descriptionTemplate = template.Must(template.New("gv").Parse(`digraph G {
    layout={{.Engine}}
    bgcolor="#FDFEFF"
    edge [color="#34262B" penwidth=0.75]
    node [
        shape=star
        fixedsize=true
        width=0.3
        height=0.3
        fillcolor="#FEE548"
        color="#34262B"
        fontcolor="#34262B"
        fontsize=18
        penwidth=1
        style=filled
        label=""
    ]
    {{.ExerciseEnds}}
    node [width=1.2 height=1.2 fontname=Helvetica label="\N"]
    {{.Epilogues}}
    node [ width=0.6 height=0.6 shape=circle fillcolor="#FFC19C"]
    {{.EpisodeEnds}}
    node [fillcolor="#DBDE92"]
    {{.ExerciseStarts}}
    {{.EpisodeStarts}}
    {{.ExerciseEdges}}
    {{.EpisodeEdges}}
    node [width=0.1 height=0.1 label="" fillcolor=none]
    {{.HintEnds}}
    edge [arrowhead=none]
    {{.HintEdges}}
}
`))

// Render returns the Graphviz description.
func (g *Graph) Render() (string, error) {
	data := map[string]string{
		"Engine":         g.Engine(),
		"ExerciseEdges":  g.exerciseEdges.String(),
		"ExerciseStarts": g.exerciseStarts.String(),
		"ExerciseEnds":   g.exerciseEnds.String(),
		"EpisodeEdges":   g.episodeEdges.String(),
		"EpisodeStarts":  g.episodeStarts.String(),
		"EpisodeEnds":    g.episodeEnds.String(),
		"Epilogues":      g.epilogues.String(),
		"HintEdges":      g.hintEdges.String(),
		"HintEnds":       g.hintEnds.String(),
	}
	var buf bytes.Buffer
	if err := descriptionTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render graph: %w", err)
	}
	return buf.String(), nil
}

// WriteIfChanged writes text to path unless the file already holds it.
// It reports whether the file was written.
func WriteIfChanged(path, text string) (bool, error) {
	previous, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("read %s: %w", path, err)
	}
	if err == nil && string(previous) == text {
		return false, nil
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	return true, nil
}

// Renderer converts a description into images with the Graphviz CLI.
type Renderer struct {
	Binary string // defaults to "dot"
	Logger *slog.Logger
}

func (r *Renderer) binary() string {
	if r.Binary == "" {
		return "dot"
	}
	return r.Binary
}

func (r *Renderer) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}
	return r.Logger
}

// Render writes one image per format ("pdf" -> path, "svg" -> path).
// The layout engine is named inside the description. Without Graphviz
// installed nothing is rendered and no error is returned. Formats render
// independently: a failing format does not stop the others, and the
// failures are joined.
func (r *Renderer) Render(ctx context.Context, gvPath string, outputs map[string]string) error {
	bin, err := exec.LookPath(r.binary())
	if err != nil {
		r.logger().Info("graphviz not found, skipping rendering", "binary", r.binary())
		return nil
	}

	formats := slices.Sorted(maps.Keys(outputs))
	errs := make([]error, len(formats))
	var g errgroup.Group
	for i, format := range formats {
		out := outputs[format]
		g.Go(func() error {
			errs[i] = r.renderFormat(ctx, bin, format, gvPath, out)
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

func (r *Renderer) renderFormat(ctx context.Context, bin, format, gvPath, out string) error {
	cmd := exec.CommandContext(ctx, bin, "-T"+format, "-o", out, gvPath)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		r.logger().Warn("activity map not rendered", "format", format, "error", err)
		if s := strings.TrimSpace(stderr.String()); s != "" {
			return fmt.Errorf("%s -T%s: %w; stderr=%s", r.binary(), format, err, s)
		}
		return fmt.Errorf("%s -T%s: %w", r.binary(), format, err)
	}
	r.logger().Info("activity map rendered", "format", format, "path", out)
	return nil
}
