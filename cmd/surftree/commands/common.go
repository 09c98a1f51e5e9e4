// Package commands implements the surftree CLI subcommands. Every command
// reads a scene script, builds what it needs with the configured options
// and prints a table or YAML.
package commands

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/chazu/surftree/pkg/config"
	"github.com/chazu/surftree/pkg/engine"
	"github.com/chazu/surftree/pkg/obs"
	"github.com/chazu/surftree/pkg/scene"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Output formats.
const (
	FormatTable = "table"
	FormatYAML  = "yaml"
)

var (
	// ErrUnknownFormat is returned for a --format other than table or yaml.
	ErrUnknownFormat = errors.New("unknown output format (use table or yaml)")
	// ErrBadVector is returned when a point flag is not three numbers.
	ErrBadVector = errors.New("expected three comma-separated numbers")
)

// Globals holds the persistent flags shared by every subcommand.
type Globals struct {
	ConfigPath string
	LogLevel   string
	LogFormat  string
	Format     string
	Metrics    bool
}

// Register adds the persistent flags to root.
func (g *Globals) Register(root *cobra.Command) {
	f := root.PersistentFlags()
	f.StringVar(&g.ConfigPath, "config", "", "config file (default: .surftree.yaml in CWD or $HOME)")
	f.StringVar(&g.LogLevel, "log-level", "", "log level: debug, info, warn, error")
	f.StringVar(&g.LogFormat, "log-format", "", "log format: text, json")
	f.StringVar(&g.Format, "format", FormatTable, "output format: table, yaml")
	f.BoolVar(&g.Metrics, "metrics", false, "print collected metrics after the command")
}

// run is the per-invocation state built from the globals.
type run struct {
	cfg    *config.Config
	log    *slog.Logger
	reg    *prometheus.Registry
	format string
	dump   bool
	out    io.Writer
}

func (g *Globals) setup(cmd *cobra.Command) (*run, error) {
	switch g.Format {
	case FormatTable, FormatYAML:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, g.Format)
	}

	cfg, err := config.Load(g.ConfigPath)
	if err != nil {
		return nil, err
	}
	if g.LogLevel != "" {
		cfg.Log.Level = g.LogLevel
	}
	if g.LogFormat != "" {
		cfg.Log.Format = g.LogFormat
	}

	log, err := obs.NewLogger(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	m, err := obs.NewMetrics(reg)
	if err != nil {
		return nil, err
	}
	cfg.Observe(log, m)

	return &run{cfg: cfg, log: log, reg: reg, format: g.Format, dump: g.Metrics, out: cmd.OutOrStdout()}, nil
}

// loadScene evaluates the script at path. Script errors are joined into
// one error.
func (r *run) loadScene(path string) (*scene.Scene, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scene: %w", err)
	}

	sc, evalErrs, err := engine.NewEngine().Evaluate(string(src))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(evalErrs) > 0 {
		errs := make([]error, len(evalErrs))
		for i, e := range evalErrs {
			errs[i] = e
		}
		return nil, fmt.Errorf("%s: %w", path, errors.Join(errs...))
	}

	r.log.Debug("scene loaded", "path", path, "objects", sc.Len())
	return sc, nil
}

// emit prints v as YAML or the table as text.
func (r *run) emit(tbl table.Writer, v any) error {
	if r.format == FormatYAML {
		enc := yaml.NewEncoder(r.out)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	}
	_, err := fmt.Fprintln(r.out, tbl.Render())
	return err
}

// finish dumps the metrics registry when --metrics is set.
func (r *run) finish() error {
	if !r.dump {
		return nil
	}
	families, err := r.reg.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(r.out, mf); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	return nil
}

func newTable(header table.Row) table.Writer {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(header)
	return tbl
}

// parseVec3 reads "x,y,z".
func parseVec3(s string) (v3.Vec, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return v3.Vec{}, fmt.Errorf("%w: %q", ErrBadVector, s)
	}
	var xyz [3]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return v3.Vec{}, fmt.Errorf("%w: %q", ErrBadVector, s)
		}
		xyz[i] = f
	}
	return v3.Vec{X: xyz[0], Y: xyz[1], Z: xyz[2]}, nil
}

func fmtVec3(p v3.Vec) string {
	return fmt.Sprintf("(%.6g, %.6g, %.6g)", p.X, p.Y, p.Z)
}

// writeFile creates path and hands it to write.
func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
