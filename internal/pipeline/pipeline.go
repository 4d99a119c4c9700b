// Package pipeline runs the contingency-test and crosstab engines over one
// set of uploaded inputs. A run keeps no state beyond its own result.
package pipeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/KaramelBytes/crosstab-cli/internal/analysis"
	"github.com/KaramelBytes/crosstab-cli/internal/core"
	"github.com/KaramelBytes/crosstab-cli/internal/crosstab"
	"github.com/KaramelBytes/crosstab-cli/internal/dataset"
	"github.com/KaramelBytes/crosstab-cli/internal/parser"
	"github.com/KaramelBytes/crosstab-cli/internal/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Mode selects how test results are written back to the response table.
type Mode string

const (
	ModeFlat   Mode = "flat"
	ModeSparse Mode = "sparse"
)

// ParseMode accepts "flat" or "sparse"; blank means flat.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeFlat:
		return ModeFlat, nil
	case ModeSparse:
		return ModeSparse, nil
	default:
		return "", core.NewConfigError("unknown mode %q (want flat or sparse)", s)
	}
}

// Settings carries the configurable labels of a run.
type Settings struct {
	TotalLabels  []string
	NoAnswer     string
	Margin       string
	Untestable   string
	PValueColumn string
	MarkColumn   string
	Order        crosstab.Order
}

// DefaultSettings returns the built-in labels.
func DefaultSettings() Settings {
	cols := analysis.DefaultColumns()
	return Settings{
		TotalLabels:  append([]string(nil), dataset.DefaultTotalLabels...),
		NoAnswer:     crosstab.DefaultNoAnswer,
		Margin:       crosstab.DefaultMargin,
		Untestable:   cols.Untestable,
		PValueColumn: cols.PValue,
		MarkColumn:   cols.Mark,
		Order:        crosstab.OrderLexical,
	}
}

// Columns returns the result-column naming of s.
func (s Settings) Columns() analysis.Columns {
	return analysis.Columns{PValue: s.PValueColumn, Mark: s.MarkColumn, Untestable: s.Untestable}
}

func (s Settings) crosstabOptions() crosstab.Options {
	return crosstab.Options{NoAnswer: s.NoAnswer, Margin: s.Margin, Order: s.Order}
}

// Source is one uploaded file.
type Source struct {
	Name string
	Data []byte
}

func (s *Source) present() bool { return s != nil && len(s.Data) > 0 }

// Input is everything a single user action supplies. Each engine runs only
// when its inputs are present: Responses drives the chi-square test; Raw,
// Definitions, RowQID and ColQID drive the crosstab; Definitions alone (or
// with Raw) yields the selectable questions.
type Input struct {
	Responses   *Source
	Mode        Mode
	Raw         *Source
	Definitions *Source
	RowQID      string
	ColQID      string
}

// ChiSquareResult is the output of the contingency-test engine.
type ChiSquareResult struct {
	Report  *analysis.Report
	Mode    Mode
	Flat    *dataset.Table
	Summary *dataset.Table
	Detail  *dataset.Table
}

// Annotated is the table written back as the main output: the flat table
// in flat mode, the detail table in sparse mode.
func (c *ChiSquareResult) Annotated() *dataset.Table {
	if c.Mode == ModeSparse {
		return c.Detail
	}
	return c.Flat
}

// Option is a selectable question for the crosstab.
type Option struct {
	QID     string            `json:"qid"`
	Title   string            `json:"title"`
	Label   string            `json:"label"`
	Choices map[string]string `json:"choices,omitempty"`
}

// Result is the outcome of one run.
type Result struct {
	RunID     string
	Started   time.Time
	ChiSquare *ChiSquareResult
	Crosstab  *crosstab.Table
	Options   []Option
}

// Pipeline runs the engines with fixed settings.
type Pipeline struct {
	settings Settings
	logger   *zap.Logger
	newID    func() string
	now      func() time.Time
}

// New returns a pipeline. A nil logger discards logs.
func New(settings Settings, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		settings: settings,
		logger:   logger,
		newID:    uuid.NewString,
		now:      time.Now,
	}
}

// Settings returns the settings the pipeline runs with.
func (p *Pipeline) Settings() Settings { return p.settings }

// Run executes one full, independent pipeline run over in.
func (p *Pipeline) Run(in Input) (*Result, error) {
	res := &Result{RunID: p.newID(), Started: p.now()}
	log := p.logger.With(zap.String("run_id", res.RunID))
	log.Info("run started")

	if !in.Responses.present() && !in.Definitions.present() {
		return nil, core.NewInputError("nothing to do: supply a response table or a definition document")
	}

	if in.Responses.present() {
		cs, err := p.chiSquare(in.Responses, in.Mode, log)
		if err != nil {
			log.Warn("run failed", zap.Error(err))
			return nil, err
		}
		res.ChiSquare = cs
	}

	if in.Definitions.present() {
		defs, err := parser.ParseBytes(in.Definitions.Data, log)
		if err != nil {
			log.Warn("run failed", zap.Error(err))
			return nil, err
		}
		var raw *dataset.RawTable
		if in.Raw.present() {
			t, err := dataset.Parse(in.Raw.Name, in.Raw.Data)
			if err != nil {
				log.Warn("run failed", zap.Error(err))
				return nil, err
			}
			raw = dataset.NewRawTable(t)
		}
		res.Options = SelectableOptions(defs, raw)
		log.Info("definitions parsed", zap.Int("questions", defs.Len()), zap.Int("selectable", len(res.Options)))

		if in.RowQID != "" || in.ColQID != "" {
			if raw == nil {
				return nil, core.NewInputError("a raw response table is required to build a crosstab")
			}
			if in.RowQID == "" || in.ColQID == "" {
				return nil, core.NewConfigError("both a row and a column question are required")
			}
			tab, err := crosstab.Tabulate(raw, defs, in.RowQID, in.ColQID, p.settings.crosstabOptions())
			if err != nil {
				log.Warn("run failed", zap.Error(err))
				return nil, err
			}
			res.Crosstab = tab
			log.Info("crosstab built",
				zap.String("row", in.RowQID),
				zap.String("col", in.ColQID),
				zap.Int("n", tab.N))
		}
	}

	log.Info("run finished", zap.Duration("elapsed", p.now().Sub(res.Started)))
	return res, nil
}

func (p *Pipeline) chiSquare(src *Source, mode Mode, log *zap.Logger) (*ChiSquareResult, error) {
	if mode == "" {
		mode = ModeFlat
	}
	t, err := dataset.Parse(src.Name, src.Data)
	if err != nil {
		return nil, err
	}
	s, err := dataset.NewSurveyTable(t, p.settings.TotalLabels)
	if err != nil {
		return nil, err
	}
	log.Info("response table loaded",
		zap.String("file", src.Name),
		zap.String("encoding", t.Encoding),
		zap.Strings("attributes", s.AttributeColumns()),
		zap.Int("questions", len(s.QIDs())))

	rep, err := analysis.Analyze(s, log)
	if err != nil {
		return nil, err
	}
	out := &ChiSquareResult{Report: rep, Mode: mode}
	cols := p.settings.Columns()
	switch mode {
	case ModeSparse:
		out.Summary, out.Detail = analysis.Sparse(s, rep.Results(), cols)
	case ModeFlat:
		out.Flat = analysis.Flat(s, rep.Results(), cols)
	default:
		return nil, fmt.Errorf("%w: unknown mode %q", core.ErrConfig, mode)
	}
	return out, nil
}

// SelectableOptions lists the defined questions that can be cross-tabulated:
// all of them without a raw table, otherwise those present as a column.
func SelectableOptions(defs *parser.Definitions, raw *dataset.RawTable) []Option {
	ids := defs.IDs()
	if raw != nil {
		ids = defs.Selectable(raw.Header)
	}
	out := make([]Option, 0, len(ids))
	for _, id := range ids {
		q, _ := defs.Get(id)
		o := Option{QID: id, Title: q.Title, Label: OptionLabel(id, q.Title)}
		if q.HasChoices() {
			o.Choices = q.Choices()
		}
		out = append(out, o)
	}
	return out
}

// OptionLabel is the display label of a selectable question: its ID and the
// first 30 characters of its title.
func OptionLabel(qid, title string) string {
	return fmt.Sprintf("%s: %s...", qid, utils.TruncateRunes(title, 30))
}
