// Package pipeline runs one statement text through detection, segmentation,
// parsing, the continuity gate and normalization.
package pipeline

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ledgerlens/ledgerlens/internal/detect"
	"github.com/ledgerlens/ledgerlens/internal/id"
	"github.com/ledgerlens/ledgerlens/internal/model"
	"github.com/ledgerlens/ledgerlens/internal/normalize"
	"github.com/ledgerlens/ledgerlens/internal/quality"
	"github.com/ledgerlens/ledgerlens/internal/segment"
	"github.com/ledgerlens/ledgerlens/internal/statement"
	"github.com/ledgerlens/ledgerlens/internal/template"
)

// ErrNoInput is returned when the request carries no text.
var ErrNoInput = errors.New("no statement text")

// Options configures a Pipeline.
type Options struct {
	Logger zerolog.Logger
	// DetectWindow overrides the detector's keyword window.
	DetectWindow int
	// Now stamps ParsedAt. Defaults to time.Now in UTC.
	Now func() time.Time
}

// Request is one statement to process.
type Request struct {
	FileID     string // derived from the text hash when empty
	FileName   string
	FileHash   string // SHA-256 of Text when empty
	Text       string
	BankID     string
	AccountID  string
	Currency   string
	TemplateID string // skips detection when set
}

// Result is everything one run produced.
type Result struct {
	File         model.ParsedFile
	Transactions []model.NormalizedTransaction
	Match        detect.Match
	Segment      segment.Debug
	Continuity   quality.Report
	Period       *statement.Period
}

// Pipeline is safe for concurrent use; it holds no per-run state.
type Pipeline struct {
	reg *template.Registry
	det *detect.Detector
	log zerolog.Logger
	now func() time.Time
}

// New creates a pipeline over reg.
func New(reg *template.Registry, opts Options) *Pipeline {
	var detOpts []detect.Option
	if opts.DetectWindow > 0 {
		detOpts = append(detOpts, detect.WithWindow(opts.DetectWindow))
	}
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Pipeline{
		reg: reg,
		det: detect.New(reg, detOpts...),
		log: opts.Logger,
		now: now,
	}
}

// Run processes req. Data problems end up as warnings on the result; only
// missing input and template errors fail the run.
func (p *Pipeline) Run(req Request) (Result, error) {
	if strings.TrimSpace(req.Text) == "" {
		return Result{}, ErrNoInput
	}

	hash := req.FileHash
	if hash == "" {
		hash = id.FileHash(req.Text)
	}
	fileID := req.FileID
	if fileID == "" {
		fileID = id.FileID(hash)
	}
	log := p.log.With().Str("file_id", fileID).Logger()

	tpl, match, err := p.template(req)
	if err != nil {
		return Result{}, err
	}
	log = log.With().Str("template_id", tpl.ID).Logger()
	log.Debug().Str("method", string(match.Method)).Int("line", match.Line).Msg("template selected")

	seg := segment.Segment(req.Text, tpl)
	log.Debug().
		Bool("header_found", seg.Debug.HeaderFound).
		Int("removed_lines", seg.Debug.RemovedLines).
		Msg("segmented")

	parsed, err := statement.Parse(seg.SectionText, tpl, statement.Options{Document: req.Text})
	if err != nil {
		return Result{}, fmt.Errorf("parsing %s: %w", tpl.ID, err)
	}
	log.Debug().Int("rows", len(parsed.Transactions)).Int("warnings", len(parsed.Warnings)).Msg("parsed")

	report := quality.CheckContinuity(parsed.Transactions, tpl.Quality)
	rows := quality.Downgrade(parsed.Transactions, report)
	warnings := slices.Concat(parsed.Warnings, report.Warnings())
	if !seg.Debug.HeaderFound {
		warnings = append(warnings, model.DocumentWarning(model.WarningHeaderNotFound, "",
			"no header anchor of "+tpl.ID+" found; parsed the whole text", model.NoRow))
	}
	if report.NeedsReview {
		log.Warn().
			Int("checked", report.Checked).
			Float64("pass_ratio", report.PassRatio).
			Msg("continuity below threshold")
	}

	txns := normalize.Normalize(rows, warnings, normalize.Context{
		FileID:        fileID,
		FileHash:      hash,
		BankID:        req.BankID,
		AccountID:     req.AccountID,
		TemplateID:    tpl.ID,
		Currency:      req.Currency,
		HeaderMissing: !seg.Debug.HeaderFound,
	})

	file := model.ParsedFile{
		FileID:       fileID,
		FileName:     req.FileName,
		FileHash:     hash,
		TemplateID:   tpl.ID,
		BankID:       req.BankID,
		AccountID:    req.AccountID,
		ParsedAt:     p.now(),
		HeaderFound:  seg.Debug.HeaderFound,
		Transactions: rows,
		Warnings:     warnings,
		Continuity:   report.Summary(),
	}
	log.Info().
		Int("rows", len(txns)).
		Int("warnings", len(warnings)).
		Str("continuity", string(report.Status)).
		Msg("statement processed")

	return Result{
		File:         file,
		Transactions: txns,
		Match:        match,
		Segment:      seg.Debug,
		Continuity:   report,
		Period:       parsed.Period,
	}, nil
}

func (p *Pipeline) template(req Request) (template.Config, detect.Match, error) {
	if req.TemplateID != "" {
		tpl, err := p.reg.Get(req.TemplateID)
		if err != nil {
			return template.Config{}, detect.Match{}, err
		}
		return tpl, detect.Match{TemplateID: tpl.ID, Method: detect.MethodNone, Line: -1}, nil
	}
	match := p.det.DetectMatch(req.Text)
	if match.TemplateID == detect.Unknown {
		return template.Config{}, match, fmt.Errorf("%w: no template matched", template.ErrUnknownTemplate)
	}
	tpl, err := p.reg.Get(match.TemplateID)
	if err != nil {
		return template.Config{}, match, err
	}
	return tpl, match, nil
}
