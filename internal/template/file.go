package template

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// fileDoc is the on-disk layout of a templates file.
type fileDoc struct {
	Templates []fileTemplate `yaml:"templates"`
}

type fileTemplate struct {
	ID            string   `yaml:"id"`
	Bank          string   `yaml:"bank"`
	Version       string   `yaml:"version"`
	HeaderAnchors []string `yaml:"header_anchors"`
	Keywords      []string `yaml:"keywords"`
	Segment       struct {
		StartAfterHeader   *bool    `yaml:"start_after_header"`
		StopAnchors        []string `yaml:"stop_anchors"`
		RemoveLinePatterns []string `yaml:"remove_line_patterns"`
	} `yaml:"segment"`
	Parse struct {
		DatePattern           string   `yaml:"date_pattern"`
		DateLayouts           []string `yaml:"date_layouts"`
		HasDebitCreditColumns bool     `yaml:"has_debit_credit_columns"`
		Strategy              string   `yaml:"strategy"`
		YearInference         string   `yaml:"year_inference"`
		MultilineBlock        bool     `yaml:"multiline_block"`
	} `yaml:"parse"`
	Quality struct {
		EnableContinuityGate bool    `yaml:"enable_continuity_gate"`
		ContinuityThreshold  float64 `yaml:"continuity_threshold"`
		MinContinuityChecked int     `yaml:"min_continuity_checked"`
	} `yaml:"quality"`
}

// LoadFile reads template definitions from a YAML file. Regexes are compiled
// here so a bad pattern fails at startup rather than mid-import.
func LoadFile(path string) ([]Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading templates: %w", err)
	}
	return Decode(data)
}

// Decode parses template definitions from YAML bytes.
func Decode(data []byte) ([]Config, error) {
	var doc fileDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}
	out := make([]Config, 0, len(doc.Templates))
	for i, ft := range doc.Templates {
		c, err := ft.config()
		if err != nil {
			return nil, fmt.Errorf("template %d (%s): %w", i, ft.ID, err)
		}
		if err := c.Validate(); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (ft fileTemplate) config() (Config, error) {
	strategy, err := ParseStrategy(ft.Parse.Strategy)
	if err != nil {
		return Config{}, err
	}
	year, err := ParseYearInference(ft.Parse.YearInference)
	if err != nil {
		return Config{}, err
	}

	var datePattern *regexp.Regexp
	if ft.Parse.DatePattern != "" {
		datePattern, err = regexp.Compile(ft.Parse.DatePattern)
		if err != nil {
			return Config{}, fmt.Errorf("compiling date pattern: %w", err)
		}
	}

	var remove []*regexp.Regexp
	for _, p := range ft.Segment.RemoveLinePatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return Config{}, fmt.Errorf("compiling remove pattern %q: %w", p, err)
		}
		remove = append(remove, re)
	}

	startAfterHeader := true
	if ft.Segment.StartAfterHeader != nil {
		startAfterHeader = *ft.Segment.StartAfterHeader
	}

	return Config{
		ID:            ft.ID,
		Bank:          ft.Bank,
		Version:       ft.Version,
		HeaderAnchors: ft.HeaderAnchors,
		Keywords:      ft.Keywords,
		Segment: SegmentConfig{
			StartAfterHeader:   startAfterHeader,
			StopAnchors:        ft.Segment.StopAnchors,
			RemoveLinePatterns: remove,
		},
		Parse: ParseConfig{
			DatePattern:           datePattern,
			DateLayouts:           ft.Parse.DateLayouts,
			HasDebitCreditColumns: ft.Parse.HasDebitCreditColumns,
			Strategy:              strategy,
			YearInference:         year,
			MultilineBlock:        ft.Parse.MultilineBlock,
		},
		Quality: QualityConfig{
			EnableContinuityGate: ft.Quality.EnableContinuityGate,
			ContinuityThreshold:  ft.Quality.ContinuityThreshold,
			MinContinuityChecked: ft.Quality.MinContinuityChecked,
		},
	}, nil
}
