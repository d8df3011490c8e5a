// Package review persists resolved inbox items and suppression rules.
package review

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ledgerlens/ledgerlens/internal/model"
)

var (
	// ErrUnknownKind is returned for rule updates on an unknown inbox kind.
	ErrUnknownKind = errors.New("unknown inbox kind")
	// ErrEmptyKey is returned when a rule key or item id is empty.
	ErrEmptyKey = errors.New("empty key")
)

// Store reads and writes review state. Writes are read-merge-write: a
// caller only replaces what it names.
type Store interface {
	ReviewState(ctx context.Context) (model.ReviewState, error)
	Resolve(ctx context.Context, ids []string, note string) (model.ReviewState, error)
	Unresolve(ctx context.Context, ids []string) (model.ReviewState, error)
	Overrides(ctx context.Context) (model.InboxOverrides, error)
	MergeOverrides(ctx context.Context, patch model.OverridesPatch) (model.InboxOverrides, error)
	SetRule(ctx context.Context, kind model.InboxKind, key string, on bool) (model.InboxOverrides, error)
}

// Storage drivers.
const (
	DriverFile     = "file"
	DriverPostgres = "postgres"
)

// Open returns the store for driver. dsn is only used by postgres.
func Open(ctx context.Context, driver, repoRoot, dsn string) (Store, func(), error) {
	switch driver {
	case "", DriverFile:
		return NewFileStore(repoRoot), func() {}, nil
	case DriverPostgres:
		s, err := OpenPG(ctx, dsn)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown storage driver %q", driver)
}

// rulePatch builds a patch that replaces kind's rules with current plus one change.
func rulePatch(current model.InboxOverrides, kind model.InboxKind, key string, on bool) (model.OverridesPatch, error) {
	if key == "" {
		return model.OverridesPatch{}, ErrEmptyKey
	}
	var rules map[string]bool
	switch kind {
	case model.KindUnknownMerchant, model.KindUncertainTransfer, model.KindParseIssue:
		rules = make(map[string]bool)
		for k, v := range current.Rules(kind) {
			rules[k] = v
		}
	default:
		return model.OverridesPatch{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if on {
		rules[key] = true
	} else {
		delete(rules, key)
	}

	var p model.OverridesPatch
	switch kind {
	case model.KindUnknownMerchant:
		p.MerchantRules = &rules
	case model.KindUncertainTransfer:
		p.TransferRules = &rules
	case model.KindParseIssue:
		p.ParseRules = &rules
	}
	return p, nil
}

func checkIDs(ids []string) error {
	for _, id := range ids {
		if id == "" {
			return fmt.Errorf("%w: item id", ErrEmptyKey)
		}
	}
	return nil
}

func nowUTC() time.Time { return time.Now().UTC() }
