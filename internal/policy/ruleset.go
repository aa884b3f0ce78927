// Package policy ties the DSL parser (internal/policy/lang), the evaluator
// (internal/policy/eval), and the data store together into the transactional
// orchestrator.
package policy

import (
	"context"
	"fmt"
	"hash/fnv"
	"sort"
	"strings"

	"github.com/bedecarroll/unet-sub002/internal/collab"
	"github.com/bedecarroll/unet-sub002/internal/errs"
	"github.com/bedecarroll/unet-sub002/internal/model"
	"github.com/bedecarroll/unet-sub002/internal/policy/lang"
)

// LoadedRule pairs a parsed rule with its resolved priority and its global
// source-order index, used to break priority ties.
type LoadedRule struct {
	Rule       *lang.Rule
	Priority   model.RulePriority
	SourcePath string
	Index      int
}

// RuleSetFingerprint identifies a loaded rule set for cache keys: it's a
// simple content signature, not a cryptographic hash, built from each file's
// path, size and FNV-1a content hash in lexical path order, so two distinct
// rule sets virtually never collide in practice.
type RuleSetFingerprint string

// LoadRuleSet reads every file from src, parses each into a RuleSet, and
// flattens the result into one source-ordered []*LoadedRule (Ordered sorts it
// by priority). Files are processed in lexical path order so the source-order
// tie-break is deterministic across runs.
func LoadRuleSet(ctx context.Context, src collab.PolicyFileSource) ([]*LoadedRule, RuleSetFingerprint, error) {
	const op = "policy.ruleset.load"
	paths, err := src.ListFiles(ctx)
	if err != nil {
		return nil, "", errs.Wrap(errs.KindIO, op, "failed to list policy files", err)
	}
	sort.Strings(paths)

	var loaded []*LoadedRule
	fp := ""
	idx := 0
	for _, path := range paths {
		data, err := src.ReadFile(ctx, path)
		if err != nil {
			return nil, "", errs.Wrap(errs.KindIO, op, "failed to read policy file "+path, err)
		}
		rs, err := lang.ParseRuleSet(path, string(data))
		if err != nil {
			return nil, "", err
		}
		h := fnv.New64a()
		h.Write(data)
		fp += fmt.Sprintf("%s:%d:%x;", path, len(data), h.Sum64())
		for _, r := range rs.Rules {
			loaded = append(loaded, &LoadedRule{
				Rule:       r,
				Priority:   priorityOf(r),
				SourcePath: path,
				Index:      idx,
			})
			idx++
		}
	}
	return loaded, RuleSetFingerprint(fp), nil
}

func priorityOf(r *lang.Rule) model.RulePriority {
	if r.PriorityLevel == nil {
		return model.PriorityMedium
	}
	switch lang.Priority(strings.ToUpper(*r.PriorityLevel)) {
	case lang.PriorityLow:
		return model.PriorityLow
	case lang.PriorityHigh:
		return model.PriorityHigh
	case lang.PriorityCritical:
		return model.PriorityCritical
	default:
		return model.PriorityMedium
	}
}

// Ordered returns rules sorted priority-then-source-order, highest priority
// first.
func Ordered(rules []*LoadedRule) []*LoadedRule {
	out := append([]*LoadedRule{}, rules...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].Index < out[j].Index
	})
	return out
}
