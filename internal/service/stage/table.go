package stage

import (
	"fmt"
	"sort"

	"github.com/jwalitptl/clinic-backoffice/internal/config"
	"github.com/jwalitptl/clinic-backoffice/internal/model"
)

// Default stage vocabulary used when no table is configured.
const (
	NewContact  model.Stage = "NEW_CONTACT"
	Qualifying  model.Stage = "QUALIFYING"
	Proposal    model.Stage = "PROPOSAL"
	Negotiation model.Stage = "NEGOTIATION"
	Won         model.Stage = "WON"
	Lost        model.Stage = "LOST"
)

// Table is the immutable successor graph over stages. Every stage that can be
// reached has an entry, possibly empty for terminal stages.
type Table struct {
	successors map[model.Stage]map[model.Stage]struct{}
	initial    model.Stage
	lost       model.Stage
}

// NewTable builds and validates a table. initial is the stage a claim assigns,
// lost is the stage that requires a reason.
func NewTable(initial, lost model.Stage, edges map[model.Stage][]model.Stage) (*Table, error) {
	t := &Table{
		successors: make(map[model.Stage]map[model.Stage]struct{}, len(edges)),
		initial:    initial,
		lost:       lost,
	}
	for from, tos := range edges {
		if from == "" {
			return nil, fmt.Errorf("stage table: empty stage name")
		}
		set := make(map[model.Stage]struct{}, len(tos))
		for _, to := range tos {
			set[to] = struct{}{}
		}
		t.successors[from] = set
	}

	if _, ok := t.successors[initial]; !ok {
		return nil, fmt.Errorf("stage table: initial stage %q has no entry", initial)
	}
	if _, ok := t.successors[lost]; !ok {
		return nil, fmt.Errorf("stage table: lost stage %q has no entry", lost)
	}
	for from, set := range t.successors {
		for to := range set {
			if _, ok := t.successors[to]; !ok {
				return nil, fmt.Errorf("stage table: %q -> %q targets a stage with no entry", from, to)
			}
		}
	}
	return t, nil
}

// DefaultTable returns the built-in funnel.
func DefaultTable() *Table {
	t, err := NewTable(NewContact, Lost, DefaultEdges())
	if err != nil {
		panic(err)
	}
	return t
}

func DefaultEdges() map[model.Stage][]model.Stage {
	return map[model.Stage][]model.Stage{
		NewContact:  {Qualifying, Lost},
		Qualifying:  {Proposal, Lost},
		Proposal:    {Negotiation, Won, Lost},
		Negotiation: {Won, Lost},
		Won:         {},
		Lost:        {},
	}
}

// FromConfig builds the configured table, or the default one when no
// transitions are configured.
func FromConfig(cfg config.StagesConfig) (*Table, error) {
	if len(cfg.Transitions) == 0 {
		return DefaultTable(), nil
	}
	edges := make(map[model.Stage][]model.Stage, len(cfg.Transitions))
	for _, tr := range cfg.Transitions {
		from := model.Stage(tr.From)
		if _, dup := edges[from]; dup {
			return nil, fmt.Errorf("stage table: %q listed twice", tr.From)
		}
		tos := make([]model.Stage, 0, len(tr.To))
		for _, to := range tr.To {
			tos = append(tos, model.Stage(to))
		}
		edges[from] = tos
	}
	return NewTable(model.Stage(cfg.Initial), model.Stage(cfg.Lost), edges)
}

func (t *Table) Initial() model.Stage { return t.initial }

func (t *Table) Lost() model.Stage { return t.lost }

// Has reports whether s is part of the vocabulary.
func (t *Table) Has(s model.Stage) bool {
	_, ok := t.successors[s]
	return ok
}

// Allowed reports whether to is a legal destination from from. With no
// current stage any known stage except lost is a legal first destination.
func (t *Table) Allowed(from *model.Stage, to model.Stage) bool {
	if !t.Has(to) {
		return false
	}
	if from == nil {
		return to != t.lost
	}
	set, ok := t.successors[*from]
	if !ok {
		return false
	}
	_, ok = set[to]
	return ok
}

// Successors returns the sorted destinations reachable from from.
func (t *Table) Successors(from *model.Stage) []model.Stage {
	var out []model.Stage
	if from == nil {
		for s := range t.successors {
			if s != t.lost {
				out = append(out, s)
			}
		}
	} else {
		for s := range t.successors[*from] {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Stages returns the sorted vocabulary.
func (t *Table) Stages() []model.Stage {
	out := make([]model.Stage, 0, len(t.successors))
	for s := range t.successors {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// IsTerminal reports whether s has no successors.
func (t *Table) IsTerminal(s model.Stage) bool {
	return len(t.successors[s]) == 0
}
