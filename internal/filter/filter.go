// Package filter models the composable selection criteria a keyword search
// can be refined with: on/off switches, single- and multi-choice menus,
// and/or-combinable menus, and menus whose option set is fetched live.
package filter

import (
	"cmp"
	"context"
	"slices"
	"strings"
)

// Option is one selectable entry of a filter menu. Identity is Code, the
// provider-defined value sent on the wire; Label is what the user sees.
type Option struct {
	Code  string `json:"code"`
	Label string `json:"label"`
}

// Operator joins multiple selected codes in one filter axis.
type Operator string

const (
	OpAnd Operator = "and"
	OpOr  Operator = "or"
)

// JoinString answers the provider's separator for the operator. The mapping
// is a wire-format contract with the discovery endpoint.
func (op Operator) JoinString() string {
	if op == OpAnd {
		return ","
	}
	return "|"
}

// Word answers the operator as it reads in headings and clarifiers.
func (op Operator) Word() string {
	return string(op)
}

func ParseOperator(raw string, fallback Operator) Operator {
	switch Operator(strings.ToLower(strings.TrimSpace(raw))) {
	case OpAnd:
		return OpAnd
	case OpOr:
		return OpOr
	}
	return fallback
}

type Kind int

const (
	Boolean Kind = iota
	SingleChoice
	MultiChoice
	MultiChoiceWithOperator
	DynamicMultiChoiceWithOperator
)

func (k Kind) AllowsMultiple() bool {
	return k == MultiChoice || k == MultiChoiceWithOperator || k == DynamicMultiChoiceWithOperator
}

// SupportsOperator reports whether the user may choose how selections
// combine. Plain multi-choice always combines with or.
func (k Kind) SupportsOperator() bool {
	return k == MultiChoiceWithOperator || k == DynamicMultiChoiceWithOperator
}

// defaultOperator is the combine operator a fresh filter of this kind
// starts with. Genre menus narrow by default; keyword refinements widen,
// matching how a resolved term fans out across many keyword codes.
func (k Kind) defaultOperator() Operator {
	if k == MultiChoiceWithOperator {
		return OpAnd
	}
	return OpOr
}

// RepopulateFunc refreshes a dynamic filter's option vocabulary. It is
// expected to answer an empty set when the driving term is empty.
type RepopulateFunc func(ctx context.Context) ([]Option, error)

// Filter holds one axis of selection state. Created once per search space,
// mutated by user interaction or a URL restore, never destroyed.
type Filter struct {
	id       string
	kind     Kind
	options  []Option
	selected []Option
	operator Operator
	on       bool
	source   RepopulateFunc
}

func NewBoolean(id string) *Filter {
	return &Filter{id: id, kind: Boolean, operator: OpOr}
}

func NewSingleChoice(id string, options []Option) *Filter {
	return &Filter{id: id, kind: SingleChoice, options: options, operator: OpOr}
}

func NewMultiChoice(id string, options []Option) *Filter {
	return &Filter{id: id, kind: MultiChoice, options: options, operator: OpOr}
}

func NewAndOrMultiChoice(id string, options []Option) *Filter {
	return &Filter{id: id, kind: MultiChoiceWithOperator, options: options, operator: OpAnd}
}

func NewDynamic(id string, source RepopulateFunc) *Filter {
	return &Filter{id: id, kind: DynamicMultiChoiceWithOperator, operator: OpOr, source: source}
}

func (f *Filter) ID() string { return f.id }

func (f *Filter) Kind() Kind { return f.kind }

func (f *Filter) Options() []Option {
	return slices.Clone(f.options)
}

// IsSelected answers whether this filter constrains the search at all.
func (f *Filter) IsSelected() bool {
	if f.kind == Boolean {
		return f.on
	}
	return len(f.selected) > 0
}

// Selected answers the selected options ordered ascending by label.
func (f *Filter) Selected() []Option {
	out := slices.Clone(f.selected)
	sortByLabel(out)
	return out
}

func (f *Filter) SelectedLabels() []string {
	sel := f.Selected()
	labels := make([]string, 0, len(sel))
	for _, o := range sel {
		labels = append(labels, o.Label)
	}
	return labels
}

func (f *Filter) SelectedCodes() []string {
	sel := f.Selected()
	codes := make([]string, 0, len(sel))
	for _, o := range sel {
		codes = append(codes, o.Code)
	}
	return codes
}

// Select adds the option to the selection. Boolean filters ignore it;
// single-choice filters drop any prior selection first. Options not in the
// vocabulary are ignored so selected stays a subset of options.
func (f *Filter) Select(opt Option) {
	if f.kind == Boolean {
		return
	}
	if !slices.ContainsFunc(f.options, func(o Option) bool { return o.Code == opt.Code }) {
		return
	}
	if f.kind == SingleChoice {
		f.selected = f.selected[:0]
	}
	if !slices.ContainsFunc(f.selected, func(o Option) bool { return o.Code == opt.Code }) {
		f.selected = append(f.selected, opt)
	}
}

func (f *Filter) Deselect(opt Option) {
	f.selected = slices.DeleteFunc(f.selected, func(o Option) bool { return o.Code == opt.Code })
}

// Toggle flips membership of the option, honoring the kind's rules.
func (f *Filter) Toggle(opt Option) {
	if slices.ContainsFunc(f.selected, func(o Option) bool { return o.Code == opt.Code }) {
		f.Deselect(opt)
		return
	}
	f.Select(opt)
}

// SelectCodes re-selects the options matching the given codes, replacing any
// prior selection. Unknown codes are dropped; this is how a permissive URL
// restore degrades instead of failing.
func (f *Filter) SelectCodes(codes []string) {
	f.selected = f.selected[:0]
	for _, code := range codes {
		for _, o := range f.options {
			if o.Code == code {
				f.Select(o)
				break
			}
		}
	}
}

// On reports the flag of a Boolean filter.
func (f *Filter) On() bool { return f.on }

func (f *Filter) SetOn(on bool) {
	if f.kind == Boolean {
		f.on = on
	}
}

// Clear deselects everything and restores the default combine operator.
// Dynamic filters keep their current options; only the selection empties.
func (f *Filter) Clear() {
	f.selected = f.selected[:0]
	f.on = false
	if f.kind.SupportsOperator() {
		f.operator = f.kind.defaultOperator()
	}
}

func (f *Filter) Operator() Operator { return f.operator }

// DefaultOperator answers the combine operator the filter starts with.
func (f *Filter) DefaultOperator() Operator { return f.kind.defaultOperator() }

// SetOperator stores the combine operator. A no-op for kinds whose combining
// is fixed or meaningless.
func (f *Filter) SetOperator(op Operator) {
	if !f.kind.SupportsOperator() {
		return
	}
	if op == OpAnd || op == OpOr {
		f.operator = op
	}
}

// JoinString answers the wire separator for this filter's selections.
func (f *Filter) JoinString() string {
	return f.operator.JoinString()
}

// Repopulate replaces the option vocabulary of a dynamic filter from its
// source. Selections whose label still appears in the new set are carried
// over (adopting the new option identity); the rest are pruned. Safe to call
// repeatedly; two calls against the same term yield the same options.
func (f *Filter) Repopulate(ctx context.Context) error {
	if f.kind != DynamicMultiChoiceWithOperator || f.source == nil {
		return nil
	}
	options, err := f.source(ctx)
	if err != nil {
		return err
	}
	f.options = options

	kept := make([]Option, 0, len(f.selected))
	for _, sel := range f.selected {
		for _, o := range options {
			if o.Label == sel.Label {
				kept = append(kept, o)
				break
			}
		}
	}
	f.selected = kept
	return nil
}

// Clarifier answers the short summary of the current selection: "(Comedy)"
// for one pick, "(Comedy and Drama)" for several, "" for none. It is derived
// state, recomputed on demand.
func (f *Filter) Clarifier() string {
	labels := f.SelectedLabels()
	switch len(labels) {
	case 0:
		return ""
	case 1:
		return "(" + labels[0] + ")"
	default:
		return "(" + strings.Join(labels, " "+f.operator.Word()+" ") + ")"
	}
}

// DisplayItem is one row of a rendered filter menu.
type DisplayItem struct {
	Option    Option
	Selected  bool
	Separator bool
}

// OrderForDisplay lays out a menu: selected options first, then a separator
// row when both groups are non-empty, then the rest, each group ascending
// by label.
func OrderForDisplay(options, selected []Option) []DisplayItem {
	selectedSet := make(map[string]struct{}, len(selected))
	for _, o := range selected {
		selectedSet[o.Code] = struct{}{}
	}

	var top, rest []Option
	for _, o := range options {
		if _, ok := selectedSet[o.Code]; ok {
			top = append(top, o)
		} else {
			rest = append(rest, o)
		}
	}
	sortByLabel(top)
	sortByLabel(rest)

	items := make([]DisplayItem, 0, len(options)+1)
	for _, o := range top {
		items = append(items, DisplayItem{Option: o, Selected: true})
	}
	if len(top) > 0 && len(rest) > 0 {
		items = append(items, DisplayItem{Separator: true})
	}
	for _, o := range rest {
		items = append(items, DisplayItem{Option: o})
	}
	return items
}

func sortByLabel(options []Option) {
	slices.SortFunc(options, func(a, b Option) int {
		if c := strings.Compare(strings.ToLower(a.Label), strings.ToLower(b.Label)); c != 0 {
			return c
		}
		return cmp.Compare(a.Code, b.Code)
	})
}
