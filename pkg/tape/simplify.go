package tape

import "fmt"

// Simplify specializes a tape using min/max choices gathered over a region,
// one per min/max record in slot order. A record tagged ChoiceLeft or
// ChoiceRight becomes an alias of the kept operand; ChoiceBoth and
// ChoiceUnknown keep the record. Records no longer reachable from the root
// are then removed.
//
// The result computes exactly the same value as t at every point inside the
// region the choices were derived from, and is never longer than t. Outside
// that region it may differ. The variable table is shared with t.
func Simplify(t *Tape, choices []Choice) (*Tape, error) {
	if len(choices) != t.choices {
		return nil, fmt.Errorf("tape: simplify: got %d choices for %d min/max records: %w",
			len(choices), t.choices, ErrChoiceCount)
	}

	alias := make([]Slot, len(t.records))
	records := make([]Record, len(t.records))
	decisions := append([]Decision(nil), t.decisions...)
	next := 0
	for i, r := range t.records {
		for j, a := range r.Operands() {
			r.Args[j] = alias[a]
		}
		records[i] = r
		alias[i] = Slot(i)
		if !r.Op.IsChoice() {
			continue
		}
		switch c := choices[next]; c {
		case ChoiceLeft:
			alias[i] = r.Args[0]
			decisions = append(decisions, Decision{Position: t.origin[i], Choice: c})
		case ChoiceRight:
			alias[i] = r.Args[1]
			decisions = append(decisions, Decision{Position: t.origin[i], Choice: c})
		}
		next++
	}

	out := &Tape{
		records:   records,
		root:      alias[t.root],
		vars:      t.vars,
		origin:    t.origin,
		decisions: decisions,
	}
	return out.compact(), nil
}

// compact removes records not reachable from the root and renumbers the
// rest, preserving order, origins and the variable table.
func (t *Tape) compact() *Tape {
	live := make([]bool, len(t.records))
	live[t.root] = true
	for i := int(t.root); i >= 0; i-- {
		if !live[i] {
			continue
		}
		for _, a := range t.records[i].Operands() {
			live[a] = true
		}
	}

	renumber := make([]Slot, len(t.records))
	out := &Tape{vars: t.vars, decisions: t.decisions}
	for i, r := range t.records {
		if !live[i] {
			continue
		}
		for j, a := range r.Operands() {
			r.Args[j] = renumber[a]
		}
		renumber[i] = Slot(len(out.records))
		out.records = append(out.records, r)
		out.origin = append(out.origin, t.origin[i])
	}
	out.root = renumber[t.root]
	out.countChoices()
	return out
}
