package demreader

import (
	"errors"
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"
)

// FlattenedProp is one networked property of a class, in the order entity deltas
// index them.
type FlattenedProp struct {
	Name    string    `json:"name"`
	Table   string    `json:"table"`
	Prop    *SendProp `json:"prop"`
	Element *SendProp `json:"element,omitempty"`
}

type excludeKey struct {
	prop  string
	table string
}

// flattener works on table indices into the context's table arena.
type flattener struct {
	ctx      *ProtocolContext
	class    string
	excludes mapset.Set[excludeKey]
	path     mapset.Set[int]
}

// Flatten resolves every declared server class into its flat property list. A class
// whose tables are inconsistent is left out and its error joined into the result.
func Flatten(ctx *ProtocolContext) (map[int][]FlattenedProp, error) {
	out := make(map[int][]FlattenedProp, len(ctx.Classes))
	var errs []error
	for _, c := range ctx.Classes {
		props, err := FlattenClass(ctx, c)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out[c.ID] = props
	}
	return out, errors.Join(errs...)
}

func FlattenClass(ctx *ProtocolContext, c ServerClass) ([]FlattenedProp, error) {
	f := &flattener{
		ctx:      ctx,
		class:    c.Name,
		excludes: mapset.NewThreadUnsafeSet[excludeKey](),
		path:     mapset.NewThreadUnsafeSet[int](),
	}
	root, err := f.table(c.Table)
	if err != nil {
		return nil, err
	}
	if err := f.gatherExcludes(root); err != nil {
		return nil, err
	}
	var props []FlattenedProp
	if err := f.gatherProps(root, &props); err != nil {
		return nil, err
	}
	return changesOftenFirst(props), nil
}

func (f *flattener) table(name string) (int, error) {
	i, ok := f.ctx.tableIndex[name]
	if !ok {
		return 0, &SchemaError{Class: f.class, Table: name}
	}
	return i, nil
}

func (f *flattener) enter(ti int) error {
	if !f.path.Add(ti) {
		return fmt.Errorf("%w: table includes itself", &SchemaError{Class: f.class, Table: f.ctx.Tables[ti].Name})
	}
	return nil
}

func (f *flattener) gatherExcludes(ti int) error {
	if err := f.enter(ti); err != nil {
		return err
	}
	defer f.path.Remove(ti)

	for i := range f.ctx.Tables[ti].Props {
		p := &f.ctx.Tables[ti].Props[i]
		switch {
		case p.Type == DPT_DATATABLE:
			sub, err := f.table(p.SubTable())
			if err != nil {
				return err
			}
			if err := f.gatherExcludes(sub); err != nil {
				return err
			}
		case p.Flags.Has(SPROP_EXCLUDE):
			f.excludes.Add(excludeKey{prop: p.Name, table: p.ExcludeTable})
		}
	}
	return nil
}

// gatherProps appends the props of a table after the props of any non collapsible
// sub tables it contains.
func (f *flattener) gatherProps(ti int, out *[]FlattenedProp) error {
	var props []FlattenedProp
	if err := f.iterateProps(ti, &props, out); err != nil {
		return err
	}
	*out = append(*out, props...)
	return nil
}

func (f *flattener) iterateProps(ti int, props, out *[]FlattenedProp) error {
	if err := f.enter(ti); err != nil {
		return err
	}
	defer f.path.Remove(ti)

	t := f.ctx.Tables[ti]
	for i := range t.Props {
		p := &t.Props[i]
		if p.Flags.Has(SPROP_INSIDEARRAY) || p.Flags.Has(SPROP_EXCLUDE) {
			continue
		}
		if f.excludes.Contains(excludeKey{prop: p.Name, table: t.Name}) {
			continue
		}
		if p.Type == DPT_DATATABLE {
			sub, err := f.table(p.SubTable())
			if err != nil {
				return err
			}
			if p.Flags.Has(SPROP_COLLAPSIBLE) {
				err = f.iterateProps(sub, props, out)
			} else {
				err = f.gatherProps(sub, out)
			}
			if err != nil {
				return err
			}
			continue
		}
		fp := FlattenedProp{Name: p.Name, Table: t.Name, Prop: p}
		if p.Type == DPT_ARRAY && i > 0 {
			fp.Element = &t.Props[i-1]
		}
		*props = append(*props, fp)
	}
	return nil
}

// changesOftenFirst is a stable partition on SPROP_CHANGES_OFTEN.
func changesOftenFirst(props []FlattenedProp) []FlattenedProp {
	out := make([]FlattenedProp, 0, len(props))
	for _, p := range props {
		if p.Prop.Flags.Has(SPROP_CHANGES_OFTEN) {
			out = append(out, p)
		}
	}
	for _, p := range props {
		if !p.Prop.Flags.Has(SPROP_CHANGES_OFTEN) {
			out = append(out, p)
		}
	}
	return out
}
