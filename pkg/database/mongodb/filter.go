package mongodb

import (
	"reflect"

	"go.mongodb.org/mongo-driver/bson"
)

type filterOp string

const (
	opAll    filterOp = ""
	opEq     filterOp = "$eq"
	opNe     filterOp = "$ne"
	opGt     filterOp = "$gt"
	opGte    filterOp = "$gte"
	opLt     filterOp = "$lt"
	opLte    filterOp = "$lte"
	opIn     filterOp = "$in"
	opNin    filterOp = "$nin"
	opExists filterOp = "$exists"
	opRegex  filterOp = "$regex"
	opAnd    filterOp = "$and"
	opOr     filterOp = "$or"
	opNor    filterOp = "$nor"
	opRaw    filterOp = "raw"
)

// Filter describes which documents an operation applies to.
// Field names may be Go field names or BSON keys of the entity.
// The zero value matches every document.
type Filter struct {
	op       filterOp
	field    string
	value    any
	options  string
	children []Filter
	raw      bson.D
}

// All matches every document.
func All() Filter { return Filter{} }

// Eq matches documents whose field equals value.
func Eq(field string, value any) Filter { return Filter{op: opEq, field: field, value: value} }

// Ne matches documents whose field differs from value.
func Ne(field string, value any) Filter { return Filter{op: opNe, field: field, value: value} }

// Gt matches documents whose field is greater than value.
func Gt(field string, value any) Filter { return Filter{op: opGt, field: field, value: value} }

// Gte matches documents whose field is greater than or equal to value.
func Gte(field string, value any) Filter { return Filter{op: opGte, field: field, value: value} }

// Lt matches documents whose field is less than value.
func Lt(field string, value any) Filter { return Filter{op: opLt, field: field, value: value} }

// Lte matches documents whose field is less than or equal to value.
func Lte(field string, value any) Filter { return Filter{op: opLte, field: field, value: value} }

// In matches documents whose field equals one of values.
func In(field string, values ...any) Filter { return Filter{op: opIn, field: field, value: values} }

// Nin matches documents whose field equals none of values.
func Nin(field string, values ...any) Filter { return Filter{op: opNin, field: field, value: values} }

// Exists matches documents that have (or lack) field.
func Exists(field string, exists bool) Filter {
	return Filter{op: opExists, field: field, value: exists}
}

// Regex matches string fields against pattern with the given regex options (e.g. "i").
func Regex(field, pattern, options string) Filter {
	return Filter{op: opRegex, field: field, value: pattern, options: options}
}

// And matches documents matching every filter.
func And(filters ...Filter) Filter { return Filter{op: opAnd, children: filters} }

// Or matches documents matching at least one filter.
func Or(filters ...Filter) Filter { return Filter{op: opOr, children: filters} }

// Not matches documents that do not match f.
func Not(f Filter) Filter { return Filter{op: opNor, children: []Filter{f}} }

// Raw passes a driver filter document through untranslated.
func Raw(doc bson.D) Filter { return Filter{op: opRaw, raw: doc} }

// IsAll reports whether f matches every document.
func (f Filter) IsAll() bool { return f.op == opAll }

// idConverter turns identifier values into their wire form.
type idConverter func(any) (any, error)

// build translates f into a driver filter document.
func (f Filter) build(fields *fieldMap, toWire idConverter) (bson.D, error) {
	switch f.op {
	case opAll:
		return bson.D{}, nil
	case opRaw:
		if f.raw == nil {
			return bson.D{}, nil
		}
		return f.raw, nil
	case opAnd, opOr, opNor:
		if len(f.children) == 0 {
			return bson.D{}, nil
		}
		parts := make(bson.A, 0, len(f.children))
		for _, child := range f.children {
			doc, err := child.build(fields, toWire)
			if err != nil {
				return nil, err
			}
			parts = append(parts, doc)
		}
		return bson.D{{Key: string(f.op), Value: parts}}, nil
	}

	key, err := fields.resolve(f.field)
	if err != nil {
		return nil, err
	}

	value := f.value
	if key == idKey {
		if value, err = convertIDs(value, f.op, toWire); err != nil {
			return nil, err
		}
	}

	switch f.op {
	case opEq:
		return bson.D{{Key: key, Value: value}}, nil
	case opRegex:
		cond := bson.D{{Key: "$regex", Value: value}}
		if f.options != "" {
			cond = append(cond, bson.E{Key: "$options", Value: f.options})
		}
		return bson.D{{Key: key, Value: cond}}, nil
	default:
		return bson.D{{Key: key, Value: bson.D{{Key: string(f.op), Value: value}}}}, nil
	}
}

func convertIDs(value any, op filterOp, toWire idConverter) (any, error) {
	switch op {
	case opExists, opRegex:
		return value, nil
	case opIn, opNin:
		rv := reflect.ValueOf(value)
		out := make(bson.A, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			v, err := toWire(rv.Index(i).Interface())
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	}
	return toWire(value)
}
