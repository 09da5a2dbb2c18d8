package segment

import "github.com/trakrail/eisenbahn/pkg/envelope"

// Filter is a composable predicate over a Document, applied to every
// record a scan visits within a selected segment.
type Filter func(envelope.Document) bool

// And combines filters, matching only when every one does.
func And(filters ...Filter) Filter {
	return func(d envelope.Document) bool {
		for _, f := range filters {
			if !f(d) {
				return false
			}
		}
		return true
	}
}

// Or combines filters, matching when any one does. An empty Or matches
// nothing.
func Or(filters ...Filter) Filter {
	return func(d envelope.Document) bool {
		for _, f := range filters {
			if f(d) {
				return true
			}
		}
		return false
	}
}

// Not inverts a filter.
func Not(f Filter) Filter {
	return func(d envelope.Document) bool { return !f(d) }
}

// EventTypeIs matches documents of exactly one event type.
func EventTypeIs(eventType string) Filter {
	return func(d envelope.Document) bool { return d.EventType == eventType }
}

// FieldEquals matches documents where field holds exactly v.
func FieldEquals(field string, v envelope.Value) Filter {
	return func(d envelope.Document) bool {
		got, ok := d.Get(field)
		return ok && got == v
	}
}

// FieldExists matches documents that carry field at all, regardless of
// its value.
func FieldExists(field string) Filter {
	return func(d envelope.Document) bool {
		_, ok := d.Get(field)
		return ok
	}
}

// FieldNumberInRange matches documents where field's numeric value
// (integer or float, widened to float64) falls in [lo, hi].
func FieldNumberInRange(field string, lo, hi float64) Filter {
	return func(d envelope.Document) bool {
		v, ok := d.Get(field)
		if !ok {
			return false
		}
		n, ok := v.AsFloat()
		return ok && n >= lo && n <= hi
	}
}

// All matches every document; the identity filter for composition.
func All() Filter { return func(envelope.Document) bool { return true } }
