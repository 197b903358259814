package events

import "fmt"

// Row is one line of an event table as supplied by a caller.
// An empty Method falls back to the table's default method.
type Row struct {
	Var    string  `yaml:"var" json:"var" validate:"required"`
	Time   float64 `yaml:"time" json:"time" validate:"gte=0"`
	Value  float64 `yaml:"value" json:"value"`
	Method string  `yaml:"method,omitempty" json:"method,omitempty"`
}

// ParseTable converts rows into a Set.
func ParseTable(rows []Row, defaultMethod string) (*Set, error) {
	if defaultMethod == "" {
		defaultMethod = Instantaneous.String()
	}
	evts := make([]Event, 0, len(rows))
	for i, r := range rows {
		v, err := ParseVariable(r.Var)
		if err != nil {
			return nil, fmt.Errorf("event row %d: %w", i+1, err)
		}
		method := r.Method
		if method == "" {
			method = defaultMethod
		}
		kind, err := ParseKind(method)
		if err != nil {
			return nil, fmt.Errorf("event row %d: %w", i+1, err)
		}
		evts = append(evts, Event{Var: v, Time: r.Time, Value: r.Value, Kind: kind})
	}
	return NewSet(evts...)
}
