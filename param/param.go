// Package param declares typed, bounded hyperparameter spaces and samples
// random designs from them. Values carry their string encoding for upload as
// setup parameters.
package param

import (
	"fmt"
	"math"
	"math/rand"
	"strconv"
)

type Kind int

const (
	KindNum Kind = iota
	KindInt
	KindDiscrete
	KindLogical
)

func (k Kind) String() string {
	switch k {
	case KindNum:
		return "numeric"
	case KindInt:
		return "integer"
	case KindDiscrete:
		return "discrete"
	case KindLogical:
		return "logical"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Value is one sampled hyperparameter value. A transformed integer parameter
// yields a numeric value, since the transform output need not be integral.
type Value struct {
	kind Kind
	num  float64
	i    int64
	str  string
	b    bool
}

func NumValue(v float64) Value     { return Value{kind: KindNum, num: v} }
func IntValue(v int64) Value       { return Value{kind: KindInt, i: v} }
func DiscreteValue(v string) Value { return Value{kind: KindDiscrete, str: v} }
func LogicalValue(v bool) Value    { return Value{kind: KindLogical, b: v} }

func (v Value) Kind() Kind { return v.kind }

// Float returns the numeric form of the value. Integers widen; logicals map
// to 0 or 1; discrete values have no numeric form and return NaN.
func (v Value) Float() float64 {
	switch v.kind {
	case KindNum:
		return v.num
	case KindInt:
		return float64(v.i)
	case KindLogical:
		if v.b {
			return 1
		}
		return 0
	}
	return math.NaN()
}

func (v Value) Int() int64 { return v.i }

func (v Value) Bool() bool { return v.b }

// String is the upload encoding of the value.
func (v Value) String() string {
	switch v.kind {
	case KindNum:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindDiscrete:
		return v.str
	case KindLogical:
		return strconv.FormatBool(v.b)
	}
	return ""
}

// Assignment maps parameter IDs to sampled values. Parameters whose
// activation condition did not hold are absent.
type Assignment map[string]Value

// Design is a table of sampled configurations, one assignment per trial.
type Design []Assignment

// Param declares one hyperparameter: its type, bounds or value set, and
// optionally a value transform and an activation condition.
type Param struct {
	ID     string
	Kind   Kind
	Lower  float64
	Upper  float64
	Values []string

	// Applied to numeric and integer parameters after sampling,
	// e.g. Pow2 for log-scale parameters declared on an exponent range.
	Trafo func(float64) float64

	// When set, the parameter is sampled only if the condition holds for
	// the assignment built so far. Conditions may only refer to parameters
	// declared earlier in the set.
	Requires func(Assignment) bool
}

// NumParam declares a bounded float parameter.
func NumParam(id string, lower, upper float64) Param {
	return Param{ID: id, Kind: KindNum, Lower: lower, Upper: upper}
}

// IntParam declares a bounded integer parameter. Bounds are inclusive.
func IntParam(id string, lower, upper int64) Param {
	return Param{ID: id, Kind: KindInt, Lower: float64(lower), Upper: float64(upper)}
}

// DiscreteParam declares a parameter drawn from a fixed value list.
func DiscreteParam(id string, values ...string) Param {
	return Param{ID: id, Kind: KindDiscrete, Values: values}
}

// LogicalParam declares a boolean parameter.
func LogicalParam(id string) Param {
	return Param{ID: id, Kind: KindLogical}
}

func (p Param) WithTrafo(f func(float64) float64) Param {
	p.Trafo = f
	return p
}

func (p Param) WithRequires(f func(Assignment) bool) Param {
	p.Requires = f
	return p
}

// Pow2 is the conventional transform for parameters tuned on a log scale.
func Pow2(x float64) float64 { return math.Exp2(x) }

// Set is an ordered, validated collection of parameter declarations.
type Set struct {
	params []Param
}

func NewSet(params ...Param) (*Set, error) {
	seen := make(map[string]bool, len(params))
	for _, p := range params {
		if p.ID == "" {
			return nil, fmt.Errorf("param: parameter with empty ID")
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("param: duplicate parameter ID %q", p.ID)
		}
		seen[p.ID] = true
		switch p.Kind {
		case KindNum, KindInt:
			if p.Lower > p.Upper {
				return nil, fmt.Errorf("param: %s has lower bound %g above upper bound %g", p.ID, p.Lower, p.Upper)
			}
		case KindDiscrete:
			if len(p.Values) == 0 {
				return nil, fmt.Errorf("param: discrete parameter %s has no values", p.ID)
			}
			if p.Trafo != nil {
				return nil, fmt.Errorf("param: %s parameter %s cannot have a transform", p.Kind, p.ID)
			}
		case KindLogical:
			if p.Trafo != nil {
				return nil, fmt.Errorf("param: %s parameter %s cannot have a transform", p.Kind, p.ID)
			}
		default:
			return nil, fmt.Errorf("param: parameter %s has unknown kind %d", p.ID, int(p.Kind))
		}
	}
	return &Set{params: params}, nil
}

// MustSet is NewSet for statically declared spaces.
func MustSet(params ...Param) *Set {
	s, err := NewSet(params...)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Set) Params() []Param {
	return s.params
}

// Names returns the parameter IDs in declaration order.
func (s *Set) Names() []string {
	names := make([]string, len(s.params))
	for i, p := range s.params {
		names[i] = p.ID
	}
	return names
}

// Sample draws n configurations uniformly at random within the declared
// bounds. Transforms apply after sampling; parameters whose condition does
// not hold are left out of the assignment. Deterministic for a fixed rng.
func (s *Set) Sample(n int, rng *rand.Rand) Design {
	design := make(Design, n)
	for i := range design {
		a := make(Assignment, len(s.params))
		for _, p := range s.params {
			if p.Requires != nil && !p.Requires(a) {
				continue
			}
			a[p.ID] = p.sample(rng)
		}
		design[i] = a
	}
	return design
}

func (p Param) sample(rng *rand.Rand) Value {
	switch p.Kind {
	case KindNum:
		v := p.Lower + rng.Float64()*(p.Upper-p.Lower)
		if p.Trafo != nil {
			v = p.Trafo(v)
		}
		return NumValue(v)
	case KindInt:
		v := int64(p.Lower) + rng.Int63n(int64(p.Upper)-int64(p.Lower)+1)
		if p.Trafo != nil {
			return NumValue(p.Trafo(float64(v)))
		}
		return IntValue(v)
	case KindDiscrete:
		return DiscreteValue(p.Values[rng.Intn(len(p.Values))])
	case KindLogical:
		return LogicalValue(rng.Intn(2) == 1)
	}
	panic(fmt.Sprintf("param: cannot sample kind %d", int(p.Kind)))
}
