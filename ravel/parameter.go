// Package ravel converts between structured model parameters and the
// flat unconstrained vectors the kernels work with.
package ravel

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"bitbucket.org/Davydov/mcx/kernel"
)

// Parameter is a named scalar model parameter.
type Parameter struct {
	Name      string
	Min, Max  float64
	Transform Transform
	Prior     Prior
}

// NewParameter creates a parameter bounded by min and max (which can
// be infinite) with a flat prior.
func NewParameter(name string, min, max float64) *Parameter {
	return &Parameter{
		Name:      name,
		Min:       min,
		Max:       max,
		Transform: NewTransform(min, max),
		Prior:     FlatPrior,
	}
}

// InRange checks if the value is within the parameter bounds.
func (p *Parameter) InRange(x float64) bool {
	return x >= p.Min && x <= p.Max
}

// Parameters is an ordered list of parameters. The i-th parameter
// occupies the i-th coordinate of the flat vector.
type Parameters []*Parameter

// Append adds a parameter.
func (p *Parameters) Append(par *Parameter) {
	*p = append(*p, par)
}

// Dim returns the flat dimension.
func (p Parameters) Dim() int {
	return len(p)
}

// Names returns the parameter names.
func (p Parameters) Names() []string {
	s := make([]string, len(p))
	for i, par := range p {
		s[i] = par.Name
	}
	return s
}

// NamesString returns tab separated parameter names.
func (p Parameters) NamesString() string {
	return strings.Join(p.Names(), "\t")
}

// ValuesString returns tab separated parameter values.
func (p Parameters) ValuesString(x []float64) string {
	p.check(len(x))
	return FormatValues(x)
}

// FormatValues returns tab separated values.
func FormatValues(x []float64) string {
	s := make([]string, len(x))
	for i, v := range x {
		s[i] = strconv.FormatFloat(v, 'f', 6, 64)
	}
	return strings.Join(s, "\t")
}

// Constrain converts a flat unconstrained vector to parameter values.
func (p Parameters) Constrain(z kernel.Position) []float64 {
	p.check(len(z))
	x := make([]float64, len(z))
	for i, par := range p {
		x[i] = par.Transform.Constrain(z[i])
	}
	return x
}

// Unconstrain converts parameter values to a flat vector.
func (p Parameters) Unconstrain(x []float64) kernel.Position {
	p.check(len(x))
	z := make(kernel.Position, len(x))
	for i, par := range p {
		z[i] = par.Transform.Unconstrain(x[i])
	}
	return z
}

// LogJacobian returns the log-Jacobian of Constrain at z.
func (p Parameters) LogJacobian(z kernel.Position) (lj float64) {
	p.check(len(z))
	for i, par := range p {
		lj += par.Transform.LogJacobian(z[i])
	}
	return
}

// LogPrior returns the joint log-prior of parameter values.
func (p Parameters) LogPrior(x []float64) (lp float64) {
	p.check(len(x))
	for i, par := range p {
		if par.Prior != nil {
			lp += par.Prior(x[i])
		}
	}
	return
}

// InRange checks if all the values are within the bounds.
func (p Parameters) InRange(x []float64) bool {
	if len(x) != len(p) {
		return false
	}
	for i, par := range p {
		if !par.InRange(x[i]) {
			return false
		}
	}
	return true
}

// ReadLine reads parameter values from a trajectory line, which
// starts with the iteration and the log-probability.
func (p Parameters) ReadLine(l string) ([]float64, error) {
	v, err := ReadFloats(l)
	if err != nil {
		return nil, err
	}
	if len(v) != len(p)+2 {
		return nil, fmt.Errorf("expected %d values in trajectory line, got %d", len(p)+2, len(v))
	}
	return v[2:], nil
}

// Record returns named parameter values.
func (p Parameters) Record(x []float64) Record {
	p.check(len(x))
	return Record{Names: p.Names(), Values: append([]float64(nil), x...)}
}

// FromRecord orders the values of a record as the parameters.
func (p Parameters) FromRecord(r Record) ([]float64, error) {
	x := make([]float64, len(p))
	for i, par := range p {
		v, ok := r.Get(par.Name)
		if !ok {
			return nil, fmt.Errorf("missing parameter %q", par.Name)
		}
		x[i] = v
	}
	return x, nil
}

func (p Parameters) check(n int) {
	if n != len(p) {
		panic("incorrect number of parameters")
	}
}

// ReadFloats converts string of floats into slice of float64.
func ReadFloats(s string) ([]float64, error) {
	r := strings.NewReader(s)
	scanner := bufio.NewScanner(r)
	scanner.Split(bufio.ScanWords)
	var result []float64
	for scanner.Scan() {
		x, err := strconv.ParseFloat(scanner.Text(), 64)
		if err != nil {
			return result, err
		}
		result = append(result, x)
	}
	return result, scanner.Err()
}

// Record is an ordered set of named values. It is encoded as a JSON
// object keeping the order of the names.
type Record struct {
	Names  []string
	Values []float64
}

// Get returns the value of a name.
func (r Record) Get(name string) (float64, bool) {
	for i, n := range r.Names {
		if n == name {
			return r.Values[i], true
		}
	}
	return math.NaN(), false
}

// MarshalJSON encodes the record as a JSON object.
func (r Record) MarshalJSON() ([]byte, error) {
	if len(r.Names) != len(r.Values) {
		return nil, errors.New("names and values lengths differ")
	}
	var b strings.Builder
	b.WriteByte('{')
	for i, n := range r.Names {
		if i != 0 {
			b.WriteByte(',')
		}
		name, err := json.Marshal(n)
		if err != nil {
			return nil, err
		}
		b.Write(name)
		b.WriteByte(':')
		v := r.Values[i]
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return nil, fmt.Errorf("cannot encode %v for %q", v, n)
		}
		b.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
	}
	b.WriteByte('}')
	return []byte(b.String()), nil
}

// UnmarshalJSON decodes a JSON object of numbers keeping the order of
// the keys.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	t, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := t.(json.Delim); !ok || d != '{' {
		return errors.New("record should be a JSON object")
	}
	r.Names = r.Names[:0]
	r.Values = r.Values[:0]
	for dec.More() {
		t, err := dec.Token()
		if err != nil {
			return err
		}
		name := t.(string)
		var v float64
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("value of %q: %v", name, err)
		}
		r.Names = append(r.Names, name)
		r.Values = append(r.Values, v)
	}
	_, err = dec.Token()
	return err
}
