package domain

import "fmt"

// Question represents the single question section of a relayed message.
// Name is already normalized (uppercase, no trailing dot) when produced by the decoder.
type Question struct {
	Name  string
	Type  RRType
	Class RRClass
}

// IsSupported reports whether the relay can answer the question. Only A/IN is.
func (q Question) IsSupported() bool {
	return q.Type == RRTypeA && q.Class == RRClassIN
}

// Validate returns ErrUnsupportedQuestion for anything other than A/IN.
func (q Question) Validate() error {
	if !q.IsSupported() {
		return fmt.Errorf("%w: %s %s %s", ErrUnsupportedQuestion, q.Name, q.Class, q.Type)
	}
	return nil
}

// String renders the question in zone-file order, e.g. "EXAMPLE.COM IN A".
func (q Question) String() string {
	return q.Name + " " + q.Class.String() + " " + q.Type.String()
}
