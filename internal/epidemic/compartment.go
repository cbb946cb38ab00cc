package epidemic

import "fmt"

// Compartment is an epidemiological state. The declaration order S < E < I < R
// is used by the resolver to normalize participant roles.
type Compartment uint8

const (
	Susceptible Compartment = iota
	Exposed
	Infectious
	Recovered
)

// Compartments lists all compartments in declaration order.
var Compartments = [4]Compartment{Susceptible, Exposed, Infectious, Recovered}

func (c Compartment) String() string {
	switch c {
	case Susceptible:
		return "S"
	case Exposed:
		return "E"
	case Infectious:
		return "I"
	case Recovered:
		return "R"
	default:
		return fmt.Sprintf("Compartment(%d)", uint8(c))
	}
}

// Name returns the long form, e.g. "susceptible".
func (c Compartment) Name() string {
	switch c {
	case Susceptible:
		return "susceptible"
	case Exposed:
		return "exposed"
	case Infectious:
		return "infectious"
	case Recovered:
		return "recovered"
	default:
		return c.String()
	}
}

// MarshalText encodes the short form.
func (c Compartment) MarshalText() ([]byte, error) {
	if c > Recovered {
		return nil, fmt.Errorf("invalid compartment %d", uint8(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText accepts both short ("I") and long ("infectious") forms.
func (c *Compartment) UnmarshalText(text []byte) error {
	parsed, err := ParseCompartment(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseCompartment parses the short or long compartment name.
func ParseCompartment(s string) (Compartment, error) {
	for _, c := range Compartments {
		if s == c.String() || s == c.Name() {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown compartment %q", s)
}
