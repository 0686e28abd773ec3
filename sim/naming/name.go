package naming

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Separator joins the elements of a hierarchical name.
const Separator = "."

// A Name is a hierarchical name that includes a series of tokens separated
// by dots, for example "Platform.CPU[0].Data".
type Name struct {
	Tokens []Token
}

// Token is one element of a hierarchical name.
type Token struct {
	Elem  string
	Index []int
}

// String renders the token back into its textual form.
func (t Token) String() string {
	s := t.Elem
	for _, i := range t.Index {
		s += "[" + strconv.Itoa(i) + "]"
	}

	return s
}

// String renders the name back into its textual form.
func (n Name) String() string {
	parts := make([]string, len(n.Tokens))
	for i, t := range n.Tokens {
		parts[i] = t.String()
	}

	return strings.Join(parts, Separator)
}

// ParseName splits a name string into tokens.
func ParseName(s string) (Name, error) {
	elems := strings.Split(s, Separator)
	name := Name{Tokens: make([]Token, len(elems))}

	for i, elem := range elems {
		token, err := parseToken(elem)
		if err != nil {
			return Name{}, err
		}

		name.Tokens[i] = token
	}

	return name, nil
}

func parseToken(s string) (Token, error) {
	if err := bracketsMustMatch(s); err != nil {
		return Token{}, err
	}

	parts := strings.Split(s, "[")
	token := Token{Elem: parts[0]}

	for _, p := range parts[1:] {
		if !strings.HasSuffix(p, "]") {
			return Token{}, errors.New("index must be closed by ]")
		}

		index, err := strconv.Atoi(strings.TrimSuffix(p, "]"))
		if err != nil {
			return Token{}, errors.New("index must be an integer")
		}

		token.Index = append(token.Index, index)
	}

	return token, nil
}

func bracketsMustMatch(s string) error {
	depth := 0

	for _, c := range s {
		switch c {
		case '[':
			depth++
		case ']':
			depth--
			if depth < 0 {
				return errors.New("brackets must match")
			}
		}
	}

	if depth != 0 {
		return errors.New("brackets must match")
	}

	return nil
}

// ValidateName checks that a name follows the naming convention:
//  1. Elements are separated by dots and none of them is empty.
//  2. Elements are capitalized CamelCase and carry no "_", "-" or quotes.
//  3. Elements in a series use square-bracket indices, e.g. "IRQ[3]".
func ValidateName(s string) error {
	n, err := ParseName(s)
	if err != nil {
		return fmt.Errorf("name %q is not valid: %w", s, err)
	}

	for _, t := range n.Tokens {
		if err := validateToken(t); err != nil {
			return fmt.Errorf("name %q is not valid: %w", s, err)
		}
	}

	return nil
}

func validateToken(t Token) error {
	if t.Elem == "" {
		return errors.New("element must not be empty")
	}

	for _, c := range []string{"_", "\"", "'", "-", " "} {
		if strings.Contains(t.Elem, c) {
			return fmt.Errorf("element must not contain %q", c)
		}
	}

	if t.Elem[0] < 'A' || t.Elem[0] > 'Z' {
		return errors.New("element must start with a capital letter")
	}

	return nil
}

// NameMustBeValid panics if the name does not follow the naming convention.
func NameMustBeValid(s string) {
	if err := ValidateName(s); err != nil {
		panic(err.Error())
	}
}

// BuildName builds a name from a parent name and an element name.
func BuildName(parent, elem string) string {
	if parent == "" {
		return elem
	}

	return parent + Separator + elem
}

// BuildNameWithIndex builds a name from a parent name, an element name and
// an index.
func BuildNameWithIndex(parent, elem string, index ...int) string {
	name := BuildName(parent, elem)
	for _, i := range index {
		name += "[" + strconv.Itoa(i) + "]"
	}

	return name
}

// Parent returns all but the last element of a hierarchical name, or an
// empty string for a top-level name.
func Parent(s string) string {
	pos := strings.LastIndex(s, Separator)
	if pos < 0 {
		return ""
	}

	return s[:pos]
}

// Leaf returns the last element of a hierarchical name.
func Leaf(s string) string {
	pos := strings.LastIndex(s, Separator)

	return s[pos+1:]
}
