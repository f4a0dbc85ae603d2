package chparam

import (
	"strings"

	"chnative/chtype"
	"chnative/chvalue"
)

// Param is one entry of the parameter bag: a host value with an optional
// declared type. A non-nil DeclaredType overrides any type hint extracted
// from the SQL text for the same name.
type Param struct {
	Value        chvalue.Value
	DeclaredType *chtype.Type
}

// Bag maps parameter name to its value/declared-type pair. Names are
// unique by construction (it's a map).
type Bag map[string]Param

// Substitute extracts {name:Type} placeholders from sql and replaces
// each with the rendered literal for the corresponding parameter. reg
// resolves extracted type text into a *chtype.Type when the bag entry
// carries no DeclaredType.
func Substitute(sql string, bag Bag, reg *chtype.Registry) (string, error) {
	placeholders, hints, err := Extract(sql)
	if err != nil {
		return "", err
	}
	if len(placeholders) == 0 {
		return sql, nil
	}

	var b strings.Builder
	cursor := 0
	for _, ph := range placeholders {
		param, ok := bag[ph.Name]
		if !ok {
			return "", &MissingParameter{Name: ph.Name}
		}

		typ := param.DeclaredType
		if typ == nil {
			hint := hints[ph.Name]
			if hint == "" {
				hint = ph.Type
			}
			if hint == "" {
				return "", &UntypedParameter{Name: ph.Name}
			}
			typ, err = reg.Parse(hint)
			if err != nil {
				return "", err
			}
		}

		literal, err := Render(typ, param.Value)
		if err != nil {
			return "", err
		}

		b.WriteString(sql[cursor:ph.Start])
		b.WriteString(literal)
		cursor = ph.End
	}
	b.WriteString(sql[cursor:])
	return b.String(), nil
}
