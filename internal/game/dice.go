package game

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

var ErrBadFormula = errors.New("invalid dice formula")

// NdM with an optional +/- modifier, e.g. d20, 2d6, 1d20+5.
var formulaRE = regexp.MustCompile(`^([0-9]*)d([0-9]+)([+-][0-9]+)?$`)

var validFaces = map[int]bool{4: true, 6: true, 8: true, 10: true, 12: true, 20: true, 100: true}

const maxDiceCount = 20

type Formula struct {
	Count    int
	Faces    int
	Modifier int
}

// ParseFormula validates a roll request before it goes anywhere near the
// network. The count defaults to 1 when omitted.
func ParseFormula(s string) (Formula, error) {
	m := formulaRE.FindStringSubmatch(s)
	if m == nil {
		return Formula{}, fmt.Errorf("%w: %q", ErrBadFormula, s)
	}

	count := 1
	if m[1] != "" {
		var err error
		count, err = strconv.Atoi(m[1])
		if err != nil || count < 1 || count > maxDiceCount {
			return Formula{}, fmt.Errorf("%w: bad dice count in %q", ErrBadFormula, s)
		}
	}

	faces, err := strconv.Atoi(m[2])
	if err != nil || !validFaces[faces] {
		return Formula{}, fmt.Errorf("%w: unsupported die d%s", ErrBadFormula, m[2])
	}

	mod := 0
	if m[3] != "" {
		mod, err = strconv.Atoi(m[3])
		if err != nil {
			return Formula{}, fmt.Errorf("%w: bad modifier in %q", ErrBadFormula, s)
		}
	}

	return Formula{Count: count, Faces: faces, Modifier: mod}, nil
}
