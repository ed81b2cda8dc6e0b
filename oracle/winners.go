package oracle

import (
	"fmt"
	"slices"

	"github.com/tidwall/gjson"
)

// ParseWinners reads a {"winners": [...]} verdict. Only identities that made a
// guess can win; the result is sorted and free of duplicates.
func ParseWinners(verdict string, guesses map[string]string) ([]string, error) {
	if !gjson.Valid(verdict) {
		return nil, fmt.Errorf("%w: %q", ErrMalformedVerdict, verdict)
	}

	field := gjson.Get(verdict, "winners")
	if !field.Exists() {
		return []string{}, nil
	}
	if !field.IsArray() {
		return nil, fmt.Errorf("%w: winners is %s", ErrMalformedVerdict, field.Type)
	}

	winners := []string{}
	for _, w := range field.Array() {
		if w.Type != gjson.String {
			continue
		}
		if _, ok := guesses[w.Str]; !ok {
			continue
		}
		winners = append(winners, w.Str)
	}
	slices.Sort(winners)
	return slices.Compact(winners), nil
}
