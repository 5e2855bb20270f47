package objects

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"assetgraph/internal/domain"
)

// Mirror tells how objects created from one pattern relate to each other
type Mirror int

const (
	// MirrorNone creates unrelated siblings
	MirrorNone Mirror = iota
	// MirrorPairs relates consecutive pairs with a "mirror" relationship
	MirrorPairs
	// MirrorMultiple relates the first object to every other one with a
	// "mirrorMultiple" relationship
	MirrorMultiple
)

// NameGenerator expands a name pattern into object names
type NameGenerator interface {
	Generate(pattern string) ([]string, Mirror, error)
}

// maxGeneratedNames bounds a single expansion
const maxGeneratedNames = 10000

var patternFunc = regexp.MustCompile(`\[(sequence|mirror|multiple-mirror)\(\s*([A-Za-z0-9]+)\s*,\s*([A-Za-z0-9]+)\s*\)\]`)

// PatternGenerator expands patterns such as "port-[sequence(1,48)]".
// Supported functions, over numeric or single-letter ranges:
//
//	[sequence(a,b)]        one name per value; several sequences combine
//	[mirror(a,b)]          "<n>-front" and "<n>-back" per value
//	[multiple-mirror(a,b)] the base name, then "<base>-<n>" per value
//
// A pattern without functions yields itself.
type PatternGenerator struct{}

// Generate implements NameGenerator
func (PatternGenerator) Generate(pattern string) ([]string, Mirror, error) {
	if strings.TrimSpace(pattern) == "" {
		return nil, MirrorNone, domain.InvalidArgumentf("the name pattern cannot be empty")
	}

	matches := patternFunc.FindAllStringSubmatchIndex(pattern, -1)
	if len(matches) == 0 {
		if strings.ContainsAny(pattern, "[]") {
			return nil, MirrorNone, domain.InvalidArgumentf("name pattern %q has an unknown function", pattern)
		}
		return []string{pattern}, MirrorNone, nil
	}

	var mirrorFunc string
	for _, m := range matches {
		if fn := pattern[m[2]:m[3]]; fn != "sequence" {
			if len(matches) > 1 {
				return nil, MirrorNone, domain.InvalidArgumentf("name pattern %q combines %s with other functions", pattern, fn)
			}
			mirrorFunc = fn
		}
	}

	if mirrorFunc != "" {
		m := matches[0]
		values, err := expandRange(pattern[m[4]:m[5]], pattern[m[6]:m[7]])
		if err != nil {
			return nil, MirrorNone, err
		}
		prefix, suffix := pattern[:m[0]], pattern[m[1]:]

		var names []string
		if mirrorFunc == "mirror" {
			for _, v := range values {
				names = append(names, prefix+v+"-front"+suffix, prefix+v+"-back"+suffix)
			}
			if err := checkCount(names); err != nil {
				return nil, MirrorNone, err
			}
			return names, MirrorPairs, nil
		}
		base := prefix + suffix
		names = append(names, base)
		for _, v := range values {
			names = append(names, base+"-"+v)
		}
		if err := checkCount(names); err != nil {
			return nil, MirrorNone, err
		}
		return names, MirrorMultiple, nil
	}

	// Cartesian product of the sequences, left to right
	names := []string{""}
	last := 0
	for _, m := range matches {
		values, err := expandRange(pattern[m[4]:m[5]], pattern[m[6]:m[7]])
		if err != nil {
			return nil, MirrorNone, err
		}
		literal := pattern[last:m[0]]
		next := make([]string, 0, len(names)*len(values))
		for _, n := range names {
			for _, v := range values {
				next = append(next, n+literal+v)
			}
		}
		if err := checkCount(next); err != nil {
			return nil, MirrorNone, err
		}
		names = next
		last = m[1]
	}
	for i := range names {
		names[i] += pattern[last:]
	}
	return names, MirrorNone, nil
}

func checkCount(names []string) error {
	if len(names) > maxGeneratedNames {
		return domain.InvalidArgumentf("name pattern expands to more than %d names", maxGeneratedNames)
	}
	return nil
}

// expandRange lists the values from a to b, both numeric or both single
// letters of the same case
func expandRange(a, b string) ([]string, error) {
	if from, err := strconv.Atoi(a); err == nil {
		to, err := strconv.Atoi(b)
		if err != nil {
			return nil, domain.InvalidArgumentf("range %s..%s mixes numbers and letters", a, b)
		}
		if from > to {
			return nil, domain.InvalidArgumentf("range %d..%d is empty", from, to)
		}
		if to-from >= maxGeneratedNames {
			return nil, domain.InvalidArgumentf("range %d..%d is too large", from, to)
		}
		values := make([]string, 0, to-from+1)
		for i := from; i <= to; i++ {
			values = append(values, strconv.Itoa(i))
		}
		return values, nil
	}

	if len(a) != 1 || len(b) != 1 || !isLetter(a[0]) || !isLetter(b[0]) || isUpper(a[0]) != isUpper(b[0]) {
		return nil, domain.InvalidArgumentf("range %s..%s must use numbers or single letters of the same case", a, b)
	}
	if a[0] > b[0] {
		return nil, domain.InvalidArgumentf("range %s..%s is empty", a, b)
	}
	var values []string
	for c := a[0]; c <= b[0]; c++ {
		values = append(values, fmt.Sprintf("%c", c))
	}
	return values, nil
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isUpper(c byte) bool {
	return c >= 'A' && c <= 'Z'
}
