// Package tagging implements the tag-naming heuristics used to relate
// equipment: standby siblings, typical trains and hierarchy paths.
//
// Tags follow the convention <area>-<type>-<train><number><suffix>,
// e.g. "103-K-101A": area 103, type K, train 1, number block 101,
// standby suffix A.
package tagging

import (
	"regexp"
	"strings"
)

var trainBlockRe = regexp.MustCompile(`^(\d{3})(.*)$`)

// TrainParts is the decomposition of a tag around its train/number block.
// For "104-KM-301A-AM1A": Prefix "104-KM-", Number "301", Suffix "A",
// Tail "-AM1A".
type TrainParts struct {
	Prefix string
	Number string
	Suffix string
	Tail   string
}

// SplitTrain breaks a tag into its train parts. Tags with fewer than three
// hyphen segments, or whose third segment does not start with a three-digit
// number block, yield ok=false rather than an error.
func SplitTrain(tag string) (TrainParts, bool) {
	parts := strings.Split(tag, "-")
	if len(parts) < 3 {
		return TrainParts{}, false
	}
	m := trainBlockRe.FindStringSubmatch(parts[2])
	if m == nil {
		return TrainParts{}, false
	}
	p := TrainParts{
		Prefix: parts[0] + "-" + parts[1] + "-",
		Number: m[1],
		Suffix: m[2],
	}
	if len(parts) > 3 {
		p.Tail = "-" + strings.Join(parts[3:], "-")
	}
	return p, true
}

// StandbyRoot strips the trailing standby letter from a tag, so that
// "113-P-116A" yields "113-P-116". Only tags with exactly two hyphens and
// a letter suffix have standby siblings; anything else yields ok=false.
func StandbyRoot(tag string) (string, bool) {
	if tag == "" || strings.Count(tag, "-") != 2 {
		return "", false
	}
	last := tag[len(tag)-1]
	if (last < 'A' || last > 'Z') && (last < 'a' || last > 'z') {
		return "", false
	}
	return tag[:len(tag)-1], true
}

// TypicalVariants generates the typical-train candidates for a tag by
// substituting train digits 1 through 6 into the number block, keeping
// candidates for which exists reports true. The scan stops after two
// consecutive misses; sparse numbering beyond that point is not probed,
// so the result is a heuristic, not a complete search.
func TypicalVariants(tag string, exists func(string) bool) []string {
	p, ok := SplitTrain(tag)
	if !ok {
		return nil
	}

	var variants []string
	misses := 0
	for t := '1'; t <= '6'; t++ {
		candidate := p.Prefix + string(t) + p.Number[1:] + p.Suffix + p.Tail
		if exists(candidate) {
			variants = append(variants, candidate)
			misses = 0
			continue
		}
		misses++
		if misses >= 2 {
			break
		}
	}
	return variants
}

// ContainsSegment reports whether tag appears as an exact slash-delimited
// segment of longTag. Substring hits inside a longer segment do not count.
func ContainsSegment(longTag, tag string) bool {
	if longTag == "" || tag == "" {
		return false
	}
	for _, seg := range strings.Split(longTag, "/") {
		if strings.TrimSpace(seg) == tag {
			return true
		}
	}
	return false
}

// ReplaceSegment rewrites every exact segment of longTag equal to oldTag
// with newTag, preserving the rest of the path. Used by the tag-rename
// cascade.
func ReplaceSegment(longTag, oldTag, newTag string) string {
	parts := strings.Split(longTag, "/")
	for i, seg := range parts {
		if strings.TrimSpace(seg) == oldTag {
			parts[i] = newTag
		}
	}
	return strings.Join(parts, "/")
}

// FamilyPattern derives the Long_Tag prefix that selects a tag's parent
// group. A tag whose Father_Tag equals its Unit_Code is itself the top of
// its branch, so its own path is the pattern; otherwise the path minus its
// last segment selects the father's subtree.
func FamilyPattern(fatherTag, unitCode, longTag string) string {
	if fatherTag != "" && unitCode != "" && fatherTag == unitCode {
		return longTag
	}
	if i := strings.LastIndex(longTag, "/"); i >= 0 {
		return longTag[:i]
	}
	return longTag
}
