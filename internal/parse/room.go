package parse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"dorm-allocation-backend/internal/model"
)

var (
	// "A-2-05", "B 3 - 12"
	explicitRe = regexp.MustCompile(`^([A-Za-z]+)\s*[-#]\s*(\d+)\s*-\s*(\d+)$`)
	// "A101", "A-101", "Block C 1204"
	compactRe = regexp.MustCompile(`^(?i:block\s+)?([A-Za-z]+)\s*[-#]?\s*(\d{3,4})$`)
	spaceRe   = regexp.MustCompile(`\s+`)
)

// ParsedRoom holds the structured data parsed from a room number.
type ParsedRoom struct {
	Block string
	Floor int
	Seq   int
}

// ParseRoomNumber extracts block, floor and sequence from a room number. The
// compact form keeps the last two digits as the sequence and the rest as the
// floor, so "A101" is block A, floor 1, room 1.
func ParseRoomNumber(raw string) (ParsedRoom, error) {
	s := strings.TrimSpace(spaceRe.ReplaceAllString(raw, " "))

	if m := explicitRe.FindStringSubmatch(s); m != nil {
		floor, errFloor := strconv.Atoi(m[2])
		seq, errSeq := strconv.Atoi(m[3])
		if errFloor == nil && errSeq == nil && floor > 0 {
			return ParsedRoom{Block: strings.ToUpper(m[1]), Floor: floor, Seq: seq}, nil
		}
	}

	if m := compactRe.FindStringSubmatch(s); m != nil {
		digits := m[2]
		floor, errFloor := strconv.Atoi(digits[:len(digits)-2])
		seq, errSeq := strconv.Atoi(digits[len(digits)-2:])
		if errFloor == nil && errSeq == nil && floor > 0 {
			return ParsedRoom{Block: strings.ToUpper(m[1]), Floor: floor, Seq: seq}, nil
		}
	}

	return ParsedRoom{}, fmt.Errorf("unable to parse room number: %q", raw)
}

// NormalizeRoomType maps the spellings seen in inventories ("4", "4-bed",
// "Four Bed", "six") to a RoomType.
func NormalizeRoomType(raw string) (model.RoomType, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.NewReplacer("-", " ", "_", " ").Replace(s)
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSuffix(s, "beds"), "bed"))
	s = strings.TrimSpace(strings.TrimSuffix(s, "seater"))

	switch s {
	case "4", "four", "quad":
		return model.RoomTypeFour, nil
	case "6", "six":
		return model.RoomTypeSix, nil
	}
	return "", fmt.Errorf("unsupported room type %q", raw)
}

// NormalizeGender maps free-form gender input to a Gender. Empty input
// returns "" with no error; callers decide whether that is allowed.
func NormalizeGender(raw string) (model.Gender, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return "", nil
	case "m", "male", "men", "boys":
		return model.GenderMale, nil
	case "f", "female", "women", "girls":
		return model.GenderFemale, nil
	case "mixed", "coed", "co-ed":
		return model.GenderMixed, nil
	}
	return "", fmt.Errorf("unsupported gender %q", raw)
}
