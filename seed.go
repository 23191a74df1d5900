package arbor

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// ErrUnrecognizedSeeds is returned when a seed response is valid JSON but
// neither a list of strings nor an object wrapping one under "thoughts".
var ErrUnrecognizedSeeds = errors.New("seed response is not a list of strings")

// SeedShape names the accepted layouts of a seed response.
type SeedShape int

// Seed response shapes.
const (
	SeedUnrecognized SeedShape = iota
	SeedList                   // ["...", "..."]
	SeedWrapped                // {"thoughts": ["...", "..."]}
)

func (s SeedShape) String() string {
	switch s {
	case SeedList:
		return "list"
	case SeedWrapped:
		return "wrapped"
	default:
		return "unrecognized"
	}
}

// SeedResponse is a decoded seed response.
type SeedResponse struct {
	Shape    SeedShape
	Thoughts []string
}

// ParseSeeds decodes a seed response. Both accepted shapes normalise to the
// same ordered thought list; blank entries are dropped. Any other shape, or a
// list containing a non-string element, yields SeedUnrecognized with no
// thoughts and an error.
func ParseSeeds(raw string) (SeedResponse, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || !gjson.Valid(raw) {
		return SeedResponse{}, ErrMalformedJSON
	}

	doc := gjson.Parse(raw)
	switch {
	case doc.IsArray():
		thoughts, err := stringList(doc)
		if err != nil {
			return SeedResponse{}, err
		}
		return SeedResponse{Shape: SeedList, Thoughts: thoughts}, nil

	case doc.IsObject():
		wrapped := doc.Get("thoughts")
		if !wrapped.IsArray() {
			return SeedResponse{}, fmt.Errorf("%w: object has no thoughts list", ErrUnrecognizedSeeds)
		}
		thoughts, err := stringList(wrapped)
		if err != nil {
			return SeedResponse{}, err
		}
		return SeedResponse{Shape: SeedWrapped, Thoughts: thoughts}, nil
	}

	return SeedResponse{}, ErrUnrecognizedSeeds
}

func stringList(list gjson.Result) ([]string, error) {
	items := list.Array()
	thoughts := make([]string, 0, len(items))
	for i, item := range items {
		if item.Type != gjson.String {
			return nil, fmt.Errorf("%w: element %d is %s", ErrUnrecognizedSeeds, i, item.Type)
		}
		if strings.TrimSpace(item.Str) == "" {
			continue
		}
		thoughts = append(thoughts, item.Str)
	}
	return thoughts, nil
}
