package heatmap

import "fmt"

// Tag names one desire category, and therefore one heatmap. The set is
// closed: the registry is a fixed table indexed by tag ordinal, and the two
// must stay in lock-step.
type Tag uint8

const (
	// TagAdventure marks places offering adventure, such as the dungeon entrance.
	TagAdventure Tag = iota
	// TagGeneralStore marks stores. Every store sells every type of thing currently.
	TagGeneralStore
	// TagRest marks places to rest, such as beds.
	TagRest
	// TagSustenance marks sources of food and drink, such as inns.
	TagSustenance

	// TagCount is the number of desire categories.
	TagCount
)

var tagNames = [TagCount]string{
	TagAdventure:    "adventure",
	TagGeneralStore: "general_store",
	TagRest:         "rest",
	TagSustenance:   "sustenance",
}

// String returns the tag's lowercase name.
func (t Tag) String() string {
	if t >= TagCount {
		return fmt.Sprintf("Tag(%d)", uint8(t))
	}
	return tagNames[t]
}

// ParseTag resolves a tag name as produced by String.
func ParseTag(s string) (Tag, error) {
	for t := Tag(0); t < TagCount; t++ {
		if tagNames[t] == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("heatmap: unknown tag %q", s)
}

// AllTags returns every tag in ordinal order.
func AllTags() []Tag {
	out := make([]Tag, TagCount)
	for t := Tag(0); t < TagCount; t++ {
		out[t] = t
	}
	return out
}
