package location

import (
	"encoding/json"
	"fmt"
)

type TagChangeMode string

const (
	TagModeAdd    TagChangeMode = "add"
	TagModeDelete TagChangeMode = "delete"
	TagModeChange TagChangeMode = "change"
)

// TagChange is a single tag edit. Content is one value for add and delete,
// and an [old, new] pair for change.
type TagChange struct {
	Mode    TagChangeMode `json:"mode"`
	Content TagContent    `json:"content"`
}

// TagContent holds either a single value or an old/new pair.
type TagContent struct {
	Value  string
	Old    string
	New    string
	IsPair bool
}

func Single(v string) TagContent { return TagContent{Value: v} }

func Pair(old, updated string) TagContent { return TagContent{Old: old, New: updated, IsPair: true} }

func (c TagContent) MarshalJSON() ([]byte, error) {
	if c.IsPair {
		return json.Marshal([]string{c.Old, c.New})
	}
	return json.Marshal(c.Value)
}

func (c *TagContent) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*c = Single(single)
		return nil
	}
	var pair []string
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("tag content must be a string or a [old, new] pair")
	}
	if len(pair) != 2 {
		return fmt.Errorf("tag change pair needs 2 values, got %d", len(pair))
	}
	*c = Pair(pair[0], pair[1])
	return nil
}
