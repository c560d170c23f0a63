package apiclient

import (
	"bytes"
	"encoding/json"
)

// List is the one container shape consumers see. The API answers either
// with a bare JSON array or with a paginated {"count","next","results"}
// envelope; both decode into Items.
type List[T any] struct {
	Items []T
	Count int
	Next  string
}

func (l *List[T]) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '[' {
		var items []T
		if err := json.Unmarshal(b, &items); err != nil {
			return err
		}
		*l = List[T]{Items: items, Count: len(items)}
		return nil
	}

	var env struct {
		Count   *int    `json:"count"`
		Next    *string `json:"next"`
		Results []T     `json:"results"`
	}
	if err := json.Unmarshal(b, &env); err != nil {
		return err
	}
	out := List[T]{Items: env.Results, Count: len(env.Results)}
	if env.Count != nil {
		out.Count = *env.Count
	}
	if env.Next != nil {
		out.Next = *env.Next
	}
	if out.Items == nil {
		out.Items = []T{}
	}
	*l = out
	return nil
}
