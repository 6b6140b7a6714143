package model

import "encoding/json"

// Reference is a single mood-board record. Apart from the server-assigned
// numeric id and addedAt stamp, its fields (image URL, note, tags, category,
// type) come from the client and are stored opaquely.
type Reference map[string]interface{}

// ID returns the numeric reference id if one is present. Decoded JSON
// numbers arrive as float64 or json.Number depending on the decoder.
func (r Reference) ID() (int64, bool) {
	v, ok := r["id"]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	case json.Number:
		id, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return id, true
	default:
		return 0, false
	}
}

// Board is the whole per-board document as persisted in the key-value
// store. Mutations are read-modify-write over the full document.
type Board struct {
	References       []Reference            `json:"references"`
	CustomCategories map[string]interface{} `json:"customCategories"`
	CreatedAt        string                 `json:"createdAt,omitempty"`
}

// NewBoard returns the empty default document handed out when nothing is
// stored for a board id.
func NewBoard() *Board {
	return &Board{
		References:       []Reference{},
		CustomCategories: map[string]interface{}{},
	}
}

// HasReference reports whether a reference with the given id exists.
func (b *Board) HasReference(id int64) bool {
	for _, ref := range b.References {
		if refID, ok := ref.ID(); ok && refID == id {
			return true
		}
	}
	return false
}
