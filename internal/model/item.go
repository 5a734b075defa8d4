package model

import "encoding/json"

// Item is one stockable unit variant of a product, e.g. AQUA-DUS and AQUA-PCS
// both belong to base product AQUA-1L.
type Item struct {
	Code        string  `json:"code" validate:"required"`
	Name        string  `json:"name"`
	Unit        string  `json:"unit" validate:"required"`
	Stock       float64 `json:"stock" validate:"finite,gte=0"`
	BaseProduct string  `json:"baseProduct"`

	// Extra holds fields owned by the import pipeline (price, category, ...).
	// They are written back untouched when the collection is persisted.
	Extra map[string]json.RawMessage `json:"-" validate:"-"`
}

var itemFields = []string{"code", "name", "unit", "stock", "baseProduct"}

type plainItem Item

func (i *Item) UnmarshalJSON(data []byte) error {
	var p plainItem
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, key := range itemFields {
		delete(raw, key)
	}

	p.Extra = nil
	if len(raw) > 0 {
		p.Extra = raw
	}
	*i = Item(p)
	return nil
}

func (i Item) MarshalJSON() ([]byte, error) {
	known, err := json.Marshal(plainItem(i))
	if err != nil || len(i.Extra) == 0 {
		return known, err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(known, &fields); err != nil {
		return nil, err
	}
	merged := make(map[string]json.RawMessage, len(i.Extra)+len(fields))
	for k, v := range i.Extra {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return json.Marshal(merged)
}
