package repository

import (
	"encoding/json"
	"fmt"

	"github.com/rpattn/billingapi/internal/schema"
)

// encodeProperties serializes the scalar fields of entity. Attached relations
// are never persisted.
func encodeProperties(desc *schema.Descriptor, entity any) ([]byte, error) {
	raw, err := json.Marshal(entity)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", desc.Name(), err)
	}
	relations := desc.Relations()
	if len(relations) == 0 {
		return raw, nil
	}

	var props map[string]json.RawMessage
	if err := json.Unmarshal(raw, &props); err != nil {
		return nil, fmt.Errorf("decode %s properties: %w", desc.Name(), err)
	}
	for _, rel := range relations {
		delete(props, rel.Name)
	}
	return json.Marshal(props)
}

// decodeProperties rebuilds a fresh entity of desc from stored properties.
func decodeProperties(desc *schema.Descriptor, data []byte) (any, error) {
	entity := desc.NewEntity()
	if err := json.Unmarshal(data, entity); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", desc.Name(), err)
	}
	return entity, nil
}
