package sharefile

import (
	"encoding/json"
	"strings"
)

// ItemKind tags the normalized shape of a remote item.
type ItemKind string

const (
	ItemFolder  ItemKind = "folder"
	ItemFile    ItemKind = "file"
	ItemUnknown ItemKind = "unknown"
)

// Item is the normalized view of a ShareFile item. The remote API
// returns differently-shaped payloads for the same logical concept, so
// normalization happens once here at the boundary and the token
// lifecycle code never sees raw payloads.
type Item struct {
	Kind      ItemKind `json:"kind"`
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	SizeBytes int64    `json:"sizeBytes,omitempty"`
	FileCount int      `json:"fileCount,omitempty"`
}

// NormalizeItems parses an /Items response body. Both the collection
// shape ({"value": [...]}) and a single item object are accepted.
func NormalizeItems(body []byte) ([]Item, error) {
	var envelope struct {
		Value []json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Value != nil {
		items := make([]Item, 0, len(envelope.Value))
		for _, raw := range envelope.Value {
			items = append(items, normalizeItem(raw))
		}
		return items, nil
	}

	var single map[string]json.RawMessage
	if err := json.Unmarshal(body, &single); err != nil {
		return nil, err
	}
	return []Item{normalizeItem(body)}, nil
}

func normalizeItem(raw json.RawMessage) Item {
	var fields struct {
		OdataType     string `json:"odata.type"`
		ID            string `json:"Id"`
		Name          string `json:"Name"`
		FileSizeBytes *int64 `json:"FileSizeBytes"`
		FileCount     *int   `json:"FileCount"`
	}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Item{Kind: ItemUnknown}
	}

	item := Item{Kind: ItemUnknown, ID: fields.ID, Name: fields.Name}
	switch {
	case strings.HasSuffix(fields.OdataType, ".Folder"), fields.FileCount != nil:
		item.Kind = ItemFolder
		if fields.FileCount != nil {
			item.FileCount = *fields.FileCount
		}
	case strings.HasSuffix(fields.OdataType, ".File"), fields.FileSizeBytes != nil:
		item.Kind = ItemFile
		if fields.FileSizeBytes != nil {
			item.SizeBytes = *fields.FileSizeBytes
		}
	}
	return item
}
