package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ItemInfo holds the item template fields the ground/expiry layer needs.
type ItemInfo struct {
	ItemID int32  `yaml:"item_id"`
	Name   string `yaml:"name"`
	// Seconds an instance may lie on the ground; 0 = use the herb or
	// global default.
	AutoDestroyTime int `yaml:"auto_destroy_time"`
	// Herbs: consumed on pickup, expire on the short herb timer.
	ExImmediateEffect bool `yaml:"ex_immediate_effect"`
	// Minutes a limited-time item lives after creation; 0 = forever.
	LifeTime  int  `yaml:"life_time"`
	Stackable bool `yaml:"stackable"`
}

type itemListFile struct {
	Items []ItemInfo `yaml:"items"`
}

// ItemTable holds item templates indexed by ItemID.
type ItemTable struct {
	items map[int32]*ItemInfo
}

// Get returns the template for itemID, or nil.
func (t *ItemTable) Get(itemID int32) *ItemInfo {
	return t.items[itemID]
}

// Count returns the number of loaded templates.
func (t *ItemTable) Count() int {
	return len(t.items)
}

// LoadItemTable loads item templates from YAML.
func LoadItemTable(path string) (*ItemTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read item_list: %w", err)
	}
	var f itemListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse item_list: %w", err)
	}
	t := &ItemTable{items: make(map[int32]*ItemInfo, len(f.Items))}
	for i := range f.Items {
		it := &f.Items[i]
		if _, dup := t.items[it.ItemID]; dup {
			return nil, fmt.Errorf("parse item_list: duplicate item_id %d", it.ItemID)
		}
		t.items[it.ItemID] = it
	}
	return t, nil
}
