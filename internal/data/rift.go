package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Point is a world coordinate in data files.
type Point struct {
	X int32 `yaml:"x"`
	Y int32 `yaml:"y"`
	Z int32 `yaml:"z"`
}

// RiftSpawn places Count copies of an NPC template in a room.
type RiftSpawn struct {
	NpcID int32 `yaml:"npc_id"`
	Count int   `yaml:"count"`
	Loc   Point `yaml:"loc"`
}

// RiftRoomInfo is one room of a rift type.
type RiftRoomInfo struct {
	Room     byte        `yaml:"room"`
	Bounds   Bounds      `yaml:"bounds"`
	Teleport Point       `yaml:"teleport"`
	Boss     bool        `yaml:"boss"`
	Spawns   []RiftSpawn `yaml:"spawns"`
}

// RiftTypeInfo groups the rooms of one rift type.
type RiftTypeInfo struct {
	Type  byte           `yaml:"type"`
	Name  string         `yaml:"name"`
	Rooms []RiftRoomInfo `yaml:"rooms"`
}

// RiftData is the whole rift layout.
type RiftData struct {
	WaitingRoom Point          `yaml:"waiting_room"`
	Types       []RiftTypeInfo `yaml:"types"`
}

// LoadRiftRooms loads the rift layout.
func LoadRiftRooms(path string) (*RiftData, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rift_rooms: %w", err)
	}
	var d RiftData
	if err := yaml.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("parse rift_rooms: %w", err)
	}
	for _, t := range d.Types {
		seen := make(map[byte]bool, len(t.Rooms))
		for _, r := range t.Rooms {
			if seen[r.Room] {
				return nil, fmt.Errorf("parse rift_rooms: type %d room %d defined twice", t.Type, r.Room)
			}
			seen[r.Room] = true
		}
	}
	return &d, nil
}
