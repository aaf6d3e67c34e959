// Package packet encodes the notification frames sent to observers.
package packet

// Server notification opcodes.
const (
	S_OPCODE_STATUS_UPDATE     byte = 0x0e // [D id][D hp][D maxhp][D mp][D maxmp][D cp][D maxcp]
	S_OPCODE_ETC_STATUS_UPDATE byte = 0xf9 // [D id][C danger][C altered]
	S_OPCODE_EARTHQUAKE        byte = 0xd3 // [D x][D y][D z][D intensity][D duration]
	S_OPCODE_NPC_HTML          byte = 0x19 // [D npc][S page]
	S_OPCODE_REMOVE_OBJECT     byte = 0x08 // [D id]
)
