package world

// ZoneID identifies a zone flag a creature can be inside. A creature keeps
// one counter per flag because overlapping zones may set the same flag.
type ZoneID uint8

const (
	ZonePVP            ZoneID = iota // arena, siege during combat
	ZonePeace                        // towns, safe areas
	ZoneSiege                        // castle siege area
	ZoneMotherTree                   // elf village regen
	ZoneClanHall                     // clan hall
	ZoneNoLanding                    // no wyvern landing
	ZoneWater                        // swimming
	ZoneJail                         // jail
	ZoneMonsterTrack                 // monster race track
	ZoneCastle                       // castle grounds
	ZoneSwamp                        // slow movement
	ZoneNoSummonFriend               // summon friend blocked
	ZoneNoStore                      // private store blocked
	ZoneNoPVP                        // explicit no-PvP
	ZoneTown                         // town
	ZoneScript                       // scripted area
	ZoneHQ                           // siege headquarters
	ZoneDangerArea                   // shows the danger icon
	ZoneAltered                      // inside an effect zone
	ZoneNoBookmark                   // bookmarks blocked
	ZoneNoItemDrop                   // item drop blocked
	ZoneNoRestart                    // restart blocked

	ZoneIDCount
)
