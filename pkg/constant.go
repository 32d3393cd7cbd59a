package pkg

// enum of turn_type
type TurnType uint8

const (
	STRAIGHT_ON TurnType = iota
	SLIGHT_LEFT
	SLIGHT_RIGHT
	LEFT_TURN
	RIGHT_TURN
	SHARP_LEFT
	SHARP_RIGHT
	U_TURN
	NONE
)

const (
	INF_WEIGHT float64 = 1e15

	// tile hierarchy. level 0 is the coarsest tier.
	HIGHWAY_LEVEL  uint8 = 0
	ARTERIAL_LEVEL uint8 = 1
	LOCAL_LEVEL    uint8 = 2
	TRANSIT_LEVEL  uint8 = 3
)

type OsmHighwayType uint8

// road classification, ordered from most to least important.
// https://wiki.openstreetmap.org/wiki/OSM_tags_for_routing/Telenav
const (
	MOTORWAY       OsmHighwayType = 0
	TRUNK          OsmHighwayType = 1
	PRIMARY        OsmHighwayType = 2
	SECONDARY      OsmHighwayType = 3
	TERTIARY       OsmHighwayType = 4
	RESIDENTIAL    OsmHighwayType = 5
	SERVICE        OsmHighwayType = 6
	UNCLASSIFIED   OsmHighwayType = 7
	MOTORWAY_LINK  OsmHighwayType = 8
	TRUNK_LINK     OsmHighwayType = 9
	PRIMARY_LINK   OsmHighwayType = 10
	SECONDARY_LINK OsmHighwayType = 11
	TERTIARY_LINK  OsmHighwayType = 12
	LIVING_STREET  OsmHighwayType = 13
	ROAD           OsmHighwayType = 14
	TRACK          OsmHighwayType = 15
	MOTORROAD      OsmHighwayType = 16
	UNKNOWN        OsmHighwayType = 17
)

func GetHighwayType(roadType string) OsmHighwayType {
	switch roadType {
	case "motorway":
		return MOTORWAY
	case "trunk":
		return TRUNK
	case "primary":
		return PRIMARY
	case "secondary":
		return SECONDARY
	case "tertiary":
		return TERTIARY
	case "unclassified":
		return UNCLASSIFIED
	case "residential":
		return RESIDENTIAL
	case "service":
		return SERVICE
	case "motorway_link":
		return MOTORWAY_LINK
	case "trunk_link":
		return TRUNK_LINK
	case "primary_link":
		return PRIMARY_LINK
	case "secondary_link":
		return SECONDARY_LINK
	case "tertiary_link":
		return TERTIARY_LINK
	case "living_street":
		return LIVING_STREET
	case "road":
		return ROAD
	case "track":
		return TRACK
	case "motorroad":
		return MOTORROAD
	default:
		return UNKNOWN
	}
}

var highwayTypeNames = [...]string{
	"motorway", "trunk", "primary", "secondary", "tertiary", "residential", "service", "unclassified",
	"motorway_link", "trunk_link", "primary_link", "secondary_link", "tertiary_link", "living_street",
	"road", "track", "motorroad", "unknown",
}

func (h OsmHighwayType) String() string {
	if int(h) >= len(highwayTypeNames) {
		return "unknown"
	}
	return highwayTypeNames[h]
}
