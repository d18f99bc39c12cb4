package graph

import "github.com/aukilabs/sowilo/models"

const (
	connectionsMask = 0xFFFFFFFFFFFF // 48 bits
	flagsMask       = 0xFF           // 8 bits

	connectionsOffset = 0
	flagsOffset       = 48

	connectionLaneBits = 8
)

// Node is the packed graph record of a section: 48 bits of directional
// connectivity followed by 8 bits of flags.
//
// The zero value is reserved for "no data". Committed records always carry
// FlagLoaded, which keeps a loaded but fully opaque section distinguishable
// from an unloaded one.
type Node uint64

// Pack packs connections and flags into a node. Bits beyond the field widths
// are discarded.
func Pack(connections Connections, flags NodeFlags) Node {
	return Node(uint64(connections)&connectionsMask)<<connectionsOffset |
		Node(uint64(flags)&flagsMask)<<flagsOffset
}

// Empty returns the node that represents a section without graph data.
func Empty() Node {
	return 0
}

func (n Node) Connections() Connections {
	return Connections(uint64(n>>connectionsOffset) & connectionsMask)
}

func (n Node) Flags() NodeFlags {
	return NodeFlags(uint64(n>>flagsOffset) & flagsMask)
}

// IsEmpty reports whether the node holds no data. Traversal never goes
// through empty nodes.
func (n Node) IsEmpty() bool {
	return n == Empty()
}

// Connections is the 48-bit directional connectivity of a section. It is made
// of six 8-bit lanes, one per incoming direction, each holding the set of
// outgoing directions reachable after entering the section from that
// direction.
type Connections uint64

// ConnectionsAll returns connectivity where every direction reaches every
// other one, as for a section without opaque geometry.
func ConnectionsAll() Connections {
	var c Connections
	for from := models.Direction(0); from < models.DirectionCount; from++ {
		c = c.WithLane(from, models.DirectionsAll)
	}
	return c
}

// Lane returns the outgoing directions reachable from the given incoming
// direction.
func (c Connections) Lane(from models.Direction) models.DirectionSet {
	return models.DirectionSet(uint64(c)>>(uint(from)*connectionLaneBits)) & models.DirectionsAll
}

// WithLane returns a copy of the connectivity where the lane of the given
// incoming direction is replaced.
func (c Connections) WithLane(from models.Direction, to models.DirectionSet) Connections {
	shift := uint(from) * connectionLaneBits
	c &^= Connections(0xFF) << shift
	return c | Connections(to&models.DirectionsAll)<<shift
}

// SetConnected returns a copy of the connectivity where both directions can
// see each other. Connectivity is symmetric.
func (c Connections) SetConnected(a, b models.Direction) Connections {
	c = c.WithLane(a, c.Lane(a).With(b))
	return c.WithLane(b, c.Lane(b).With(a))
}

func (c Connections) IsConnected(from, to models.Direction) bool {
	return c.Lane(from).Contains(to)
}

// Outgoing returns the union of the outgoing directions reachable from any of
// the given incoming directions.
func (c Connections) Outgoing(incoming models.DirectionSet) models.DirectionSet {
	var outgoing models.DirectionSet
	for from := models.Direction(0); from < models.DirectionCount; from++ {
		if incoming.Contains(from) {
			outgoing |= c.Lane(from)
		}
	}
	return outgoing
}
