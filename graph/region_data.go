package graph

import "github.com/aukilabs/sowilo/models"

// RegionData stores the graph record of every section of a region, indexed
// by local index.
//
// It has a single writer and a single traversal reader, both on the frame
// thread.
type RegionData struct {
	nodes  [models.RegionSize]Node
	loaded int
}

// Set records the graph data of a built section. FlagLoaded is always added.
func (d *RegionData) Set(index models.LocalIndex, connections Connections, flags NodeFlags) {
	if d.nodes[index].IsEmpty() {
		d.loaded++
	}
	d.nodes[index] = Pack(connections, flags|FlagLoaded)
}

// Clear removes the graph data of a section.
func (d *RegionData) Clear(index models.LocalIndex) {
	if !d.nodes[index].IsEmpty() {
		d.loaded--
	}
	d.nodes[index] = Empty()
}

func (d *RegionData) Get(index models.LocalIndex) Node {
	return d.nodes[index]
}

// Count returns the number of sections with graph data.
func (d *RegionData) Count() int {
	return d.loaded
}
