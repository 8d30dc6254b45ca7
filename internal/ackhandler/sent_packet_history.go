package ackhandler

import (
	"fmt"
	"slices"

	"github.com/quivertx/quiver-go/internal/protocol"
)

// sentPacketHistory is a dense list of sent packets, sorted by packet number.
// Packets are almost always inserted in ascending order, making insertion O(1);
// lookups are O(log n). Out-of-order insertions and removals find their
// position in O(log n) and then shift the following elements.
type sentPacketHistory struct {
	packets []*Packet
}

func comparePacketNumber(p *Packet, pn protocol.PacketNumber) int {
	switch {
	case p.PacketNumber < pn:
		return -1
	case p.PacketNumber > pn:
		return 1
	default:
		return 0
	}
}

// Insert adds a packet to the history.
// Inserting a packet number that is already present is a programming error.
func (h *sentPacketHistory) Insert(p *Packet) error {
	if n := len(h.packets); n == 0 || h.packets[n-1].PacketNumber < p.PacketNumber {
		h.packets = append(h.packets, p)
		return nil
	}
	i, found := slices.BinarySearchFunc(h.packets, p.PacketNumber, comparePacketNumber)
	if found {
		return fmt.Errorf("sentPacketHistory BUG: packet %d already registered", p.PacketNumber)
	}
	h.packets = slices.Insert(h.packets, i, p)
	return nil
}

// Get returns the packet with the given packet number, or nil.
func (h *sentPacketHistory) Get(pn protocol.PacketNumber) *Packet {
	i, found := slices.BinarySearchFunc(h.packets, pn, comparePacketNumber)
	if !found {
		return nil
	}
	return h.packets[i]
}

// Remove removes the packet with the given packet number.
func (h *sentPacketHistory) Remove(pn protocol.PacketNumber) error {
	i, found := slices.BinarySearchFunc(h.packets, pn, comparePacketNumber)
	if !found {
		return fmt.Errorf("packet %d not found in sent packet history", pn)
	}
	h.packets = slices.Delete(h.packets, i, i+1)
	return nil
}

// Packets returns all tracked packets in ascending packet number order.
// The returned slice must not be modified while iterating.
func (h *sentPacketHistory) Packets() []*Packet {
	return h.packets
}

func (h *sentPacketHistory) Len() int {
	return len(h.packets)
}

// Clear drops all tracked packets.
func (h *sentPacketHistory) Clear() {
	h.packets = nil
}
