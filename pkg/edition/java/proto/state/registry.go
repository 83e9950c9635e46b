package state

import (
	"fmt"
	"reflect"

	"go.minekube.com/limbo/pkg/edition/java/proto/version"
	"go.minekube.com/limbo/pkg/gate/proto"
)

// Registry stores server/client bound packets of a connection state.
type Registry struct {
	State
	ServerBound *PacketRegistry
	ClientBound *PacketRegistry
}

// NewRegistry returns an empty registry for the state.
func NewRegistry(state State) *Registry {
	return &Registry{
		State:       state,
		ServerBound: NewPacketRegistry(proto.ServerBound),
		ClientBound: NewPacketRegistry(proto.ClientBound),
	}
}

// PacketRegistry stores the packets of each protocol version sent in one direction.
type PacketRegistry struct {
	Direction proto.Direction                      // The direction the registered packets are sent to.
	Protocols map[proto.Protocol]*ProtocolRegistry // The protocol versions.
	// Whether to fall back to the minimum protocol version
	// in case a protocol could not be found.
	Fallback bool
}

// NewPacketRegistry returns a registry with an empty ProtocolRegistry per supported version.
func NewPacketRegistry(direction proto.Direction) *PacketRegistry {
	r := &PacketRegistry{
		Direction: direction,
		Protocols: make(map[proto.Protocol]*ProtocolRegistry, len(version.SupportedVersions)),
		Fallback:  true,
	}
	for _, ver := range version.SupportedVersions {
		r.Protocols[ver.Protocol] = &ProtocolRegistry{
			Protocol:    ver.Protocol,
			PacketIDs:   map[proto.PacketID]proto.PacketType{},
			PacketTypes: map[proto.PacketType]proto.PacketID{},
		}
	}
	return r
}

// ProtocolRegistry gets the ProtocolRegistry for a protocol.
// Returns nil if not found and Fallback is disabled.
func (p *PacketRegistry) ProtocolRegistry(protocol proto.Protocol) *ProtocolRegistry {
	r := p.Protocols[protocol]
	if r == nil && p.Fallback {
		return p.Protocols[version.MinimumVersion.Protocol]
	}
	return r
}

// ProtocolRegistry stores packets of a protocol version.
type ProtocolRegistry struct {
	Protocol    proto.Protocol                      // The protocol version of the registered packets.
	PacketIDs   map[proto.PacketID]proto.PacketType // Gets packet type by packet id.
	PacketTypes map[proto.PacketType]proto.PacketID // Gets packet id by packet type.
}

// PacketID gets the packet id by the registered packet type.
func (r *ProtocolRegistry) PacketID(of proto.Packet) (id proto.PacketID, found bool) {
	id, found = r.PacketTypes[proto.TypeOf(of)]
	return
}

// CreatePacket returns a new zero valued instance of the type
// of the mapped packet id or nil if not found.
func (r *ProtocolRegistry) CreatePacket(id proto.PacketID) proto.Packet {
	packetType, ok := r.PacketIDs[id]
	if !ok {
		return nil
	}
	p, _ := reflect.New(packetType).Interface().(proto.Packet)
	return p
}

// Register maps the packet type to ids. Each mapping applies from its protocol
// up to the protocol of the next mapping (exclusive), the last one up to the
// maximum version. Mappings must be ordered by protocol.
// Register panics on conflicting registrations.
func (p *PacketRegistry) Register(packetOf proto.Packet, mappings ...*PacketMapping) {
	packetType := proto.TypeOf(packetOf)
	for i, current := range mappings {
		to := version.MaximumVersion.Protocol + 1
		if i < len(mappings)-1 {
			to = mappings[i+1].Protocol
		}
		if current.Protocol >= to {
			panic(fmt.Sprintf("mapping %s of %T must be lower than the next mapping %s",
				current.Protocol, packetOf, to))
		}
		for _, ver := range version.SupportedVersions {
			if ver.Protocol < current.Protocol || ver.Protocol >= to {
				continue
			}
			registry := p.Protocols[ver.Protocol]
			if _, ok := registry.PacketIDs[current.ID]; ok {
				panic(fmt.Sprintf("can not register packet type %T with id %s for "+
					"protocol %s because another packet is already registered", packetOf, current.ID, ver.Protocol))
			}
			if _, ok := registry.PacketTypes[packetType]; ok {
				panic(fmt.Sprintf("%T is already registered for protocol %s", packetOf, ver.Protocol))
			}
			registry.PacketIDs[current.ID] = packetType
			registry.PacketTypes[packetType] = current.ID
		}
	}
}

// FromDirection returns the ProtocolRegistry of the state for the direction and protocol.
func FromDirection(direction proto.Direction, state *Registry, protocol proto.Protocol) *ProtocolRegistry {
	if direction == proto.ServerBound {
		return state.ServerBound.ProtocolRegistry(protocol)
	}
	return state.ClientBound.ProtocolRegistry(protocol)
}

// PacketMapping maps a packet id starting at a protocol version.
type PacketMapping struct {
	ID       proto.PacketID
	Protocol proto.Protocol
}

func m(id proto.PacketID, version *proto.Version) *PacketMapping {
	return &PacketMapping{
		ID:       id,
		Protocol: version.Protocol,
	}
}
