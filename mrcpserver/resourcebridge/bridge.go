// Package resourcebridge adapts mrcp/resources' per-channel state machines
// to mrcpserver.ChannelHandlerFactory, the seam where spec.md's C9 resource
// plugin layer attaches to the C7 session orchestrator — mirroring how the
// original wires mrcp_state_machine_t instances in per channel through
// mrcp_server_channel_t (original_source/libs/mrcp-server/src/
// mrcp_server_session.c's channel creation path).
package resourcebridge

import (
	"github.com/unimrcp-go/core/mrcp"
	"github.com/unimrcp-go/core/mrcp/resources"
	"github.com/unimrcp-go/core/mrcpserver"
)

// StateMachineFactory builds the per-channel state machine for a
// newly-added channel of the given resource, e.g.
// resources.NewSynthesizerStateMachine or resources.NewRecognizerStateMachine.
type StateMachineFactory func(version mrcp.Version, resource *mrcp.Resource) *resources.StateMachine

// Bridge implements mrcpserver.ChannelHandlerFactory over a registry of
// per-resource-name state-machine factories, handing each newly added
// channel its own StateMachine instance — one per channel, never shared,
// since RFC 6787 state (SPEAKING/RECOGNIZING/...) is channel-scoped.
type Bridge struct {
	version   mrcp.Version
	registry  *mrcp.Registry
	factories map[string]StateMachineFactory
}

// New creates a Bridge that resolves resources from registry and builds
// state machines at version.
func New(version mrcp.Version, registry *mrcp.Registry) *Bridge {
	return &Bridge{version: version, registry: registry, factories: make(map[string]StateMachineFactory)}
}

// Register associates resourceName with the factory used to build its
// channels' state machines.
func (b *Bridge) Register(resourceName string, factory StateMachineFactory) {
	b.factories[resourceName] = factory
}

// ChannelHandlerFactory returns the mrcpserver.ChannelHandlerFactory this
// Bridge implements, for NewServer's channelHandlers parameter.
func (b *Bridge) ChannelHandlerFactory() mrcpserver.ChannelHandlerFactory {
	return func(sessionID, resourceName string) mrcpserver.ChannelMessageHandler {
		factory, ok := b.factories[resourceName]
		if !ok {
			return nil
		}
		res, ok := b.registry.ByName(resourceName)
		if !ok {
			return nil
		}
		return &channelHandler{sm: factory(b.version, res)}
	}
}

// channelHandler adapts one resources.StateMachine to
// mrcpserver.ChannelMessageHandler.
type channelHandler struct {
	sm *resources.StateMachine
}

// HandleMessage implements mrcpserver.ChannelMessageHandler, dispatching a
// request through the state machine. Only requests arrive through this
// path (spec.md §4.7); responses/events the resource's own asynchronous
// work produces are correlated via HandleResponse/HandleEvent elsewhere and
// never reach here.
func (h *channelHandler) HandleMessage(message *mrcp.Message) *mrcp.Message {
	if message.StartLine.Kind != mrcp.KindRequest {
		return nil
	}
	return h.sm.HandleRequest(message)
}
