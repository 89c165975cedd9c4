// Package webrtc establishes the direct channel with pion. Link implements
// channel.Link: descriptions and candidates travel as the JSON forms browsers
// use, and the single ordered data channel becomes a channel.Channel.
package webrtc

import (
	"github.com/BioHazard786/warplink/internal/config"
	"github.com/BioHazard786/warplink/internal/utils"
	pion "github.com/pion/webrtc/v4"
)

// ChannelLabel names the data channel the initiator creates.
const ChannelLabel = "chat"

// detectRelay is replaced in tests.
var detectRelay = utils.ShouldForceRelay

// Configuration builds the ICE configuration from cfg. Relay-only transport
// is used when it is forced, or when the host looks tunnelled, and only if a
// TURN server is available.
func Configuration(cfg *config.Config) pion.Configuration {
	var iceServers []pion.ICEServer
	if stun := cfg.GetSTUNServers(); stun != nil {
		iceServers = append(iceServers, pion.ICEServer{URLs: stun})
	}

	turnServers := cfg.GetTURNServers()
	if turnServers != nil {
		username, password := cfg.GetTURNCredentials()
		iceServers = append(iceServers, pion.ICEServer{
			URLs:       turnServers,
			Username:   username,
			Credential: password,
		})
	}

	policy := pion.ICETransportPolicyAll
	if turnServers != nil && (cfg.ForceRelay || detectRelay()) {
		policy = pion.ICETransportPolicyRelay
	}

	return pion.Configuration{
		ICEServers:         iceServers,
		ICETransportPolicy: policy,
	}
}
