package realtime

import (
	"fmt"
	"strings"

	"github.com/pion/webrtc/v3"
)

var iceSchemes = []string{"stun:", "stuns:", "turn:", "turns:"}

// ICEServers builds the STUN/TURN list sent to clients in hello. Credentials only apply
// to TURN urls.
func ICEServers(urls []string, username, credential string) ([]webrtc.ICEServer, error) {
	var stun, turn []string
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		ok := false
		for _, s := range iceSchemes {
			if strings.HasPrefix(u, s) {
				ok = true
				break
			}
		}
		if !ok {
			return nil, fmt.Errorf("ice server %q: unsupported scheme", u)
		}
		if strings.HasPrefix(u, "turn") {
			turn = append(turn, u)
		} else {
			stun = append(stun, u)
		}
	}
	var servers []webrtc.ICEServer
	if len(stun) > 0 {
		servers = append(servers, webrtc.ICEServer{URLs: stun})
	}
	if len(turn) > 0 {
		if username == "" || credential == "" {
			return nil, fmt.Errorf("turn servers need a username and credential")
		}
		servers = append(servers, webrtc.ICEServer{
			URLs:           turn,
			Username:       username,
			Credential:     credential,
			CredentialType: webrtc.ICECredentialTypePassword,
		})
	}
	return servers, nil
}
