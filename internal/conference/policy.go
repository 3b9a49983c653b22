package conference

import "fmt"

// HostPolicy decides what happens to the host role when the host disconnects.
type HostPolicy string

const (
	// HostPolicyNone leaves the conference without a host until a creator or admin rejoins.
	HostPolicyNone HostPolicy = "none"
	// HostPolicyNextJoined promotes the earliest-joined remaining participant.
	HostPolicyNextJoined HostPolicy = "next-joined"
)

// ParseHostPolicy parses a policy name; the empty string means HostPolicyNone.
func ParseHostPolicy(s string) (HostPolicy, error) {
	switch HostPolicy(s) {
	case "", HostPolicyNone:
		return HostPolicyNone, nil
	case HostPolicyNextJoined:
		return HostPolicyNextJoined, nil
	}
	return "", fmt.Errorf("unknown host policy %q", s)
}

// successor returns the member to promote, or nil.
func (p HostPolicy) successor(reg *registry) *member {
	if p != HostPolicyNextJoined {
		return nil
	}
	for _, m := range reg.order {
		if m.p.IsHost {
			return nil
		}
	}
	if len(reg.order) == 0 {
		return nil
	}
	return reg.order[0]
}
