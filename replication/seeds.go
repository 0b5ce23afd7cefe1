package replication

import (
	"fmt"
	"net"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// SeedList is the on-disk bootstrap peer list, grounded on p2p/seeds's
// registry concept but simplified to the static-fallback shape since the
// core has no DNS-authority signing story (spec.md is silent on seed
// distribution beyond "bootstrap peers").
type SeedList struct {
	Seeds []SeedEntry `yaml:"seeds"`
}

// SeedEntry is one statically configured bootstrap peer.
type SeedEntry struct {
	NodeID  string `yaml:"nodeId"`
	Address string `yaml:"address"`
}

// LoadSeedList reads and validates a YAML seed list from path.
func LoadSeedList(path string) (*SeedList, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var list SeedList
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// Addresses returns the validated "host:port" strings from the seed list,
// silently dropping malformed entries (mirroring p2p/pex.go's
// parseSeedList tolerance for bad config lines).
func (l *SeedList) Addresses() []string {
	out := make([]string, 0, len(l.Seeds))
	seen := make(map[string]struct{})
	for _, s := range l.Seeds {
		addr := strings.TrimSpace(s.Address)
		if addr == "" {
			continue
		}
		if _, _, err := net.SplitHostPort(addr); err != nil {
			fmt.Printf("replication: ignoring seed %q: invalid address: %v\n", addr, err)
			continue
		}
		if _, dup := seen[addr]; dup {
			continue
		}
		seen[addr] = struct{}{}
		out = append(out, addr)
	}
	return out
}
