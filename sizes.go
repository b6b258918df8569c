package sequencer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/zkceremony/sequencer/ceremony"
)

// DefaultSizes is the default ceremony configuration: four shards sized for
// successive powers of two of G1 powers with 65 G2 powers each.
const DefaultSizes = "4096,65:8192,65:16384,65:32768,65"

// ParseSizes parses a shard size list of the form
// "G1_POWERS,G2_POWERS[:G1_POWERS,G2_POWERS]*". Every shard must satisfy
// numG1 >= numG2 >= 2.
func ParseSizes(s string) ([]ceremony.ShardSize, error) {
	var sizes []ceremony.ShardSize
	for _, part := range strings.Split(s, ":") {
		fields := strings.Split(part, ",")
		if len(fields) != 2 {
			return nil, fmt.Errorf("invalid shard size %q, want G1,G2", part)
		}
		n1, err := strconv.Atoi(strings.TrimSpace(fields[0]))
		if err != nil {
			return nil, fmt.Errorf("invalid G1 count in %q: %v", part, err)
		}
		n2, err := strconv.Atoi(strings.TrimSpace(fields[1]))
		if err != nil {
			return nil, fmt.Errorf("invalid G2 count in %q: %v", part, err)
		}
		if n1 < 2 || n2 < 2 || n1 < n2 {
			return nil, fmt.Errorf("invalid shard sizes (%d, %d): need G1 >= G2 >= 2", n1, n2)
		}
		sizes = append(sizes, ceremony.ShardSize{NumG1: n1, NumG2: n2})
	}
	return sizes, nil
}
