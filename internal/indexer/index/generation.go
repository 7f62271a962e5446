package index

import (
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Generation identifies the exact contents of a corpus. Two indexes holding
// the same documents share a Generation regardless of insertion order.
type Generation struct {
	DocCount    int    `json:"doc_count"`
	Fingerprint uint64 `json:"fingerprint"`
}

func (g Generation) String() string {
	return fmt.Sprintf("%d-%016x", g.DocCount, g.Fingerprint)
}

// documentHash feeds the corpus fingerprint. Hashes are summed, so the
// fingerprint does not depend on insertion order.
func documentHash(doc Document) uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(strconv.Itoa(doc.ID))
	_, _ = d.Write([]byte{0})
	_, _ = d.WriteString(doc.Text)
	return d.Sum64()
}
