package indexer

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// writeBatchFile writes one absolute path per line to a uniquely-named
// temp file, the newline-delimited input format the parser's batch
// commands expect (spec §6.1). The returned cleanup removes the file.
func writeBatchFile(assets []discoveredAsset) (string, func(), error) {
	var b strings.Builder
	for _, a := range assets {
		b.WriteString(a.AbsPath)
		b.WriteByte('\n')
	}

	path := filepath.Join(os.TempDir(), "ueassetindex-batch-"+uuid.NewString()+".txt")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", func() {}, err
	}
	return path, func() { os.Remove(path) }, nil
}
