package push

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/falconops/pushhosts/internal/falcon"
)

// PutFileLister exposes the staged-file repository.
type PutFileLister interface {
	ListPutFiles(ctx context.Context) ([]falcon.PutFile, error)
}

// ResolvePutFile finds the staged file whose SHA-256 matches hash,
// case-insensitively, and returns it. The run must abort before issuing any
// remote command when no staged file matches.
func ResolvePutFile(ctx context.Context, lister PutFileLister, hash string) (falcon.PutFile, error) {
	files, err := lister.ListPutFiles(ctx)
	if err != nil {
		return falcon.PutFile{}, fmt.Errorf("list staged files: %w", err)
	}

	for _, f := range files {
		if strings.EqualFold(f.SHA256, hash) {
			log.Printf("Found staged file [%s] sha256 [%s], modified %s by %s",
				f.Name, f.SHA256, f.ModifiedTimestamp, f.ModifiedBy)
			return f, nil
		}
	}

	return falcon.PutFile{}, fmt.Errorf("no staged file found with sha256 %s; upload it to the put-file repository first", hash)
}
