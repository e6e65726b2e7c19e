package export

import (
	"context"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/orizon-lang/memtrace/internal/transport"
)

func pushRemote(opts RemoteOptions, files []string) error {
	pusher := transport.NewPusher(opts.Transport)
	defer pusher.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	for _, f := range files {
		body, err := os.ReadFile(f)
		if err != nil {
			return err
		}

		contentType := mime.TypeByExtension(filepath.Ext(f))
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		if err := pusher.Push(ctx, opts.URL, contentType, body); err != nil {
			return err
		}
	}

	return nil
}
