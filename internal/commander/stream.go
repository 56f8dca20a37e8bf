package commander

import (
	"context"
	"errors"
	"io"
	"log"
)

// Stream copies r into a byte channel from its own goroutine so that the
// owner loop can select on input alongside its control ticker. The channel
// closes on EOF, on a read error, or when ctx is done.
func Stream(ctx context.Context, r io.Reader) <-chan byte {
	out := make(chan byte, 64)
	go func() {
		defer close(out)
		buf := make([]byte, 64)
		for {
			n, err := r.Read(buf)
			for _, b := range buf[:n] {
				select {
				case out <- b:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				if !errors.Is(err, io.EOF) {
					log.Printf("commander: read: %v", err)
				}
				return
			}
		}
	}()
	return out
}

// Serve feeds every byte of r into c until r ends, ctx is done, or Ctrl-C
// arrives. Only for callers that own no other loop.
func Serve(ctx context.Context, c *Commander, r io.Reader) error {
	in := Stream(ctx, r)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case b, ok := <-in:
			if !ok {
				return nil
			}
			if err := c.HandleByte(b); err != nil {
				return err
			}
		}
	}
}
