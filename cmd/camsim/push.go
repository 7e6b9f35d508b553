package main

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"os/signal"
	"syscall"
	"time"

	"camrelay/client"

	"github.com/mattn/go-mjpeg"
	"github.com/spf13/cobra"
)

func pushCmd() *cobra.Command {
	var (
		source string
		fps    int
		count  int
	)

	cmd := &cobra.Command{
		Use:   "push",
		Short: "Push frames from an MJPEG source or a generated test pattern",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			c := newClient()
			if source != "" {
				return relaySource(ctx, c, source, count)
			}
			return pushPattern(ctx, c, fps, count)
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "upstream MJPEG URL to relay")
	cmd.Flags().IntVar(&fps, "fps", 10, "test pattern frame rate")
	cmd.Flags().IntVar(&count, "count", 0, "stop after this many frames (0 = forever)")
	return cmd
}

// relaySource forwards raw JPEGs from an upstream MJPEG stream unchanged.
func relaySource(ctx context.Context, c *client.Client, source string, count int) error {
	dec, err := mjpeg.NewDecoderFromURL(source)
	if err != nil {
		return err
	}

	for sent := 0; count == 0 || sent < count; sent++ {
		if ctx.Err() != nil {
			return nil
		}

		frame, err := dec.DecodeRaw()
		if err != nil {
			return err
		}

		if err := c.PushFrame(ctx, frame); err != nil {
			fmt.Println("push failed:", err)
		}
	}
	return nil
}

func pushPattern(ctx context.Context, c *client.Client, fps, count int) error {
	if fps <= 0 {
		fps = 1
	}

	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	for sent := 0; count == 0 || sent < count; sent++ {
		frame, err := patternFrame(sent)
		if err != nil {
			return err
		}

		if err := c.PushFrame(ctx, frame); err != nil {
			fmt.Println("push failed:", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
	return nil
}

// patternFrame renders a moving bar so consecutive frames differ.
func patternFrame(n int) ([]byte, error) {
	const w, h = 320, 240
	img := image.NewRGBA(image.Rect(0, 0, w, h))

	bar := (n * 8) % w
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.RGBA{R: 20, G: 20, B: 20, A: 255}
			if x >= bar && x < bar+16 {
				c = color.RGBA{R: 0, G: 200, B: 80, A: 255}
			}
			img.Set(x, y, c)
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 75}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
