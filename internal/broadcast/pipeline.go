// Package broadcast fans finished content out to recipient channels.
//
// Delivery is best-effort and degrade-and-continue: failures on one
// channel never affect another, and photo delivery falls through an
// ordered list of strategies (album → individual sends → caption as text)
// until one succeeds or all are exhausted. Nothing here returns an error
// to the caller; outcomes are visible in the logs.
package broadcast

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"estatebot/internal/gateway"
	"estatebot/pkg/logx"
)

const (
	// MaxMessageLen is the platform's per-message text limit.
	MaxMessageLen = 4096
	// MaxCaptionLen is the platform's photo caption limit.
	MaxCaptionLen = 1024
	// MaxBatch is the platform's grouped-media size limit.
	MaxBatch = 10
)

// Image is one outbound picture. FileID, when present, is preferred: it
// resends the platform's own copy without re-fetching the URL.
type Image struct {
	URL    string
	FileID string
}

type Config struct {
	RatePerSec   int
	PartDelay    time.Duration
	ChunkDelay   time.Duration
	FetchRetries int
	FetchTimeout time.Duration
}

type Pipeline struct {
	sender gateway.Sender
	fetch  ImageFetcher

	limiter    *rate.Limiter
	partDelay  time.Duration
	chunkDelay time.Duration
	log        logx.Logger
}

// New builds a pipeline. fetch may be nil, in which case an HTTP fetcher
// with the configured retry budget is used.
func New(cfg Config, sender gateway.Sender, fetch ImageFetcher, log logx.Logger) *Pipeline {
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 10
	}
	partDelay := cfg.PartDelay
	if partDelay <= 0 {
		partDelay = 500 * time.Millisecond
	}
	chunkDelay := cfg.ChunkDelay
	if chunkDelay <= 0 {
		chunkDelay = time.Second
	}
	if fetch == nil {
		fetch = NewHTTPFetcher(cfg.FetchTimeout, cfg.FetchRetries, log)
	}
	return &Pipeline{
		sender:     sender,
		fetch:      fetch,
		limiter:    rate.NewLimiter(rate.Limit(rps), rps),
		partDelay:  partDelay,
		chunkDelay: chunkDelay,
		log:        log,
	}
}

// Text delivers text to every channel independently. Messages over the
// platform limit are split on line boundaries and sent as ordered parts.
func (p *Pipeline) Text(ctx context.Context, channels []string, text string) {
	if len(channels) == 0 {
		p.log.Warn("text broadcast with no target channels")
		return
	}
	for _, ch := range channels {
		if err := p.textTo(ctx, ch, text); err != nil {
			p.log.Error("text delivery failed", logx.String("channel", ch), logx.Err(err))
		}
	}
}

// Images delivers an ordered image sequence with a caption to every
// channel independently, degrading per channel through the fallback tiers.
func (p *Pipeline) Images(ctx context.Context, channels []string, images []Image, caption string) {
	if len(channels) == 0 {
		p.log.Warn("image broadcast with no target channels")
		return
	}
	caption = clipRunes(caption, MaxCaptionLen)
	for i, ch := range channels {
		if i > 0 {
			p.sleep(ctx, p.chunkDelay)
		}
		p.imagesTo(ctx, ch, images, caption)
	}
}

// strategy is one delivery tier for a single channel.
type strategy struct {
	name string
	run  func() error
}

// runFallback tries strategies in order until one succeeds.
func (p *Pipeline) runFallback(ch string, tiers []strategy) {
	for i, t := range tiers {
		err := t.run()
		if err == nil {
			if i > 0 {
				p.log.Info("delivery degraded", logx.String("channel", ch), logx.String("tier", t.name))
			}
			return
		}
		p.log.Warn("delivery tier failed",
			logx.String("channel", ch),
			logx.String("tier", t.name),
			logx.Err(err))
	}
	p.log.Error("all delivery tiers exhausted", logx.String("channel", ch))
}

func (p *Pipeline) imagesTo(ctx context.Context, ch string, images []Image, caption string) {
	if len(images) == 0 {
		p.runFallback(ch, []strategy{
			{"caption-text", func() error { return p.textTo(ctx, ch, caption) }},
		})
		return
	}

	individual := strategy{"individual", func() error { return p.sendIndividually(ctx, ch, images, caption) }}
	captionText := strategy{"caption-text", func() error { return p.textTo(ctx, ch, caption) }}

	if len(images) <= 2 {
		p.runFallback(ch, []strategy{individual, captionText})
		return
	}
	grouped := strategy{"grouped", func() error { return p.sendGrouped(ctx, ch, images, caption) }}
	p.runFallback(ch, []strategy{grouped, individual, captionText})
}

// sendGrouped sends the images as grouped-media messages of at most
// MaxBatch each. Only the first chunk carries the caption.
func (p *Pipeline) sendGrouped(ctx context.Context, ch string, images []Image, caption string) error {
	for i, chunk := range chunkImages(images, MaxBatch) {
		if i > 0 {
			p.sleep(ctx, p.chunkDelay)
		}
		media := p.resolve(ctx, chunk)
		if len(media) == 0 {
			return fmt.Errorf("chunk %d: no images survived fetching", i)
		}
		chunkCaption := ""
		if i == 0 {
			chunkCaption = caption
		}
		if err := p.wait(ctx); err != nil {
			return err
		}
		if err := p.sender.SendAlbum(ctx, ch, media, chunkCaption); err != nil {
			return fmt.Errorf("chunk %d: %w", i, err)
		}
	}
	return nil
}

// sendIndividually sends images one by one; the first delivered image
// carries the caption. A failure before anything was delivered fails the
// tier; later failures only drop that image.
func (p *Pipeline) sendIndividually(ctx context.Context, ch string, images []Image, caption string) error {
	sent := 0
	for i, img := range images {
		media, ok := p.resolveOne(ctx, img)
		if !ok {
			continue
		}
		imgCaption := ""
		if sent == 0 {
			imgCaption = caption
		}
		if err := p.wait(ctx); err != nil {
			return err
		}
		if err := p.sender.SendPhoto(ctx, ch, media, imgCaption); err != nil {
			if sent == 0 {
				return fmt.Errorf("image %d: %w", i, err)
			}
			p.log.Warn("image dropped", logx.String("channel", ch), logx.Int("index", i), logx.Err(err))
			continue
		}
		sent++
		if i < len(images)-1 {
			p.sleep(ctx, p.partDelay)
		}
	}
	if sent == 0 {
		return errors.New("no images delivered")
	}
	return nil
}

func (p *Pipeline) textTo(ctx context.Context, ch string, text string) error {
	parts := SplitMessage(text, MaxMessageLen)
	for i, part := range parts {
		if i > 0 {
			p.sleep(ctx, p.partDelay)
		}
		if err := p.wait(ctx); err != nil {
			return err
		}
		if err := p.sender.SendText(ctx, ch, part, nil); err != nil {
			return fmt.Errorf("part %d/%d: %w", i+1, len(parts), err)
		}
	}
	return nil
}

// resolve maps images to sendable media, dropping any whose fetch budget
// is exhausted.
func (p *Pipeline) resolve(ctx context.Context, images []Image) []gateway.Media {
	out := make([]gateway.Media, 0, len(images))
	for _, img := range images {
		if m, ok := p.resolveOne(ctx, img); ok {
			out = append(out, m)
		}
	}
	return out
}

func (p *Pipeline) resolveOne(ctx context.Context, img Image) (gateway.Media, bool) {
	if img.FileID != "" {
		return gateway.Media{FileID: img.FileID}, true
	}
	if img.URL == "" {
		return gateway.Media{}, false
	}
	data, err := p.fetch.Fetch(ctx, img.URL)
	if err != nil {
		p.log.Warn("image dropped after fetch retries", logx.String("url", img.URL), logx.Err(err))
		return gateway.Media{}, false
	}
	return gateway.Media{Data: data}, true
}

func (p *Pipeline) wait(ctx context.Context) error {
	if p.limiter == nil {
		return nil
	}
	return p.limiter.Wait(ctx)
}

func (p *Pipeline) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

func chunkImages(images []Image, size int) [][]Image {
	var chunks [][]Image
	for len(images) > size {
		chunks = append(chunks, images[:size])
		images = images[size:]
	}
	return append(chunks, images)
}
