// Package pipeline runs a batch of client.SignIdentity values through
// four bounded stages — split, sign, assemble, collect — exactly as
// the stand-alone signing client does: split reads and segments each
// file, sign ships segments to the server's data plane, assemble
// writes the signed result back over the original file, and collect
// tallies successes and failures. A failure recorded on one identity
// never stops its siblings from completing their own stages.
package pipeline

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/keyforge-project/keyforge/client"
	"github.com/keyforge-project/keyforge/internal/logger"
)

// FileHandler is the subset of a file-format handler the pipeline
// needs: split a file into the segments its remote key signs, and
// write the finished signature(s) back into (or alongside) the file.
type FileHandler interface {
	SplitData(ctx context.Context, path string, options map[string]string) ([][]byte, error)
	AssembleData(ctx context.Context, path string, signatures [][]byte, options map[string]string) error
}

// HandlerFactory resolves the FileHandler for a client.FileType.
type HandlerFactory interface {
	Get(fileType client.FileType) (FileHandler, error)
}

// Signer dispatches one already-split segment to the server and
// returns its signature.
type Signer interface {
	Sign(ctx context.Context, keyType client.KeyType, keyID string, content []byte, options map[string]string) ([]byte, error)
}

// Pipeline wires a HandlerFactory and Signer together with a
// concurrency bound shared across all four stages.
type Pipeline struct {
	Factory     HandlerFactory
	Signer      Signer
	Concurrency int64
	Log         logger.Logger
}

// Result summarizes a completed batch.
type Result struct {
	Succeeded []*client.SignIdentity
	Failed    []*client.SignIdentity
}

func (p *Pipeline) concurrency() int64 {
	if p.Concurrency <= 0 {
		return 4
	}
	return p.Concurrency
}

// stage fans items from in through work with at most Concurrency
// in-flight at once, preserving no particular order, and returns a
// channel that closes once every item has passed through.
func (p *Pipeline) stage(ctx context.Context, in <-chan *client.SignIdentity, work func(context.Context, *client.SignIdentity)) <-chan *client.SignIdentity {
	out := make(chan *client.SignIdentity, cap(in))
	sem := semaphore.NewWeighted(p.concurrency())
	var wg sync.WaitGroup

	go func() {
		for item := range in {
			item := item
			if err := sem.Acquire(ctx, 1); err != nil {
				out <- item
				continue
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer sem.Release(1)
				work(ctx, item)
				out <- item
			}()
		}
		wg.Wait()
		close(out)
	}()

	return out
}

// Run drives items through split -> sign -> assemble -> collect and
// returns the partitioned outcome. It blocks until every identity has
// either completed or failed.
func (p *Pipeline) Run(ctx context.Context, items []*client.SignIdentity) Result {
	input := make(chan *client.SignIdentity, len(items))
	for _, item := range items {
		input <- item
	}
	close(input)

	split := p.stage(ctx, input, p.split)
	signed := p.stage(ctx, split, p.sign)
	assembled := p.stage(ctx, signed, p.assemble)

	var result Result
	for item := range assembled {
		if item.Failed() {
			p.logf(item, "sign failed", logger.Error(item.Err))
			result.Failed = append(result.Failed, item)
		} else {
			p.logf(item, "sign succeeded")
			result.Succeeded = append(result.Succeeded, item)
		}
	}
	return result
}

func (p *Pipeline) logf(item *client.SignIdentity, msg string, fields ...logger.Field) {
	if p.Log == nil {
		return
	}
	p.Log.Info(msg, append([]logger.Field{logger.String("file", item.FilePath)}, fields...)...)
}

// OptionsValidator is an optional FileHandler capability: a handler
// that rejects some sign option combinations (a checksum file only
// takes a detached signature, a kernel module already signed can't
// take one) implements it; a handler with no constraints doesn't.
type OptionsValidator interface {
	ValidateOptions(options map[string]string) error
}

func (p *Pipeline) split(ctx context.Context, item *client.SignIdentity) {
	if item.Failed() {
		return
	}
	handler, err := p.Factory.Get(item.FileType)
	if err != nil {
		item.Err = fmt.Errorf("pipeline: no handler for %s: %w", item.FileType, err)
		return
	}
	if validator, ok := handler.(OptionsValidator); ok {
		if err := validator.ValidateOptions(item.SignOptions); err != nil {
			item.Err = fmt.Errorf("pipeline: invalid options for %s: %w", item.FilePath, err)
			return
		}
	}
	content, err := handler.SplitData(ctx, item.FilePath, item.SignOptions)
	if err != nil {
		item.Err = fmt.Errorf("pipeline: split %s: %w", item.FilePath, err)
		return
	}
	item.RawContent = content
}

func (p *Pipeline) sign(ctx context.Context, item *client.SignIdentity) {
	if item.Failed() {
		return
	}
	signatures := make([][]byte, 0, len(item.RawContent))
	for _, segment := range item.RawContent {
		signature, err := p.Signer.Sign(ctx, item.KeyType, item.KeyID, segment, item.SignOptions)
		if err != nil {
			item.Err = fmt.Errorf("pipeline: sign %s: %w", item.FilePath, err)
			return
		}
		signatures = append(signatures, signature)
	}
	item.Signature = signatures
	item.RawContent = nil
}

func (p *Pipeline) assemble(ctx context.Context, item *client.SignIdentity) {
	if item.Failed() {
		return
	}
	handler, err := p.Factory.Get(item.FileType)
	if err != nil {
		item.Err = fmt.Errorf("pipeline: no handler for %s: %w", item.FileType, err)
		return
	}
	if err := handler.AssembleData(ctx, item.FilePath, item.Signature, item.SignOptions); err != nil {
		item.Err = fmt.Errorf("pipeline: assemble %s: %w", item.FilePath, err)
	}
}
