// Package converter holds the encoder strategies media-mirror can drive.
//
// A Strategy decides, per source file, whether the file is byte-copied or
// run through an external encoder, and then performs that action. New
// backends are added by implementing Strategy and registering a constructor.
package converter

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/raoulx24/media-mirror/internal/fs"
)

// Kind is the action chosen for one source file.
type Kind int

const (
	Copy Kind = iota
	Encode
)

func (k Kind) String() string {
	switch k {
	case Copy:
		return "copy"
	case Encode:
		return "encode"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Action is a decision for one file. Flags are encoder arguments for Encode.
type Action struct {
	Kind  Kind
	Flags []string
	Note  string
}

type Strategy interface {
	// ProducedExtension is the extension of every destination file, with dot.
	ProducedExtension() string
	Decide(ctx context.Context, src string) (Action, error)
	Perform(ctx context.Context, action Action, src, dst string) error
}

type Options struct {
	FS     fs.FS
	Runner Runner
	// Executable overrides the encoder binary name or path.
	Executable string
}

func (o Options) withDefaults() Options {
	if o.FS == nil {
		o.FS = fs.New()
	}
	if o.Runner == nil {
		o.Runner = NewExecRunner()
	}
	return o
}

var constructors = map[string]func(Options) Strategy{
	"mencoder": func(o Options) Strategy { return NewMencoder(o) },
	"libav":    func(o Options) Strategy { return NewLibav(o) },
}

// New returns the strategy registered under name (case-insensitive).
func New(name string, opts Options) (Strategy, error) {
	ctor, ok := constructors[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("unknown converter %q (available: %s)", name, strings.Join(Names(), ", "))
	}
	return ctor(opts.withDefaults()), nil
}

// Names lists the registered converters.
func Names() []string {
	names := make([]string, 0, len(constructors))
	for n := range constructors {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// copyFile is the Copy action shared by every strategy.
func copyFile(ctx context.Context, f fs.FS, src, dst string) error {
	if err := f.CopyFile(ctx, src, dst); err != nil {
		return fmt.Errorf("copying %s: %w", src, err)
	}
	return nil
}
