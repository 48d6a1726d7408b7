package converter

import (
	"context"
	"strings"

	"github.com/raoulx24/media-mirror/internal/pathmap"
)

// Mencoder produces xvid/mp3 AVI files. Sources that already are AVI are
// copied unchanged.
type Mencoder struct {
	opts Options
	bin  string
}

var mencoderFlags = []string{"-oac", "mp3lame", "-ovc", "xvid", "-xvidencopts", "fixed_quant=2", "-sws", "8"}

func NewMencoder(opts Options) *Mencoder {
	opts = opts.withDefaults()
	bin := opts.Executable
	if bin == "" {
		bin = "mencoder"
	}
	return &Mencoder{opts: opts, bin: bin}
}

func (m *Mencoder) ProducedExtension() string { return ".avi" }

func (m *Mencoder) Decide(_ context.Context, src string) (Action, error) {
	if strings.EqualFold(pathmap.Ext(src), m.ProducedExtension()) {
		return Action{Kind: Copy, Note: "already avi"}, nil
	}
	return Action{Kind: Encode, Flags: mencoderFlags}, nil
}

func (m *Mencoder) Perform(ctx context.Context, a Action, src, dst string) error {
	if a.Kind == Copy {
		return copyFile(ctx, m.opts.FS, src, dst)
	}

	argv := make([]string, 0, len(a.Flags)+4)
	argv = append(argv, m.bin, src)
	argv = append(argv, a.Flags...)
	argv = append(argv, "-o", dst)

	_, err := m.opts.Runner.Run(ctx, argv)
	return err
}
