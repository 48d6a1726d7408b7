package converter

import (
	"context"
	"regexp"
	"strings"

	"github.com/raoulx24/media-mirror/internal/pathmap"
)

// Libav produces h264/ac3 MP4 files with avconv, re-encoding only the
// streams that are not already in the wanted codec.
type Libav struct {
	opts Options
	bin  string
}

var (
	reH264 = regexp.MustCompile(`Video: h264`)
	reAC3  = regexp.MustCompile(`Audio: ac3`)

	libavGlobal      = []string{"-threads", "2"}
	libavVideoEncode = []string{"-vcodec", "libx264"}
	libavVideoCopy   = []string{"-vcodec", "copy"}
	libavAudioEncode = []string{"-acodec", "ac3", "-ab", "512k"}
	libavAudioCopy   = []string{"-acodec", "copy"}
)

func NewLibav(opts Options) *Libav {
	opts = opts.withDefaults()
	bin := opts.Executable
	if bin == "" {
		bin = "avconv"
	}
	return &Libav{opts: opts, bin: bin}
}

func (l *Libav) ProducedExtension() string { return ".mp4" }

// Decide probes the source with "avconv -i". avconv exits non-zero when no
// output is given, so only the printed stream info is used.
func (l *Libav) Decide(ctx context.Context, src string) (Action, error) {
	info, err := l.opts.Runner.Run(ctx, []string{l.bin, "-i", src})
	if err != nil && info == "" {
		return Action{}, err
	}
	if ctx.Err() != nil {
		return Action{}, ctx.Err()
	}
	return l.decideFromProbe(src, info), nil
}

func (l *Libav) decideFromProbe(src, info string) Action {
	video := reH264.MatchString(info)
	audio := reAC3.MatchString(info)

	if video && audio && strings.EqualFold(pathmap.Ext(src), l.ProducedExtension()) {
		return Action{Kind: Copy, Note: "codecs and container already match"}
	}

	flags := append([]string(nil), libavGlobal...)
	var note string
	switch {
	case video && audio:
		flags = append(append(flags, libavVideoCopy...), libavAudioCopy...)
		note = "remux"
	case video:
		flags = append(append(flags, libavVideoCopy...), libavAudioEncode...)
		note = "encode audio"
	case audio:
		flags = append(append(flags, libavVideoEncode...), libavAudioCopy...)
		note = "encode video"
	default:
		flags = append(append(flags, libavVideoEncode...), libavAudioEncode...)
		note = "encode all"
	}
	return Action{Kind: Encode, Flags: flags, Note: note}
}

func (l *Libav) Perform(ctx context.Context, a Action, src, dst string) error {
	if a.Kind == Copy {
		return copyFile(ctx, l.opts.FS, src, dst)
	}

	argv := make([]string, 0, len(a.Flags)+4)
	argv = append(argv, l.bin, "-i", src)
	argv = append(argv, a.Flags...)
	argv = append(argv, dst)

	_, err := l.opts.Runner.Run(ctx, argv)
	return err
}
