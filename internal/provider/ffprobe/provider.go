package ffprobe

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/Digital-Shane/catalog-tidy/internal/catalog"
	"github.com/Digital-Shane/catalog-tidy/internal/log"
	"github.com/Digital-Shane/catalog-tidy/internal/provider"
	"gopkg.in/vansante/go-ffprobe.v2"
)

const (
	providerName        = "ffprobe"
	defaultProbeTimeout = 30 * time.Second
)

// probeFunc defines the function signature used to execute ffprobe.
type probeFunc func(ctx context.Context, path string, extraOpts ...string) (*ffprobe.ProbeData, error)

// Prober reads technical stream details from media files.
type Prober struct {
	probe   probeFunc
	timeout time.Duration
	logger  *slog.Logger
}

// New creates a Prober that shells out to the ffprobe binary.
func New(logger *slog.Logger) *Prober {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Prober{
		probe:   ffprobe.ProbeURL,
		timeout: defaultProbeTimeout,
		logger:  log.NewComponentLogger(logger, providerName),
	}
}

// Probe returns stream details for the file at path.
func (p *Prober) Probe(ctx context.Context, path string) (*catalog.MediaInfo, error) {
	if path == "" {
		return nil, &provider.ProviderError{
			Provider: providerName,
			Code:     "MISSING_PATH",
			Message:  "ffprobe requires a non-empty file path",
			Retry:    false,
		}
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	data, err := p.probe(ctx, path)
	if err != nil {
		return nil, &provider.ProviderError{
			Provider: providerName,
			Code:     "PROBE_FAILED",
			Message:  fmt.Sprintf("ffprobe failed for %s: %v", path, err),
			Retry:    false,
		}
	}
	return buildMediaInfo(data), nil
}

// ProbeCatalog fills Episode.Media for every episode whose file lives under
// root. Failures are logged and leave the episode untouched. It returns the
// number of episodes probed successfully.
func (p *Prober) ProbeCatalog(ctx context.Context, cat *catalog.Catalog, root string) int {
	probed := 0
	cat.Episodes(func(show *catalog.Show, season *catalog.Season, episode *catalog.Episode) {
		if ctx.Err() != nil {
			return
		}
		path := filepath.Join(root, filepath.FromSlash(episode.Path))
		info, err := p.Probe(ctx, path)
		log.LogLookup(log.OpProbe, path, episode.ID, err == nil, err)
		if err != nil {
			p.logger.Warn("probe failed", "path", episode.Path, "error", err)
			return
		}
		episode.Media = info
		probed++
	})
	return probed
}

func buildMediaInfo(data *ffprobe.ProbeData) *catalog.MediaInfo {
	info := &catalog.MediaInfo{}
	if data == nil || data.Format == nil {
		return info
	}

	info.DurationSeconds = data.Format.DurationSeconds

	if videoStream := data.FirstVideoStream(); videoStream != nil {
		info.VideoCodec = pickCodecName(videoStream)
		if videoStream.Height > 0 {
			info.Resolution = fmt.Sprintf("%dp", videoStream.Height)
		}
	}

	if audioStream := data.FirstAudioStream(); audioStream != nil {
		info.AudioCodec = pickCodecName(audioStream)
	}

	return info
}

func pickCodecName(stream *ffprobe.Stream) string {
	if stream == nil {
		return ""
	}
	if stream.CodecName != "" {
		return stream.CodecName
	}
	return stream.CodecLongName
}
