package composite

import (
	"fmt"
	"math"
	"strings"

	"clipforge/internal/overlay"
	"clipforge/internal/settings"
)

// EncodeOptions selects the x264 settings for a render pass.
type EncodeOptions struct {
	Preset string
	CRF    int
}

const anchorMargin = 10

// positionExpr maps an anchor to an overlay filter position expression.
func positionExpr(anchor settings.Anchor) string {
	switch anchor {
	case settings.AnchorTopLeft:
		return fmt.Sprintf("%d:%d", anchorMargin, anchorMargin)
	case settings.AnchorTopRight:
		return fmt.Sprintf("main_w-overlay_w-%d:%d", anchorMargin, anchorMargin)
	case settings.AnchorBottomLeft:
		return fmt.Sprintf("%d:main_h-overlay_h-%d", anchorMargin, anchorMargin)
	case settings.AnchorCenter:
		return "(main_w-overlay_w)/2:(main_h-overlay_h)/2"
	default: // bottom right
		return fmt.Sprintf("main_w-overlay_w-%d:main_h-overlay_h-%d", anchorMargin, anchorMargin)
	}
}

// escapeDrawText escapes a literal for use inside a drawtext filter.
func escapeDrawText(text string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`,
		`'`, `\'`,
		`:`, `\:`,
		`%`, `\%`,
	)
	return replacer.Replace(text)
}

func formatSeconds(v float64) string {
	return fmt.Sprintf("%.3f", v)
}

// BuildWindowArgs assembles the full ffmpeg argument list that renders one
// window of the composite into outputPath. Layers whose enable window does
// not intersect the window are omitted entirely.
func BuildWindowArgs(spec *Spec, window Window, opts EncodeOptions, outputPath string) ([]string, error) {
	if spec.BasePath == "" {
		return nil, fmt.Errorf("composite spec has no base video")
	}
	if window.Length <= 0 {
		return nil, fmt.Errorf("window length must be positive")
	}

	args := []string{"-hide_banner", "-loglevel", "error", "-y"}

	// Base input, seeked to the window. When the window reaches past the end
	// of the base video the last frame is cloned to fill the remainder.
	baseStart := window.Offset
	padDuration := 0.0
	baseTake := window.Length
	if spec.BaseDuration > 0 {
		if baseStart >= spec.BaseDuration {
			baseStart = math.Max(0, spec.BaseDuration-0.1)
			baseTake = spec.BaseDuration - baseStart
			padDuration = window.Length
		} else if remaining := spec.BaseDuration - baseStart; remaining < window.Length {
			baseTake = remaining
			padDuration = window.Length - remaining
		}
	}
	if baseStart > 0 {
		args = append(args, "-ss", formatSeconds(baseStart))
	}
	args = append(args, "-t", formatSeconds(baseTake), "-i", spec.BasePath)

	var filters []string
	if padDuration > 0.001 {
		filters = append(filters, fmt.Sprintf("[0:v]tpad=stop_mode=clone:stop_duration=%s[base]", formatSeconds(padDuration)))
	} else {
		filters = append(filters, "[0:v]null[base]")
	}

	current := "[base]"
	inputIndex := 1
	overlayCount := 0

	for _, layer := range spec.Layers {
		if layer == nil {
			continue
		}

		// Enable window in chunk-local time.
		start := layer.StartTime - window.Offset
		end := layer.EffectiveEnd(spec.BaseDuration) - window.Offset
		if start < 0 {
			start = 0
		}
		if end > window.Length {
			end = window.Length
		}
		if end <= 0 || start >= window.Length {
			continue
		}

		if layer.Kind == overlay.KindText {
			next := fmt.Sprintf("[v%d]", overlayCount)
			filters = append(filters, fmt.Sprintf(
				"%sdrawtext=text='%s':fontcolor=white@%.2f:fontsize=h/20:x=w-tw-%d:y=h-th-%d:enable='between(t,%s,%s)'%s",
				current, escapeDrawText(layer.Text), layer.Opacity,
				anchorMargin, anchorMargin,
				formatSeconds(start), formatSeconds(end), next))
			current = next
			overlayCount++
			continue
		}

		// Input arguments for the layer asset.
		switch layer.Kind {
		case overlay.KindImage:
			args = append(args, "-loop", "1", "-i", layer.AssetPath)
		case overlay.KindVideo:
			if seek := window.Offset - layer.StartTime; seek > 0 {
				args = append(args, "-ss", formatSeconds(seek))
			}
			args = append(args, "-i", layer.AssetPath)
		}

		// Per-layer filter chain.
		var chain []string
		if layer.Kind == overlay.KindVideo && layer.SizePercent > 0 && spec.Height > 0 {
			targetHeight := int(float64(spec.Height)*layer.SizePercent/100 + 0.5)
			chain = append(chain, fmt.Sprintf("scale=-2:%d", targetHeight))
		}
		if layer.Chroma != nil {
			chain = append(chain, fmt.Sprintf("colorkey=%s:%.4f:0.0", layer.Chroma.Hex(), layer.Chroma.Similarity))
		}
		chain = append(chain, "format=rgba")
		if layer.Opacity > 0 && layer.Opacity < 1 {
			chain = append(chain, fmt.Sprintf("colorchannelmixer=aa=%.2f", layer.Opacity))
		}
		if layer.Kind == overlay.KindVideo {
			chain = append(chain, fmt.Sprintf("setpts=PTS-STARTPTS+%s/TB", formatSeconds(start)))
		}

		layerLabel := fmt.Sprintf("[l%d]", inputIndex)
		filters = append(filters, fmt.Sprintf("[%d:v]%s%s", inputIndex, strings.Join(chain, ","), layerLabel))

		next := fmt.Sprintf("[v%d]", overlayCount)
		overlayFilter := fmt.Sprintf("%s%soverlay=%s:enable='between(t,%s,%s)'",
			current, layerLabel, positionExpr(layer.Position),
			formatSeconds(start), formatSeconds(end))
		if layer.Kind == overlay.KindVideo {
			overlayFilter += ":eof_action=pass"
		}
		filters = append(filters, overlayFilter+next)

		current = next
		inputIndex++
		overlayCount++
	}

	// Replacement audio, seeked to the same window.
	audioMap := []string{"-map", "0:a?"}
	if spec.ReplacementAudioPath != "" {
		if window.Offset > 0 {
			args = append(args, "-ss", formatSeconds(window.Offset))
		}
		args = append(args, "-t", formatSeconds(window.Length), "-i", spec.ReplacementAudioPath)
		audioMap = []string{"-map", fmt.Sprintf("%d:a", inputIndex)}
	}

	finalLabel := current
	args = append(args, "-filter_complex", strings.Join(filters, ";"))
	args = append(args, "-map", finalLabel)
	args = append(args, audioMap...)
	args = append(args,
		"-c:v", "libx264",
		"-preset", opts.Preset,
		"-crf", fmt.Sprintf("%d", opts.CRF),
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-t", formatSeconds(window.Length),
		outputPath,
	)
	return args, nil
}
