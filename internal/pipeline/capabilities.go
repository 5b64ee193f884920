package pipeline

import (
	"os/exec"
	"strings"

	"clipforge/internal/config"
)

// Capability reports whether one external dependency is usable.
type Capability struct {
	Name      string
	Available bool
	Detail    string
}

// Capabilities probes the external tools and provider credentials the
// pipeline depends on. It never fails; missing pieces are reported, not
// fatal, because fallback chains may still cover them.
func Capabilities(cfg *config.Config) []Capability {
	out := []Capability{
		lookBinary("ffmpeg", cfg.Tools.FFmpegBinary),
		lookBinary("ffprobe", cfg.Tools.FFprobeBinary),
		lookBinary("whisper", cfg.Tools.WhisperBinary),
	}

	if strings.TrimSpace(cfg.Providers.OpenAIAPIKey) != "" {
		out = append(out, Capability{Name: "openai", Available: true, Detail: "API key configured"})
	} else {
		out = append(out, Capability{Name: "openai", Available: false, Detail: "no API key, paid fallbacks disabled"})
	}
	return out
}

func lookBinary(name, binary string) Capability {
	if binary == "" {
		binary = name
	}
	path, err := exec.LookPath(binary)
	if err != nil {
		return Capability{Name: name, Available: false, Detail: binary + " not found in PATH"}
	}
	return Capability{Name: name, Available: true, Detail: path}
}
