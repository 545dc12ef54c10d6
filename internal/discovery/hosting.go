package discovery

import (
	"strings"

	"gopkg.in/ini.v1"
)

// hostingSection is the bracketed section a hosting tool writes into the
// repository config, e.g.
//
//	[gitlab]
//	    fullpath = group/subgroup/project
const hostingSection = "gitlab"

// HostingMeta is platform metadata derived from repository configuration
type HostingMeta struct {
	Name     string // last path segment of FullPath
	FullPath string
}

// parseHostingMeta reads the resolved git config file and extracts the
// hosting-platform section, if any. Parse failures are treated as "no
// metadata": the config may be absent or hand-mangled, and discovery must
// not fail on it.
func parseHostingMeta(configPath string) HostingMeta {
	cfg, err := ini.LoadSources(ini.LoadOptions{
		Insensitive:             true,
		SkipUnrecognizableLines: true,
	}, configPath)
	if err != nil {
		return HostingMeta{}
	}

	section, err := cfg.GetSection(hostingSection)
	if err != nil {
		return HostingMeta{}
	}

	fullPath := strings.TrimSpace(section.Key("fullpath").String())
	if fullPath == "" {
		return HostingMeta{}
	}

	name := fullPath
	if idx := strings.LastIndex(fullPath, "/"); idx >= 0 {
		name = fullPath[idx+1:]
	}

	return HostingMeta{Name: name, FullPath: fullPath}
}
