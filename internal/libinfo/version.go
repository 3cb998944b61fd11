/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package libinfo reports the version of the gatekeeper module the binary was built from.
package libinfo

import (
	"debug/buildinfo"
	"regexp"
	"runtime/debug"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const moduleName = "github.com/wildcardbot/gatekeeper"

// PrometheusVersionLabel is a const label added to the dispatch metrics.
const PrometheusVersionLabel = "gatekeeper_version"

const unknownVersion = "v0.0.0"

// AddPrometheusVersionLabel returns a copy of labels with the version label added.
func AddPrometheusVersionLabel(labels prometheus.Labels) prometheus.Labels {
	labelsCopy := make(prometheus.Labels, len(labels)+1)
	for k, v := range labels {
		labelsCopy[k] = v
	}
	labelsCopy[PrometheusVersionLabel] = GetVersion()
	return labelsCopy
}

// UserAgent returns "<product>/<version>".
func UserAgent(product string) string {
	return product + "/" + GetVersion()
}

var version string
var versionOnce sync.Once

// GetVersion returns the module version or v0.0.0 when it is unknown (e.g. "(devel)" builds).
func GetVersion() string {
	versionOnce.Do(func() {
		if buildInfo, ok := debug.ReadBuildInfo(); ok {
			version = extractVersion(buildInfo, moduleName)
		}
		if version == "" {
			version = unknownVersion
		}
	})
	return version
}

// extractVersion looks for the module either as the main module (the bot binary itself)
// or as a dependency in the form "moduleName" or "moduleName/vX".
func extractVersion(buildInfo *buildinfo.BuildInfo, modName string) string {
	if buildInfo == nil {
		return ""
	}
	re, err := regexp.Compile(`^` + regexp.QuoteMeta(modName) + `(/v[0-9]+)?$`)
	if err != nil {
		return ""
	}
	if re.MatchString(buildInfo.Main.Path) && buildInfo.Main.Version != "(devel)" {
		return buildInfo.Main.Version
	}
	for _, dep := range buildInfo.Deps {
		if re.MatchString(dep.Path) {
			return dep.Version
		}
	}
	return ""
}
