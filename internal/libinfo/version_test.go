/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package libinfo

import (
	"debug/buildinfo"
	"runtime/debug"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestExtractVersion(t *testing.T) {
	tests := []struct {
		name        string
		buildInfo   *buildinfo.BuildInfo
		expectedVer string
	}{
		{
			name: "main module",
			buildInfo: &buildinfo.BuildInfo{
				Main: debug.Module{Path: moduleName, Version: "v1.4.0"},
			},
			expectedVer: "v1.4.0",
		},
		{
			name: "main module, devel build",
			buildInfo: &buildinfo.BuildInfo{
				Main: debug.Module{Path: moduleName, Version: "(devel)"},
			},
			expectedVer: "",
		},
		{
			name: "dependency",
			buildInfo: &buildinfo.BuildInfo{
				Main: debug.Module{Path: "example.com/bot"},
				Deps: []*debug.Module{{Path: moduleName, Version: "v1.2.3"}},
			},
			expectedVer: "v1.2.3",
		},
		{
			name: "dependency, v2",
			buildInfo: &buildinfo.BuildInfo{
				Deps: []*debug.Module{{Path: moduleName + "/v2", Version: "v2.0.0"}},
			},
			expectedVer: "v2.0.0",
		},
		{
			name: "module not found",
			buildInfo: &buildinfo.BuildInfo{
				Deps: []*debug.Module{{Path: "github.com/other/module", Version: "v1.0.0"}},
			},
			expectedVer: "",
		},
		{
			name:        "nil build info",
			expectedVer: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expectedVer, extractVersion(tt.buildInfo, moduleName))
		})
	}
}

func TestAddPrometheusVersionLabel(t *testing.T) {
	labels := prometheus.Labels{"instance": "bot-1"}
	got := AddPrometheusVersionLabel(labels)
	require.Equal(t, GetVersion(), got[PrometheusVersionLabel])
	require.Equal(t, "bot-1", got["instance"])
	require.Len(t, labels, 1)
}

func TestUserAgent(t *testing.T) {
	ua := UserAgent("wildcardbot")
	require.True(t, strings.HasPrefix(ua, "wildcardbot/v"), ua)
}
