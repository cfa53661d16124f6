package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUnit_NextVersion(t *testing.T) {
	tests := []struct {
		current  string
		bumpType string
		want     string
		wantErr  bool
	}{
		{"v1.2.3", "patch", "v1.2.4", false},
		{"v1.2.3", "minor", "v1.3.0", false},
		{"v1.2.3", "major", "v2.0.0", false},
		{"v0.0.0", "patch", "v0.0.1", false},
		{"1.2.3", "patch", "", true},
		{"v1.2", "patch", "", true},
		{"v1.x.3", "patch", "", true},
		{"v1.2.3", "huge", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.current+"/"+tt.bumpType, func(t *testing.T) {
			got, err := nextVersion(tt.current, tt.bumpType)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestUnit_Ldflags(t *testing.T) {
	require.Equal(t, "-X github.com/contenox/pkgbot/apiframework.version=v1.0.0", ldflags("v1.0.0"))
}
