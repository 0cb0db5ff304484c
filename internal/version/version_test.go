package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckConfig(t *testing.T) {
	tests := []struct {
		name          string
		configVersion string
		expectedComp  bool
		expectedCfg   string
		expectedMsg   string
	}{
		{
			name:         "no version",
			expectedComp: true,
		},
		{
			name:          "same version",
			configVersion: Version,
			expectedComp:  true,
			expectedCfg:   "v" + Version,
		},
		{
			name:          "older major",
			configVersion: "0.0.1",
			expectedComp:  true,
			expectedCfg:   "v0.0.1",
		},
		{
			name:          "newer major",
			configVersion: "1.2.0",
			expectedComp:  false,
			expectedCfg:   "v1.2.0",
			expectedMsg:   "Config written for v1.2.0, running v" + Version,
		},
		{
			name:          "prerelease",
			configVersion: "0.2.0-rc.1",
			expectedComp:  true,
			expectedCfg:   "v0.2.0-rc.1",
		},
		{
			name:          "unparseable",
			configVersion: "latest",
			expectedComp:  false,
			expectedCfg:   "unknown",
			expectedMsg:   `Unable to parse config version "latest"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CheckConfig(tt.configVersion)

			assert.Equal(t, tt.expectedComp, result.Compatible)
			assert.Equal(t, "v"+Version, result.Current)
			assert.Equal(t, tt.expectedCfg, result.ConfigVersion)
			assert.Equal(t, tt.expectedMsg, result.Message)
		})
	}
}

func TestCurrent(t *testing.T) {
	v := Current()
	assert.NotNil(t, v)
	assert.Equal(t, Version, v.String())
	assert.Equal(t, Version, String())
}
