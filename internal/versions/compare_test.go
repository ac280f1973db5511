package versions

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsNewerVersion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		candidate string
		current   string
		expected  bool
	}{
		{name: "newer minor", candidate: "0.5.0", current: "0.4.2", expected: true},
		{name: "newer patch", candidate: "0.4.3", current: "0.4.2", expected: true},
		{name: "older", candidate: "0.3.9", current: "0.4.0", expected: false},
		{name: "equal", candidate: "1.0.0", current: "1.0.0", expected: false},
		{name: "v prefix", candidate: "v1.1.0", current: "1.0.0", expected: true},
		{name: "release after prerelease", candidate: "1.0.0", current: "1.0.0-rc.1", expected: true},
		{name: "prerelease before release", candidate: "1.0.0-rc.1", current: "1.0.0", expected: false},
		{name: "dev candidate", candidate: "dev", current: "1.0.0", expected: false},
		{name: "dev current", candidate: "1.0.0", current: "dev", expected: false},
		{name: "empty candidate", candidate: "", current: "1.0.0", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, IsNewerVersion(tt.candidate, tt.current))
		})
	}
}
