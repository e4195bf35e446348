// internal/errors/cli_test.go
package errors

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/primedigitaltech/azon-seeker/internal/utils"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"config", utils.NewError(utils.ErrCodeInvalidConfig, "bad").Build(), ExitConfig},
		{"wrapped config", fmt.Errorf("load: %w", utils.NewError(utils.ErrCodeInvalidConfig, "bad").Build()), ExitConfig},
		{"config text", fmt.Errorf("configuration file not found: x.yaml"), ExitConfig},
		{"remote", utils.NewError(utils.ErrCodeRemoteTimeout, "slow").Build(), ExitBrowser},
		{"page", utils.NewError(utils.ErrCodePageNotLoaded, "blank").Build(), ExitPage},
		{"export", utils.NewError(utils.ErrCodeExportFailed, "502").Build(), ExitOutput},
		{"input", utils.NewError(utils.ErrCodeInvalidInput, "empty").Build(), ExitInput},
		{"busy", utils.NewError(utils.ErrCodeWorkerBusy, "busy").Build(), ExitBusy},
		{"cancelled", context.Canceled, ExitCancelled},
		{"other", fmt.Errorf("boom"), ExitGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		title string
	}{
		{"config", utils.NewError(utils.ErrCodeInvalidConfig, "bad").Build(), "Configuration Error"},
		{"yaml text", fmt.Errorf("yaml: line 2: mapping values are not allowed"), "Configuration Error"},
		{"store", utils.NewError(utils.ErrCodeStoreFailed, "locked").Build(), "Records Not Saved"},
		{"browser", fmt.Errorf("dial tcp 127.0.0.1:9222: connection refused"), "Browser Unavailable"},
		{"unknown", fmt.Errorf("boom"), "Unexpected Error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.title, Describe(tt.err).Title)
		})
	}
	assert.Empty(t, Describe(nil).Title)
}

func TestFormatForCLI(t *testing.T) {
	err := utils.NewError(utils.ErrCodeInvalidInput, "no inputs given").Build()

	out := FormatForCLI(err, false)
	assert.Contains(t, out, "Invalid Input")
	assert.Contains(t, out, "Suggestions:")
	assert.NotContains(t, out, "Technical details")

	out = FormatForCLI(err, true)
	assert.Contains(t, out, "Technical details: INVALID_INPUT: no inputs given")

	out = FormatForCLI(fmt.Errorf(`unknown command "serch"`), false)
	assert.Contains(t, out, `Technical details: unknown command "serch"`)

	assert.Empty(t, FormatForCLI(nil, true))
}
