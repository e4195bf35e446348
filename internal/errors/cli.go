// internal/errors/cli.go - error presentation for the command line
package errors

import (
	"fmt"
	"strings"

	"github.com/primedigitaltech/azon-seeker/internal/utils"
)

// Exit codes
const (
	ExitOK        = 0
	ExitGeneral   = 1
	ExitConfig    = 2
	ExitBrowser   = 3
	ExitPage      = 4
	ExitOutput    = 5
	ExitInput     = 6
	ExitBusy      = 7
	ExitCancelled = 130
)

// Friendly describes the problem in err for a person at a terminal
type Friendly struct {
	Title       string
	Message     string
	Suggestions []string
}

// Describe converts err to a Friendly description. Structured errors are
// described by code; other errors by their text.
func Describe(err error) Friendly {
	if err == nil {
		return Friendly{}
	}

	switch utils.CodeOf(err) {
	case utils.ErrCodeInvalidConfig:
		return Friendly{
			Title:   "Configuration Error",
			Message: "The configuration file could not be used.",
			Suggestions: []string{
				"Check YAML indentation (use spaces, not tabs)",
				"Run `azon-seeker validate <file>` to list every problem",
				"Print a working file with `azon-seeker config`",
			},
		}
	case utils.ErrCodeRemoteTimeout, utils.ErrCodeRemoteFailed:
		return Friendly{
			Title:   "Browser Not Responding",
			Message: "A script injected into the browser tab did not answer in time.",
			Suggestions: []string{
				"Make sure Chrome is running with remote debugging enabled",
				"Increase executor.timeout in the configuration",
			},
		}
	case utils.ErrCodeNavigationFailed, utils.ErrCodePageNotLoaded:
		return Friendly{
			Title:   "Page Not Loaded",
			Message: "The product page did not finish loading.",
			Suggestions: []string{
				"Solve any captcha shown in the browser window",
				"Increase polling.max_rounds in the configuration",
			},
		}
	case utils.ErrCodeExtractionFailed, utils.ErrCodePatternUnknown:
		return Friendly{
			Title:       "Unexpected Page Layout",
			Message:     "The page did not match any known layout.",
			Suggestions: []string{"The site may have changed its markup; check the page by hand"},
		}
	case utils.ErrCodeCommitFailed, utils.ErrCodeExportFailed, utils.ErrCodeStoreFailed:
		return Friendly{
			Title:   "Records Not Saved",
			Message: "Collected records could not be written; they stay buffered for the next commit.",
			Suggestions: []string{
				"Check the storage DSN and that the database is reachable",
				"Check the export base URL or the workbook path",
			},
		}
	case utils.ErrCodeInvalidInput:
		return Friendly{
			Title:       "Invalid Input",
			Message:     "The given keywords, ids or links cannot be used.",
			Suggestions: []string{"Pass at least one non-empty input", "Check that links belong to the selected site"},
		}
	case utils.ErrCodeWorkerBusy:
		return Friendly{
			Title:       "Worker Busy",
			Message:     "The site worker is already running a task.",
			Suggestions: []string{"Wait for the running task or stop it first"},
		}
	case utils.ErrCodeContextCanceled:
		return Friendly{Title: "Cancelled", Message: "The operation was interrupted."}
	}

	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "context canceled"):
		return Friendly{Title: "Cancelled", Message: "The operation was interrupted."}
	case strings.Contains(errStr, "configuration"), strings.Contains(errStr, "yaml"):
		return Describe(utils.WrapError(err, utils.ErrCodeInvalidConfig, "configuration"))
	case strings.Contains(errStr, "connection refused"), strings.Contains(errStr, "chrome"):
		return Friendly{
			Title:   "Browser Unavailable",
			Message: "Could not connect to or launch the browser.",
			Suggestions: []string{
				"Start Chrome with --remote-debugging-port=9222",
				"Check browser.remote_url in the configuration",
			},
		}
	}

	return Friendly{
		Title:   "Unexpected Error",
		Message: "An unexpected error occurred during the operation.",
		Suggestions: []string{
			"Try running the command again",
			"Run with --debug for detailed logs",
		},
	}
}

// ExitCode returns the process exit code for err
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	switch utils.CodeOf(err) {
	case utils.ErrCodeInvalidConfig:
		return ExitConfig
	case utils.ErrCodeRemoteTimeout, utils.ErrCodeRemoteFailed:
		return ExitBrowser
	case utils.ErrCodeNavigationFailed, utils.ErrCodePageNotLoaded, utils.ErrCodeExtractionFailed, utils.ErrCodePatternUnknown:
		return ExitPage
	case utils.ErrCodeCommitFailed, utils.ErrCodeExportFailed, utils.ErrCodeStoreFailed:
		return ExitOutput
	case utils.ErrCodeInvalidInput:
		return ExitInput
	case utils.ErrCodeWorkerBusy:
		return ExitBusy
	case utils.ErrCodeContextCanceled:
		return ExitCancelled
	}

	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "context canceled"):
		return ExitCancelled
	case strings.Contains(errStr, "configuration"), strings.Contains(errStr, "yaml"):
		return ExitConfig
	}
	return ExitGeneral
}

// FormatForCLI renders err for stderr. Technical details are included when
// verbose is set or err carries no code.
func FormatForCLI(err error, verbose bool) string {
	if err == nil {
		return ""
	}
	f := Describe(err)

	var b strings.Builder
	fmt.Fprintf(&b, "Error: %s\n%s\n", f.Title, f.Message)
	if verbose || utils.CodeOf(err) == "" {
		fmt.Fprintf(&b, "\nTechnical details: %s\n", err.Error())
	}
	if len(f.Suggestions) > 0 {
		b.WriteString("\nSuggestions:\n")
		for _, s := range f.Suggestions {
			fmt.Fprintf(&b, "  - %s\n", s)
		}
	}
	return b.String()
}
