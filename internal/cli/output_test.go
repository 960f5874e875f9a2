package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/assetsync/internal/asset"
	"github.com/roach88/assetsync/internal/engine"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	data := map[string]string{"result": "success"}
	err := formatter.Success(data)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Error(CodeAborted, "sync aborted", nil)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "error", resp.Status)
	assert.NotNil(t, resp.Error)
	assert.Equal(t, CodeAborted, resp.Error.Code)
	assert.Equal(t, "sync aborted", resp.Error.Message)
}

func TestOutputFormatter_JSONErrorWithDetails(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	details := map[string]string{"ref": "page://www/docs/intro", "line": "42"}
	err := formatter.Error(CodeDrift, "schema drift", details)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "error", resp.Status)
	assert.NotNil(t, resp.Error)
	assert.NotNil(t, resp.Error.Details)
}

func TestOutputFormatter_TextSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "text",
		Writer: buf,
	}

	err := formatter.Success("seeded 4 entities")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "seeded 4 entities")
}

func TestOutputFormatter_TextError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:  "text",
		Writer:  buf,
		Verbose: false,
	}

	err := formatter.Error(CodeAborted, "sync aborted", nil)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Error [ABORTED]")
	assert.Contains(t, buf.String(), "sync aborted")
}

func TestOutputFormatter_TextErrorVerbose(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:  "text",
		Writer:  buf,
		Verbose: true,
	}

	details := map[string]string{"ref": "page://www/docs/intro"}
	err := formatter.Error(CodeAborted, "sync aborted", details)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Error [ABORTED]")
	assert.Contains(t, buf.String(), "Details:")
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		wantLog bool
	}{
		{"verbose_enabled", true, true},
		{"verbose_disabled", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			formatter := &OutputFormatter{
				Format:  "text",
				Writer:  buf,
				Verbose: tt.verbose,
			}

			formatter.VerboseLog("Syncing %s", "page://www/docs/intro")

			if tt.wantLog {
				assert.Contains(t, buf.String(), "Syncing page://www/docs/intro")
			} else {
				assert.Empty(t, buf.String())
			}
		})
	}
}

func TestCLIResponse_JSON(t *testing.T) {
	resp := CLIResponse{
		Status: "ok",
		Data:   map[string]int{"count": 42},
	}

	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded CLIResponse
	err = json.Unmarshal(data, &decoded)
	require.NoError(t, err)
	assert.Equal(t, "ok", decoded.Status)
}

func TestCLIError_JSON(t *testing.T) {
	cliErr := CLIError{
		Code:    CodeFailed,
		Message: "validation failed",
		Details: []string{"no --db given"},
	}

	data, err := json.Marshal(cliErr)
	require.NoError(t, err)

	var decoded CLIError
	err = json.Unmarshal(data, &decoded)
	require.NoError(t, err)
	assert.Equal(t, CodeFailed, decoded.Code)
	assert.Equal(t, "validation failed", decoded.Message)
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad ref")))

	wrapped := fmt.Errorf("run: %w", WrapExitError(ExitFailure, "sync aborted", errors.New("boom")))
	assert.Equal(t, ExitFailure, GetExitCode(wrapped))
	assert.Equal(t, "run: sync aborted: boom", wrapped.Error())
}

func sampleReport() *engine.Report {
	r := engine.NewReport("run-1", asset.MustParseRef("container://www/docs"), engine.Strict)
	r.Add(asset.MustParseRef("container://www/docs"), engine.Created, "")
	r.Add(asset.MustParseRef("page://www/docs/intro"), engine.Failed, "not found in source")
	return r
}

func TestOutputFormatter_TextReport(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	runErr := engine.NewIdentityError(asset.MustParseRef("page://www/docs/intro"), "not found in source", nil)
	require.NoError(t, formatter.Report(sampleReport(), runErr))
	assert.Contains(t, buf.String(), "page://www/docs/intro")
	assert.Contains(t, buf.String(), "created=1 updated=0 unchanged=0 skipped=0 failed=1")
	assert.Contains(t, buf.String(), "Error [IDENTITY_RESOLUTION]")
}

func TestOutputFormatter_JSONReport(t *testing.T) {
	tests := []struct {
		name     string
		report   *engine.Report
		runErr   error
		status   string
		wantCode string
	}{
		{"clean", engine.NewReport("run-1", asset.MustParseRef("container://www/docs"), engine.Strict), nil, "ok", ""},
		{"failed entries", sampleReport(), nil, "error", CodeFailed},
		{"aborted", sampleReport(), errors.New("connection reset"), "error", CodeAborted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			formatter := &OutputFormatter{Format: "json", Writer: buf}
			require.NoError(t, formatter.Report(tt.report, tt.runErr))

			var resp CLIResponse
			require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
			assert.Equal(t, tt.status, resp.Status)
			assert.Equal(t, "run-1", resp.RunID)
			if tt.wantCode == "" {
				assert.Nil(t, resp.Error)
				assert.NotNil(t, resp.Data)
				return
			}
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
			assert.NotNil(t, resp.Error.Details)
		})
	}
}
