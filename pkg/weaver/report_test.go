package weaver_test

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xeipuuv/gojsonschema"

	"github.com/voiceweave/voice-weaver/pkg/weaver"
)

// sampleReport returns a report with every optional field populated, shaped
// like the output of a small run with one skip and one unresolved token.
func sampleReport() weaver.Report {
	ts := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	return weaver.Report{
		Summary: weaver.ReportSummary{
			RunID:                  "0d4d2a6e-9a9f-4a8e-8f0a-b1a6a0f5a001",
			SchemaVersion:          weaver.ReportSchemaVersion,
			InputPath:              "/in",
			OutputPath:             "/out",
			ConfigFilePath:         "/home/user/.voice-weaver.yaml",
			ProfileUsed:            "archive",
			FragmentsDiscovered:    4,
			FragmentsParsed:        3,
			FragmentsSkipped:       1,
			MessageCount:           12,
			ConversationCount:      2,
			ConversationsWritten:   2,
			EmptyConversations:     0,
			RenderFailures:         0,
			ReferenceCount:         3,
			ResolvedCount:          2,
			UnresolvedCount:        1,
			ResolutionBreakdown:    map[string]int{weaver.StrategyExact: 1, weaver.StrategyOriginPrefix: 1},
			AttachmentsCopied:      2,
			AttachmentCopyFailures: 0,
			PoolFilesIndexed:       5,
			PoolScanSkipped:        false,
			CacheStatus:            weaver.CacheStatusMiss,
			WarningCount:           1,
			ErrorCount:             1,
			FatalErrorOccurred:     false,
			DurationSeconds:        1.234,
			Concurrency:            4,
			CacheEnabled:           true,
			Timestamp:              ts,
		},
		Conversations: []weaver.ConversationInfo{
			{
				ID:              "Alice Smith",
				OutputFile:      "Alice Smith.md",
				MessageCount:    10,
				SMSCount:        8,
				CallCount:       1,
				VoicemailCount:  1,
				AttachmentCount: 3,
				UnresolvedCount: 1,
				FirstActivity:   ts.Add(-48 * time.Hour),
				LastActivity:    ts.Add(-1 * time.Hour),
				RenderStatus:    weaver.RenderStatusOK,
			},
			{
				ID:              "+15559876543",
				OutputFile:      "+15559876543.md",
				MessageCount:    2,
				SMSCount:        2,
				FirstActivity:   ts.Add(-24 * time.Hour),
				LastActivity:    ts.Add(-2 * time.Hour),
				RenderStatus:    weaver.RenderStatusPlaceholder,
			},
		},
		Fragments: []weaver.FragmentInfo{
			{
				Path:           "Calls/Alice Smith - Text - 2024-01-15T18_32_45Z.html",
				Kind:           "text",
				Conversation:   "Alice Smith",
				MessageCount:   10,
				ReferenceCount: 3,
				DurationMs:     12,
			},
		},
		SkippedFragments: []weaver.SkippedInfo{
			{Path: "Calls/garbled.html", Reason: weaver.SkipReasonParseError, Detail: "file name \"garbled.html\" does not follow the archive convention"},
		},
		Unresolved: []weaver.UnresolvedInfo{
			{Token: "IMG_0001.jpg", Origins: []string{"Calls/Alice Smith - Text - 2024-01-15T18_32_45Z.html"}},
		},
		Errors: []weaver.ErrorInfo{
			{Path: "index.md", Error: "failed to write output file: index.md", IsFatal: false},
		},
	}
}

func TestReportStructInitialization(t *testing.T) {
	assert.NotPanics(t, func() {
		_ = weaver.Report{
			Summary: weaver.ReportSummary{
				Timestamp: time.Now(),
			},
			Conversations: []weaver.ConversationInfo{
				{ID: "Alice Smith", OutputFile: "Alice Smith.md"},
			},
			SkippedFragments: []weaver.SkippedInfo{
				{Path: "garbled.html", Reason: weaver.SkipReasonParseError},
			},
			Errors: []weaver.ErrorInfo{
				{Path: "a.html", Error: "read failed"},
			},
		}
	}, "Initializing Report struct should not panic")
}

func TestReportJSONSerialization_AllFields(t *testing.T) {
	report := sampleReport()

	jsonData, err := json.MarshalIndent(report, "", "  ")
	require.NoError(t, err, "Marshalling Report to JSON should not produce an error")
	jsonString := string(jsonData)

	assert.Contains(t, jsonString, `"inputPath": "/in"`)
	assert.Contains(t, jsonString, `"outputPath": "/out"`)
	assert.Contains(t, jsonString, `"fragmentsDiscovered": 4`)
	assert.Contains(t, jsonString, `"cacheStatus": "miss"`)
	assert.Contains(t, jsonString, `"fatalErrorOccurred": false`)
	assert.Contains(t, jsonString, `"timestamp": "2024-06-01T10:00:00Z"`)
	assert.Contains(t, jsonString, `"conversations": [`)
	assert.Contains(t, jsonString, `"fragments": [`)
	assert.Contains(t, jsonString, `"skippedFragments": [`)
	assert.Contains(t, jsonString, `"unresolved": [`)
	assert.Contains(t, jsonString, `"errors": [`)

	// Optional fields are present when populated.
	assert.Contains(t, jsonString, `"profileUsed": "archive"`)
	assert.Contains(t, jsonString, `"configFilePath": "/home/user/.voice-weaver.yaml"`)
	assert.Contains(t, jsonString, `"resolutionBreakdown": {`)
	assert.Contains(t, jsonString, `"detail": "file name`)

	var roundTripped weaver.Report
	err = json.Unmarshal(jsonData, &roundTripped)
	require.NoError(t, err, "Unmarshalling generated JSON back to Report struct should not fail")
	assert.Equal(t, report, roundTripped, "Unmarshalled report should equal the original")
}

func TestReportJSONSerialization_OmitEmpty(t *testing.T) {
	ts := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	report := weaver.Report{
		Summary: weaver.ReportSummary{
			RunID:         "run-1",
			SchemaVersion: weaver.ReportSchemaVersion,
			InputPath:     "/in",
			OutputPath:    "/out",
			CacheStatus:   weaver.CacheStatusDisabled,
			Concurrency:   1,
			Timestamp:     ts,
		},
		Conversations:    []weaver.ConversationInfo{},
		Fragments:        []weaver.FragmentInfo{},
		SkippedFragments: []weaver.SkippedInfo{},
		Unresolved:       []weaver.UnresolvedInfo{},
		Errors: []weaver.ErrorInfo{
			{Error: "run aborted by internal panic: boom", IsFatal: true},
		},
	}

	jsonData, err := json.MarshalIndent(report, "", "  ")
	require.NoError(t, err, "Marshalling Report with empty optional fields should not produce an error")
	jsonString := string(jsonData)

	// Empty slices marshal as [], not null, so the report shape is stable.
	assert.Contains(t, jsonString, `"conversations": []`)
	assert.Contains(t, jsonString, `"skippedFragments": []`)
	assert.Contains(t, jsonString, `"unresolved": []`)
	assert.Contains(t, jsonString, `"timestamp": "2024-06-01T10:00:00Z"`)

	// SchemaVersion is not optional; it appears even for empty-ish reports.
	assert.Contains(t, jsonString, `"schemaVersion":`)

	// Optional fields are absent when zero.
	assert.NotContains(t, jsonString, `"configFilePath":`)
	assert.NotContains(t, jsonString, `"profileUsed":`)
	assert.NotContains(t, jsonString, `"resolutionBreakdown":`)
	// The fatal error has no path, so ErrorInfo omits it.
	assert.NotContains(t, jsonString, `"path":`)

	var roundTripped weaver.Report
	err = json.Unmarshal(jsonData, &roundTripped)
	require.NoError(t, err, "Unmarshalling generated JSON back to Report struct should not fail")
	assert.Equal(t, "", roundTripped.Summary.ProfileUsed)
	assert.Nil(t, roundTripped.Summary.ResolutionBreakdown)
	assert.NotNil(t, roundTripped.Conversations)
	assert.Len(t, roundTripped.Conversations, 0)
	require.Len(t, roundTripped.Errors, 1)
	assert.True(t, roundTripped.Errors[0].IsFatal)
}

// TestReport_MatchesPublishedSchema validates the marshalled report against
// the JSON Schema shipped for downstream consumers. Report struct changes
// must keep the schema in sync.
func TestReport_MatchesPublishedSchema(t *testing.T) {
	schemaPath, err := filepath.Abs(filepath.Join("testdata", "report.schema.json"))
	require.NoError(t, err)
	schemaLoader := gojsonschema.NewReferenceLoader("file://" + filepath.ToSlash(schemaPath))

	t.Run("Well-formed report validates", func(t *testing.T) {
		jsonData, err := json.Marshal(sampleReport())
		require.NoError(t, err)

		result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(jsonData))
		require.NoError(t, err, "Schema validation should execute without error")

		for _, desc := range result.Errors() {
			t.Errorf("schema violation: %s", desc.String())
		}
		assert.True(t, result.Valid())
	})

	t.Run("Tampered report is rejected", func(t *testing.T) {
		var doc map[string]interface{}
		jsonData, err := json.Marshal(sampleReport())
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(jsonData, &doc))

		summary := doc["summary"].(map[string]interface{})
		delete(summary, "runId")
		summary["cacheStatus"] = "lukewarm"
		tampered, err := json.Marshal(doc)
		require.NoError(t, err)

		result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(tampered))
		require.NoError(t, err)
		require.False(t, result.Valid())
		assert.GreaterOrEqual(t, len(result.Errors()), 2, "both the missing field and the bad enum value are reported")
	})
}
