package reportmapper

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/illmade-knight/go-flowtransforms/pkg/flowvalue"
	"github.com/illmade-knight/go-flowtransforms/pkg/messagepipeline"
	"github.com/rs/zerolog"
)

// DecodeReport reads a report from a JSON object. Keys are matched exactly, including
// case. Anything that is not a JSON object (empty input, scalars, arrays, malformed
// bytes) yields a report with every attribute absent, so the result is always mappable.
func DecodeReport(payload []byte) IncomingReport {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return IncomingReport{}
	}
	var fields map[string]flowvalue.Value
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return IncomingReport{}
	}
	return IncomingReport{
		Name:             fields["name"],
		Address:          fields["address"],
		UserCallsign:     fields["userCallsign"],
		DateTime:         fields["dateTime"],
		Time:             fields["time"],
		Method:           fields["Method"],
		SurveillanceType: fields["SurveillanceType"],
		Duration:         fields["Duration"],
		EventScale:       fields["eventScale"],
		Type:             fields["type"],
		Size:             fields["size"],
		Equipment:        fields["equipment"],
		Activity:         fields["activity"],
		Importance:       fields["importance"],
		Status:           fields["status"],
		Identification:   fields["Identification"],
		AssessedThreats:  fields["AssessedThreats"],
		FinalRemarks:     fields["FinalRemarks"],
	}
}

// NewTransformer returns the flow node that replaces a report payload with its REST
// body. It never skips and never fails.
func NewTransformer(logger zerolog.Logger) messagepipeline.MessageTransformer[RESTReportBody] {
	logger = logger.With().Str("component", "ReportPayloadMapper").Logger()

	return func(_ context.Context, msg *messagepipeline.Message) (*RESTReportBody, bool, error) {
		report := DecodeReport(msg.Payload)
		if !report.Name.IsPresent() {
			logger.Debug().Str("msg_id", msg.ID).Msg("Report has no name, mapping anyway.")
		}
		body := MapReport(report)
		return &body, false, nil
	}
}
