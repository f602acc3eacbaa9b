package bqstore

import (
	"encoding/json"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/illmade-knight/go-flowtransforms/pkg/flowvalue"
	"github.com/illmade-knight/go-flowtransforms/pkg/reportmapper"
)

// ReportRow is the archived form of a RESTReportBody. Columns carry the REST field
// names; absent values are stored as NULL. Strings, numbers and bools are stored in
// their string form, objects and arrays as JSON.
type ReportRow struct {
	MessageID         string              `bigquery:"message_id"`
	ArchivedAt        time.Time           `bigquery:"archived_at"`
	Name              bigquery.NullString `bigquery:"name"`
	Address           bigquery.NullString `bigquery:"address"`
	UserCallsign      bigquery.NullString `bigquery:"userCallsign"`
	DateTime          bigquery.NullString `bigquery:"dateTime"`
	TimeObserved      bigquery.NullString `bigquery:"TimeObserved"`
	MethodOfDetection bigquery.NullString `bigquery:"MethodOfDetection"`
	SurveillanceType  bigquery.NullString `bigquery:"SurveillanceType"`
	DurationOfEvent   bigquery.NullString `bigquery:"DurationofEvent"`
	EventScale        bigquery.NullString `bigquery:"eventScale"`
	Type              bigquery.NullString `bigquery:"type"`
	Size              bigquery.NullString `bigquery:"Size"`
	Equipment         bigquery.NullString `bigquery:"Equipment"`
	Activity          bigquery.NullString `bigquery:"activity"`
	Importance        bigquery.NullString `bigquery:"importance"`
	Status            bigquery.NullString `bigquery:"status"`
	Identification    bigquery.NullString `bigquery:"Identification"`
	AssessedThreats   bigquery.NullString `bigquery:"AssessedThreats"`
	FinalRemarks      bigquery.NullString `bigquery:"FinalRemarks"`
}

// NewReportRow flattens body into a row.
func NewReportRow(messageID string, body reportmapper.RESTReportBody, archivedAt time.Time) ReportRow {
	f := body.Body
	return ReportRow{
		MessageID:         messageID,
		ArchivedAt:        archivedAt,
		Name:              nullString(body.Name),
		Address:           nullString(body.Address),
		UserCallsign:      nullString(f.UserCallsign),
		DateTime:          nullString(f.DateTime),
		TimeObserved:      nullString(f.TimeObserved),
		MethodOfDetection: nullString(f.MethodOfDetection),
		SurveillanceType:  nullString(f.SurveillanceType),
		DurationOfEvent:   nullString(f.DurationOfEvent),
		EventScale:        nullString(f.EventScale),
		Type:              nullString(f.Type),
		Size:              nullString(f.Size),
		Equipment:         nullString(f.Equipment),
		Activity:          nullString(f.Activity),
		Importance:        nullString(f.Importance),
		Status:            nullString(f.Status),
		Identification:    nullString(f.Identification),
		AssessedThreats:   nullString(f.AssessedThreats),
		FinalRemarks:      nullString(f.FinalRemarks),
	}
}

func nullString(v flowvalue.Value) bigquery.NullString {
	raw, ok := v.Get()
	if !ok {
		return bigquery.NullString{}
	}
	switch raw.(type) {
	case map[string]any, []any:
		if data, err := json.Marshal(raw); err == nil {
			return bigquery.NullString{StringVal: string(data), Valid: true}
		}
	}
	return bigquery.NullString{StringVal: v.String(), Valid: true}
}
