// Package reportmapper reshapes an observation report into the body of a REST request.
package reportmapper

import (
	"github.com/illmade-knight/go-flowtransforms/pkg/flowvalue"
)

// IncomingReport is an observation report as it arrives on a flow message.
// Every attribute is optional and untyped; the JSON names are the sender's own and
// their spelling and case are significant.
type IncomingReport struct {
	Name             flowvalue.Value `json:"name"`
	Address          flowvalue.Value `json:"address"`
	UserCallsign     flowvalue.Value `json:"userCallsign"`
	DateTime         flowvalue.Value `json:"dateTime"`
	Time             flowvalue.Value `json:"time"`
	Method           flowvalue.Value `json:"Method"`
	SurveillanceType flowvalue.Value `json:"SurveillanceType"`
	Duration         flowvalue.Value `json:"Duration"`
	EventScale       flowvalue.Value `json:"eventScale"`
	Type             flowvalue.Value `json:"type"`
	Size             flowvalue.Value `json:"size"`
	Equipment        flowvalue.Value `json:"equipment"`
	Activity         flowvalue.Value `json:"activity"`
	Importance       flowvalue.Value `json:"importance"`
	Status           flowvalue.Value `json:"status"`
	Identification   flowvalue.Value `json:"Identification"`
	AssessedThreats  flowvalue.Value `json:"AssessedThreats"`
	FinalRemarks     flowvalue.Value `json:"FinalRemarks"`
}

// RESTReportBody is the request shape expected by the report REST endpoint.
type RESTReportBody struct {
	Name    flowvalue.Value `json:"name"`
	Address flowvalue.Value `json:"address"`
	Body    ReportFields    `json:"body"`
}

// ReportFields is the nested "body" record. Absent values encode as null; no key is
// ever omitted.
type ReportFields struct {
	UserCallsign      flowvalue.Value `json:"userCallsign"`
	DateTime          flowvalue.Value `json:"dateTime"`
	TimeObserved      flowvalue.Value `json:"TimeObserved"`
	MethodOfDetection flowvalue.Value `json:"MethodOfDetection"`
	SurveillanceType  flowvalue.Value `json:"SurveillanceType"`
	DurationOfEvent   flowvalue.Value `json:"DurationofEvent"`
	EventScale        flowvalue.Value `json:"eventScale"`
	Type              flowvalue.Value `json:"type"`
	Size              flowvalue.Value `json:"Size"`
	Equipment         flowvalue.Value `json:"Equipment"`
	Activity          flowvalue.Value `json:"activity"`
	Importance        flowvalue.Value `json:"importance"`
	Status            flowvalue.Value `json:"status"`
	Identification    flowvalue.Value `json:"Identification"`
	AssessedThreats   flowvalue.Value `json:"AssessedThreats"`
	FinalRemarks      flowvalue.Value `json:"FinalRemarks"`
}

// MapReport copies every report attribute to its place in the REST body.
// Renames: time→TimeObserved, Method→MethodOfDetection, Duration→DurationofEvent,
// size→Size, equipment→Equipment. Everything else keeps its name.
func MapReport(in IncomingReport) RESTReportBody {
	return RESTReportBody{
		Name:    in.Name,
		Address: in.Address,
		Body: ReportFields{
			UserCallsign:      in.UserCallsign,
			DateTime:          in.DateTime,
			TimeObserved:      in.Time,
			MethodOfDetection: in.Method,
			SurveillanceType:  in.SurveillanceType,
			DurationOfEvent:   in.Duration,
			EventScale:        in.EventScale,
			Type:              in.Type,
			Size:              in.Size,
			Equipment:         in.Equipment,
			Activity:          in.Activity,
			Importance:        in.Importance,
			Status:            in.Status,
			Identification:    in.Identification,
			AssessedThreats:   in.AssessedThreats,
			FinalRemarks:      in.FinalRemarks,
		},
	}
}
