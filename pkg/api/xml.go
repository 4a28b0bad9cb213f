package api

import (
	"encoding/xml"
	"time"

	"github.com/peerworks/classifierd/pkg/engine"
	"github.com/peerworks/classifierd/pkg/version"
)

// typedFloat renders a value with a "type=float" attribute, matching the
// original's XML output for numeric fields.
type typedFloat struct {
	Type  string  `xml:"type,attr"`
	Value float64 `xml:",chardata"`
}

func newTypedFloat(v float64) typedFloat {
	return typedFloat{Type: "float", Value: v}
}

// jobStatusXML renders a Job's Snapshot as the `<job>` document described
// in spec.md's external interfaces section.
type jobStatusXML struct {
	XMLName      xml.Name   `xml:"job"`
	ID           string     `xml:"id"`
	TagURL       string     `xml:"tag-url,omitempty"`
	Duration     typedFloat `xml:"duration"`
	Progress     typedFloat `xml:"progress"`
	Status       string     `xml:"status"`
	ErrorMessage string     `xml:"error-message,omitempty"`
}

func newJobStatusXML(snap engine.Snapshot) jobStatusXML {
	end := snap.CompletedAt
	if end.IsZero() {
		end = time.Now()
	}

	return jobStatusXML{
		ID:           snap.ID,
		TagURL:       snap.TagURL,
		Duration:     newTypedFloat(end.Sub(snap.CreatedAt).Seconds()),
		Progress:     newTypedFloat(snap.Progress),
		Status:       string(snap.State),
		ErrorMessage: snap.ErrorMessage,
	}
}

// createJobRequest is the body of POST /classifier/jobs: a `<job>` document
// carrying the training url of the tag to classify.
type createJobRequest struct {
	XMLName xml.Name `xml:"job"`
	Tag     string   `xml:"tag"`
}

// aboutXML renders GET /classifier: version and build info.
type aboutXML struct {
	XMLName xml.Name `xml:"classifier"`
	Version string   `xml:"version"`
	Build   string   `xml:"build"`
}

func newAboutXML() aboutXML {
	return aboutXML{
		Version: version.AppName,
		Build:   version.Full(),
	}
}

// errorsXML matches the original's `<errors><error>...</error></errors>`
// envelope for error responses.
type errorsXML struct {
	XMLName xml.Name `xml:"errors"`
	Error   string   `xml:"error"`
}
