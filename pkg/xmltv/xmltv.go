// Package xmltv provides the XMLTV document model and a streaming writer.
// Optional programme fields are pointers or nil slices; a nil value means
// the element is omitted entirely rather than written empty.
package xmltv

import "time"

// Channel represents a channel definition in an XMLTV file.
type Channel struct {
	ID           string
	DisplayNames []string
	Icon         string
}

// Credits holds cast and crew information. Either list may be empty, but a
// Credits value is only attached when at least one side was present in the
// source data.
type Credits struct {
	Directors []string
	Actors    []string
}

// Programme represents a single program entry in an XMLTV file.
// Start is rendered in the writer's location; there is no stop time, the
// length element carries the duration instead.
type Programme struct {
	Channel       string
	Start         time.Time
	Title         string
	SubTitle      *string
	Description   *string
	Categories    []string // nil omits the category elements
	LengthSeconds int64    // -1 means unknown length
	Rating        string
	Date          *string
	EpisodeNum    *string // onscreen-style code, system="common"
	IsNew         bool
	Credits       *Credits
}

// Document is an ordered collection of channels and their programmes.
type Document struct {
	Channels   []Channel
	Programmes []Programme
}
