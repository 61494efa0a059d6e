// Package ical renders single-event iCalendar (RFC 5545) documents.
package ical

import (
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
)

type Event struct {
	UID         string
	Summary     string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
	Stamp       time.Time
}

// Calendar is a VCALENDAR holding one VEVENT.
type Calendar struct {
	ProductName string
	Event       Event
}

// Bytes renders the calendar. Times are written in UTC so the document needs no VTIMEZONE.
func (c Calendar) Bytes() []byte {
	cal := ics.NewCalendar()
	cal.SetProductId(fmt.Sprintf("-//%s//Booking//EN", c.ProductName))
	cal.SetMethod(ics.MethodPublish)

	event := cal.AddEvent(c.Event.UID)
	event.SetDtStampTime(c.Event.Stamp)
	event.SetStartAt(c.Event.Start)
	event.SetEndAt(c.Event.End)
	event.SetSummary(c.Event.Summary)

	if c.Event.Description != "" {
		event.SetDescription(c.Event.Description)
	}

	if c.Event.Location != "" {
		event.SetLocation(c.Event.Location)
	}

	return []byte(cal.Serialize())
}
