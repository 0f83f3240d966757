package model

import "time"

// Venue is a physical location.  StateCode identifies the tax
// jurisdiction the venue belongs to.
type Venue struct {
    ID        uint64 `json:"id"`         // venues.id
    Name      string `json:"name"`       // venues.name
    StateCode string `json:"state_code"` // venues.state_code
}

// Event is a scheduled show at exactly one venue.
type Event struct {
    ID       uint64    `json:"id"`        // events.id
    Name     string    `json:"name"`      // events.name
    StartsAt time.Time `json:"starts_at"` // events.event_datetime
    VenueID  uint64    `json:"venue_id"`  // events.venue_id
}

// EventListing is the public projection of an event joined with its
// venue.
type EventListing struct {
    ID         uint64    `json:"id"`
    Name       string    `json:"name"`
    StartsAt   time.Time `json:"eventDateTime"`
    VenueName  string    `json:"venueName"`
    VenueState string    `json:"venueState"`
}
