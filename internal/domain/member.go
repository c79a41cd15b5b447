package domain

import "time"

// TicketMember links a user to a ticket room. AddedAt anchors the join-date
// visibility filter. The ticket creator always has a member row; creation is
// transactional so a ticket without its creator's row cannot exist.
type TicketMember struct {
	ID               string
	TicketID         string
	UserID           string
	AddedBy          string
	AddedAt          time.Time
	CanMessageClient bool
}
