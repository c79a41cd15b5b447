package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidStatus(t *testing.T) {
	assert.True(t, ValidStatus(TicketStatusPendingWithClient))
	assert.True(t, ValidStatus(TicketStatusClosed))
	assert.False(t, ValidStatus(TicketStatus("ARCHIVED")))
	assert.False(t, ValidStatus(TicketStatus("")))
	assert.False(t, ValidStatus(TicketStatus("created"))) // case sensitive
}

func TestStatusLabel(t *testing.T) {
	assert.Equal(t, "Pending with reviewer", TicketStatusPendingWithReviewer.Label())
	assert.Equal(t, "Created", TicketStatusCreated.Label())
	// unknown values fall through verbatim rather than panicking
	assert.Equal(t, "WEIRD", TicketStatus("WEIRD").Label())
}

func TestValidPriority(t *testing.T) {
	for _, p := range []TicketPriority{PriorityP1, PriorityP2, PriorityP3, PriorityP4, PriorityP5} {
		assert.True(t, ValidPriority(p), string(p))
	}
	assert.False(t, ValidPriority(TicketPriority("P0")))
	assert.False(t, ValidPriority(TicketPriority("P6")))
}

func TestDisplayBody(t *testing.T) {
	now := time.Now()
	by := "admin1"
	msg := &Message{Body: "original content"}
	require.Equal(t, "original content", msg.DisplayBody())

	msg.IsDeleted = true
	msg.DeletedAt = &now
	msg.DeletedBy = &by
	assert.Equal(t, DeletedPlaceholder, msg.DisplayBody())
	// the stored column keeps the original text
	assert.Equal(t, "original content", msg.Body)
}

func TestIsStaff(t *testing.T) {
	assert.True(t, RoleAdmin.IsStaff())
	assert.True(t, RoleEmployee.IsStaff())
	assert.True(t, RoleFreelancer.IsStaff())
	assert.False(t, RoleClient.IsStaff())
	assert.False(t, UserRole("").IsStaff())
}

func TestPreferenceAllows(t *testing.T) {
	pref := DefaultPreference("u1")
	for _, c := range []NotificationCategory{
		CategoryChatClients, CategoryChatInternal, CategoryStatusChange,
		CategoryTicketCreation, CategoryTicketAssigned,
	} {
		assert.True(t, pref.Allows(c))
	}

	pref.StatusChange = false
	pref.ChatInternal = false
	assert.False(t, pref.Allows(CategoryStatusChange))
	assert.False(t, pref.Allows(CategoryChatInternal))
	assert.True(t, pref.Allows(CategoryChatClients))
	// assignment notices cannot be muted
	pref.TicketCreation = false
	assert.True(t, pref.Allows(CategoryTicketAssigned))
}
