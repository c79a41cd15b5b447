package handlers

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/collabkit/ticketdesk/internal/api/dto"
	"github.com/collabkit/ticketdesk/internal/domain"
)

func TestTicketCreateInput_CarriesCreationFiles(t *testing.T) {
	body := `{
		"title": "VPN access",
		"description": "need the client VPN profile",
		"priority": "P2",
		"member_ids": ["emp1"],
		"files": [{
			"file_name": "contract.pdf",
			"file_url": "https://blobs.test/t1/contract.pdf",
			"object_path": "t1/contract.pdf",
			"mime_type": "application/pdf",
			"size_bytes": 2048
		}]
	}`
	var req dto.CreateTicketRequest
	require.NoError(t, json.Unmarshal([]byte(body), &req))

	input := ticketCreateInput(req)
	assert.Equal(t, "VPN access", input.Title)
	assert.Equal(t, domain.PriorityP2, input.Priority)
	assert.Equal(t, []string{"emp1"}, input.MemberIDs)

	require.Len(t, input.CreationFiles, 1)
	file := input.CreationFiles[0]
	assert.Equal(t, "contract.pdf", file.FileName)
	assert.Equal(t, "https://blobs.test/t1/contract.pdf", file.FileURL)
	assert.Equal(t, "t1/contract.pdf", file.ObjectPath)
	assert.Equal(t, "application/pdf", file.MimeType)
	assert.Equal(t, int64(2048), file.SizeBytes)
}

func TestTicketCreateInput_NoFiles(t *testing.T) {
	input := ticketCreateInput(dto.CreateTicketRequest{Title: "Bare"})
	assert.Equal(t, "Bare", input.Title)
	assert.Empty(t, input.CreationFiles)
}
