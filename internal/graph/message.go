package graph

import (
	"time"

	"github.com/cvlens/cvlens/internal/mail"
)

const fileAttachmentType = "#microsoft.graph.fileAttachment"

type folderItem struct {
	ID               string `json:"id"`
	DisplayName      string `json:"displayName"`
	ChildFolderCount int    `json:"childFolderCount"`
}

type messageItem struct {
	ID               string `json:"id"`
	Subject          string `json:"subject"`
	ReceivedDateTime string `json:"receivedDateTime"`
	From             struct {
		EmailAddress struct {
			Address string `json:"address"`
			Name    string `json:"name"`
		} `json:"emailAddress"`
	} `json:"from"`
}

type attachmentItem struct {
	ODataType string `json:"@odata.type"`
	Name      string `json:"name"`
	Size      int64  `json:"size"`
	IsInline  bool   `json:"isInline"`
	// Graph serves file content base64-encoded; encoding/json decodes it.
	ContentBytes []byte `json:"contentBytes"`
}

func (m *messageItem) toMessage(attachments []*mail.Attachment) *mail.Message {
	received, err := time.Parse(time.RFC3339, m.ReceivedDateTime)
	if err != nil {
		received = time.Time{}
	}

	return &mail.Message{
		ID:         m.ID,
		ReceivedAt: received,
		Sender: mail.Sender{
			Address: m.From.EmailAddress.Address,
			Name:    m.From.EmailAddress.Name,
		},
		Subject:     m.Subject,
		Attachments: attachments,
	}
}
