// Package graph implements the mail.Source contract on top of the Microsoft
// Graph REST API. Authentication is out of scope: the client is handed an
// already-issued bearer token.
package graph

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/cvlens/cvlens/internal/mail"
	"go.uber.org/zap"
)

const (
	apiURL    = "https://graph.microsoft.com/v1.0"
	userAgent = "cvlens (resume screening)"
	// Max page size accepted by the messages endpoint.
	perPage = "50"
)

type Client struct {
	token      string
	logger     *zap.Logger
	HTTPClient *http.Client
	UserAgent  string
	APIURL     string
}

func New(logger *zap.Logger, token string) *Client {
	return &Client{
		token:  token,
		APIURL: apiURL,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger:    logger,
		UserAgent: userAgent,
	}
}

// Folders returns all mail folders, walking child folders recursively and
// building slash-separated full paths.
func (c *Client) Folders(ctx context.Context) ([]*mail.Folder, error) {
	return c.collectFolders(ctx, fmt.Sprintf("%s/me/mailFolders", c.APIURL), "")
}

func (c *Client) collectFolders(ctx context.Context, url string, parentPath string) ([]*mail.Folder, error) {
	var page []*folderItem
	if err := c.list(ctx, url, nil, &page); err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}

	folders := make([]*mail.Folder, 0, len(page))
	for _, item := range page {
		fullPath := item.DisplayName
		if parentPath != "" {
			fullPath = parentPath + "/" + item.DisplayName
		}

		folders = append(folders, &mail.Folder{
			ID:       item.ID,
			Name:     item.DisplayName,
			FullPath: fullPath,
		})

		if item.ChildFolderCount > 0 {
			childURL := fmt.Sprintf("%s/me/mailFolders/%s/childFolders", c.APIURL, item.ID)
			children, err := c.collectFolders(ctx, childURL, fullPath)
			if err != nil {
				return nil, err
			}
			folders = append(folders, children...)
		}
	}

	return folders, nil
}

// Messages returns messages with attachments received since the given time,
// downloading attachment content for each message.
func (c *Client) Messages(ctx context.Context, folderID string, since time.Time) ([]*mail.Message, error) {
	q := url.Values{}
	q.Set("$filter", fmt.Sprintf(
		"receivedDateTime ge %s and hasAttachments eq true",
		since.UTC().Format("2006-01-02T15:04:05Z"),
	))
	q.Set("$select", "id,subject,receivedDateTime,from")
	q.Set("$top", perPage)

	var items []*messageItem
	listURL := fmt.Sprintf("%s/me/mailFolders/%s/messages", c.APIURL, folderID)
	if err := c.list(ctx, listURL, q, &items); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	c.logger.Debug("got messages from graph", zap.Int("count", len(items)))

	messages := make([]*mail.Message, 0, len(items))
	for _, item := range items {
		attachments, err := c.attachments(ctx, item.ID)
		if err != nil {
			return nil, fmt.Errorf("attachments for message %s: %w", item.ID, err)
		}

		messages = append(messages, item.toMessage(attachments))
	}

	return messages, nil
}

func (c *Client) attachments(ctx context.Context, messageID string) ([]*mail.Attachment, error) {
	var items []*attachmentItem
	listURL := fmt.Sprintf("%s/me/messages/%s/attachments", c.APIURL, messageID)
	if err := c.list(ctx, listURL, nil, &items); err != nil {
		return nil, err
	}

	attachments := make([]*mail.Attachment, 0, len(items))
	for _, item := range items {
		// Only file attachments carry content. Inline images and item
		// attachments are not resume material.
		if item.ODataType != fileAttachmentType || item.IsInline {
			continue
		}

		attachments = append(attachments, &mail.Attachment{
			Name:      item.Name,
			SizeBytes: item.Size,
			Bytes:     item.ContentBytes,
		})
	}

	return attachments, nil
}
