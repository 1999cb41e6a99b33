// Package mail defines the contract the ingestion pipeline expects from a
// mail provider. The concrete implementation lives in internal/graph.
package mail

import (
	"context"
	"time"
)

// Source lists mail folders and messages. Implementations may paginate and
// rate-limit internally; callers see complete result sets.
type Source interface {
	// Folders returns every reachable mail folder, including nested ones.
	Folders(ctx context.Context) ([]*Folder, error)
	// Messages returns messages with attachments received in the given folder
	// since the provided time, attachment bytes included.
	Messages(ctx context.Context, folderID string, since time.Time) ([]*Message, error)
}

type Folder struct {
	ID       string
	Name     string
	FullPath string
}

type Sender struct {
	Address string
	Name    string
}

type Message struct {
	ID          string
	ReceivedAt  time.Time
	Sender      Sender
	Subject     string
	Attachments []*Attachment
}

type Attachment struct {
	Name      string
	SizeBytes int64
	Bytes     []byte
}
