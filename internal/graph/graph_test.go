package graph

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := New(zap.NewNop(), "test-token")
	client.APIURL = server.URL

	return client
}

func TestFoldersWalksChildrenAndPages(t *testing.T) {
	mux := http.NewServeMux()

	var base string
	mux.HandleFunc("/me/mailFolders", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Fatalf("unexpected authorization header %q", got)
		}

		if r.URL.Query().Get("page") == "2" {
			fmt.Fprint(w, `{"value": [{"id": "archive", "displayName": "Archive", "childFolderCount": 0}]}`)
			return
		}
		fmt.Fprintf(w, `{
			"value": [{"id": "inbox", "displayName": "Inbox", "childFolderCount": 1}],
			"@odata.nextLink": "%s/me/mailFolders?page=2"
		}`, base)
	})
	mux.HandleFunc("/me/mailFolders/inbox/childFolders", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"value": [{"id": "recruiting", "displayName": "Recruiting", "childFolderCount": 0}]}`)
	})

	client := testClient(t, mux)
	base = client.APIURL

	folders, err := client.Folders(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(folders) != 3 {
		t.Fatalf("expected 3 folders, got %d", len(folders))
	}
	if folders[1].FullPath != "Inbox/Recruiting" {
		t.Fatalf("unexpected child path %q", folders[1].FullPath)
	}
	if folders[2].Name != "Archive" {
		t.Fatalf("expected the paginated folder last, got %q", folders[2].Name)
	}
}

func TestMessagesFiltersAndDownloadsAttachments(t *testing.T) {
	content := base64.StdEncoding.EncodeToString([]byte("pdf bytes"))

	mux := http.NewServeMux()
	mux.HandleFunc("/me/mailFolders/inbox/messages", func(w http.ResponseWriter, r *http.Request) {
		filter := r.URL.Query().Get("$filter")
		if !strings.Contains(filter, "hasAttachments eq true") {
			t.Fatalf("filter does not restrict to attachments: %q", filter)
		}
		if !strings.Contains(filter, "receivedDateTime ge 2026-08-01T00:00:00Z") {
			t.Fatalf("filter does not carry the retention window: %q", filter)
		}

		fmt.Fprint(w, `{"value": [{
			"id": "msg-1",
			"subject": "Application",
			"receivedDateTime": "2026-08-05T09:30:00Z",
			"from": {"emailAddress": {"address": "jane@example.com", "name": "Jane Doe"}}
		}]}`)
	})
	mux.HandleFunc("/me/messages/msg-1/attachments", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `{"value": [
			{
				"@odata.type": "#microsoft.graph.fileAttachment",
				"name": "resume.pdf", "size": 9, "isInline": false,
				"contentBytes": "%s"
			},
			{
				"@odata.type": "#microsoft.graph.fileAttachment",
				"name": "logo.png", "size": 4, "isInline": true,
				"contentBytes": "%s"
			},
			{"@odata.type": "#microsoft.graph.itemAttachment", "name": "forwarded", "size": 100}
		]}`, content, content)
	})

	client := testClient(t, mux)

	since := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	messages, err := client.Messages(context.Background(), "inbox", since)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}

	msg := messages[0]
	if msg.Sender.Address != "jane@example.com" {
		t.Fatalf("unexpected sender %q", msg.Sender.Address)
	}
	if !msg.ReceivedAt.Equal(time.Date(2026, 8, 5, 9, 30, 0, 0, time.UTC)) {
		t.Fatalf("unexpected received time %v", msg.ReceivedAt)
	}

	// Inline and item attachments are dropped.
	if len(msg.Attachments) != 1 {
		t.Fatalf("expected 1 attachment, got %d", len(msg.Attachments))
	}
	att := msg.Attachments[0]
	if att.Name != "resume.pdf" || string(att.Bytes) != "pdf bytes" {
		t.Fatalf("unexpected attachment %+v", att)
	}
}

func TestMessagesBadStatus(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	})

	client := testClient(t, mux)

	if _, err := client.Messages(context.Background(), "inbox", time.Time{}); err == nil {
		t.Fatal("expected an error for a non-200 response")
	}
}
