package slackbot

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/slack-go/slack"
)

// mockSlack is a minimal Slack Web API. Every field is read under mu.
type mockSlack struct {
	mu sync.Mutex

	historyPages map[string]map[string]any // cursor -> response
	historyCalls []url.Values

	users     map[string]map[string]any
	userCalls map[string]int

	openError     string
	completeError string
	completeFiles []map[string]any
	uploaded      []byte
	uploadName    string
	completeCalls []url.Values

	posts []url.Values

	members      []map[string]any
	membersError string
}

func newMockSlack(t *testing.T) (*slack.Client, *mockSlack) {
	t.Helper()
	m := &mockSlack{
		historyPages:  map[string]map[string]any{},
		users:         map[string]map[string]any{},
		userCalls:     map[string]int{},
		completeFiles: []map[string]any{{"id": "F0REPORT", "title": "Your Order Requests Report"}},
	}

	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		defer m.mu.Unlock()

		if r.URL.Path == "/upload" {
			file, header, err := r.FormFile("file")
			if err != nil {
				t.Errorf("upload without file part: %v", err)
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			defer file.Close()
			m.uploaded, _ = io.ReadAll(file)
			m.uploadName = header.Filename
			_, _ = w.Write([]byte("OK"))
			return
		}

		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		path := strings.TrimPrefix(r.URL.Path, "/api/")
		switch path {
		case "conversations.history":
			m.historyCalls = append(m.historyCalls, r.PostForm)
			resp, ok := m.historyPages[r.PostForm.Get("cursor")]
			if !ok {
				resp = map[string]any{"ok": true, "messages": []any{}, "has_more": false}
			}
			_ = json.NewEncoder(w).Encode(resp)
		case "users.info":
			id := r.PostForm.Get("user")
			m.userCalls[id]++
			user, ok := m.users[id]
			if !ok {
				_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": "user_not_found"})
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "user": user})
		case "users.list":
			if m.membersError != "" {
				_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": m.membersError})
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "members": m.members})
		case "conversations.open":
			if m.openError != "" {
				_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": m.openError})
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "channel": map[string]any{"id": "D0DM"}})
		case "files.getUploadURLExternal":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"ok":         true,
				"upload_url": server.URL + "/upload",
				"file_id":    "F0REPORT",
			})
		case "files.completeUploadExternal":
			m.completeCalls = append(m.completeCalls, r.PostForm)
			if m.completeError != "" {
				_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": m.completeError})
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "files": m.completeFiles})
		case "chat.postMessage":
			m.posts = append(m.posts, r.PostForm)
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "channel": r.PostForm.Get("channel"), "ts": "1755700000.000100"})
		default:
			t.Errorf("unexpected slack call %s", path)
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": "unknown_method"})
		}
	}))
	t.Cleanup(server.Close)

	return slack.New("xoxb-test", slack.OptionAPIURL(server.URL+"/api/")), m
}
