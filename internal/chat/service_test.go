package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragchat/internal/augment"
	"ragchat/internal/domain"
)

type stubReader struct {
	docs map[string]string
}

func (s stubReader) Read(filename string) (string, error) {
	content, ok := s.docs[filename]
	if !ok {
		return "", domain.ErrNotFound
	}
	return content, nil
}

type stubCompleter struct {
	reply  string
	err    error
	prompt string
}

func (s *stubCompleter) Complete(_ context.Context, prompt string) (string, error) {
	s.prompt = prompt
	return s.reply, s.err
}

type noRetriever struct{}

func (noRetriever) QuerySimilar(context.Context, string, int) ([]domain.QueryResult, error) {
	return nil, nil
}

func newTestService(docs map[string]string, completer *stubCompleter) *Service {
	policy := augment.NewPolicy(noRetriever{}, 0, 0, nil)
	return NewService(stubReader{docs: docs}, policy, completer, nil)
}

func TestExtractDocumentName(t *testing.T) {
	cases := []struct {
		message string
		want    string
	}{
		{"tell me about @report.txt please", "report.txt"},
		{"@notes-v2.txt", "notes-v2.txt"},
		{"@a.b.txt trailing", "a.b.txt"},
		{"first @one.txt then @two.txt", "one.txt"},
		{"no mention here", ""},
		{"@report.pdf is not supported", ""},
		{"email user@example.com mentions nothing", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ExtractDocumentName(tc.message), "message %q", tc.message)
	}
}

func TestRespondWithoutMentionForwardsMessageVerbatim(t *testing.T) {
	completer := &stubCompleter{reply: "hi!"}
	svc := newTestService(nil, completer)

	out := svc.Respond(context.Background(), "just chatting")
	assert.Equal(t, "hi!", out)
	assert.Equal(t, "just chatting", completer.prompt)
}

func TestRespondAugmentsMentionedDocument(t *testing.T) {
	completer := &stubCompleter{reply: "summary"}
	svc := newTestService(map[string]string{"notes.txt": "the notes"}, completer)

	out := svc.Respond(context.Background(), "summarize @notes.txt for me")
	assert.Equal(t, "summary", out)
	assert.Equal(t, "The content of notes.txt is:\n\nthe notes\n\nsummarize the file notes.txt for me", completer.prompt)
}

func TestRespondMissingDocument(t *testing.T) {
	completer := &stubCompleter{reply: "should not be reached"}
	svc := newTestService(nil, completer)

	out := svc.Respond(context.Background(), "read @missing.txt")
	assert.Equal(t, "The document 'missing.txt' was not found in the uploads folder.", out)
	assert.Empty(t, completer.prompt, "backend must not be called for a missing document")
}

func TestRespondCompletionErrorBecomesUserVisibleString(t *testing.T) {
	completer := &stubCompleter{err: errors.New("connection refused")}
	svc := newTestService(nil, completer)

	out := svc.Respond(context.Background(), "hello")
	assert.Equal(t, "Error connecting to the completion backend: connection refused", out)
}

func TestRespondEmptyReply(t *testing.T) {
	for _, reply := range []string{"", "   \n"} {
		completer := &stubCompleter{reply: reply}
		svc := newTestService(nil, completer)

		out := svc.Respond(context.Background(), "hello")
		require.Equal(t, "Received empty response from the completion backend", out)
	}
}
