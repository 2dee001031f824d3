package chat

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"ragchat/internal/augment"
	"ragchat/internal/domain"
)

var mentionPattern = regexp.MustCompile(`@([\w.-]+\.txt)`)

// ExtractDocumentName returns the first @mentioned document in the message,
// or "" when no document is referenced.
func ExtractDocumentName(message string) string {
	match := mentionPattern.FindStringSubmatch(message)
	if match == nil {
		return ""
	}
	return match[1]
}

// DocumentReader resolves a referenced document's raw content.
type DocumentReader interface {
	Read(filename string) (string, error)
}

// Completer produces the assistant reply for a fully-formed prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Service handles one chat turn end to end. Upstream failures become
// user-visible response strings; a chat turn never crashes on a backend
// error.
type Service struct {
	documents DocumentReader
	policy    *augment.Policy
	completer Completer
	logger    *zap.Logger
}

func NewService(documents DocumentReader, policy *augment.Policy, completer Completer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{documents: documents, policy: policy, completer: completer, logger: logger}
}

// Respond builds the (possibly augmented) prompt for the message and asks
// the completion backend for a reply. The returned string is always shown to
// the user, whether it is an answer or an error description.
func (s *Service) Respond(ctx context.Context, message string) string {
	prompt := message

	if name := ExtractDocumentName(message); name != "" {
		content, err := s.documents.Read(name)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return fmt.Sprintf("The document '%s' was not found in the uploads folder.", name)
			}
			s.logger.Error("reading referenced document failed", zap.String("filename", name), zap.Error(err))
			return fmt.Sprintf("Error reading document '%s': %v", name, err)
		}
		// drop the mention syntax before the prompt goes downstream
		clean := strings.ReplaceAll(message, "@"+name, "the file "+name)
		prompt = s.policy.Augment(ctx, clean, &domain.Document{Filename: name, Content: content})
	}

	reply, err := s.completer.Complete(ctx, prompt)
	if err != nil {
		s.logger.Error("completion request failed", zap.Error(err))
		return fmt.Sprintf("Error connecting to the completion backend: %v", err)
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "Received empty response from the completion backend"
	}
	return reply
}
