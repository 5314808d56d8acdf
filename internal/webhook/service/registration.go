package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"flowgate/internal/directory"
	"flowgate/pkg/requestcontext"
)

const (
	guardianFailedText = "Sorry, there was an issue creating your account. Please try again or contact support."
	childFailedText    = "Your account was created, but there was an issue registering your child. Please contact support."
)

var errNoGuardianID = errors.New("directory returned no guardian id")

func welcomeWithChild(first, child string) string {
	return fmt.Sprintf("🎉 Welcome aboard, %s! 🎉\n\n"+
		"Your Terra Go account is all set up for %s. You're now ready to receive real-time updates and have peace of mind! 🚌✨",
		first, child)
}

func welcomeWithoutChild(first string) string {
	return fmt.Sprintf("🎉 Welcome aboard, %s! 🎉\n\n"+
		"Your Terra Go account is all set up. You're now ready to receive real-time updates! 🚌✨", first)
}

// handleInteractive processes a completed registration Flow. Senders who
// already have an account are acknowledged without side effects.
func (s *Service) handleInteractive(ctx context.Context, msg *Message) error {
	if msg.Interactive == nil || msg.Interactive.Type != InteractiveNFMReply || msg.Interactive.NFMReply == nil {
		s.logger.WarnContext(ctx, "unsupported interactive message",
			"request_id", requestcontext.RequestID(ctx),
			"from", msg.From,
		)
		return nil
	}

	_, found, err := s.lookup(ctx, msg.From)
	if err != nil {
		return err
	}
	if found {
		s.logger.InfoContext(ctx, "ignoring flow submission from registered sender",
			"request_id", requestcontext.RequestID(ctx),
			"from", msg.From,
		)
		return nil
	}

	reply := msg.Interactive.NFMReply
	var sub Submission
	if err := json.Unmarshal([]byte(reply.ResponseJSON), &sub); err != nil {
		s.logger.ErrorContext(ctx, "flow submission could not be decoded",
			"request_id", requestcontext.RequestID(ctx),
			"from", msg.From,
			"flow_name", reply.Name,
			"error", err,
		)
		return errors.Join(
			fmt.Errorf("%w: decode response_json: %w", ErrMalformedEvent, err),
			s.sendText(ctx, msg.From, guardianFailedText),
			s.sendText(ctx, msg.From, MenuPrompt("")),
		)
	}

	s.logger.InfoContext(ctx, "flow submission received",
		"request_id", requestcontext.RequestID(ctx),
		"from", msg.From,
		"flow_name", reply.Name,
		"flow_token", sub.FlowToken,
		"has_guardian", sub.Guardian != nil,
		"has_child", sub.Child != nil,
	)

	name, err := s.register(ctx, msg.From, sub)
	return errors.Join(err, s.sendText(ctx, msg.From, MenuPrompt(name)))
}

// register creates the guardian and then, only if that succeeded, the
// child. It returns the guardian's first name once the account exists.
func (s *Service) register(ctx context.Context, to string, sub Submission) (string, error) {
	if sub.Guardian == nil {
		return "", nil
	}
	requestID := requestcontext.RequestID(ctx)

	guardian, err := s.directory.RegisterGuardian(ctx, *sub.Guardian)
	if err != nil {
		s.logger.ErrorContext(ctx, "guardian registration failed",
			"request_id", requestID,
			"from", to,
			"error", err,
		)
		return "", errors.Join(
			fmt.Errorf("register guardian: %w", err),
			s.sendText(ctx, to, guardianFailedText),
		)
	}
	first := guardian.FirstName
	if first == "" {
		first = sub.Guardian.FirstName
	}
	s.logger.InfoContext(ctx, "guardian registered",
		"request_id", requestID,
		"guardian_id", string(guardian.ID),
	)

	if sub.Child == nil {
		return first, s.sendText(ctx, to, welcomeWithoutChild(first))
	}
	if guardian.ID == "" {
		s.logger.ErrorContext(ctx, "guardian registered without an id, cannot link dependant",
			"request_id", requestID,
			"from", to,
		)
		return first, errors.Join(
			fmt.Errorf("register dependant: %w", errNoGuardianID),
			s.sendText(ctx, to, childFailedText),
		)
	}

	child, err := s.directory.RegisterDependant(ctx, *sub.Child, guardian.ID)
	if err != nil {
		s.logger.ErrorContext(ctx, "dependant registration failed",
			"request_id", requestID,
			"guardian_id", string(guardian.ID),
			"error", err,
		)
		return first, errors.Join(
			fmt.Errorf("register dependant: %w", err),
			s.sendText(ctx, to, childFailedText),
		)
	}
	s.logger.InfoContext(ctx, "dependant registered",
		"request_id", requestID,
		"guardian_id", string(guardian.ID),
		"dependant_id", string(child.ID),
	)

	childName := child.FullName()
	if childName == "" {
		childName = (&directory.Dependant{
			FirstName:  sub.Child.FirstName,
			MiddleName: sub.Child.MiddleName,
			LastName:   sub.Child.LastName,
		}).FullName()
	}
	return first, s.sendText(ctx, to, welcomeWithChild(first, childName))
}
