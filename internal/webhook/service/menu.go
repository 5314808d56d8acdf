package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"flowgate/internal/directory"
	"flowgate/internal/messaging"
	"flowgate/internal/wizard"
	"flowgate/pkg/requestcontext"
)

const (
	welcomeText = "👋 Welcome to Terra Go! Let's get you started."
	apologyText = "Sorry, we're having trouble reaching our account service right now. Please try again in a few minutes."

	inviteBody   = "Complete your account setup in just a few quick steps."
	inviteCTA    = "Complete Registration"
	inviteHeader = "Welcome to Terra Go"
	inviteFooter = "Powered by terrasofthq.com"

	activitiesText = "Last 3 activities for your child:\n\n" +
		"- Boarded Bus at Junction Amboses Rd (Today, 8:15 AM)\n" +
		"- Arrived at Kiota School (Today, 8:45 AM)\n" +
		"- Departed for Home (Today, 3:10 PM)"
	journeyText = "Here is the live tracking link for your child's current journey.\n" +
		"This link is valid for the next 30 minutes"
	journeyLink = "https://www.terrasofthq.com/"
	pickupText  = "Option 5. Coming soon!"

	menuOptions = "1. Quick Status Update\n" +
		"2. Last 3 Activities\n" +
		"3. Critical Alerts\n" +
		"4. Live Journey Link\n" +
		"5. Authorize a Pickup\n" +
		"6. Manage My Account\n"
)

// MenuPrompt is the standing prompt appended after every handled message.
func MenuPrompt(name string) string {
	if name == "" {
		return "Is there anything else I can help you with?\n\n" + menuOptions
	}
	return fmt.Sprintf("Is there anything else I can help you with, %s?\n\n", name) + menuOptions
}

// AccountInfo renders option 6.
func AccountInfo(u *directory.User) string {
	status := "Inactive ❌"
	if u.IsActive {
		status = "Active ✅"
	}
	var b strings.Builder
	b.WriteString("📋 *Account Information*\n\n")
	fmt.Fprintf(&b, "Name: %s %s\n", u.FirstName, u.LastName)
	fmt.Fprintf(&b, "Email: %s\n", u.Email)
	fmt.Fprintf(&b, "Phone: %s\n", u.Phone)
	fmt.Fprintf(&b, "Role: %s\n", u.Role)
	fmt.Fprintf(&b, "ID: %s - %s\n", u.IdentificationDocument, u.IdentificationNumber)
	b.WriteString("Account Status: " + status)
	return b.String()
}

func (s *Service) handleText(ctx context.Context, msg *Message) error {
	user, found, err := s.lookup(ctx, msg.From)
	if err != nil {
		return err
	}
	if !found {
		s.logger.InfoContext(ctx, "unknown sender, inviting to register",
			"request_id", requestcontext.RequestID(ctx),
			"from", msg.From,
		)
		return s.invite(ctx, msg.From)
	}

	return errors.Join(
		s.menuReply(ctx, msg.From, user, msg.TextBody()),
		s.sendText(ctx, msg.From, MenuPrompt(user.FirstName)),
	)
}

// invite sends the welcome text and the registration Flow. No menu follows.
func (s *Service) invite(ctx context.Context, to string) error {
	welcomeErr := s.sendText(ctx, to, welcomeText)
	_, flowErr := s.messenger.SendFlow(ctx, to, messaging.FlowMessage{
		FlowID:    s.cfg.FlowID,
		Body:      inviteBody,
		CTA:       inviteCTA,
		FlowToken: s.sessionToken(),
		ActionPayload: &messaging.FlowActionPayload{
			Screen: string(wizard.ScreenGuardianDetails),
			Data:   map[string]any{"schools": s.catalog.Schools()},
		},
		Header: inviteHeader,
		Footer: inviteFooter,
		Action: "navigate",
	})
	return errors.Join(welcomeErr, flowErr)
}

func (s *Service) menuReply(ctx context.Context, to string, user *directory.User, choice string) error {
	name := user.FirstName
	switch strings.TrimSpace(choice) {
	case "1":
		return s.sendText(ctx, to, fmt.Sprintf("Hi %s! Option 1. Coming soon!", name))
	case "2":
		return s.sendText(ctx, to, activitiesText)
	case "3":
		return s.sendText(ctx, to, fmt.Sprintf("Good news, %s! There are no new critical alerts right now.", name))
	case "4":
		textErr := s.sendText(ctx, to, journeyText)
		_, linkErr := s.messenger.SendText(ctx, to, journeyLink, true)
		return errors.Join(textErr, linkErr)
	case "5":
		return s.sendText(ctx, to, pickupText)
	case "6":
		return s.sendText(ctx, to, AccountInfo(user))
	default:
		return s.sendText(ctx, to, fmt.Sprintf("Sorry %s, I don't understand that. Please select from the menu options.", name))
	}
}
