package mail

import (
	"context"
	"fmt"
	"html"
	"net/url"
	"strings"

	"github.com/aliuyar1234/printshop/internal/orgs"
)

// InvitationMailer renders invitations and queues them in the outbox.
type InvitationMailer struct {
	outbox  *Outbox
	baseURL string
}

func NewInvitationMailer(outbox *Outbox, baseURL string) *InvitationMailer {
	return &InvitationMailer{outbox: outbox, baseURL: strings.TrimRight(baseURL, "/")}
}

func (m *InvitationMailer) SendInvitation(ctx context.Context, inv orgs.Invitation) error {
	_, err := m.outbox.Enqueue(ctx, RenderInvitation(inv, m.baseURL))
	return err
}

// RenderInvitation builds the invitation email for inv.
func RenderInvitation(inv orgs.Invitation, baseURL string) Message {
	link := strings.TrimRight(baseURL, "/") + "/?invite=" + url.QueryEscape(inv.OrgID.String())
	org := html.EscapeString(inv.OrgName)

	inviter := "A teammate"
	if inv.InviterEmail != "" {
		inviter = html.EscapeString(inv.InviterEmail)
	}

	body := fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="UTF-8"><title>Invitation to %[1]s</title></head>
<body style="font-family: -apple-system, 'Segoe UI', Roboto, sans-serif; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
  <h2>You're invited to join %[1]s</h2>
  <p>%[2]s has invited you to join <strong>%[1]s</strong> on Print Shop Manager as <strong>%[3]s</strong>.</p>
  <p>Sign in with this email address to accept or decline the invitation.</p>
  <p><a href="%[4]s" style="display: inline-block; padding: 10px 20px; background: #1976d2; color: #fff; border-radius: 4px; text-decoration: none;">Open Print Shop Manager</a></p>
  <p style="color: #666; font-size: 14px;">If you weren't expecting this invitation, you can ignore this email.</p>
</body>
</html>`, org, inviter, html.EscapeString(string(inv.Role)), html.EscapeString(link))

	return Message{
		To:      inv.Email,
		Subject: fmt.Sprintf("You're invited to join %s on Print Shop Manager", inv.OrgName),
		HTML:    body,
	}
}
